package pdf

import (
	"golang.org/x/sync/errgroup"
)

// Clone returns a new Document over the same ChunkedSource and xref table
// with its own object/page caches and resolution state, so a goroutine
// can walk the object graph independently without racing the caches of
// another goroutine doing the same. The xref table and trailer are
// read-only after Open/reconstructXref and are shared, not copied.
func (doc *Document) Clone() *Document {
	return &Document{
		src:       doc.src,
		xref:      doc.xref,
		trailer:   doc.trailer,
		objCache:  newObjectCache(doc.opts.Cache.ObjectCacheCapacity),
		pageCache: newPageCache(doc.opts.Cache.PageCacheCapacity),
		opts:      doc.opts,
	}
}

// PageText pairs a page index with its extracted text, or the error
// extracting it hit, for ExtractPages' batch result.
type PageText struct {
	Index int
	Text  string
	Err   error
}

// ExtractPages extracts text (as assembled strings) for every page in
// [0, PageCount) concurrently, each worker operating on its own Clone so
// the shared ChunkedSource is the only thing actually shared. Workers is
// the concurrency limit; a value <= 0 uses 4.
func (doc *Document) ExtractPages(opts TextExtractionOptions, workers int) ([]PageText, error) {
	count, err := doc.PageCount()
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 4
	}

	results := make([]PageText, count)
	var g errgroup.Group
	g.SetLimit(workers)

	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			clone := doc.Clone()
			page, err := clone.GetPage(i)
			if err != nil {
				results[i] = PageText{Index: i, Err: err}
				return nil
			}
			text, err := clone.ExtractTextAsString(page, opts)
			results[i] = PageText{Index: i, Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}
