package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/chunkworks/pdf/logger"
)

// Document is a parsed PDF, addressable through a ChunkedSource that may
// still be loading. Every exported method that walks the object graph
// follows the same shape: attempt the operation, and if it surfaces
// DataMissing, call EnsureRange and retry from the top. A Document is not
// safe for concurrent use; Clone gives each goroutine its own caches and
// resolution state over the same underlying source.
type Document struct {
	src       ChunkedSource
	xref      map[uint32]xrefEntry
	trailer   Dict
	objCache  *objectCache
	pageCache *pageCache
	opts      OpenOptions

	lastErr  error
	refDepth int
}

// Open parses a Document out of an in-memory byte slice. A MemorySource
// already holds every byte, so Open never retries: a DataMissing from it
// means a read past the end of data, which EnsureRange cannot satisfy.
func Open(data []byte, opts OpenOptions) (*Document, error) {
	return openSource(NewMemorySource(data), opts)
}

// OpenFile parses a Document backed by a chunked, LRU-bounded read of a
// local file.
func OpenFile(path string, opts OpenOptions) (*Document, error) {
	src, err := OpenFileSource(path, opts.Source, opts.Progress)
	if err != nil {
		return nil, err
	}
	return openSource(src, opts)
}

// OpenURL parses a Document backed by HTTP range requests, fetching only
// the header and tail chunks up front and the rest lazily as GetPage and
// content extraction touch it.
func OpenURL(ctx context.Context, url string, opts OpenOptions) (*Document, error) {
	src, err := OpenHTTPSource(ctx, url, opts.Source, opts.HTTPTimeout, opts.Progress)
	if err != nil {
		return nil, err
	}
	return openSource(src, opts)
}

func openSource(src ChunkedSource, opts OpenOptions) (*Document, error) {
	if err := opts.Validate(); err != nil {
		return nil, &PDFError{Op: "open", Err: err}
	}
	doc := &Document{
		src:       src,
		objCache:  newObjectCache(opts.Cache.ObjectCacheCapacity),
		pageCache: newPageCache(opts.Cache.PageCacheCapacity),
		opts:      opts,
	}

	err := doc.retry(func() error {
		xref, trailer, err := loadXref(doc.src)
		if err != nil {
			return err
		}
		doc.xref = xref
		doc.trailer = trailer
		return nil
	})
	if err != nil {
		if opts.ReconstructOnCorruptXref && isCorrupted(err) {
			logger.Debug("xref load failed, attempting reconstruction", "err", err)
			err = doc.retry(func() error { return doc.reconstructXref() })
		}
		if err != nil {
			return nil, wrapError("open", err)
		}
	}

	if _, encrypted := doc.trailer["Encrypt"]; encrypted {
		return nil, wrapError("open", ErrEncrypted)
	}
	return doc, nil
}

func isCorrupted(err error) bool {
	var c *CorruptedPDF
	return errors.As(err, &c)
}

// retry runs fn, and on DataMissing widens the source and tries again,
// up to a generous bound so a pathological repeated-miss can't spin
// forever.
func (doc *Document) retry(fn func() error) error {
	const maxAttempts = 64
	for i := 0; i < maxAttempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		dm, ok := AsDataMissing(err)
		if !ok {
			return err
		}
		if err := doc.src.EnsureRange(dm.Pos, dm.Len); err != nil {
			return err
		}
	}
	return &CorruptedPDF{Message: "too many DataMissing retries"}
}

// resolve dereferences raw (an ObjectId or a direct value) into a Value
// scoped to this Document. DataMissing and structural errors are stashed
// on the Document rather than returned, matching the teacher's
// never-panics accessor idiom; callers at the operation boundary check
// Document.lastErr via retry.
func (doc *Document) resolve(parent ObjectId, raw object) Value {
	if doc.lastErr != nil {
		return Value{}
	}
	id, ok := raw.(ObjectId)
	if !ok {
		return Value{doc: doc, ptr: parent, data: raw}
	}
	val, err := doc.resolveRef(id)
	if err != nil {
		doc.lastErr = err
		return Value{}
	}
	return Value{doc: doc, ptr: id, data: val}
}

func (doc *Document) resolveRef(id ObjectId) (object, error) {
	if v, ok := doc.objCache.get(id); ok {
		return v, nil
	}
	doc.refDepth++
	defer func() { doc.refDepth-- }()
	if doc.refDepth > doc.opts.MaxRefDepth {
		return nil, &CorruptedPDF{Message: "indirect reference chain too deep"}
	}

	entry, ok := doc.xref[id.Number]
	if !ok || entry.kind == xrefFree {
		return nil, nil // dangling/free references resolve to null, per spec
	}

	var val object
	var err error
	switch entry.kind {
	case xrefInFile:
		var actualId ObjectId
		actualId, val, err = newParser(doc.src, entry.offset).parseIndirectObjectAt(entry.offset)
		if err == nil && actualId != id {
			err = &CorruptedPDF{Message: fmt.Sprintf("xref entry for %s resolves to object %s at offset %d", id, actualId, entry.offset)}
		}
	case xrefInStream:
		val, err = doc.resolveFromObjStm(entry.streamNum, entry.indexIn)
	}
	if err != nil {
		return nil, err
	}

	if s, ok := val.(Stream); ok {
		length, err := doc.resolveStreamLength(s)
		if err != nil {
			return nil, err
		}
		s.RawLen = length
		val = s
	}

	doc.objCache.put(id, val)
	return val, nil
}

// resolveStreamLength resolves a stream's /Length, following one level of
// indirection if needed (the common case: /Length is itself an
// N-generation reference written after the stream so producers don't need
// a second pass to fill it in).
func (doc *Document) resolveStreamLength(s Stream) (int64, error) {
	switch v := s.Dict["Length"].(type) {
	case int64:
		return v, nil
	case ObjectId:
		raw, err := doc.resolveRef(v)
		if err != nil {
			return 0, err
		}
		if n, ok := raw.(int64); ok {
			return n, nil
		}
		return doc.rescanForEndstream(s)
	default:
		return doc.rescanForEndstream(s)
	}
}

// rescanForEndstream is the fallback when /Length is missing or doesn't
// resolve to an integer: scan forward from the stream's data offset for
// the next "endstream" keyword, bounded so a missing terminator can't
// force an unbounded scan.
func (doc *Document) rescanForEndstream(s Stream) (int64, error) {
	const maxScan = 64 << 20
	if err := doc.src.EnsureRange(s.Offset, maxScan); err != nil {
		dm, ok := AsDataMissing(err)
		if !ok {
			return 0, err
		}
		total, known := doc.src.Length()
		if known && dm.Pos+dm.Len > total {
			if err := doc.src.EnsureRange(s.Offset, total-s.Offset); err != nil {
				return 0, err
			}
		} else {
			return 0, err
		}
	}
	total, _ := doc.src.Length()
	scanLen := maxScan
	if s.Offset+int64(scanLen) > total {
		scanLen = int(total - s.Offset)
	}
	buf, err := doc.src.Slice(s.Offset, int64(scanLen))
	if err != nil {
		return 0, err
	}
	idx := indexOf(buf, []byte("endstream"))
	if idx < 0 {
		return 0, &CorruptedPDF{Message: "endstream not found"}
	}
	end := idx
	for end > 0 && (buf[end-1] == '\n' || buf[end-1] == '\r') {
		end--
	}
	return int64(end), nil
}

func indexOf(buf, sub []byte) int {
	if len(sub) == 0 || len(sub) > len(buf) {
		return -1
	}
	for i := 0; i+len(sub) <= len(buf); i++ {
		if string(buf[i:i+len(sub)]) == string(sub) {
			return i
		}
	}
	return -1
}

// Catalog returns the document catalog (/Root).
func (doc *Document) Catalog() (Value, error) {
	var v Value
	err := doc.retry(func() error {
		doc.lastErr = nil
		root, ok := doc.trailer["Root"]
		if !ok {
			doc.lastErr = &CorruptedPDF{Message: "trailer missing /Root"}
			return doc.lastErr
		}
		v = doc.resolve(ObjectId{}, root)
		return doc.lastErr
	})
	return v, err
}

// PagesDict returns the catalog's /Pages root node.
func (doc *Document) PagesDict() (Value, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return Value{}, err
	}
	var v Value
	err = doc.retry(func() error {
		doc.lastErr = nil
		v = cat.Key("Pages")
		return doc.lastErr
	})
	return v, err
}

// Close releases the underlying source.
func (doc *Document) Close() error { return doc.src.Close() }
