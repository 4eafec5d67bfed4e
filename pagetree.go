package pdf

// Rect is an axis-aligned rectangle in default user space, as stored in
// /MediaBox and /CropBox (llx, lly, urx, ury).
type Rect struct {
	LLX, LLY, URX, URY float64
}

// Page is a fully resolved leaf of the page tree: every inheritable
// attribute (MediaBox, CropBox, Resources, Rotate) has already been
// walked up to the nearest ancestor that defines it.
type Page struct {
	Index     int
	Dict      Value
	MediaBox  Rect
	CropBox   Rect
	Resources Value
	Rotate    int
}

// inherited carries the page-tree attributes a /Pages node or /Page leaf
// may inherit from its ancestors, per 7.7.3.4 of the PDF spec.
type inherited struct {
	mediaBox  *Rect
	cropBox   *Rect
	resources *Value
	rotate    *int
}

// PageCount walks the page tree once (depth-first, cycle-guarded) and
// returns the total leaf count.
func (doc *Document) PageCount() (int, error) {
	var n int
	err := doc.retry(func() error {
		doc.lastErr = nil
		pages, perr := doc.pagesDictNoRetry()
		if perr != nil {
			return perr
		}
		count := 0
		err := doc.walkPages(pages, inherited{}, 0, func(int, Value, inherited) error {
			count++
			return nil
		})
		if err != nil {
			return err
		}
		n = count
		return doc.lastErr
	})
	return n, err
}

// pagesDictNoRetry is PagesDict's body without its own retry wrapper, for
// use inside an already-retrying caller.
func (doc *Document) pagesDictNoRetry() (Value, error) {
	root, ok := doc.trailer["Root"]
	if !ok {
		return Value{}, &CorruptedPDF{Message: "trailer missing /Root"}
	}
	cat := doc.resolve(ObjectId{}, root)
	if doc.lastErr != nil {
		return Value{}, doc.lastErr
	}
	pages := cat.Key("Pages")
	if doc.lastErr != nil {
		return Value{}, doc.lastErr
	}
	return pages, nil
}

// GetPage resolves and caches the index-th page (0-based) in document
// order.
func (doc *Document) GetPage(index int) (*Page, error) {
	if p, ok := doc.pageCache.get(index); ok {
		return p, nil
	}
	var result *Page
	err := doc.retry(func() error {
		doc.lastErr = nil
		pages, perr := doc.pagesDictNoRetry()
		if perr != nil {
			return perr
		}
		var found *Page
		n := 0
		err := doc.walkPages(pages, inherited{}, 0, func(i int, leaf Value, inh inherited) error {
			if n == index {
				page, berr := buildPage(index, leaf, inh)
				if berr != nil {
					return berr
				}
				found = page
			}
			n++
			return nil
		})
		if err != nil {
			return err
		}
		if doc.lastErr != nil {
			return doc.lastErr
		}
		if found == nil {
			return &CorruptedPDF{Message: "page index out of range"}
		}
		result = found
		return nil
	})
	if err != nil {
		return nil, wrapPageError("get page", index, err)
	}
	doc.pageCache.put(index, result)
	return result, nil
}

// walkPages performs a depth-first traversal of the page tree rooted at
// node, invoking visit for each /Page leaf in document order with its
// fully-merged inherited attributes. depth guards against a /Kids cycle
// or a tree deeper than any real document would be.
func (doc *Document) walkPages(node Value, inh inherited, depth int, visit func(int, Value, inherited) error) error {
	if depth > doc.opts.MaxKidsDepth {
		return &CorruptedPDF{Message: "page tree exceeds maximum depth"}
	}
	inh = mergeInherited(inh, node)

	kids := node.Key("Kids")
	if doc.lastErr != nil {
		return doc.lastErr
	}
	if kids.IsNull() {
		return visit(0, node, inh)
	}
	n := kids.Len()
	for i := 0; i < n; i++ {
		child := kids.Index(i)
		if doc.lastErr != nil {
			return doc.lastErr
		}
		typ := child.Key("Type").Name()
		if doc.lastErr != nil {
			return doc.lastErr
		}
		if typ == "Page" {
			if err := visit(0, child, mergeInherited(inh, child)); err != nil {
				return err
			}
			continue
		}
		// A conforming /Pages node always sets /Type, but tolerate one
		// that doesn't and decide by presence of /Kids instead.
		if typ == "" {
			grandkids := child.Key("Kids")
			if doc.lastErr != nil {
				return doc.lastErr
			}
			if grandkids.IsNull() {
				if err := visit(0, child, mergeInherited(inh, child)); err != nil {
					return err
				}
				continue
			}
		}
		if err := doc.walkPages(child, inh, depth+1, visit); err != nil {
			return err
		}
	}
	return nil
}

func mergeInherited(base inherited, node Value) inherited {
	out := base
	if mb := node.Key("MediaBox"); mb.Kind() == KindArray && mb.Len() == 4 {
		r := arrayToRect(mb)
		out.mediaBox = &r
	}
	if cb := node.Key("CropBox"); cb.Kind() == KindArray && cb.Len() == 4 {
		r := arrayToRect(cb)
		out.cropBox = &r
	}
	if res := node.Key("Resources"); res.Kind() == KindDict {
		out.resources = &res
	}
	if rot := node.Key("Rotate"); rot.Kind() == KindInteger || rot.Kind() == KindReal {
		r := int(rot.Int64())
		out.rotate = &r
	}
	return out
}

func arrayToRect(v Value) Rect {
	return Rect{
		LLX: v.Index(0).Float64(),
		LLY: v.Index(1).Float64(),
		URX: v.Index(2).Float64(),
		URY: v.Index(3).Float64(),
	}
}

// buildPage assembles a leaf's fully-inherited attributes. A missing
// /MediaBox anywhere in the leaf's ancestor chain (including the leaf
// itself) is a CorruptedPDF: MediaBox is the one inheritable attribute a
// conforming page tree is guaranteed to resolve, and fabricating a default
// would silently mask a malformed tree.
func buildPage(index int, leaf Value, inh inherited) (*Page, error) {
	p := &Page{Index: index, Dict: leaf}
	if inh.mediaBox == nil {
		return nil, &CorruptedPDF{Message: "page has no inheritable /MediaBox"}
	}
	p.MediaBox = *inh.mediaBox
	if inh.cropBox != nil {
		p.CropBox = *inh.cropBox
	} else {
		p.CropBox = p.MediaBox
	}
	if inh.resources != nil {
		p.Resources = *inh.resources
	}
	if inh.rotate != nil {
		r := *inh.rotate % 360
		if r < 0 {
			r += 360
		}
		if r%90 == 0 {
			p.Rotate = r
		}
	}
	return p, nil
}
