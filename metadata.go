package pdf

import "unicode/utf16"

// Metadata is the subset of the /Info dictionary most callers want,
// decoded from either PDFDocEncoding or UTF-16BE (a leading 0xFE 0xFF
// byte-order mark distinguishes the two, per 7.9.2.2).
type Metadata struct {
	Title, Author, Subject, Keywords string
	Creator, Producer               string
}

// Metadata reads the trailer's /Info dictionary, if present.
func (doc *Document) Metadata() (Metadata, error) {
	var m Metadata
	err := doc.retry(func() error {
		doc.lastErr = nil
		info, ok := doc.trailer["Info"]
		if !ok {
			return nil
		}
		v := doc.resolve(ObjectId{}, info)
		if doc.lastErr != nil {
			return doc.lastErr
		}
		m = Metadata{
			Title:    decodeText(v.Key("Title").RawString()),
			Author:   decodeText(v.Key("Author").RawString()),
			Subject:  decodeText(v.Key("Subject").RawString()),
			Keywords: decodeText(v.Key("Keywords").RawString()),
			Creator:  decodeText(v.Key("Creator").RawString()),
			Producer: decodeText(v.Key("Producer").RawString()),
		}
		return doc.lastErr
	})
	return m, err
}

// decodeText converts a PDF text string to UTF-8: UTF-16BE (with BOM) or
// PDFDocEncoding, which for the printable ASCII range this core cares
// about (titles, authors) coincides with Latin-1.
func decodeText(raw string) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		b := []byte(raw[2:])
		units := make([]uint16, len(b)/2)
		for i := range units {
			units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
		}
		return string(utf16.Decode(units))
	}
	runes := make([]rune, len(raw))
	for i := 0; i < len(raw); i++ {
		runes[i] = rune(raw[i])
	}
	return string(runes)
}

// OutlineNode is one entry in the document's bookmark tree.
type OutlineNode struct {
	Title    string
	PageRef  ObjectId
	Children []OutlineNode
}

// Outline reads the catalog's /Outlines bookmark tree, if present. Cycle
// depth is bounded the same way page-tree traversal is.
func (doc *Document) Outline() ([]OutlineNode, error) {
	var nodes []OutlineNode
	err := doc.retry(func() error {
		doc.lastErr = nil
		cat, cerr := doc.catalogNoRetry()
		if cerr != nil {
			return cerr
		}
		root := cat.Key("Outlines")
		if doc.lastErr != nil {
			return doc.lastErr
		}
		if root.IsNull() {
			nodes = nil
			return nil
		}
		first := root.Key("First")
		if doc.lastErr != nil {
			return doc.lastErr
		}
		out, err := doc.walkOutline(first, 0)
		if err != nil {
			return err
		}
		nodes = out
		return doc.lastErr
	})
	return nodes, err
}

func (doc *Document) catalogNoRetry() (Value, error) {
	root, ok := doc.trailer["Root"]
	if !ok {
		return Value{}, &CorruptedPDF{Message: "trailer missing /Root"}
	}
	cat := doc.resolve(ObjectId{}, root)
	if doc.lastErr != nil {
		return Value{}, doc.lastErr
	}
	return cat, nil
}

func (doc *Document) walkOutline(node Value, depth int) ([]OutlineNode, error) {
	if depth > doc.opts.MaxKidsDepth {
		return nil, &CorruptedPDF{Message: "outline tree exceeds maximum depth"}
	}
	var out []OutlineNode
	for !node.IsNull() {
		title := decodeText(node.Key("Title").RawString())
		if doc.lastErr != nil {
			return nil, doc.lastErr
		}
		var pageRef ObjectId
		if dest := node.Key("Dest"); dest.Kind() == KindArray && dest.Len() > 0 {
			pageRef = dest.Index(0).ptr
		}

		first := node.Key("First")
		if doc.lastErr != nil {
			return nil, doc.lastErr
		}
		var children []OutlineNode
		if !first.IsNull() {
			c, err := doc.walkOutline(first, depth+1)
			if err != nil {
				return nil, err
			}
			children = c
		}

		out = append(out, OutlineNode{Title: title, PageRef: pageRef, Children: children})
		node = node.Key("Next")
		if doc.lastErr != nil {
			return nil, doc.lastErr
		}
	}
	return out, nil
}
