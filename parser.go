package pdf

import "strconv"

// maxArrayElements bounds array/dict literal sizes the parser will accept
// in one object, guarding against a corrupt length field turning a small
// read into an unbounded allocation.
const maxArrayElements = 100_000

// parser turns lexer tokens into the object sum type. It implements the
// spec's two-token lookahead for indirect references: "N G obj" is
// unambiguous at the top level (only legal after an xref-pointed offset),
// but "N G R" can only be told apart from three bare numbers by peeking
// past the second integer for the literal keyword "R".
type parser struct {
	lx  *lexer
	src ChunkedSource
}

func newParser(src ChunkedSource, pos int64) *parser {
	return &parser{lx: newLexer(src, pos), src: src}
}

// parseObject reads one PDF object (recursing into arrays/dicts/streams),
// resolving "N G R" into an ObjectId rather than eagerly dereferencing it.
func (p *parser) parseObject() (object, error) {
	t, err := p.lx.next()
	if err != nil {
		return nil, err
	}
	return p.parseObjectFrom(t)
}

func (p *parser) parseObjectFrom(t token) (object, error) {
	switch t.kind {
	case tokInteger:
		return p.maybeReference(t.i)
	case tokReal:
		return t.f, nil
	case tokString:
		return t.s, nil
	case tokName:
		return internName(t.s), nil
	case tokArrayStart:
		return p.parseArray()
	case tokDictStart:
		return p.parseDictOrStream()
	case tokKeyword:
		switch t.s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		default:
			return nil, &ParseError{Message: "unexpected keyword " + t.s, Position: p.lx.tell()}
		}
	default:
		return nil, &ParseError{Message: "unexpected token", Position: p.lx.tell()}
	}
}

// maybeReference has just consumed an integer; it looks ahead for
// "<integer> R" to decide between a bare number and an indirect reference.
func (p *parser) maybeReference(first int64) (object, error) {
	mark := p.lx.tell()
	t2, err := p.lx.next()
	if err != nil {
		// Not enough data to decide; restore the position and surface the
		// error (DataMissing) so a top-level caller can widen the window
		// and retry.
		p.lx.seek(mark)
		return nil, err
	}
	if t2.kind != tokInteger {
		p.lx.unreadToken(t2)
		return first, nil
	}
	gen := t2.i

	mark2 := p.lx.tell()
	t3, err := p.lx.next()
	if err != nil {
		p.lx.seek(mark2)
		p.lx.unreadToken(t2)
		return first, nil
	}
	if t3.kind == tokKeyword && t3.s == "R" {
		if first < 0 || gen < 0 || first > int64(^uint32(0)) || gen > int64(^uint16(0)) {
			return nil, &CorruptedPDF{Message: "object reference out of range"}
		}
		return ObjectId{Number: uint32(first), Generation: uint16(gen)}, nil
	}
	p.lx.seek(mark2)
	p.lx.unreadToken(t2)
	return first, nil
}

func (p *parser) parseArray() (Array, error) {
	var arr Array
	for {
		t, err := p.lx.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokArrayEnd {
			return arr, nil
		}
		elem, err := p.parseObjectFrom(t)
		if err != nil {
			return nil, err
		}
		if len(arr) >= maxArrayElements {
			return nil, &CorruptedPDF{Message: "array exceeds element limit"}
		}
		arr = append(arr, elem)
	}
}

func (p *parser) parseDictOrStream() (object, error) {
	d := Dict{}
	for {
		t, err := p.lx.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokDictEnd {
			break
		}
		if t.kind != tokName {
			return nil, &ParseError{Message: "expected dictionary key", Position: p.lx.tell()}
		}
		if len(d) >= maxArrayElements {
			return nil, &CorruptedPDF{Message: "dictionary exceeds entry limit"}
		}
		val, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		d[internName(t.s)] = val
	}

	mark := p.lx.tell()
	t, err := p.lx.next()
	if err != nil {
		// Can't tell yet whether "stream" follows; treat as a plain dict
		// for now. A genuine stream keyword just past the available
		// window will surface again once the caller widens and re-parses
		// from the dict's start, since dicts are always re-entrant reads.
		p.lx.seek(mark)
		return d, nil
	}
	if t.kind != tokKeyword || t.s != "stream" {
		p.lx.unreadToken(t)
		return d, nil
	}
	return p.parseStreamBody(d)
}

// parseStreamBody consumes the EOL after the "stream" keyword (CRLF or
// bare LF; a bare CR is nonconforming but tolerated) and computes the raw
// data offset. A direct integer /Length is recorded as RawLen here; an
// indirect /Length is left to the caller, since it needs a resolver.
func (p *parser) parseStreamBody(d Dict) (object, error) {
	b, err := p.lx.readByte()
	if err != nil {
		return nil, err
	}
	if b == '\r' {
		nb, err := p.lx.peekByte()
		if err != nil {
			return nil, err
		}
		if nb == '\n' {
			p.lx.pos++
		}
	} else if b != '\n' {
		// nonconforming producer omitted the EOL; back up, the byte just
		// read is the first byte of stream data
		p.lx.pos--
	}
	s := Stream{Dict: d, Offset: p.lx.tell()}
	if n, ok := d["Length"].(int64); ok {
		s.RawLen = n
	}
	return s, nil
}

// indirectObjectHeader parses "N G obj" at the lexer's position and returns
// its ObjectId, leaving the lexer just past the "obj" keyword, where the
// object value begins.
func (p *parser) indirectObjectHeader() (ObjectId, error) {
	t1, err := p.lx.next()
	if err != nil {
		return ObjectId{}, err
	}
	if t1.kind != tokInteger {
		return ObjectId{}, &ParseError{Message: "expected object number", Position: p.lx.tell()}
	}
	t2, err := p.lx.next()
	if err != nil {
		return ObjectId{}, err
	}
	if t2.kind != tokInteger {
		return ObjectId{}, &ParseError{Message: "expected generation number", Position: p.lx.tell()}
	}
	t3, err := p.lx.next()
	if err != nil {
		return ObjectId{}, err
	}
	if t3.kind != tokKeyword || t3.s != "obj" {
		return ObjectId{}, &ParseError{Message: "expected 'obj' keyword", Position: p.lx.tell()}
	}
	return ObjectId{Number: uint32(t1.i), Generation: uint16(t2.i)}, nil
}

// parseIndirectObjectAt parses the full "N G obj ... endobj" at pos and
// returns the contained value (a Stream value's RawLen holds a direct
// /Length and is zero otherwise; the resolver sets it once /Length is
// resolved).
//
// For a non-stream value this also requires "endobj" to follow immediately:
// any other token there means the object definition carried trailing
// garbage, which is a CorruptedPDF rather than something to tolerate. A
// stream's own "endstream endobj" trailer is not checked here, and the
// resolver does not check it either: it takes a usable integer /Length as
// is, and searches for "endstream" only when /Length is missing or does
// not resolve to an integer (rescanForEndstream).
func (p *parser) parseIndirectObjectAt(pos int64) (ObjectId, object, error) {
	p.lx.seek(pos)
	id, err := p.indirectObjectHeader()
	if err != nil {
		return ObjectId{}, nil, err
	}
	val, err := p.parseObject()
	if err != nil {
		return ObjectId{}, nil, err
	}
	if s, ok := val.(Stream); ok {
		s.Ptr = id
		return id, s, nil
	}
	t, err := p.lx.next()
	if err != nil {
		return ObjectId{}, nil, err
	}
	if t.kind != tokKeyword || t.s != "endobj" {
		return ObjectId{}, nil, &CorruptedPDF{Message: "trailing tokens before endobj"}
	}
	return id, val, nil
}

func parseIntStrict(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
