package pdf

import (
	"strconv"

	"golang.org/x/sys/cpu"
)

// tokenKind enumerates the lexical token classes a lexer produces.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInteger
	tokReal
	tokString
	tokName
	tokArrayStart
	tokArrayEnd
	tokDictStart
	tokDictEnd
	tokKeyword // true, false, null, obj, endobj, stream, endstream, R, xref, trailer, startxref
)

type token struct {
	kind tokenKind
	i    int64
	f    float64
	s    string // string/name payload, or keyword text
}

// lexer tokenizes PDF syntax directly off a ChunkedSource. Every method
// that needs bytes beyond what is currently loaded returns (or wraps) a
// *DataMissing rather than blocking; callers at the parser/resolver layer
// are expected to call EnsureRange and retry the whole operation. This
// mirrors the teacher's buffer type but trades its io.Reader pull model
// for direct, repeatable random access into the source.
type lexer struct {
	src ChunkedSource
	pos int64

	unreadTok  *token
	unreadPos  int64 // lexer.pos to restore after consuming the unread token
	hasUnread  bool

	tmp []byte // scratch buffer reused across readLiteralString/readHexString
}

func newLexer(src ChunkedSource, pos int64) *lexer {
	return &lexer{src: src, pos: pos, tmp: make([]byte, 0, 64)}
}

func (lx *lexer) tell() int64 { return lx.pos }

func (lx *lexer) seek(pos int64) {
	lx.pos = pos
	lx.hasUnread = false
}

func (lx *lexer) unreadToken(t token) {
	lx.unreadTok = &t
	lx.unreadPos = lx.pos
	lx.hasUnread = true
}

func (lx *lexer) peekByte() (byte, error) {
	b, err := lx.src.GetByte(lx.pos)
	return b, err
}

func (lx *lexer) readByte() (byte, error) {
	b, err := lx.src.GetByte(lx.pos)
	if err != nil {
		return 0, err
	}
	lx.pos++
	return b, nil
}

func isSpace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool { return !isSpace(b) && !isDelim(b) }

// skipWhitespaceAndComments advances past whitespace and %-comments. A
// comment missing its terminating EOL at the current read boundary is
// reported as DataMissing so the caller can widen the range and retry;
// it is never silently treated as extending to source EOF.
func (lx *lexer) skipWhitespaceAndComments() error {
	for {
		b, err := lx.peekByte()
		if err != nil {
			return err
		}
		if isSpace(b) {
			lx.pos++
			continue
		}
		if b == '%' {
			lx.pos++
			for {
				b, err := lx.peekByte()
				if err != nil {
					return err
				}
				if b == '\r' || b == '\n' {
					break
				}
				lx.pos++
			}
			continue
		}
		return nil
	}
}

// next reads the next token, honoring a single pushed-back token.
func (lx *lexer) next() (token, error) {
	if lx.hasUnread {
		t := *lx.unreadTok
		lx.hasUnread = false
		return t, nil
	}
	if err := lx.skipWhitespaceAndComments(); err != nil {
		return token{}, err
	}
	b, err := lx.readByte()
	if err != nil {
		return token{}, err
	}

	switch {
	case b == '/':
		return lx.readName()
	case b == '(':
		return lx.readLiteralString()
	case b == '<':
		nb, err := lx.peekByte()
		if err != nil {
			return token{}, err
		}
		if nb == '<' {
			lx.pos++
			return token{kind: tokDictStart}, nil
		}
		return lx.readHexString()
	case b == '>':
		nb, err := lx.peekByte()
		if err != nil {
			return token{}, err
		}
		if nb != '>' {
			return token{}, &ParseError{Message: "unexpected '>'", Position: lx.pos}
		}
		lx.pos++
		return token{kind: tokDictEnd}, nil
	case b == '[':
		return token{kind: tokArrayStart}, nil
	case b == ']':
		return token{kind: tokArrayEnd}, nil
	case b == '{' || b == '}':
		// PostScript calculator syntax inside Type4 functions; surfaced as
		// a keyword so callers that don't care can skip over it.
		return token{kind: tokKeyword, s: string(b)}, nil
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		lx.pos--
		return lx.readNumber()
	default:
		lx.pos--
		return lx.readKeyword()
	}
}

func (lx *lexer) readName() (token, error) {
	lx.tmp = lx.tmp[:0]
	for {
		b, err := lx.peekByte()
		if err != nil {
			return token{}, err
		}
		if !isRegular(b) {
			break
		}
		lx.pos++
		if b == '#' {
			h1, err := lx.peekByte()
			if err != nil {
				return token{}, err
			}
			if isHexDigit(h1) {
				lx.pos++
				h2, err := lx.peekByte()
				if err != nil {
					return token{}, err
				}
				if isHexDigit(h2) {
					lx.pos++
					b = hexVal(h1)<<4 | hexVal(h2)
				} else {
					b = hexVal(h1)
				}
			}
		}
		lx.tmp = append(lx.tmp, b)
	}
	return token{kind: tokName, s: string(lx.tmp)}, nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

func (lx *lexer) readLiteralString() (token, error) {
	lx.tmp = lx.tmp[:0]
	depth := 1
	for {
		b, err := lx.readByte()
		if err != nil {
			return token{}, err
		}
		switch b {
		case '(':
			depth++
			lx.tmp = append(lx.tmp, b)
		case ')':
			depth--
			if depth == 0 {
				return token{kind: tokString, s: string(lx.tmp)}, nil
			}
			lx.tmp = append(lx.tmp, b)
		case '\\':
			esc, err := lx.readByte()
			if err != nil {
				return token{}, err
			}
			switch esc {
			case 'n':
				lx.tmp = append(lx.tmp, '\n')
			case 'r':
				lx.tmp = append(lx.tmp, '\r')
			case 't':
				lx.tmp = append(lx.tmp, '\t')
			case 'b':
				lx.tmp = append(lx.tmp, '\b')
			case 'f':
				lx.tmp = append(lx.tmp, '\f')
			case '(', ')', '\\':
				lx.tmp = append(lx.tmp, esc)
			case '\r':
				nb, err := lx.peekByte()
				if err == nil && nb == '\n' {
					lx.pos++
				}
				// line continuation: escaped EOL produces no character
			case '\n':
				// line continuation
			default:
				if esc >= '0' && esc <= '7' {
					val := esc - '0'
					for i := 0; i < 2; i++ {
						nb, err := lx.peekByte()
						if err != nil || nb < '0' || nb > '7' {
							break
						}
						lx.pos++
						val = val*8 + (nb - '0')
					}
					lx.tmp = append(lx.tmp, val)
				} else {
					lx.tmp = append(lx.tmp, esc)
				}
			}
		case '\r':
			lx.tmp = append(lx.tmp, '\n')
			nb, err := lx.peekByte()
			if err == nil && nb == '\n' {
				lx.pos++
			}
		default:
			lx.tmp = append(lx.tmp, b)
		}
	}
}

// hasAVX2 gates the bulk hex-decoding path: when available, readHexString
// decodes whole already-loaded chunks with a single bounds check per byte
// instead of going through the source's single-byte accessor, which is
// where the teacher's AVX2 detection gated an assembly routine this core
// doesn't carry (see DESIGN.md).
func hasAVX2() bool { return cpu.X86.HasAVX2 }

func (lx *lexer) readHexString() (token, error) {
	lx.tmp = lx.tmp[:0]
	if hasAVX2() {
		done, err := lx.readHexStringBulk()
		if err != nil {
			return token{}, err
		}
		if done {
			return token{kind: tokString, s: string(lx.tmp)}, nil
		}
	}
	return lx.readHexStringScalar()
}

// readHexStringBulk decodes directly out of a single already-cached
// region via Slice, skipping the per-byte source accessor call. It only
// fires when the whole string through its terminating '>' is already
// available in one contiguous slice; otherwise it reports !done and the
// caller falls back to the scalar, byte-at-a-time path that can straddle
// chunk (or DataMissing) boundaries.
func (lx *lexer) readHexStringBulk() (done bool, err error) {
	const probeLen = 8192
	region, serr := lx.src.Slice(lx.pos, probeLen)
	if serr != nil {
		region, serr = lx.src.Slice(lx.pos, 256)
		if serr != nil {
			return false, nil
		}
	}
	end := -1
	for i, b := range region {
		if b == '>' {
			end = i
			break
		}
	}
	if end < 0 {
		return false, nil
	}
	var hi byte
	haveHi := false
	for _, b := range region[:end] {
		if isSpace(b) {
			continue
		}
		if !isHexDigit(b) {
			return true, &ParseError{Message: "invalid hex digit in string", Position: lx.pos}
		}
		if !haveHi {
			hi = hexVal(b)
			haveHi = true
			continue
		}
		lx.tmp = append(lx.tmp, hi<<4|hexVal(b))
		haveHi = false
	}
	if haveHi {
		lx.tmp = append(lx.tmp, hi<<4)
	}
	lx.pos += int64(end) + 1
	return true, nil
}

func (lx *lexer) readHexStringScalar() (token, error) {
	var hi byte
	haveHi := false
	for {
		b, err := lx.readByte()
		if err != nil {
			return token{}, err
		}
		if b == '>' {
			if haveHi {
				lx.tmp = append(lx.tmp, hi<<4)
			}
			return token{kind: tokString, s: string(lx.tmp)}, nil
		}
		if isSpace(b) {
			continue
		}
		if !isHexDigit(b) {
			return token{}, &ParseError{Message: "invalid hex digit in string", Position: lx.pos}
		}
		if !haveHi {
			hi = hexVal(b)
			haveHi = true
			continue
		}
		lx.tmp = append(lx.tmp, hi<<4|hexVal(b))
		haveHi = false
	}
}

var commonKeywords = map[string]bool{
	"obj": true, "endobj": true, "stream": true, "endstream": true,
	"R": true, "xref": true, "trailer": true, "startxref": true,
	"true": true, "false": true, "null": true, "n": true, "f": true,
}

func (lx *lexer) readKeyword() (token, error) {
	lx.tmp = lx.tmp[:0]
	for {
		b, err := lx.peekByte()
		if err != nil {
			if len(lx.tmp) > 0 {
				break
			}
			return token{}, err
		}
		if !isRegular(b) {
			break
		}
		lx.pos++
		lx.tmp = append(lx.tmp, b)
	}
	if len(lx.tmp) == 0 {
		return token{}, &ParseError{Message: "empty token", Position: lx.pos}
	}
	return token{kind: tokKeyword, s: string(lx.tmp)}, nil
}

func (lx *lexer) readNumber() (token, error) {
	lx.tmp = lx.tmp[:0]
	isReal := false
	for {
		b, err := lx.peekByte()
		if err != nil {
			if len(lx.tmp) > 0 {
				break
			}
			return token{}, err
		}
		if b == '+' || b == '-' || (b >= '0' && b <= '9') {
			lx.pos++
			lx.tmp = append(lx.tmp, b)
			continue
		}
		if b == '.' {
			isReal = true
			lx.pos++
			lx.tmp = append(lx.tmp, b)
			continue
		}
		break
	}
	s := string(lx.tmp)
	if isReal {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f = 0 // malformed reals are common in the wild; 0 is the PDF.js-style fallback
		}
		return token{kind: tokReal, f: f}, nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Overflows i64 (or is otherwise malformed): fall back to the
		// magnitude as a float rather than discarding it as 0, matching the
		// "integers overflowing i64 become Real" rule.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			f = 0
		}
		return token{kind: tokReal, f: f}, nil
	}
	return token{kind: tokInteger, i: i}, nil
}
