package pdf

import (
	"sort"
	"strings"
)

// matrix is a PDF 2D affine transform [a b c d e f], applied to a row
// vector: [x' y' 1] = [x y 1] * M.
type matrix struct{ a, b, c, d, e, f float64 }

var identityMatrix = matrix{1, 0, 0, 1, 0, 0}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		a: m.a*n.a + m.b*n.c,
		b: m.a*n.b + m.b*n.d,
		c: m.c*n.a + m.d*n.c,
		d: m.c*n.b + m.d*n.d,
		e: m.e*n.a + m.f*n.c + n.e,
		f: m.e*n.b + m.f*n.d + n.f,
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return x*m.a + y*m.c + m.e, x*m.b + y*m.d + m.f
}

// TextItem is one run of text shown by a single Tj/TJ/'/" operator, with
// its origin in default user space after the current text and CTM
// transforms have been applied.
type TextItem struct {
	Text     string
	X, Y     float64
	FontSize float64
	FontName Name
}

// gstate is the subset of the graphics+text state the extractor tracks;
// everything that doesn't affect text geometry (color, line width, ...)
// is parsed (to keep the operand stack consistent) but discarded.
type gstate struct {
	ctm matrix
	tm  matrix
	tlm matrix

	fontName Name
	fontSize float64
	charSp   float64
	wordSp   float64
	leading  float64
	hscale   float64
	rise     float64
	renderMd int64
}

func newGState() gstate {
	return gstate{ctm: identityMatrix, tm: identityMatrix, tlm: identityMatrix, hscale: 100}
}

// contentExtractor interprets a content stream's text-showing operators
// and collects TextItems. Non-text operators are recognized only enough
// to keep the q/Q graphics-state stack and CTM correct; anything else
// (paths, images, shading, marked content) is a no-op.
type contentExtractor struct {
	doc   *Document
	opts  TextExtractionOptions
	items []TextItem
	stack []gstate
	gs    gstate
}

func newContentExtractor(doc *Document, opts TextExtractionOptions) *contentExtractor {
	return &contentExtractor{doc: doc, opts: opts, gs: newGState()}
}

// extractContent runs every content stream of page (its /Contents entry
// may be a single stream or an array of streams, concatenated with an
// implied space per 7.8.2) through the operator interpreter.
func (doc *Document) extractContent(page *Page, opts TextExtractionOptions) ([]TextItem, error) {
	ex := newContentExtractor(doc, opts)
	contents := page.Dict.Key("Contents")
	if doc.lastErr != nil {
		return nil, doc.lastErr
	}

	var buf []byte
	switch contents.Kind() {
	case KindStream:
		b, err := doc.streamBytes(contents)
		if err != nil {
			return nil, err
		}
		buf = b
	case KindArray:
		for _, part := range contents.Items() {
			if doc.lastErr != nil {
				return nil, doc.lastErr
			}
			b, err := doc.streamBytes(part)
			if err != nil {
				return nil, err
			}
			buf = append(buf, b...)
			buf = append(buf, ' ')
		}
	default:
		return nil, nil
	}

	if err := ex.run(buf); err != nil {
		return nil, err
	}
	return ex.items, nil
}

// streamBytes decodes v's filter chain, given v is a Stream value reached
// through normal dictionary/array traversal (so its /Length may need an
// indirect resolve already performed by resolveRef).
func (doc *Document) streamBytes(v Value) ([]byte, error) {
	s, ok := v.streamHandle()
	if !ok {
		return nil, &CorruptedPDF{Message: "expected a stream"}
	}
	return decodeFilters(doc.src, s)
}

func (ex *contentExtractor) run(content []byte) error {
	lx := newLexer(NewMemorySource(content), 0)
	var operands []object

	for {
		t, err := lx.next()
		if err != nil {
			return nil // content streams end without explicit EOF marker
		}
		switch t.kind {
		case tokInteger:
			operands = append(operands, t.i)
			continue
		case tokReal:
			operands = append(operands, t.f)
			continue
		case tokString:
			operands = append(operands, t.s)
			continue
		case tokName:
			operands = append(operands, internName(t.s))
			continue
		case tokArrayStart:
			arr, err := (&parser{lx: lx}).parseArray()
			if err != nil {
				return err
			}
			operands = append(operands, arr)
			continue
		case tokDictStart:
			d, err := (&parser{lx: lx}).parseDictOrStream()
			if err != nil {
				return err
			}
			operands = append(operands, d)
			continue
		}

		op := t.s
		if op == "BI" {
			if err := skipInlineImage(lx); err != nil {
				return err
			}
			operands = operands[:0]
			continue
		}
		ex.execute(op, operands)
		operands = operands[:0]
	}
}

// skipInlineImage discards an inline image's dictionary and binary data
// (BI ... ID <bytes> EI), since the extractor never decodes image data.
func skipInlineImage(lx *lexer) error {
	for {
		t, err := lx.next()
		if err != nil {
			return err
		}
		if t.kind == tokKeyword && t.s == "ID" {
			break
		}
	}
	b, err := lx.readByte() // the single whitespace byte after ID
	_ = b
	if err != nil {
		return err
	}
	for {
		b, err := lx.peekByte()
		if err != nil {
			return err
		}
		if b == 'E' {
			mark := lx.tell()
			lx.pos++
			nb, err := lx.peekByte()
			if err == nil && nb == 'I' {
				lx.pos++
				return nil
			}
			lx.seek(mark)
		}
		lx.pos++
	}
}

func (ex *contentExtractor) execute(op string, args []object) {
	switch op {
	case "q":
		ex.stack = append(ex.stack, ex.gs)
	case "Q":
		if n := len(ex.stack); n > 0 {
			ex.gs = ex.stack[n-1]
			ex.stack = ex.stack[:n-1]
		}
	case "cm":
		if m, ok := matrixFromArgs(args); ok {
			ex.gs.ctm = m.mul(ex.gs.ctm)
		}
	case "BT":
		ex.gs.tm = identityMatrix
		ex.gs.tlm = identityMatrix
	case "ET":
	case "Tc":
		ex.gs.charSp = floatArg(args, 0)
	case "Tw":
		ex.gs.wordSp = floatArg(args, 0)
	case "Tz":
		ex.gs.hscale = floatArg(args, 0)
	case "TL":
		ex.gs.leading = floatArg(args, 0)
	case "Ts":
		ex.gs.rise = floatArg(args, 0)
	case "Tr":
		ex.gs.renderMd = intArg(args, 0)
	case "Tf":
		if len(args) >= 2 {
			if n, ok := args[0].(Name); ok {
				ex.gs.fontName = n
			}
			ex.gs.fontSize = floatArg(args, 1)
		}
	case "Td":
		tx, ty := floatArg(args, 0), floatArg(args, 1)
		ex.gs.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(ex.gs.tlm)
		ex.gs.tm = ex.gs.tlm
	case "TD":
		tx, ty := floatArg(args, 0), floatArg(args, 1)
		ex.gs.leading = -ty
		ex.gs.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(ex.gs.tlm)
		ex.gs.tm = ex.gs.tlm
	case "Tm":
		if m, ok := matrixFromArgs(args); ok {
			ex.gs.tlm = m
			ex.gs.tm = m
		}
	case "T*":
		ex.gs.tlm = matrix{1, 0, 0, 1, 0, -ex.gs.leading}.mul(ex.gs.tlm)
		ex.gs.tm = ex.gs.tlm
	case "Tj":
		if s, ok := lastString(args); ok {
			ex.showText(s)
		}
	case "'":
		ex.gs.tlm = matrix{1, 0, 0, 1, 0, -ex.gs.leading}.mul(ex.gs.tlm)
		ex.gs.tm = ex.gs.tlm
		if s, ok := lastString(args); ok {
			ex.showText(s)
		}
	case `"`:
		if len(args) >= 3 {
			ex.gs.wordSp = floatArg(args, 0)
			ex.gs.charSp = floatArg(args, 1)
		}
		ex.gs.tlm = matrix{1, 0, 0, 1, 0, -ex.gs.leading}.mul(ex.gs.tlm)
		ex.gs.tm = ex.gs.tlm
		if s, ok := lastString(args); ok {
			ex.showText(s)
		}
	case "TJ":
		if len(args) == 0 {
			return
		}
		arr, ok := args[len(args)-1].(Array)
		if !ok {
			return
		}
		ex.showTJ(arr)
	}
}

// applyKerning advances the text matrix for a TJ array's numeric
// adjustments, which are expressed in thousandths of text space units and
// subtracted from the advance (a positive number moves left).
func (ex *contentExtractor) applyKerning(adj float64) {
	tx := -adj / 1000 * ex.gs.fontSize * (ex.gs.hscale / 100)
	ex.gs.tm = matrix{1, 0, 0, 1, tx, 0}.mul(ex.gs.tm)
}

// showText emits a TextItem at the current rendering position and
// advances the text matrix for s, per advanceFor.
func (ex *contentExtractor) showText(s string) {
	ex.emitText(s)
	ex.advanceFor(s)
}

// emitText records a TextItem for s at the current rendering position
// without touching the text matrix; showTJ uses this to emit once for an
// entire TJ array after accumulating its concatenated text.
func (ex *contentExtractor) emitText(s string) {
	trm := ex.gs.tm.mul(ex.gs.ctm)
	x, y := trm.apply(0, ex.gs.rise)
	ex.items = append(ex.items, TextItem{
		Text:     s,
		X:        x,
		Y:        y,
		FontSize: ex.gs.fontSize,
		FontName: ex.gs.fontName,
	})
}

// advanceFor moves the text matrix by an approximation of s's width: half
// an em per byte at the current font size, a stand-in for a loaded
// glyph-width table.
func (ex *contentExtractor) advanceFor(s string) {
	advance := float64(len(s)) * ex.gs.fontSize * 0.5
	advance += float64(strings.Count(s, " ")) * ex.gs.wordSp
	advance += float64(len(s)) * ex.gs.charSp
	tx := advance * (ex.gs.hscale / 100)
	ex.gs.tm = matrix{1, 0, 0, 1, tx, 0}.mul(ex.gs.tm)
}

// showTJ implements the TJ operator: strings in arr concatenate into a
// single TextItem anchored at the array's starting position, with a
// literal space inserted wherever a numeric adjustment is at or below
// opts.KerningGapThreshold (a word-break heuristic, not a typesetting
// kerning value). Each element still advances the text matrix as it is
// processed, so subsequent operators see the correct position.
func (ex *contentExtractor) showTJ(arr Array) {
	started := false
	var b strings.Builder
	for _, e := range arr {
		switch v := e.(type) {
		case string:
			if !started {
				ex.emitText("") // reserve the anchor position; text patched in below
				started = true
			}
			b.WriteString(v)
			ex.advanceFor(v)
		case int64:
			ex.applyTJGap(float64(v), &b)
		case float64:
			ex.applyTJGap(v, &b)
		}
	}
	if !started {
		return
	}
	ex.items[len(ex.items)-1].Text = b.String()
}

// applyTJGap writes a word-break space into b when adj is at or below the
// configured (negative) threshold, then applies it as a text-matrix
// adjustment. Positive adjustments never insert a space.
func (ex *contentExtractor) applyTJGap(adj float64, b *strings.Builder) {
	if adj <= ex.opts.KerningGapThreshold {
		b.WriteString(" ")
	}
	ex.applyKerning(adj)
}

func matrixFromArgs(args []object) (matrix, bool) {
	if len(args) < 6 {
		return matrix{}, false
	}
	v := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v[i] = toFloat(args[len(args)-6+i])
	}
	return matrix{v[0], v[1], v[2], v[3], v[4], v[5]}, true
}

func floatArg(args []object, i int) float64 {
	if i < 0 || i >= len(args) {
		return 0
	}
	return toFloat(args[i])
}

func intArg(args []object, i int) int64 {
	if i < 0 || i >= len(args) {
		return 0
	}
	switch v := args[i].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func toFloat(o object) float64 {
	switch v := o.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func lastString(args []object) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[len(args)-1].(string)
	return s, ok
}

// ExtractText returns the page's text runs in content-stream order, the
// raw form callers that want full control over layout reconstruction use.
// opts' KerningGapThreshold governs TJ word-break detection during
// extraction itself; its other fields only matter to ExtractTextAsString.
func (doc *Document) ExtractText(page *Page, opts TextExtractionOptions) ([]TextItem, error) {
	var items []TextItem
	err := doc.retry(func() error {
		doc.lastErr = nil
		out, err := doc.extractContent(page, opts)
		if err != nil {
			return err
		}
		items = out
		return doc.lastErr
	})
	if err != nil {
		return nil, wrapPageError("extract text", page.Index, err)
	}
	return items, nil
}

// ExtractTextAsString assembles a page's text runs into a single string,
// inserting line breaks between vertically separated bands and spaces
// between horizontally separated runs, per opts.
func (doc *Document) ExtractTextAsString(page *Page, opts TextExtractionOptions) (string, error) {
	items, err := doc.ExtractText(page, opts)
	if err != nil {
		return "", err
	}
	return assembleText(items, opts), nil
}

// assembleText groups items into horizontal bands (by Y, within
// BandTolerance), orders bands top-to-bottom and items left-to-right
// within a band, and inserts a space wherever the horizontal gap between
// consecutive items exceeds HalfEmGapFactor ems.
func assembleText(items []TextItem, opts TextExtractionOptions) string {
	if len(items) == 0 {
		return ""
	}
	sorted := append([]TextItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if abs64(sorted[i].Y-sorted[j].Y) > opts.BandTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var b strings.Builder
	for i, it := range sorted {
		if i == 0 {
			b.WriteString(it.Text)
			continue
		}
		prev := sorted[i-1]
		if abs64(it.Y-prev.Y) > opts.BandTolerance {
			b.WriteString("\n")
		} else {
			gap := it.X - (prev.X + float64(len(prev.Text))*prev.FontSize*0.5)
			halfEm := prev.FontSize * opts.HalfEmGapFactor
			if gap > halfEm {
				b.WriteString(" ")
			}
		}
		b.WriteString(it.Text)
	}
	return b.String()
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
