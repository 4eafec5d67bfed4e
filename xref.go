package pdf

import "strconv"

// xrefEntryKind distinguishes the three entry shapes a cross-reference
// table (or stream) can carry for a given object number.
type xrefEntryKind byte

const (
	xrefFree xrefEntryKind = iota
	xrefInFile
	xrefInStream
)

type xrefEntry struct {
	kind      xrefEntryKind
	offset    int64  // xrefInFile: byte offset of "N G obj"
	streamNum uint32 // xrefInStream: object number of the containing ObjStm
	indexIn   int    // xrefInStream: index within that ObjStm
	gen       uint16
}

// maxXrefEntries guards a corrupt /Size or table length from turning a
// parse into an unbounded allocation.
const maxXrefEntries = 10_000_000

// maxPrevChain bounds how many /Prev links a trailer chain may follow
// before being treated as corrupt (cyclic or absurdly long updates).
const maxPrevChain = 1000

// maxUint32Value is the largest object number a 32-bit object-number field
// can hold; subsection bounds ("first", "first+count") are checked against
// it before ever computing a uint32 object number from them, since the
// conversion itself would silently wrap on an adversarial input.
const maxUint32Value = int64(^uint32(0))

// loadXref locates the initial xref section via "startxref" and follows
// the /Prev chain, merging entries so that the newest update for a given
// object number wins (PDF incremental-update semantics: earlier sections
// only fill in objects the later ones didn't touch).
func loadXref(src ChunkedSource) (map[uint32]xrefEntry, Dict, error) {
	start, err := findStartXref(src)
	if err != nil {
		return nil, nil, err
	}

	table := make(map[uint32]xrefEntry)
	var trailer Dict
	seen := make(map[int64]bool)
	pos := start

	for i := 0; i < maxPrevChain; i++ {
		if seen[pos] {
			return nil, nil, &CorruptedPDF{Message: "cyclic xref /Prev chain"}
		}
		seen[pos] = true

		sectionTrailer, entries, prev, xrefStm, err := parseXrefSection(src, pos)
		if err != nil {
			return nil, nil, err
		}
		for num, e := range entries {
			if _, exists := table[num]; !exists {
				table[num] = e
			}
		}
		if trailer == nil {
			trailer = sectionTrailer
		} else {
			for k, v := range sectionTrailer {
				if _, exists := trailer[k]; !exists {
					trailer[k] = v
				}
			}
		}

		// A hybrid-reference file (traditional table + /XRefStm) layers a
		// compressed-object index on top; fold it in before following /Prev.
		if xrefStm != 0 {
			_, stmEntries, _, _, err := parseXrefSection(src, xrefStm)
			if err != nil {
				return nil, nil, err
			}
			for num, e := range stmEntries {
				if _, exists := table[num]; !exists {
					table[num] = e
				}
			}
		}

		if _, hasPrev := sectionTrailer["Prev"].(int64); !hasPrev {
			break
		}
		pos = prev
	}

	if trailer == nil {
		return nil, nil, &CorruptedPDF{Message: "no trailer found"}
	}
	return table, trailer, nil
}

// findStartXref scans backward from the end of the source for the
// "startxref\n<offset>" footer within the final 1024 bytes, the
// conventional search window.
func findStartXref(src ChunkedSource) (int64, error) {
	total, known := src.Length()
	if !known {
		return 0, &CorruptedPDF{Message: "source length unknown"}
	}
	window := int64(1024)
	if window > total {
		window = total
	}
	start := total - window
	if err := src.EnsureRange(start, window); err != nil {
		return 0, err
	}
	buf, err := src.Slice(start, window)
	if err != nil {
		return 0, err
	}

	idx := lastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, &CorruptedPDF{Message: "startxref not found"}
	}
	p := idx + len("startxref")
	for p < len(buf) && isSpace(buf[p]) {
		p++
	}
	numStart := p
	for p < len(buf) && buf[p] >= '0' && buf[p] <= '9' {
		p++
	}
	if p == numStart {
		return 0, &CorruptedPDF{Message: "malformed startxref"}
	}
	n, err := strconv.ParseInt(string(buf[numStart:p]), 10, 64)
	if err != nil {
		return 0, &CorruptedPDF{Message: "malformed startxref offset"}
	}
	return n, nil
}

func lastIndex(buf, sub []byte) int {
	for i := len(buf) - len(sub); i >= 0; i-- {
		if string(buf[i:i+len(sub)]) == string(sub) {
			return i
		}
	}
	return -1
}

// parseXrefSection parses either a traditional "xref" table or a
// cross-reference stream at pos, returning its trailer, entries, /Prev
// offset (0 if absent), and /XRefStm offset (0 if absent, table mode only).
func parseXrefSection(src ChunkedSource, pos int64) (Dict, map[uint32]xrefEntry, int64, int64, error) {
	if err := src.EnsureRange(pos, 9); err != nil {
		return nil, nil, 0, 0, err
	}
	peek, err := src.Slice(pos, 9)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	if string(peek[:4]) == "xref" {
		return parseXrefTable(src, pos)
	}
	return parseXrefStream(src, pos)
}

func parseXrefTable(src ChunkedSource, pos int64) (Dict, map[uint32]xrefEntry, int64, int64, error) {
	lx := newLexer(src, pos)
	t, err := lx.next()
	if err != nil {
		return nil, nil, 0, 0, err
	}
	if t.kind != tokKeyword || t.s != "xref" {
		return nil, nil, 0, 0, &ParseError{Message: "expected 'xref'", Position: pos}
	}

	entries := make(map[uint32]xrefEntry)
	total := 0
	for {
		mark := lx.tell()
		t, err := lx.next()
		if err != nil {
			return nil, nil, 0, 0, err
		}
		if t.kind == tokKeyword && t.s == "trailer" {
			break
		}
		if t.kind != tokInteger {
			lx.seek(mark)
			break
		}
		startNum := t.i
		t2, err := lx.next()
		if err != nil {
			return nil, nil, 0, 0, err
		}
		if t2.kind != tokInteger {
			return nil, nil, 0, 0, &ParseError{Message: "malformed xref subsection header", Position: lx.tell()}
		}
		count := t2.i
		if count < 0 || count > maxXrefEntries {
			return nil, nil, 0, 0, &CorruptedPDF{Message: "xref subsection count out of range"}
		}
		if startNum < 0 || startNum > maxUint32Value {
			return nil, nil, 0, 0, &CorruptedPDF{Message: "xref subsection start out of range"}
		}
		if count > 0 && startNum+count-1 > maxUint32Value {
			return nil, nil, 0, 0, &CorruptedPDF{Message: "xref subsection start+count overflows u32"}
		}
		total += int(count)
		if total > maxXrefEntries {
			return nil, nil, 0, 0, &CorruptedPDF{Message: "xref table exceeds entry limit"}
		}
		for i := int64(0); i < count; i++ {
			if err := lx.skipWhitespaceAndComments(); err != nil {
				return nil, nil, 0, 0, err
			}
			line, err := src.Slice(lx.tell(), 20)
			if err != nil {
				return nil, nil, 0, 0, err
			}
			off, gen, typ, ok := decodeXrefLine(line)
			if !ok {
				return nil, nil, 0, 0, &CorruptedPDF{Message: "malformed xref entry"}
			}
			lx.seek(lx.tell() + 20)
			num := uint32(startNum + i)
			if typ == 'n' {
				if _, exists := entries[num]; !exists {
					entries[num] = xrefEntry{kind: xrefInFile, offset: off, gen: uint16(gen)}
				}
			} else if _, exists := entries[num]; !exists {
				entries[num] = xrefEntry{kind: xrefFree}
			}
		}
	}

	p := &parser{lx: lx, src: src}
	trailerObj, err := p.parseObject()
	if err != nil {
		return nil, nil, 0, 0, err
	}
	trailer, ok := trailerObj.(Dict)
	if !ok {
		return nil, nil, 0, 0, &CorruptedPDF{Message: "trailer is not a dictionary"}
	}

	var prev, xrefStm int64
	if v, ok := trailer["Prev"].(int64); ok {
		prev = v
	}
	if v, ok := trailer["XRefStm"].(int64); ok {
		xrefStm = v
	}
	return trailer, entries, prev, xrefStm, nil
}

// decodeXrefLine parses one conventional 20-byte "nnnnnnnnnn ggggg n/f\r\n"
// entry. Some writers use a single-space/LF variant; both are 20 bytes.
func decodeXrefLine(line []byte) (offset int64, gen int64, typ byte, ok bool) {
	if len(line) < 18 {
		return 0, 0, 0, false
	}
	off, err := strconv.ParseInt(trimSpaceBytes(string(line[0:10])), 10, 64)
	if err != nil {
		return 0, 0, 0, false
	}
	g, err := strconv.ParseInt(trimSpaceBytes(string(line[11:16])), 10, 64)
	if err != nil {
		return 0, 0, 0, false
	}
	t := line[17]
	if t != 'n' && t != 'f' {
		return 0, 0, 0, false
	}
	return off, g, t, true
}

func trimSpaceBytes(s string) string {
	i, j := 0, len(s)
	for i < j && isSpace(s[i]) {
		i++
	}
	for j > i && isSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

// parseXrefStream parses a cross-reference stream object: "N G obj <<...>>
// stream ... endstream". /W gives the byte width of each of the three
// fields per entry; /Index gives the (start,count) subsections, defaulting
// to [0 Size] when absent.
func parseXrefStream(src ChunkedSource, pos int64) (Dict, map[uint32]xrefEntry, int64, int64, error) {
	p := newParser(src, pos)
	_, obj, err := p.parseIndirectObjectAt(pos)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	stm, ok := obj.(Stream)
	if !ok {
		return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream object is not a stream"}
	}
	length, ok2 := stm.Dict["Length"].(int64)
	if !ok2 {
		return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream /Length must be a direct integer"}
	}
	stm.RawLen = length

	raw, err := decodeFilters(src, stm)
	if err != nil {
		return nil, nil, 0, 0, err
	}

	wArr, ok := stm.Dict["W"].(Array)
	if !ok || len(wArr) != 3 {
		return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream missing /W"}
	}
	w := [3]int{int(asInt(wArr[0])), int(asInt(wArr[1])), int(asInt(wArr[2]))}
	if w[0] < 0 || w[1] < 0 || w[2] < 0 || w[0] > 8 || w[1] > 8 || w[2] > 8 {
		return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream /W out of range"}
	}
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream /W is all zero"}
	}

	var subsections [][2]int64
	if idxArr, ok := stm.Dict["Index"].(Array); ok {
		for i := 0; i+1 < len(idxArr); i += 2 {
			subsections = append(subsections, [2]int64{asInt(idxArr[i]), asInt(idxArr[i+1])})
		}
	} else {
		size := asInt(stm.Dict["Size"])
		subsections = [][2]int64{{0, size}}
	}

	entries := make(map[uint32]xrefEntry)
	offset := 0
	total := 0
	for _, sub := range subsections {
		startNum, count := sub[0], sub[1]
		if count < 0 || count > maxXrefEntries {
			return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream subsection count out of range"}
		}
		if startNum < 0 || startNum > maxUint32Value {
			return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream subsection start out of range"}
		}
		if count > 0 && startNum+count-1 > maxUint32Value {
			return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream subsection start+count overflows u32"}
		}
		total += int(count)
		if total > maxXrefEntries {
			return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream exceeds entry limit"}
		}
		for i := int64(0); i < count; i++ {
			if offset+rowLen > len(raw) {
				return nil, nil, 0, 0, &CorruptedPDF{Message: "xref stream truncated"}
			}
			row := raw[offset : offset+rowLen]
			offset += rowLen
			f1 := readWidthField(row[:w[0]], 1) // default type 1 when /W[0]==0
			f2 := readWidthField(row[w[0]:w[0]+w[1]], 0)
			f3 := readWidthField(row[w[0]+w[1]:], 0)
			num := uint32(startNum + i)
			if _, exists := entries[num]; exists {
				continue
			}
			switch f1 {
			case 0:
				entries[num] = xrefEntry{kind: xrefFree}
			case 1:
				entries[num] = xrefEntry{kind: xrefInFile, offset: f2, gen: uint16(f3)}
			case 2:
				entries[num] = xrefEntry{kind: xrefInStream, streamNum: uint32(f2), indexIn: int(f3)}
			}
		}
	}

	var prev int64
	if v, ok := stm.Dict["Prev"].(int64); ok {
		prev = v
	}
	return stm.Dict, entries, prev, 0, nil
}

func readWidthField(b []byte, def int64) int64 {
	if len(b) == 0 {
		return def
	}
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

func asInt(o object) int64 {
	switch x := o.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	default:
		return 0
	}
}
