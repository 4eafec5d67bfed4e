package pdf

import "strconv"

// reconstructXref rebuilds the cross-reference table by scanning the
// entire source for "N G obj" headers and the last "trailer" dictionary
// (or, failing that, synthesizing one from a /Type /Catalog object), the
// same last-resort path every production PDF reader falls back to for a
// broken or missing xref section.
func (doc *Document) reconstructXref() error {
	total, known := doc.src.Length()
	if !known {
		return &CorruptedPDF{Message: "source length unknown, cannot reconstruct"}
	}
	if err := doc.src.EnsureRange(0, total); err != nil {
		return err
	}
	buf, err := doc.src.Slice(0, total)
	if err != nil {
		return err
	}

	table := make(map[uint32]xrefEntry)
	var lastTrailer Dict
	var catalogID ObjectId
	haveCatalog := false

	pos := 0
	for pos < len(buf) {
		idx := findObjHeader(buf, pos)
		if idx < 0 {
			break
		}
		num, gen, headerEnd, ok := parseObjHeaderAt(buf, idx)
		if !ok {
			pos = idx + 1
			continue
		}
		table[num] = xrefEntry{kind: xrefInFile, offset: int64(idx), gen: uint16(gen)}

		if isCatalog := sniffCatalog(buf, headerEnd); isCatalog {
			catalogID = ObjectId{Number: num, Generation: uint16(gen)}
			haveCatalog = true
		}
		pos = headerEnd
	}

	if ti := lastIndex(buf, []byte("trailer")); ti >= 0 {
		p := newParser(doc.src, int64(ti+len("trailer")))
		if obj, err := p.parseObject(); err == nil {
			if d, ok := obj.(Dict); ok {
				lastTrailer = d
			}
		}
	}

	if lastTrailer == nil {
		if !haveCatalog {
			return &CorruptedPDF{Message: "reconstruction found no trailer or catalog"}
		}
		lastTrailer = Dict{"Root": catalogID}
	} else if _, ok := lastTrailer["Root"]; !ok && haveCatalog {
		lastTrailer["Root"] = catalogID
	}

	doc.xref = table
	doc.trailer = lastTrailer
	doc.objCache = newObjectCache(doc.opts.Cache.ObjectCacheCapacity)
	return nil
}

// findObjHeader finds the next byte offset at which a digit run followed
// eventually by "obj" plausibly starts an indirect object header, scanning
// from pos.
func findObjHeader(buf []byte, pos int) int {
	for i := pos; i+3 <= len(buf); i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			if isObjHeaderStart(buf, i) {
				return i
			}
		}
	}
	return -1
}

func isObjHeaderStart(buf []byte, i int) bool {
	// A real header is only preceded by whitespace or buffer start, never
	// by another digit (that would make this the middle of a bigger
	// number) or a regular character (part of some other token).
	if i > 0 && !isSpace(buf[i-1]) {
		return false
	}
	j := i
	for j < len(buf) && buf[j] >= '0' && buf[j] <= '9' {
		j++
	}
	if j == i || j >= len(buf) || !isSpace(buf[j]) {
		return false
	}
	for j < len(buf) && isSpace(buf[j]) {
		j++
	}
	k := j
	for k < len(buf) && buf[k] >= '0' && buf[k] <= '9' {
		k++
	}
	if k == j || k >= len(buf) || !isSpace(buf[k]) {
		return false
	}
	for k < len(buf) && isSpace(buf[k]) {
		k++
	}
	return k+3 <= len(buf) && string(buf[k:k+3]) == "obj"
}

func parseObjHeaderAt(buf []byte, i int) (num, gen uint32, end int, ok bool) {
	j := i
	for j < len(buf) && buf[j] >= '0' && buf[j] <= '9' {
		j++
	}
	n, err := strconv.ParseUint(string(buf[i:j]), 10, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	for j < len(buf) && isSpace(buf[j]) {
		j++
	}
	k := j
	for k < len(buf) && buf[k] >= '0' && buf[k] <= '9' {
		k++
	}
	g, err := strconv.ParseUint(string(buf[j:k]), 10, 16)
	if err != nil {
		return 0, 0, 0, false
	}
	for k < len(buf) && isSpace(buf[k]) {
		k++
	}
	if k+3 > len(buf) || string(buf[k:k+3]) != "obj" {
		return 0, 0, 0, false
	}
	return uint32(n), uint32(g), k + 3, true
}

// sniffCatalog does a cheap textual check for "/Type /Catalog" within the
// first 256 bytes of an object body, without a full parse, so
// reconstruction can find /Root even if the object's own dictionary has
// syntax the strict parser would choke on.
func sniffCatalog(buf []byte, bodyStart int) bool {
	end := bodyStart + 256
	if end > len(buf) {
		end = len(buf)
	}
	region := string(buf[bodyStart:end])
	return contains(region, "/Type") && contains(region, "/Catalog")
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
