package pdf

// resolveFromObjStm decodes the compressed object stream streamNum and
// returns the indexIn-th object it carries. ObjStm objects are always
// generation 0 and are never themselves compressed (type 2), so looking
// the container up through the normal ref path is safe.
func (doc *Document) resolveFromObjStm(streamNum uint32, indexIn int) (object, error) {
	containerObj, err := doc.resolveRef(ObjectId{Number: streamNum, Generation: 0})
	if err != nil {
		return nil, err
	}
	stm, ok := containerObj.(Stream)
	if !ok {
		return nil, &CorruptedPDF{Message: "ObjStm container is not a stream"}
	}
	if t, _ := stm.Dict["Type"].(Name); t != "ObjStm" && t != "" {
		// tolerate a missing /Type, but a wrong one is corruption
		return nil, &CorruptedPDF{Message: "object stream has wrong /Type"}
	}

	n := int(asInt(stm.Dict["N"]))
	first := asInt(stm.Dict["First"])
	if n < 0 || n > maxArrayElements {
		return nil, &CorruptedPDF{Message: "ObjStm /N out of range"}
	}

	raw, err := decodeFilters(doc.src, stm)
	if err != nil {
		return nil, err
	}

	if first < 0 || first > int64(len(raw)) {
		return nil, &CorruptedPDF{Message: "ObjStm /First out of range"}
	}

	header := newParser(NewMemorySource(raw), 0)
	type pair struct {
		num    uint32
		offset int64
	}
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		t1, err := header.lx.next()
		if err != nil {
			return nil, &CorruptedPDF{Message: "ObjStm header truncated"}
		}
		t2, err := header.lx.next()
		if err != nil {
			return nil, &CorruptedPDF{Message: "ObjStm header truncated"}
		}
		if t1.kind != tokInteger || t2.kind != tokInteger {
			return nil, &CorruptedPDF{Message: "malformed ObjStm header"}
		}
		if t1.i < 0 || t1.i > maxUint32Value {
			return nil, &CorruptedPDF{Message: "ObjStm object number overflows u32"}
		}
		// Bounds-check first+offset now, while we still have len(raw) at
		// hand, rather than letting a bogus offset silently wrap or run
		// past the decompressed body once it's used to seek.
		if t2.i < 0 || first+t2.i > int64(len(raw)) {
			return nil, &CorruptedPDF{Message: "ObjStm entry offset out of range"}
		}
		pairs = append(pairs, pair{num: uint32(t1.i), offset: t2.i})
	}
	if indexIn < 0 || indexIn >= len(pairs) {
		return nil, &CorruptedPDF{Message: "ObjStm index out of range"}
	}

	bodySrc := NewMemorySource(raw)
	objPos := first + pairs[indexIn].offset
	p := newParser(bodySrc, objPos)
	return p.parseObject()
}
