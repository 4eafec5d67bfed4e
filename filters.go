package pdf

import (
	"bytes"
	"compress/zlib"
	"io"
)

// imageFilters are recognized but not decoded; a Stream filtered with one
// of these surfaces Unsupported rather than silently returning raw bytes,
// so callers can't mistake compressed image data for decoded content.
var imageFilters = map[Name]bool{
	"CCITTFaxDecode": true,
	"JBIG2Decode":    true,
	"DCTDecode":      true,
	"JPXDecode":      true,
}

// decodeFilters reads a stream's raw bytes from src and applies its
// filter chain (/Filter plus parallel /DecodeParms), in order, each
// filter consuming the previous one's output.
func decodeFilters(src ChunkedSource, stm Stream) ([]byte, error) {
	if err := src.EnsureRange(stm.Offset, stm.RawLen); err != nil {
		return nil, err
	}
	raw, err := src.Slice(stm.Offset, stm.RawLen)
	if err != nil {
		return nil, err
	}
	// Slice may alias a cached chunk; copy before mutating in place below.
	data := append([]byte(nil), raw...)

	filters, parms := normalizeFilterChain(stm.Dict)
	for i, f := range filters {
		if imageFilters[f] {
			return nil, &Unsupported{Feature: "image filter " + string(f)}
		}
		var parm Dict
		if i < len(parms) {
			parm, _ = parms[i].(Dict)
		}
		data, err = applyFilter(f, data, parm)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func normalizeFilterChain(d Dict) ([]Name, []object) {
	var filters []Name
	var parms []object
	switch f := d["Filter"].(type) {
	case Name:
		filters = []Name{f}
	case Array:
		for _, e := range f {
			if n, ok := e.(Name); ok {
				filters = append(filters, n)
			}
		}
	}
	switch p := d["DecodeParms"].(type) {
	case Dict:
		parms = []object{p}
	case Array:
		parms = append(parms, p...)
	}
	return filters, parms
}

func applyFilter(name Name, data []byte, parm Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		out, err := inflate(data)
		if err != nil {
			return nil, err
		}
		return applyPredictor(out, parm)
	case "LZWDecode", "LZW":
		out, err := lzwDecode(data, intParam(parm, "EarlyChange", 1))
		if err != nil {
			return nil, err
		}
		return applyPredictor(out, parm)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "RunLengthDecode", "RL":
		return runLengthDecode(data)
	default:
		return nil, &Unsupported{Feature: "filter " + string(name)}
	}
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &CorruptedPDF{Message: "flate: " + err.Error()}
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, &CorruptedPDF{Message: "flate: " + err.Error()}
	}
	return out, nil
}

func intParam(d Dict, key string, def int64) int64 {
	if d == nil {
		return def
	}
	if v, ok := d[Name(key)]; ok {
		return asInt(v)
	}
	return def
}

// applyPredictor undoes the PNG or TIFF predictor FlateDecode/LZWDecode
// streams commonly layer on top of their compression, per /DecodeParms
// (/Predictor, /Colors, /BitsPerComponent, /Columns).
func applyPredictor(data []byte, parm Dict) ([]byte, error) {
	predictor := intParam(parm, "Predictor", 1)
	if predictor <= 1 {
		return data, nil
	}
	colors := intParam(parm, "Colors", 1)
	bpc := intParam(parm, "BitsPerComponent", 8)
	columns := intParam(parm, "Columns", 1)
	bytesPerPixel := int((colors*bpc + 7) / 8)
	if bytesPerPixel < 1 {
		bytesPerPixel = 1
	}
	rowBytes := int((colors*bpc*columns + 7) / 8)
	if rowBytes < 1 {
		return data, nil
	}

	if predictor == 2 {
		return applyTIFFPredictor(data, rowBytes, bytesPerPixel)
	}
	// Predictor >= 10: PNG predictors, each row prefixed with a filter-type byte.
	return applyPNGPredictor(data, rowBytes, bytesPerPixel)
}

func applyTIFFPredictor(data []byte, rowBytes, bpp int) ([]byte, error) {
	out := append([]byte(nil), data...)
	for rowStart := 0; rowStart+rowBytes <= len(out); rowStart += rowBytes {
		for i := bpp; i < rowBytes; i++ {
			out[rowStart+i] += out[rowStart+i-bpp]
		}
	}
	return out, nil
}

func applyPNGPredictor(data []byte, rowBytes, bpp int) ([]byte, error) {
	stride := rowBytes + 1
	if stride <= 0 || len(data)%stride != 0 {
		return nil, &CorruptedPDF{Message: "predictor row misaligned"}
	}
	rows := len(data) / stride
	out := make([]byte, rows*rowBytes)
	prev := make([]byte, rowBytes)
	for r := 0; r < rows; r++ {
		filterType := data[r*stride]
		row := data[r*stride+1 : r*stride+stride]
		cur := out[r*rowBytes : (r+1)*rowBytes]
		for i := 0; i < rowBytes; i++ {
			var left, up, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up = prev[i]
			switch filterType {
			case 0:
				cur[i] = row[i]
			case 1:
				cur[i] = row[i] + left
			case 2:
				cur[i] = row[i] + up
			case 3:
				cur[i] = row[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = row[i] + paeth(left, up, upLeft)
			default:
				return nil, &CorruptedPDF{Message: "unknown PNG predictor filter type"}
			}
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func ascii85Decode(data []byte) ([]byte, error) {
	var out []byte
	var group [5]byte
	n := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if isSpace(c) {
			continue
		}
		if c == '~' {
			break
		}
		if c == 'z' && n == 0 {
			out = append(out, 0, 0, 0, 0)
			continue
		}
		if c < '!' || c > 'u' {
			return nil, &CorruptedPDF{Message: "invalid ASCII85 byte"}
		}
		group[n] = c - '!'
		n++
		if n == 5 {
			out = append(out, decode85Group(group[:], 4)...)
			n = 0
		}
	}
	if n > 0 {
		for i := n; i < 5; i++ {
			group[i] = 84
		}
		out = append(out, decode85Group(group[:], n-1)...)
	}
	return out, nil
}

func decode85Group(g []byte, outLen int) []byte {
	var val uint32
	for _, b := range g {
		val = val*85 + uint32(b)
	}
	var buf [4]byte
	buf[0] = byte(val >> 24)
	buf[1] = byte(val >> 16)
	buf[2] = byte(val >> 8)
	buf[3] = byte(val)
	return buf[:outLen]
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var out []byte
	var hi byte
	haveHi := false
	for _, c := range data {
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		if !isHexDigit(c) {
			return nil, &CorruptedPDF{Message: "invalid ASCIIHex byte"}
		}
		if !haveHi {
			hi = hexVal(c)
			haveHi = true
			continue
		}
		out = append(out, hi<<4|hexVal(c))
		haveHi = false
	}
	if haveHi {
		out = append(out, hi<<4)
	}
	return out, nil
}

func runLengthDecode(data []byte) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(data) {
		length := data[i]
		i++
		switch {
		case length == 128:
			return out, nil
		case length < 128:
			n := int(length) + 1
			if i+n > len(data) {
				return nil, &CorruptedPDF{Message: "run-length stream truncated"}
			}
			out = append(out, data[i:i+n]...)
			i += n
		default:
			if i >= len(data) {
				return nil, &CorruptedPDF{Message: "run-length stream truncated"}
			}
			n := 257 - int(length)
			b := data[i]
			i++
			for j := 0; j < n; j++ {
				out = append(out, b)
			}
		}
	}
	return out, nil
}
