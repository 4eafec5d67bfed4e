package pdf

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/require"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestApplyFilterFlateDecode(t *testing.T) {
	want := []byte("BT /F1 12 Tf (Hello) Tj ET")
	compressed := deflate(t, want)

	got, err := applyFilter("FlateDecode", compressed, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestApplyFilterASCIIHexDecode(t *testing.T) {
	got, err := applyFilter("ASCIIHexDecode", []byte("48656C6C6F>"), nil)
	require.NoError(t, err)
	require.Equal(t, []byte("Hello"), got)
}

func TestApplyFilterASCII85Decode(t *testing.T) {
	got, err := applyFilter("ASCII85Decode", []byte("87cURD]j7BEbo7~>"), nil)
	require.NoError(t, err)
	require.Equal(t, []byte("Hello world"), got)
}

func TestApplyFilterRunLengthDecode(t *testing.T) {
	// 2 literal bytes "AB", then a run of 3 'C's, then EOD.
	input := []byte{1, 'A', 'B', 254, 'C', 128}
	got, err := applyFilter("RunLengthDecode", input, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("ABCCC"), got)
}

func TestApplyFilterUnsupportedImageCodec(t *testing.T) {
	_, err := applyFilter("DCTDecode", nil, nil)
	require.Error(t, err)
	var u *Unsupported
	require.ErrorAs(t, err, &u)
}

func TestApplyFilterUnknown(t *testing.T) {
	_, err := applyFilter("NoSuchDecode", nil, nil)
	require.Error(t, err)
}

func TestPNGPredictorUpFilter(t *testing.T) {
	// Two 3-byte rows (Colors=1, BitsPerComponent=8, Columns=3), filter
	// type 2 (Up) on both; row 1 deltas are absolute since prev is zero.
	raw := []byte{
		2, 10, 20, 30,
		2, 1, 1, 1,
	}
	parm := Dict{"Predictor": int64(12), "Colors": int64(1), "BitsPerComponent": int64(8), "Columns": int64(3)}
	got, err := applyPredictor(raw, parm)
	require.NoError(t, err)
	require.Equal(t, []byte{10, 20, 30, 11, 21, 31}, got)
}

func TestLZWDecodeRepeatedByteWithEarlyChange(t *testing.T) {
	// Hand-packed 9-bit codes 65("A"), 65("A"), 257(EOD), MSB-first,
	// zero-padded to a byte boundary: the minimal stream that exercises
	// table growth (code 258 gets defined between the two data codes)
	// without crossing a code-width bump boundary.
	encoded := []byte{0x20, 0x90, 0x60, 0x20}
	got, err := lzwDecode(encoded, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("AA"), got)
}
