package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildMinimalPDF returns a small, syntactically valid single-page PDF
// with no cross-reference section at all, forcing Open down the
// reconstruction path on every call — this exercises the full pipeline
// (reconstruction, object resolution, page-tree walk, content extraction)
// without needing to hand-compute byte offsets for a real xref table.
func buildMinimalPDF() []byte {
	const content = "BT /F1 12 Tf 72 712 Td (Hello World) Tj ET"
	pdf := "%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n" +
		"4 0 obj\n<< /Length 42 >>\nstream\n" + content + "\nendstream\nendobj\n" +
		"5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n" +
		"%%EOF\n"
	return []byte(pdf)
}

func openMinimal(t *testing.T) *Document {
	t.Helper()
	doc, err := Open(buildMinimalPDF(), DefaultOpenOptions())
	require.NoError(t, err)
	return doc
}

func TestOpenReconstructsMissingXref(t *testing.T) {
	doc := openMinimal(t)

	cat, err := doc.Catalog()
	require.NoError(t, err)
	require.Equal(t, KindDict, cat.Kind())
	require.Equal(t, Name("Catalog"), cat.Key("Type").Name())
}

func TestPageCountAndGetPage(t *testing.T) {
	doc := openMinimal(t)

	n, err := doc.PageCount()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	page, err := doc.GetPage(0)
	require.NoError(t, err)
	require.Equal(t, Rect{0, 0, 612, 792}, page.MediaBox)
}

func TestGetPageMissingMediaBoxIsCorrupted(t *testing.T) {
	const content = "BT /F1 12 Tf 72 712 Td (Hi) Tj ET"
	pdf := "%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>\nendobj\n" +
		"4 0 obj\n<< /Length 33 >>\nstream\n" + content + "\nendstream\nendobj\n" +
		"%%EOF\n"
	doc, err := Open([]byte(pdf), DefaultOpenOptions())
	require.NoError(t, err)

	_, err = doc.GetPage(0)
	require.Error(t, err)
	var cp *CorruptedPDF
	require.ErrorAs(t, err, &cp)
}

func TestGetPageOutOfRange(t *testing.T) {
	doc := openMinimal(t)
	_, err := doc.GetPage(5)
	require.Error(t, err)
	var pe *PDFError
	require.ErrorAs(t, err, &pe)
}

func TestExtractTextAsString(t *testing.T) {
	doc := openMinimal(t)
	page, err := doc.GetPage(0)
	require.NoError(t, err)

	text, err := doc.ExtractTextAsString(page, DefaultTextExtractionOptions())
	require.NoError(t, err)
	require.Contains(t, text, "Hello World")
}

func TestExtractTextItemsCarryFont(t *testing.T) {
	doc := openMinimal(t)
	page, err := doc.GetPage(0)
	require.NoError(t, err)

	items, err := doc.ExtractText(page, DefaultTextExtractionOptions())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, Name("F1"), items[0].FontName)
	require.Equal(t, 12.0, items[0].FontSize)
	require.Equal(t, "Hello World", items[0].Text)
}

func TestGetPageIsCached(t *testing.T) {
	doc := openMinimal(t)
	p1, err := doc.GetPage(0)
	require.NoError(t, err)
	p2, err := doc.GetPage(0)
	require.NoError(t, err)
	require.Same(t, p1, p2)
}

func TestCloneHasIndependentCaches(t *testing.T) {
	doc := openMinimal(t)
	_, err := doc.GetPage(0)
	require.NoError(t, err)

	clone := doc.Clone()
	_, ok := clone.pageCache.get(0)
	require.False(t, ok, "a fresh Clone must not inherit the parent's page cache")
}

func TestExtractPagesBatch(t *testing.T) {
	doc := openMinimal(t)
	results, err := doc.ExtractPages(DefaultTextExtractionOptions(), 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Contains(t, results[0].Text, "Hello World")
}
