package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func runContent(t *testing.T, content string) []TextItem {
	t.Helper()
	ex := newContentExtractor(nil, DefaultTextExtractionOptions())
	require.NoError(t, ex.run([]byte(content)))
	return ex.items
}

func TestTJConcatenatesIntoSingleTextItem(t *testing.T) {
	items := runContent(t, `BT /F1 12 Tf 0 0 Td [(Hello) -120 (World)] TJ ET`)
	require.Len(t, items, 1)
	require.Equal(t, "Hello World", items[0].Text)
	require.Equal(t, Name("F1"), items[0].FontName)
}

func TestTJSmallGapDoesNotInsertSpace(t *testing.T) {
	// -50 doesn't cross the default -100 threshold: no word-break space.
	items := runContent(t, `BT /F1 12 Tf 0 0 Td [(Foo) -50 (Bar)] TJ ET`)
	require.Len(t, items, 1)
	require.Equal(t, "FooBar", items[0].Text)
}

func TestTJPositiveGapDoesNotInsertSpace(t *testing.T) {
	// Positive adjustments tighten spacing, they never open a word gap.
	items := runContent(t, `BT /F1 12 Tf 0 0 Td [(Foo) 120 (Bar)] TJ ET`)
	require.Len(t, items, 1)
	require.Equal(t, "FooBar", items[0].Text)
}

func TestTJAnchoredAtStartingPosition(t *testing.T) {
	items := runContent(t, `BT /F1 12 Tf 72 712 Td [(Hello) -120 (World)] TJ ET`)
	require.Len(t, items, 1)
	require.Equal(t, 72.0, items[0].X)
	require.Equal(t, 712.0, items[0].Y)
}

func TestTJAllNumbersNoStringsEmitsNothing(t *testing.T) {
	items := runContent(t, `BT /F1 12 Tf 0 0 Td [-120 -50] TJ ET`)
	require.Len(t, items, 0)
}
