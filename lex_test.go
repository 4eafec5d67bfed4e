package pdf

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func tokensOf(t *testing.T, s string) []token {
	t.Helper()
	lx := newLexer(NewMemorySource([]byte(s)), 0)
	var out []token
	for {
		tok, err := lx.next()
		if err != nil {
			break
		}
		out = append(out, tok)
	}
	return out
}

func TestLexerLiteralStringEscapes(t *testing.T) {
	toks := tokensOf(t, `(Line1\nLine2\)end\051\()`)
	require.Len(t, toks, 1)
	require.Equal(t, tokString, toks[0].kind)
	require.Equal(t, "Line1\nLine2)end)(", toks[0].s)
}

func TestLexerHexString(t *testing.T) {
	toks := tokensOf(t, "<48656C6C6F>")
	require.Len(t, toks, 1)
	require.Equal(t, tokString, toks[0].kind)
	require.Equal(t, "Hello", toks[0].s)
}

func TestLexerHexStringOddDigitsPadsLowNibble(t *testing.T) {
	toks := tokensOf(t, "<48656C6C6>")
	require.Len(t, toks, 1)
	require.Equal(t, "Hell`", toks[0].s) // trailing '6' treated as high nibble, low nibble 0
}

func TestLexerNameEscapes(t *testing.T) {
	toks := tokensOf(t, "/A#42C")
	require.Len(t, toks, 1)
	require.Equal(t, tokName, toks[0].kind)
	require.Equal(t, "ABC", toks[0].s)
}

func TestLexerNumbers(t *testing.T) {
	toks := tokensOf(t, "12 -3.5 +7 .25")
	require.Len(t, toks, 4)
	require.Equal(t, tokInteger, toks[0].kind)
	require.Equal(t, int64(12), toks[0].i)
	require.Equal(t, tokReal, toks[1].kind)
	require.Equal(t, -3.5, toks[1].f)
	require.Equal(t, tokInteger, toks[2].kind)
	require.Equal(t, int64(7), toks[2].i)
	require.Equal(t, tokReal, toks[3].kind)
	require.Equal(t, 0.25, toks[3].f)
}

func TestLexerIntegerOverflowBecomesReal(t *testing.T) {
	toks := tokensOf(t, "99999999999999999999")
	require.Len(t, toks, 1)
	require.Equal(t, tokReal, toks[0].kind)
	want, err := strconv.ParseFloat("99999999999999999999", 64)
	require.NoError(t, err)
	require.Equal(t, want, toks[0].f)
	require.NotZero(t, toks[0].f)
}

func TestLexerCommentIsSkipped(t *testing.T) {
	toks := tokensOf(t, "1 % a comment\n2")
	require.Len(t, toks, 2)
	require.Equal(t, int64(1), toks[0].i)
	require.Equal(t, int64(2), toks[1].i)
}

func TestLexerDictAndArrayDelimiters(t *testing.T) {
	toks := tokensOf(t, "<< [ ] >>")
	require.Len(t, toks, 4)
	require.Equal(t, tokDictStart, toks[0].kind)
	require.Equal(t, tokArrayStart, toks[1].kind)
	require.Equal(t, tokArrayEnd, toks[2].kind)
	require.Equal(t, tokDictEnd, toks[3].kind)
}

func TestLexerUnreadToken(t *testing.T) {
	lx := newLexer(NewMemorySource([]byte("1 2 3")), 0)
	first, err := lx.next()
	require.NoError(t, err)
	require.Equal(t, int64(1), first.i)

	second, err := lx.next()
	require.NoError(t, err)
	lx.unreadToken(second)

	replayed, err := lx.next()
	require.NoError(t, err)
	require.Equal(t, second, replayed)

	third, err := lx.next()
	require.NoError(t, err)
	require.Equal(t, int64(3), third.i)
}
