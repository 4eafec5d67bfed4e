package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectIdString(t *testing.T) {
	id := ObjectId{Number: 12, Generation: 3}
	require.Equal(t, "12 3 R", id.String())
}

func TestInternNameDedupes(t *testing.T) {
	a := internName("CustomTestName")
	b := internName("CustomTestName")
	require.Equal(t, a, b)
	require.Equal(t, Name("CustomTestName"), a)
}

func TestValueKindDispatch(t *testing.T) {
	cases := []struct {
		data object
		want Kind
	}{
		{nil, KindNull},
		{true, KindBool},
		{int64(5), KindInteger},
		{1.5, KindReal},
		{"s", KindString},
		{Name("N"), KindName},
		{Dict{}, KindDict},
		{Array{}, KindArray},
		{Stream{}, KindStream},
	}
	for _, c := range cases {
		v := Value{data: c.data}
		require.Equal(t, c.want, v.Kind())
	}
}

func TestValueZeroValueOnMismatch(t *testing.T) {
	v := Value{data: Name("Foo")}
	require.False(t, v.Bool())
	require.Equal(t, int64(0), v.Int64())
	require.Equal(t, 0.0, v.Float64())
	require.Equal(t, "", v.RawString())
	require.Equal(t, 0, v.Len())
}

func TestValueInt64CoercesFromFloat(t *testing.T) {
	v := Value{data: 3.9}
	require.Equal(t, int64(3), v.Int64())
}

func TestValueFloat64CoercesFromInt(t *testing.T) {
	v := Value{data: int64(7)}
	require.Equal(t, 7.0, v.Float64())
}

func TestValueKeysSorted(t *testing.T) {
	v := Value{data: Dict{"Zeta": int64(1), "Alpha": int64(2)}}
	require.Equal(t, []string{"Alpha", "Zeta"}, v.Keys())
}

func TestValueKeysOnStreamUsesHeaderDict(t *testing.T) {
	v := Value{data: Stream{Dict: Dict{"Length": int64(5)}}}
	require.Equal(t, []string{"Length"}, v.Keys())
}

func TestObjfmtRoundTripsBasicKinds(t *testing.T) {
	require.Equal(t, "null", objfmt(nil))
	require.Equal(t, "true", objfmt(true))
	require.Equal(t, "42", objfmt(int64(42)))
	require.Equal(t, `"hi"`, objfmt("hi"))
	require.Equal(t, "/Foo", objfmt(Name("Foo")))
	require.Equal(t, "[1 2]", objfmt(Array{int64(1), int64(2)}))
	require.Equal(t, "<</A 1>>", objfmt(Dict{"A": int64(1)}))
}
