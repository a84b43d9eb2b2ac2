package resample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFuncRoundTrip(t *testing.T) {
	for _, f := range Funcs() {
		parsed, err := ParseFunc(f.String())
		require.NoError(t, err)
		require.Equal(t, f, parsed)
	}
}

func TestParseFuncUnknown(t *testing.T) {
	_, err := ParseFunc("median")
	require.Error(t, err)

	_, err = ParseFunc("")
	require.Error(t, err)
}

func TestFuncStringUnknownValue(t *testing.T) {
	require.Equal(t, "Func(99)", Func(99).String())
}

func TestFuncsCoversEveryName(t *testing.T) {
	require.Len(t, Funcs(), len(funcNames))
	for _, f := range Funcs() {
		require.True(t, f.valid())
	}
}
