package mioco

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTokenRoundTrip checks §8 invariant 5: decode(encode(co, src)) ==
// (co, src) for every pair within their bit budgets.
func TestTokenRoundTrip(t *testing.T) {
	cases := []struct {
		co  CoroutineID
		src EventSourceID
	}{
		{0, 0},
		{1, 1},
		{1, eventSourceTokenMask},
		{12345, 42},
		{CoroutineID(1) << 40, 0},
	}
	for _, c := range cases {
		tok := encodeToken(c.co, c.src)
		gotCo, gotSrc := tok.decode()
		require.Equal(t, c.co, gotCo)
		require.Equal(t, c.src, gotSrc)
	}
}

func TestEncodeTokenOverflowPanics(t *testing.T) {
	require.Panics(t, func() {
		encodeToken(0, maxEventSourcesPerCoroutine)
	})
}
