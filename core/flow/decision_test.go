package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecisionRoundTrip(t *testing.T) {
	data := EncodeDecision(VerbConfirm, 12345, "1700000000")
	require.Equal(t, "confirm:12345:1700000000", data)

	verb, userID, tag, ok := ParseDecision(data)
	require.True(t, ok)
	require.Equal(t, VerbConfirm, verb)
	require.Equal(t, int64(12345), userID)
	require.Equal(t, "1700000000", tag)
}

func TestParseDecisionMalformed(t *testing.T) {
	for _, data := range []string{"", "confirm", "confirm:5", "confirm:abc:tag"} {
		_, _, _, ok := ParseDecision(data)
		require.False(t, ok, "data %q", data)
	}
}

func TestParseDecisionTagKeepsColons(t *testing.T) {
	verb, userID, tag, ok := ParseDecision("decline:5:a:b:c")
	require.True(t, ok)
	require.Equal(t, VerbDecline, verb)
	require.Equal(t, int64(5), userID)
	require.Equal(t, "a:b:c", tag)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Peek(1)
	require.False(t, ok)

	sess := store.Get(1)
	require.NotNil(t, sess)
	require.Same(t, sess, store.Get(1))

	peeked, ok := store.Peek(1)
	require.True(t, ok)
	require.Same(t, sess, peeked)

	store.Clear(1)
	_, ok = store.Peek(1)
	require.False(t, ok)
}
