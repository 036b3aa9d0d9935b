package store_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"argoya/internal/domain"
	"argoya/internal/store"
)

func TestParticipantList_ReplaceNotMerge(t *testing.T) {
	p := store.NewParticipantList()
	p.Replace([]domain.DisplayName{"alice", "bob"})
	p.Replace([]domain.DisplayName{"carol"})

	require.Equal(t, []domain.DisplayName{"carol"}, p.Names())
	require.True(t, p.Contains("carol"))
	require.False(t, p.Contains("alice"))

	// Callers cannot mutate the cached list.
	names := p.Names()
	names[0] = "mallory"
	require.Equal(t, []domain.DisplayName{"carol"}, p.Names())

	p.Clear()
	require.Empty(t, p.Names())
}

func TestKeyRing(t *testing.T) {
	k := store.NewKeyRing()
	first := bytes.Repeat([]byte{1}, 32)
	second := bytes.Repeat([]byte{2}, 32)

	require.True(t, k.Add("bob", first))
	require.False(t, k.Add("bob", first))
	require.True(t, k.Add("bob", second))

	got := k.Keys("bob")
	require.Len(t, got, 2)
	require.Equal(t, second, got[0], "newest first")
	require.Empty(t, k.Keys("carol"))

	k.Clear()
	require.Empty(t, k.Keys("bob"))
	require.Equal(t, make([]byte, 32), got[0], "cleared keys are wiped")
}
