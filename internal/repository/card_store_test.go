package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *CardStore {
	t.Helper()
	s, err := NewCardStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestParseCard(t *testing.T) {
	content := "cat,a small domesticated feline\ndog,a domesticated canine"

	entries := ParseCard(content)

	require.Len(t, entries, 2)
	assert.Equal(t, CardEntry{Word: "cat", Definition: "a small domesticated feline"}, entries[0])
	assert.Equal(t, CardEntry{Word: "dog", Definition: "a domesticated canine"}, entries[1])
}

func TestParseCardDropsMalformedLines(t *testing.T) {
	content := "cat,feline\n\nno comma here\ndog,canine\n"

	entries := ParseCard(content)

	require.Len(t, entries, 2)
	assert.Equal(t, "cat", entries[0].Word)
	assert.Equal(t, "dog", entries[1].Word)
}

func TestParseCardSplitsOnFirstComma(t *testing.T) {
	entries := ParseCard("ergo,therefore, consequently")

	require.Len(t, entries, 1)
	assert.Equal(t, "ergo", entries[0].Word)
	assert.Equal(t, "therefore, consequently", entries[0].Definition)
}

func TestSerializeRoundTrip(t *testing.T) {
	entries := []CardEntry{
		{Word: "cat", Definition: "a small domesticated feline"},
		{Word: "dog", Definition: "a domesticated canine"},
		{Word: "owl", Definition: "a nocturnal bird of prey"},
	}

	assert.Equal(t, entries, ParseCard(SerializeCard(entries)))
}

func TestSaveAndGetPublic(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("animals", "cat,feline\ndog,canine\n", "", true))

	entries, err := s.Get("animals", "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cat", entries[0].Word)
}

func TestGetPrivateTakesPrecedence(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("animals", "cat,feline\n", "", true))
	require.NoError(t, s.Save("animals", "fox,wild canine\n", "alice", false))

	entries, err := s.Get("animals", "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fox", entries[0].Word)

	// Another user without a private override still sees the public card.
	entries, err = s.Get("animals", "bob")
	require.NoError(t, err)
	assert.Equal(t, "cat", entries[0].Word)
}

func TestGetMissingCard(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("nope", "alice")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestSaveDuplicateName(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("animals", "cat,feline\n", "", true))
	err := s.Save("animals", "dog,canine\n", "", true)
	assert.ErrorIs(t, err, ErrCardExists)

	// The original content must survive the rejected save.
	entries, err := s.Get("animals", "alice")
	require.NoError(t, err)
	assert.Equal(t, "cat", entries[0].Word)

	// Same name in a different scope is allowed.
	assert.NoError(t, s.Save("animals", "dog,canine\n", "alice", false))
}

func TestList(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("animals", "cat,feline\ndog,canine\n", "", true))
	require.NoError(t, s.Save("birds", "owl,bird of prey\n\n", "", true))
	require.NoError(t, s.Save("mine", "fox,wild canine\n", "alice", false))

	public, private, err := s.List("alice")
	require.NoError(t, err)

	assert.ElementsMatch(t, []CardInfo{
		{Name: "animals", WordCount: 2},
		{Name: "birds", WordCount: 1},
	}, public)
	assert.Equal(t, []CardInfo{{Name: "mine", WordCount: 1}}, private)

	// Private directories of other users never leak into the public list.
	_, private, err = s.List("bob")
	require.NoError(t, err)
	assert.Empty(t, private)
}

func TestDeleteChecksPublicThenPrivate(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("animals", "cat,feline\n", "", true))
	require.NoError(t, s.Save("animals", "fox,wild canine\n", "alice", false))

	// First delete removes the public copy.
	require.NoError(t, s.Delete("animals", "alice"))
	_, err := os.Stat(filepath.Join(s.Root, "animals.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Second delete falls through to the private copy.
	require.NoError(t, s.Delete("animals", "alice"))

	assert.ErrorIs(t, s.Delete("animals", "alice"), ErrCardNotFound)
}

func TestEnsureAndRemoveUserDir(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.EnsureUserDir("alice"))
	info, err := os.Stat(filepath.Join(s.Root, "alice"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, s.Save("mine", "fox,wild canine\n", "alice", false))
	require.NoError(t, s.RemoveUserDir("alice"))
	_, err = os.Stat(filepath.Join(s.Root, "alice"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
