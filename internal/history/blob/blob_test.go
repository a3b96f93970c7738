package blob

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscan/pkg/platform/sentinel"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	data := []byte("%PDF-1.4 fake content")
	key, err := store.Save(42, uuid.New(), "contract.pdf", data)
	require.NoError(t, err)

	reader, err := store.Open(key)
	require.NoError(t, err)
	defer reader.Close()

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, data, got, "retrieval must round-trip byte-exact")
}

func TestOpenMissingFileIsStale(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("42/gone_contract.pdf")
	assert.ErrorIs(t, err, sentinel.ErrStaleFile)
}

func TestRemove(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	key, err := store.Save(1, uuid.New(), "doc.pdf", []byte("bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(key))
	assert.ErrorIs(t, store.Remove(key), sentinel.ErrStaleFile)
}

func TestPathTraversalRejected(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../../etc/passwd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrStaleFile)
}

func TestSanitizeFilename(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	key, err := store.Save(7, uuid.New(), "../../sneaky.pdf", []byte("x"))
	require.NoError(t, err)
	assert.NotContains(t, key, "..")
}
