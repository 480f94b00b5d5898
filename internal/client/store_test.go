package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func newTestStore(t *testing.T) *SecureFileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.bin")
	store, err := NewSecureFileStore(path, testKey())
	require.NoError(t, err)
	return store
}

func TestSecureFileStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	in := []Operation{{ID: "op-1", Type: OpTransition, Action: "accept"}}
	require.NoError(t, store.Save(in))

	var out []Operation
	require.NoError(t, store.Load(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "op-1", out[0].ID)
	assert.Equal(t, OpTransition, out[0].Type)
}

func TestSecureFileStoreEncryptsAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.bin")
	store, err := NewSecureFileStore(path, testKey())
	require.NoError(t, err)

	require.NoError(t, store.Save([]Operation{{ID: "secret-op-id"}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-op-id")
}

func TestSecureFileStoreMissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)

	var out []Operation
	require.NoError(t, store.Load(&out))
	assert.Empty(t, out)
}

func TestSecureFileStoreReadsLegacyPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.bin")
	legacy := `[{"id":"old-op","type":"create_item","status":"pending"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	store, err := NewSecureFileStore(path, testKey())
	require.NoError(t, err)

	var out []Operation
	require.NoError(t, store.Load(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "old-op", out[0].ID)

	// The next save upgrades the file to ciphertext.
	require.NoError(t, store.Save(out))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "old-op")
}

func TestSecureFileStoreRejectsTamperedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.bin")
	store, err := NewSecureFileStore(path, testKey())
	require.NoError(t, err)
	require.NoError(t, store.Save([]Operation{{ID: "op-1"}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	var out []Operation
	assert.Error(t, store.Load(&out))
}

func TestSecureFileStoreRejectsShortKey(t *testing.T) {
	_, err := NewSecureFileStore(filepath.Join(t.TempDir(), "j"), []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestSecureFileStoreWrongKeyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.bin")
	store, err := NewSecureFileStore(path, testKey())
	require.NoError(t, err)
	require.NoError(t, store.Save([]Operation{{ID: "op-1"}}))

	otherKey := testKey()
	otherKey[0] ^= 0xff
	other, err := NewSecureFileStore(path, otherKey)
	require.NoError(t, err)

	var out []Operation
	assert.Error(t, other.Load(&out))
}
