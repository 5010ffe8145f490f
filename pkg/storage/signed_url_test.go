package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("exp-1", "exports/requests.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "exp-1", parsed.ExportID)
	assert.Equal(t, "exports/requests.csv", parsed.Object)
	assert.True(t, expiresAt.Equal(parsed.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("exp-1", "exports/requests.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	parsed, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "exports/requests.csv", parsed.Object)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("exp-1", "exports/requests.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "exp-2"
	_, err = signer.Parse(strings.Join(parts, "."), false)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Parse("garbage", false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLocalStorageRoundTripAndCleanup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "2024/requests.csv", "text/csv", []byte("a,b\n")))

	obj, err := store.Open(ctx, "2024/requests.csv")
	require.NoError(t, err)
	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, "a,b\n", string(body))
	assert.Equal(t, int64(4), obj.Size)

	_, err = store.Open(ctx, "missing.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.Error(t, store.Put(ctx, "../escape.csv", "text/csv", []byte("x")))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "2024", "requests.csv"), old, old))
	deleted, err := store.CleanupOlderThan(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024/requests.csv"}, deleted)
}
