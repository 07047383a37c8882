package identity

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "identity.pem")

	generated, err := Generate(path)
	require.NoError(t, err)
	require.False(t, generated.Principal.IsZero())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, generated.Principal, loaded.Principal)
	assert.Equal(t, generated.Public(), loaded.Public())
}

func TestGenerateKeyFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.pem")

	_, err := Generate(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrGenerateIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.pem")

	first, err := LoadOrGenerate(path)
	require.NoError(t, err)

	second, err := LoadOrGenerate(path)
	require.NoError(t, err)
	assert.Equal(t, first.Principal, second.Principal)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSignVerifies(t *testing.T) {
	id, err := Generate(filepath.Join(t.TempDir(), "identity.pem"))
	require.NoError(t, err)

	msg := []byte("challenge")
	sig := id.Sign(msg)
	assert.True(t, ed25519.Verify(id.Public(), msg, sig))
}

func TestContextGating(t *testing.T) {
	ctx := NewContext()
	assert.False(t, ctx.Ready())

	_, err := ctx.Principal()
	assert.ErrorIs(t, err, ErrNotReady)

	id, genErr := Generate(filepath.Join(t.TempDir(), "identity.pem"))
	require.NoError(t, genErr)

	ctx.Resolve(id)
	assert.True(t, ctx.Ready())

	p, err := ctx.Principal()
	require.NoError(t, err)
	assert.Equal(t, id.Principal, p)

	ctx.Clear()
	assert.False(t, ctx.Ready())
	_, err = ctx.Current()
	assert.ErrorIs(t, err, ErrNotReady)
}
