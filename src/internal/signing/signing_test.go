package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"lognarrator/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	base := filepath.Join(t.TempDir(), "edge")

	privPath, pubPath, err := GenerateKeyPair(base)
	require.NoError(t, err)
	assert.Equal(t, base+".private", privPath)
	assert.Equal(t, base+".public", pubPath)

	info, err := os.Stat(privPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Equal(t, int64(64), info.Size())

	info, err = os.Stat(pubPath)
	require.NoError(t, err)
	assert.Equal(t, int64(32), info.Size())
}

func TestSealAndOpen(t *testing.T) {
	base := filepath.Join(t.TempDir(), "edge")
	privPath, pubPath, err := GenerateKeyPair(base)
	require.NoError(t, err)

	signer, err := NewSigner("client-7", privPath)
	require.NoError(t, err)
	pub, err := LoadPublicKey(pubPath)
	require.NoError(t, err)

	payload := []byte(`{"records":[]}`)
	env := signer.Seal(payload, false)

	assert.Equal(t, "client-7", env.ClientID)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, "nacl.signing", env.Algorithm)
	assert.Empty(t, env.Nonce)
	assert.False(t, env.Compressed)
	assert.NotZero(t, env.Timestamp)

	got, err := Open(env, pub)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Signed message layout is signature || message
	signed := signer.Sign(payload)
	require.Len(t, signed, 64+len(payload))
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub[:]), payload, signed[:64]))
}

func TestOpen_RejectsOtherKey(t *testing.T) {
	dir := t.TempDir()
	privPath, _, err := GenerateKeyPair(filepath.Join(dir, "a"))
	require.NoError(t, err)
	_, otherPub, err := GenerateKeyPair(filepath.Join(dir, "b"))
	require.NoError(t, err)

	signer, err := NewSigner("a", privPath)
	require.NoError(t, err)
	pub, err := LoadPublicKey(otherPub)
	require.NoError(t, err)

	_, err = Open(signer.Seal([]byte("data"), false), pub)
	assert.Error(t, err)
}

func TestLoadPrivateKey(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadPrivateKey(filepath.Join(dir, "nope.private"))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrKeyMaterial)
	})

	t.Run("WrongLength", func(t *testing.T) {
		path := filepath.Join(dir, "short.private")
		require.NoError(t, os.WriteFile(path, []byte("short"), 0600))
		_, err := LoadPrivateKey(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrKeyMaterial)
	})

	t.Run("Seed", func(t *testing.T) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		path := filepath.Join(dir, "seed.private")
		require.NoError(t, os.WriteFile(path, priv.Seed(), 0600))

		key, err := LoadPrivateKey(path)
		require.NoError(t, err)
		assert.Equal(t, []byte(priv), key[:])
	})
}
