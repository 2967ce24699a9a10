package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"

	"lognarrator/src/internal/core"

	"golang.org/x/crypto/nacl/sign"
)

const (
	PrivateKeySuffix = ".private"
	PublicKeySuffix  = ".public"

	privateKeySize = 64
	seedSize       = ed25519.SeedSize
	publicKeySize  = 32
)

// GenerateKeyPair writes a fresh signing keypair to <path>.private and
// <path>.public as raw bytes and returns the two file paths.
func GenerateKeyPair(path string) (string, string, error) {
	pub, priv, err := sign.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate signing key: %w", err)
	}

	privPath := path + PrivateKeySuffix
	pubPath := path + PublicKeySuffix

	if err := saveKey(privPath, priv[:], 0600); err != nil {
		return "", "", err
	}
	if err := saveKey(pubPath, pub[:], 0644); err != nil {
		return "", "", err
	}
	return privPath, pubPath, nil
}

func saveKey(filename string, data []byte, mode os.FileMode) error {
	keyFile, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer keyFile.Close()

	if _, err := keyFile.Write(data); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	// OpenFile mode is masked by umask and ignored for existing files
	if err := os.Chmod(filename, mode); err != nil {
		return fmt.Errorf("failed to set key permissions: %w", err)
	}
	return nil
}

// LoadPrivateKey reads a raw signing key. Both the 64-byte expanded form and
// a bare 32-byte seed are accepted.
func LoadPrivateKey(path string) (*[64]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read private key %s: %v", core.ErrKeyMaterial, path, err)
	}

	var key [privateKeySize]byte
	switch len(data) {
	case privateKeySize:
		copy(key[:], data)
	case seedSize:
		copy(key[:], ed25519.NewKeyFromSeed(data))
	default:
		return nil, fmt.Errorf("%w: private key %s has %d bytes, want %d or %d",
			core.ErrKeyMaterial, path, len(data), privateKeySize, seedSize)
	}
	return &key, nil
}

// LoadPublicKey reads a raw 32-byte verification key
func LoadPublicKey(path string) (*[32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read public key %s: %v", core.ErrKeyMaterial, path, err)
	}
	if len(data) != publicKeySize {
		return nil, fmt.Errorf("%w: public key %s has %d bytes, want %d",
			core.ErrKeyMaterial, path, len(data), publicKeySize)
	}

	var key [publicKeySize]byte
	copy(key[:], data)
	return &key, nil
}
