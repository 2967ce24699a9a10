package signing

import (
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/nacl/sign"
)

const (
	ProtocolVersion = 1
	Algorithm       = "nacl.signing"
)

// Envelope is the JSON body posted to the cloud endpoint
type Envelope struct {
	ClientID   string `json:"client_id"`
	Timestamp  int64  `json:"timestamp"`
	Version    int    `json:"version"`
	Algorithm  string `json:"algorithm"`
	Nonce      string `json:"nonce"`
	Data       string `json:"data"`
	Compressed bool   `json:"compressed"`
}

// Signer produces signed envelopes for one client identity
type Signer struct {
	clientID string
	key      *[64]byte
	now      func() time.Time
}

// NewSigner loads the private key at keyPath
func NewSigner(clientID, keyPath string) (*Signer, error) {
	key, err := LoadPrivateKey(keyPath)
	if err != nil {
		return nil, err
	}
	return &Signer{clientID: clientID, key: key, now: time.Now}, nil
}

// Sign returns the NaCl signed message: 64-byte signature followed by data
func (s *Signer) Sign(data []byte) []byte {
	return sign.Sign(nil, data, s.key)
}

// Seal signs data and wraps it in an envelope
func (s *Signer) Seal(data []byte, compressed bool) Envelope {
	return Envelope{
		ClientID:   s.clientID,
		Timestamp:  s.now().UnixMilli(),
		Version:    ProtocolVersion,
		Algorithm:  Algorithm,
		Nonce:      "",
		Data:       base64.StdEncoding.EncodeToString(s.Sign(data)),
		Compressed: compressed,
	}
}

// Open verifies an envelope against a public key and returns the signed payload
func Open(env Envelope, publicKey *[32]byte) ([]byte, error) {
	if env.Algorithm != Algorithm {
		return nil, fmt.Errorf("unsupported algorithm: %s", env.Algorithm)
	}

	signed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid envelope data: %w", err)
	}

	payload, ok := sign.Open(nil, signed, publicKey)
	if !ok {
		return nil, fmt.Errorf("signature verification failed")
	}
	return payload, nil
}
