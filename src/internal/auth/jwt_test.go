package auth

import (
	"testing"
	"time"

	"lognarrator/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNewValidator_Disabled(t *testing.T) {
	v, err := NewValidator(nil, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = NewValidator(&config.ReceiverAuthConfig{}, newTestLogger())
	assert.Error(t, err)
}

func TestValidator_Authenticate(t *testing.T) {
	v, err := NewValidator(&config.ReceiverAuthConfig{
		JWTSigningKey: "s3cret",
		Issuer:        "lognarrator",
		Audience:      "ingest",
	}, newTestLogger())
	require.NoError(t, err)

	valid, err := MintToken("s3cret", "edge-01", "lognarrator", "ingest", time.Hour)
	require.NoError(t, err)

	wrongKey, err := MintToken("other", "edge-01", "lognarrator", "ingest", time.Hour)
	require.NoError(t, err)

	wrongAudience, err := MintToken("s3cret", "edge-01", "lognarrator", "admin", time.Hour)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "lognarrator",
		Audience:  jwt.ClaimStrings{"ingest"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:   "lognarrator",
		Audience: jwt.ClaimStrings{"ingest"},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"Valid", "Bearer " + valid, nil},
		{"MissingHeader", "", ErrMissingToken},
		{"WrongScheme", "Basic " + valid, ErrMissingToken},
		{"WrongKey", "Bearer " + wrongKey, ErrInvalidToken},
		{"WrongAudience", "Bearer " + wrongAudience, ErrInvalidToken},
		{"Expired", "Bearer " + expired, ErrInvalidToken},
		{"NoExpiry", "Bearer " + noExpiry, ErrInvalidToken},
		{"Garbage", "Bearer not.a.token", ErrInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := v.Authenticate(tc.header)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "edge-01", claims.Subject)
			assert.True(t, claims.Expires.After(time.Now()))
		})
	}

	stats := v.GetStats()
	assert.Equal(t, uint64(1), stats["accepted"])
	assert.Equal(t, uint64(7), stats["rejected"])
}

func TestMintToken_Invalid(t *testing.T) {
	_, err := MintToken("", "x", "", "", time.Hour)
	assert.Error(t, err)
	_, err = MintToken("k", "x", "", "", 0)
	assert.Error(t, err)
}
