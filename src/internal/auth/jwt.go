package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"lognarrator/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Validator checks HS256 bearer tokens on the ingest route
type Validator struct {
	key      []byte
	issuer   string
	audience string
	parser   *jwt.Parser
	logger   *log.Logger

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// Claims identifies a validated sender
type Claims struct {
	Subject string
	Expires time.Time
}

// NewValidator returns nil when cfg is nil
func NewValidator(cfg *config.ReceiverAuthConfig, logger *log.Logger) (*Validator, error) {
	if cfg == nil {
		return nil, nil
	}
	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("jwt_signing_key is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(5 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	v := &Validator{
		key:      []byte(cfg.JWTSigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		parser:   jwt.NewParser(opts...),
		logger:   logger,
	}

	logger.Info("msg", "JWT validator initialized",
		"component", "auth",
		"issuer", cfg.Issuer,
		"audience", cfg.Audience)
	return v, nil
}

// Authenticate validates an Authorization header value
func (v *Validator) Authenticate(authHeader string) (*Claims, error) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		v.rejected.Add(1)
		return nil, ErrMissingToken
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil || !parsed.Valid {
		v.rejected.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	v.accepted.Add(1)
	out := &Claims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		out.Expires = claims.ExpiresAt.Time
	}
	return out, nil
}

func (v *Validator) GetStats() map[string]any {
	return map[string]any{
		"method":   "jwt",
		"accepted": v.accepted.Load(),
		"rejected": v.rejected.Load(),
	}
}

// MintToken signs an HS256 token for subject valid for ttl
func MintToken(secret, subject, issuer, audience string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token lifetime must be positive")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
