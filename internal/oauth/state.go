package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// StateAudience is the expected audience for login state tokens.
const StateAudience = "social-state"

// StateClaims contains the claims carried by the anti-CSRF state JWT.
// The nonce is single-use; the registry burns it on callback.
type StateClaims struct {
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
	jwtv5.RegisteredClaims
}

// StateSigner signs and validates login state tokens.
type StateSigner interface {
	SignState(claims StateClaims) (string, error)
	ParseState(tokenString string) (*StateClaims, error)
}

// Errors for state validation.
var (
	ErrStateInvalid  = errors.New("invalid state token")
	ErrStateExpired  = errors.New("state token expired")
	ErrStateIssuer   = errors.New("state issuer mismatch")
	ErrStateAudience = errors.New("state audience mismatch")
	ErrStateProvider = errors.New("state provider mismatch")
	ErrStateReplayed = errors.New("state token already used")
)

// HMACStateSigner signs state JWTs with HS256.
type HMACStateSigner struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// NewHMACStateSigner builds a signer. TTL defaults to 10 minutes.
func NewHMACStateSigner(secret []byte, issuer string, ttl time.Duration) (*HMACStateSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("state signer: empty secret")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &HMACStateSigner{Secret: secret, Issuer: issuer, TTL: ttl}, nil
}

// SignState signs a state JWT for the given claims.
func (s *HMACStateSigner) SignState(claims StateClaims) (string, error) {
	now := time.Now().UTC()
	mapClaims := jwtv5.MapClaims{
		"iss":      s.Issuer,
		"aud":      StateAudience,
		"exp":      now.Add(s.TTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"provider": claims.Provider,
		"nonce":    claims.Nonce,
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, mapClaims)
	return tk.SignedString(s.Secret)
}

// ParseState parses and validates a state JWT.
func (s *HMACStateSigner) ParseState(tokenString string) (*StateClaims, error) {
	// 30s leeway for clock skew between signer and validator.
	tk, err := jwtv5.Parse(tokenString, func(*jwtv5.Token) (any, error) {
		return s.Secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}), jwtv5.WithLeeway(30*time.Second))
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrStateInvalid
	}
	if !tk.Valid {
		return nil, ErrStateInvalid
	}

	mapClaims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrStateInvalid
	}

	if iss := getString(mapClaims, "iss"); iss != s.Issuer {
		return nil, ErrStateIssuer
	}
	if aud := getString(mapClaims, "aud"); aud != StateAudience {
		return nil, ErrStateAudience
	}

	return &StateClaims{
		Provider: getString(mapClaims, "provider"),
		Nonce:    getString(mapClaims, "nonce"),
	}, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// generateNonce returns n random bytes base64url-encoded without
// padding.
func generateNonce(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
