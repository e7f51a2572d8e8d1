// Package session maneja los login codes de un solo canje: el puente
// entre el redirect del callback y la aplicación que recoge el token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/socialauth/internal/cache"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/socialauth/internal/security/token"
)

const codeKeyPrefix = "social:code:"

// ErrCodeNotFound indica un code inexistente, expirado o ya canjeado.
var ErrCodeNotFound = errors.New("session: login code not found")

// Payload es lo que la aplicación recibe al canjear un login code.
type Payload struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider"`
	Token    string `json:"access_token"`
	Created  bool   `json:"created"`
}

// Codes emite y canjea login codes respaldados por cache con TTL.
type Codes struct {
	cache cache.Client
	ttl   time.Duration
}

// NewCodes crea el servicio. ttl <= 0 usa 2 minutos.
func NewCodes(c cache.Client, ttl time.Duration) *Codes {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Codes{cache: c, ttl: ttl}
}

// Issue guarda el payload y retorna el code opaco para el redirect.
func (c *Codes) Issue(ctx context.Context, p Payload) (string, error) {
	code, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", fmt.Errorf("session: generate code: %w", err)
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("session: marshal payload: %w", err)
	}
	if err := c.cache.Set(ctx, codeKeyPrefix+code, string(b), c.ttl); err != nil {
		return "", fmt.Errorf("session: store code: %w", err)
	}

	logger.From(ctx).Debug("login code stored",
		logger.Component("session"),
		logger.Provider(p.Provider),
		logger.String("code_prefix", code[:8]),
	)
	return code, nil
}

// Redeem canjea el code exactamente una vez.
func (c *Codes) Redeem(ctx context.Context, code string) (*Payload, error) {
	if code == "" {
		return nil, ErrCodeNotFound
	}

	// Single-use: get-and-delete atómico, un solo canje gana.
	raw, err := c.cache.Take(ctx, codeKeyPrefix+code)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("session: code lookup: %w", err)
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("session: decode payload: %w", err)
	}
	return &p, nil
}
