// Package store abre el backend de persistencia según configuración.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/socialauth/internal/store/core"
	"github.com/dropDatabas3/socialauth/internal/store/memory"
	"github.com/dropDatabas3/socialauth/internal/store/pg"
)

// Config selecciona e inicializa el backend.
type Config struct {
	Driver   string // "memory" | "postgres"
	DSN      string
	Postgres struct {
		MaxOpenConns, MaxIdleConns int
		ConnMaxLifetime            string
	}
}

// Open devuelve el core.Repository para el driver configurado.
// Driver vacío usa memory.
func Open(ctx context.Context, cfg Config) (core.Repository, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "pg", "postgresql":
		return pg.New(ctx, cfg.DSN, pg.PoolConfig{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
