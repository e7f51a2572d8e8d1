// Package pg implementa el repositorio sobre PostgreSQL con pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/store/core"
)

type Store struct{ pool *pgxpool.Pool }

// PoolConfig afina el pool de conexiones.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

// New abre el pool contra el DSN. El ping de arranque es non-blocking:
// la app puede levantar aunque la DB esté temporalmente caída.
func New(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	// Mapear MaxIdleConns → MinConns (pgxpool)
	if cfg.MaxIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	log := logger.From(ctx).With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("startup ping failed", logger.Err(err))
	} else {
		log.Info("pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}

	return &Store{pool: pool}, nil
}

// Pool expone el pool interno para usos avanzados (metrics/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

const userColumns = `id, COALESCE(email, ''), first_name, last_name, display_name,
	picture, locale, verified, metadata, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	var meta map[string]any
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.DisplayName,
		&u.Picture, &u.Locale, &u.Verified, &meta, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	u.Metadata = meta
	return &u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE email = LOWER($1)`, email)
	return scanUser(row)
}

func (s *Store) GetByIdentity(ctx context.Context, provider, providerID string) (*core.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT u.id, COALESCE(u.email, ''), u.first_name, u.last_name, u.display_name,
			u.picture, u.locale, u.verified, u.metadata, u.created_at, u.updated_at
		FROM app_user u
		JOIN social_identity si ON si.user_id = u.id
		WHERE si.provider = $1 AND si.provider_id = $2
	`, provider, providerID)
	return scanUser(row)
}

func (s *Store) Create(ctx context.Context, u *core.User) (*core.User, error) {
	id := u.ID
	if id == "" {
		id = uuid.NewString()
	}
	meta := u.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO app_user (id, email, first_name, last_name, display_name,
			picture, locale, verified, metadata)
		VALUES ($1, NULLIF(LOWER($2), ''), $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns+`
	`, id, u.Email, u.FirstName, u.LastName, u.DisplayName,
		u.Picture, u.Locale, u.Verified, meta)

	created, err := scanUser(row)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, core.ErrDuplicateEmail
		}
		logger.From(ctx).Error("create user failed",
			logger.Component("store.pg"), logger.Email(u.Email), logger.Err(err))
		return nil, err
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, u *core.User) (*core.User, error) {
	meta := u.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	// El email no se toca en update; re-vincular emails es un problema
	// de account-linking, no de login.
	row := s.pool.QueryRow(ctx, `
		UPDATE app_user
		SET first_name = $2, last_name = $3, display_name = $4,
			picture = $5, locale = $6, verified = $7, metadata = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, u.ID, u.FirstName, u.LastName, u.DisplayName,
		u.Picture, u.Locale, u.Verified, meta)

	return scanUser(row)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM app_user WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertIdentity(ctx context.Context, ident *core.Identity) error {
	id := ident.ID
	if id == "" {
		id = uuid.NewString()
	}
	profile := ident.Profile
	if profile == nil {
		profile = map[string]any{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO social_identity (id, user_id, provider, provider_id, profile)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, provider_id)
		DO UPDATE SET user_id = EXCLUDED.user_id,
			profile = EXCLUDED.profile,
			updated_at = now()
	`, id, ident.UserID, ident.Provider, ident.ProviderID, profile)
	return err
}

// ====================== MIGRACIONES ======================

// RunMigrations aplica los *_up.sql del filesystem embebido, en orden.
func (s *Store) RunMigrations(ctx context.Context, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), "_up.sql") {
			files = append(files, dir+"/"+e.Name())
		}
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
	}
	return nil
}
