// Package core define los tipos y el contrato de persistencia de
// usuarios e identidades sociales, independiente del backend.
package core

import (
	"context"
	"errors"
	"time"
)

// User es el usuario materializado a partir de un login social.
// Email puede ser vacío: algunos proveedores (Twitter) no lo entregan,
// y en ese caso el usuario se resuelve por su identidad social.
type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email,omitempty"`
	FirstName   string         `json:"first_name,omitempty"`
	LastName    string         `json:"last_name,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Picture     string         `json:"picture,omitempty"`
	Locale      string         `json:"locale,omitempty"`
	Verified    bool           `json:"verified"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Identity vincula un usuario con su cuenta en un proveedor.
// (provider, provider_id) es único en todo el sistema.
type Identity struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Provider   string         `json:"provider"`
	ProviderID string         `json:"provider_id"`
	Profile    map[string]any `json:"profile,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Repository define las operaciones de persistencia que usa el workflow.
type Repository interface {
	// GetByID retorna el usuario o ErrNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retorna el usuario o ErrNotFound. El match es
	// case-insensitive.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByIdentity resuelve el usuario dueño de (provider, providerID)
	// o ErrNotFound.
	GetByIdentity(ctx context.Context, provider, providerID string) (*User, error)

	// Create inserta un usuario nuevo. Retorna ErrDuplicateEmail si ya
	// existe uno con ese email.
	Create(ctx context.Context, u *User) (*User, error)

	// Update persiste los campos de perfil y metadata del usuario.
	Update(ctx context.Context, u *User) (*User, error)

	// Delete elimina el usuario y sus identidades.
	Delete(ctx context.Context, id string) error

	// UpsertIdentity crea o actualiza el vínculo social del usuario.
	UpsertIdentity(ctx context.Context, ident *Identity) error

	// Ping verifica la conexión al backend.
	Ping(ctx context.Context) error

	// Close libera recursos del backend.
	Close()
}

// Errores de la capa de persistencia.
var (
	ErrNotFound       = errors.New("store: not found")
	ErrDuplicateEmail = errors.New("store: duplicate email")
)
