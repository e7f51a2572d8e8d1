// Package memory implementa el repositorio en memoria.
// Útil para desarrollo y testing; no persiste entre reinicios.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/socialauth/internal/store/core"
)

type Store struct {
	mu         sync.RWMutex
	users      map[string]*core.User     // por id
	emails     map[string]string         // lower(email) → user id
	identities map[string]*core.Identity // provider:provider_id → identity
}

func New() *Store {
	return &Store{
		users:      make(map[string]*core.User),
		emails:     make(map[string]string),
		identities: make(map[string]*core.Identity),
	}
}

func identityKey(provider, providerID string) string {
	return provider + ":" + providerID
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) GetByIdentity(ctx context.Context, provider, providerID string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.identities[identityKey(provider, providerID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	u, ok := s.users[ident.UserID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) Create(ctx context.Context, u *core.User) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if email != "" {
		if _, exists := s.emails[email]; exists {
			return nil, core.ErrDuplicateEmail
		}
	}

	now := time.Now().UTC()
	cp := cloneUser(u)
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = now
	cp.UpdatedAt = now

	s.users[cp.ID] = cp
	if email != "" {
		s.emails[email] = cp.ID
	}
	return cloneUser(cp), nil
}

func (s *Store) Update(ctx context.Context, u *core.User) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return nil, core.ErrNotFound
	}

	// El email es inmutable en update; re-vincular emails es un
	// problema de account-linking, no de login.
	cp := cloneUser(u)
	cp.Email = cur.Email
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = time.Now().UTC()

	s.users[cp.ID] = cp
	return cloneUser(cp), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(s.users, id)
	if u.Email != "" {
		delete(s.emails, strings.ToLower(u.Email))
	}
	for k, ident := range s.identities {
		if ident.UserID == id {
			delete(s.identities, k)
		}
	}
	return nil
}

func (s *Store) UpsertIdentity(ctx context.Context, ident *core.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(ident.Provider, ident.ProviderID)
	now := time.Now().UTC()

	if cur, ok := s.identities[key]; ok {
		cur.UserID = ident.UserID
		cur.Profile = cloneMap(ident.Profile)
		cur.UpdatedAt = now
		return nil
	}

	cp := &core.Identity{
		ID:         uuid.NewString(),
		UserID:     ident.UserID,
		Provider:   ident.Provider,
		ProviderID: ident.ProviderID,
		Profile:    cloneMap(ident.Profile),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.identities[key] = cp
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

func cloneUser(u *core.User) *core.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Metadata = cloneMap(u.Metadata)
	return &cp
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
