package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/socialauth/internal/store/core"
)

func TestCreateAndLookups(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.Create(ctx, &core.User{
		Email:       "Jane@Example.com",
		DisplayName: "Jane",
		Metadata:    map[string]any{"provider": "google"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("created user missing id/timestamps: %+v", u)
	}

	byID, err := s.GetByID(ctx, u.ID)
	if err != nil || byID.DisplayName != "Jane" {
		t.Fatalf("GetByID: %v / %+v", err, byID)
	}

	// Email match es case-insensitive.
	byEmail, err := s.GetByEmail(ctx, "jane@example.COM")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetByEmail: %v / %+v", err, byEmail)
	}

	if _, err := s.GetByID(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Create(ctx, &core.User{Email: "dup@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := s.Create(ctx, &core.User{Email: "DUP@example.com"})
	if !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestCreate_MultipleUsersWithoutEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Proveedores sin email (Twitter) generan varios usuarios sin email;
	// ninguno debe chocar con otro.
	a, err := s.Create(ctx, &core.User{DisplayName: "A"})
	if err != nil {
		t.Fatalf("Create A: %v", err)
	}
	b, err := s.Create(ctx, &core.User{DisplayName: "B"})
	if err != nil {
		t.Fatalf("Create B: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("ids should differ")
	}
}

func TestUpdate_EmailImmutable(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, _ := s.Create(ctx, &core.User{Email: "keep@example.com", FirstName: "Old"})

	mod := *u
	mod.Email = "other@example.com"
	mod.FirstName = "New"
	updated, err := s.Update(ctx, &mod)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Email != "keep@example.com" {
		t.Fatalf("email must not change on update: %q", updated.Email)
	}
	if updated.FirstName != "New" {
		t.Fatalf("profile fields should update: %+v", updated)
	}
	if !updated.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("CreatedAt must be preserved")
	}

	if _, err := s.Update(ctx, &core.User{ID: "ghost"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestIdentities_UpsertAndResolve(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, _ := s.Create(ctx, &core.User{Email: "x@example.com"})
	if err := s.UpsertIdentity(ctx, &core.Identity{
		UserID:     u.ID,
		Provider:   "github",
		ProviderID: "42",
		Profile:    map[string]any{"username": "octo"},
	}); err != nil {
		t.Fatalf("UpsertIdentity: %v", err)
	}

	got, err := s.GetByIdentity(ctx, "github", "42")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByIdentity: %v / %+v", err, got)
	}
	if _, err := s.GetByIdentity(ctx, "github", "999"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	// Upsert re-apunta la identidad a otro usuario.
	v, _ := s.Create(ctx, &core.User{Email: "y@example.com"})
	if err := s.UpsertIdentity(ctx, &core.Identity{
		UserID:     v.ID,
		Provider:   "github",
		ProviderID: "42",
	}); err != nil {
		t.Fatalf("UpsertIdentity (again): %v", err)
	}
	got, _ = s.GetByIdentity(ctx, "github", "42")
	if got.ID != v.ID {
		t.Fatalf("upsert should repoint the identity")
	}
}

func TestDelete_CascadesIdentities(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, _ := s.Create(ctx, &core.User{Email: "gone@example.com"})
	_ = s.UpsertIdentity(ctx, &core.Identity{UserID: u.ID, Provider: "google", ProviderID: "g1"})

	if err := s.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("user should be gone, got %v", err)
	}
	if _, err := s.GetByIdentity(ctx, "google", "g1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("identity should cascade, got %v", err)
	}
	// El email queda libre para un alta nueva.
	if _, err := s.Create(ctx, &core.User{Email: "gone@example.com"}); err != nil {
		t.Fatalf("email should be reusable after delete: %v", err)
	}

	if err := s.Delete(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestClone_CallerMutationsDontLeak(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, _ := s.Create(ctx, &core.User{Email: "z@example.com", Metadata: map[string]any{"k": "v"}})
	u.Metadata["k"] = "hacked"
	u.DisplayName = "hacked"

	fresh, _ := s.GetByID(ctx, u.ID)
	if fresh.Metadata["k"] != "v" || fresh.DisplayName == "hacked" {
		t.Fatalf("store state leaked through returned pointers: %+v", fresh)
	}
}
