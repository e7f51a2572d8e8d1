// Package workflow orchestrates a social login callback end to end:
// authenticate against the provider, transform the profile, resolve
// the local user and finalize with a session token.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/socialauth/internal/events"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/socialauth/internal/security/token"
	"github.com/dropDatabas3/socialauth/internal/store/core"
)

// Status tracks how far a login run got.
type Status string

const (
	StatusInit          Status = "init"
	StatusAuthenticated Status = "authenticated"
	StatusTransformed   Status = "profile_transformed"
	StatusUserResolved  Status = "user_resolved"
	StatusFinalized     Status = "finalized"
	StatusError         Status = "error"
)

// Result is the uniform outcome of a login run. Err is set exactly
// when Success is false.
type Result struct {
	Success  bool
	Status   Status
	Provider string
	User     *core.User
	Created  bool
	Token    string
	Err      error
}

// Deps wires the workflow collaborators.
type Deps struct {
	Registry *oauth.Registry
	Users    core.Repository
	Issuer   *tokens.Issuer
	Bus      *events.Bus
}

// Workflow runs logins. Safe for concurrent use; concurrent callbacks
// that materialize the same user are collapsed with singleflight.
type Workflow struct {
	deps Deps
	sf   singleflight.Group
}

func New(deps Deps) *Workflow {
	return &Workflow{deps: deps}
}

// Run executes the full callback pipeline. It never returns an error
// out of band: failures land in Result.Err, and finalize (events,
// compensation) always runs.
func (w *Workflow) Run(ctx context.Context, provider string, req oauth.CallbackRequest) *Result {
	res := &Result{Status: StatusInit, Provider: provider}
	log := logger.FromWithFields(ctx, logger.Component("workflow"), logger.Provider(provider))

	authRes, err := w.deps.Registry.Authenticate(ctx, provider, req)
	if err != nil {
		res.Status, res.Err = StatusError, err
		return w.finalize(ctx, res)
	}
	res.Status = StatusAuthenticated

	candidate := profileToUser(authRes.Profile)
	res.Status = StatusTransformed

	user, created, err := w.resolveUser(ctx, authRes.Profile, candidate)
	if err != nil {
		res.Status, res.Err = StatusError, fmt.Errorf("workflow: resolve user: %w", err)
		return w.finalize(ctx, res)
	}
	res.User, res.Created = user, created
	res.Status = StatusUserResolved

	log.Debug("user resolved", logger.UserID(user.ID), logger.Bool("created", created))
	return w.finalize(ctx, res)
}

// resolveUser materializes the local user for a normalized profile.
// Concurrent callbacks for the same person share one execution; the
// unique email constraint plus the duplicate fallback close the
// remaining race window across processes.
func (w *Workflow) resolveUser(ctx context.Context, p *oauth.Profile, candidate *core.User) (*core.User, bool, error) {
	key := "identity:" + p.Provider + ":" + p.ID
	if p.Email != "" {
		key = "email:" + p.Email
	}

	type resolved struct {
		user    *core.User
		created bool
	}
	v, err, _ := w.sf.Do(key, func() (any, error) {
		user, created, err := w.materialize(ctx, p, candidate)
		if err != nil {
			return nil, err
		}
		return resolved{user: user, created: created}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(resolved)
	return r.user, r.created, nil
}

func (w *Workflow) materialize(ctx context.Context, p *oauth.Profile, candidate *core.User) (*core.User, bool, error) {
	users := w.deps.Users

	// Returning user through the same provider.
	if existing, err := users.GetByIdentity(ctx, p.Provider, p.ID); err == nil {
		updated, err := users.Update(ctx, mergeUser(existing, candidate, p.Provider))
		if err != nil {
			return nil, false, err
		}
		return updated, false, w.link(ctx, updated, p)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, false, err
	}

	// Same person through another provider: match by email.
	if p.Email != "" {
		if existing, err := users.GetByEmail(ctx, p.Email); err == nil {
			updated, err := users.Update(ctx, mergeUser(existing, candidate, p.Provider))
			if err != nil {
				return nil, false, err
			}
			return updated, false, w.link(ctx, updated, p)
		} else if !errors.Is(err, core.ErrNotFound) {
			return nil, false, err
		}
	}

	created, err := users.Create(ctx, candidate)
	if errors.Is(err, core.ErrDuplicateEmail) {
		// Lost the cross-process race: someone inserted this email
		// between the lookup and the insert. Fall back to update.
		existing, gerr := users.GetByEmail(ctx, p.Email)
		if gerr != nil {
			return nil, false, err
		}
		updated, uerr := users.Update(ctx, mergeUser(existing, candidate, p.Provider))
		if uerr != nil {
			return nil, false, uerr
		}
		return updated, false, w.link(ctx, updated, p)
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, w.link(ctx, created, p)
}

// link upserts the (provider, provider_id) identity for the user.
func (w *Workflow) link(ctx context.Context, u *core.User, p *oauth.Profile) error {
	return w.deps.Users.UpsertIdentity(ctx, &core.Identity{
		UserID:     u.ID,
		Provider:   p.Provider,
		ProviderID: p.ID,
		Profile:    p.Metadata,
	})
}

// finalize always runs, success or not: it issues the session token
// and emits the lifecycle event. If token issuance fails for a user
// created in this same run, the creation is rolled back so a retry
// starts clean.
func (w *Workflow) finalize(ctx context.Context, res *Result) *Result {
	if res.Err == nil && res.User != nil {
		token, err := w.deps.Issuer.Sign(res.User.ID, res.User.Email, res.Provider)
		if err != nil {
			if res.Created {
				if derr := w.deps.Users.Delete(ctx, res.User.ID); derr != nil {
					logger.From(ctx).Error("compensation delete failed",
						logger.Component("workflow"),
						logger.UserID(res.User.ID),
						logger.Err(derr),
					)
				}
			}
			res.Status, res.Err = StatusError, fmt.Errorf("workflow: issue token: %w", err)
			res.User, res.Created = nil, false
		} else {
			res.Token = token
			res.Success = true
			res.Status = StatusFinalized
		}
	}

	if w.deps.Bus != nil {
		if res.Success {
			w.deps.Bus.Emit(ctx, events.AuthSuccess, map[string]any{
				"provider": res.Provider,
				"user_id":  res.User.ID,
				"created":  res.Created,
			})
		} else {
			payload := map[string]any{"provider": res.Provider}
			if res.Err != nil {
				payload["error"] = res.Err.Error()
			}
			w.deps.Bus.Emit(ctx, events.AuthError, payload)
		}
	}
	return res
}

// profileToUser maps a normalized profile to the persistence shape.
func profileToUser(p *oauth.Profile) *core.User {
	meta := map[string]any{"provider": p.Provider}
	for k, v := range p.Metadata {
		meta[k] = v
	}
	return &core.User{
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DisplayName: p.DisplayName,
		Picture:     p.Picture,
		Locale:      p.Locale,
		Verified:    p.Verified,
		Metadata:    meta,
	}
}

// mergeUser refreshes the stored user with the latest login profile.
// Non-empty profile values win; existing metadata keys survive unless
// the login payload overwrites them.
func mergeUser(existing, candidate *core.User, provider string) *core.User {
	out := *existing
	if candidate.FirstName != "" {
		out.FirstName = candidate.FirstName
	}
	if candidate.LastName != "" {
		out.LastName = candidate.LastName
	}
	if candidate.DisplayName != "" {
		out.DisplayName = candidate.DisplayName
	}
	if candidate.Picture != "" {
		out.Picture = candidate.Picture
	}
	if candidate.Locale != "" {
		out.Locale = candidate.Locale
	}
	if candidate.Verified {
		out.Verified = true
	}

	meta := map[string]any{}
	for k, v := range existing.Metadata {
		meta[k] = v
	}
	for k, v := range candidate.Metadata {
		meta[k] = v
	}
	meta["provider"] = provider
	out.Metadata = meta
	return &out
}
