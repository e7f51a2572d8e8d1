package oauth

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dropDatabas3/socialauth/internal/cache"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

const nonceKeyPrefix = "social:state:nonce:"

// Initiation is the first half of the flow: where to send the browser
// and the state token embedded in that URL.
type Initiation struct {
	RedirectURL string
	State       string
}

// Registry holds the configured strategies and owns the state
// lifecycle: it mints a signed single-use state on Initiate and
// validates/burns it on Authenticate.
type Registry struct {
	strategies map[string]Strategy
	signer     StateSigner
	nonces     cache.Client
	stateTTL   time.Duration
}

// NewRegistry builds an empty registry. stateTTL bounds how long an
// initiated login may stay pending; defaults to 10 minutes.
func NewRegistry(signer StateSigner, nonces cache.Client, stateTTL time.Duration) *Registry {
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	return &Registry{
		strategies: make(map[string]Strategy),
		signer:     signer,
		nonces:     nonces,
		stateTTL:   stateTTL,
	}
}

// Register adds a strategy under its own name. Re-registering a name
// replaces the previous strategy.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get returns the strategy for the provider name.
func (r *Registry) Get(provider string) (Strategy, error) {
	s, ok := r.strategies[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return s, nil
}

// Providers lists the registered provider names, sorted.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Initiate starts a login: mints a fresh nonce, signs the state and
// builds the provider consent URL. The nonce is stored so the
// callback can enforce single use.
func (r *Registry) Initiate(ctx context.Context, provider string) (*Initiation, error) {
	s, err := r.Get(provider)
	if err != nil {
		return nil, err
	}

	nonce, err := generateNonce(16)
	if err != nil {
		return nil, fmt.Errorf("oauth: generate nonce: %w", err)
	}

	state, err := r.signer.SignState(StateClaims{Provider: provider, Nonce: nonce})
	if err != nil {
		return nil, fmt.Errorf("oauth: sign state: %w", err)
	}

	if err := r.nonces.Set(ctx, nonceKeyPrefix+nonce, "1", r.stateTTL); err != nil {
		return nil, fmt.Errorf("oauth: store nonce: %w", err)
	}

	redirect, err := s.AuthorizationURL(state)
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Debug("login initiated",
		logger.Component("oauth.registry"),
		logger.Provider(provider),
	)
	return &Initiation{RedirectURL: redirect, State: state}, nil
}

// Authenticate finishes a login: validates the state against the
// provider, burns the nonce and delegates to the strategy. A state
// that fails validation never causes a provider round-trip.
func (r *Registry) Authenticate(ctx context.Context, provider string, req CallbackRequest) (*Result, error) {
	s, err := r.Get(provider)
	if err != nil {
		return nil, err
	}

	if req.State == "" {
		return nil, ErrStateInvalid
	}
	claims, err := r.signer.ParseState(req.State)
	if err != nil {
		return nil, err
	}
	if claims.Provider != provider {
		return nil, ErrStateProvider
	}

	if err := r.consumeNonce(ctx, claims.Nonce); err != nil {
		return nil, err
	}

	return s.Authenticate(ctx, req)
}

// consumeNonce burns the nonce with an atomic get-and-delete, so of
// two concurrent callbacks presenting the same state only one passes.
// A missing nonce means the state was already used or never issued
// here.
func (r *Registry) consumeNonce(ctx context.Context, nonce string) error {
	if nonce == "" {
		return ErrStateInvalid
	}
	if _, err := r.nonces.Take(ctx, nonceKeyPrefix+nonce); err != nil {
		if cache.IsNotFound(err) {
			return ErrStateReplayed
		}
		return fmt.Errorf("oauth: nonce take: %w", err)
	}
	return nil
}
