package oauth

import "errors"

// Sentinel errors for the OAuth flow. Callers match them with
// errors.Is; wrapped detail carries the provider response.
var (
	// ErrInvalidConfiguration means the provider credentials are
	// incomplete (missing client id, secret or callback URL).
	ErrInvalidConfiguration = errors.New("oauth: invalid provider configuration")

	// ErrMissingAuthorizationCode means the callback arrived without a
	// code parameter. No network calls are made in this case.
	ErrMissingAuthorizationCode = errors.New("oauth: missing authorization code")

	// ErrTokenExchange means the provider's token endpoint rejected the
	// code or returned an unusable response.
	ErrTokenExchange = errors.New("oauth: token exchange failed")

	// ErrProfileFetch means the provider's profile endpoint failed after
	// a successful token exchange.
	ErrProfileFetch = errors.New("oauth: profile fetch failed")

	// ErrUnknownProvider means no strategy is registered under the
	// requested name.
	ErrUnknownProvider = errors.New("oauth: unknown provider")
)
