package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const githubEmailsURL = "https://api.github.com/user/emails"

// GithubSpec describes GitHub's OAuth 2.0 endpoints. GitHub has no ID
// tokens and often hides the email on /user, so the enrichment hook
// completes the payload from /user/emails.
func GithubSpec() ProviderSpec {
	return ProviderSpec{
		Name:          "github",
		AuthURL:       "https://github.com/login/oauth/authorize",
		TokenURL:      "https://github.com/login/oauth/access_token",
		ProfileURL:    "https://api.github.com/user",
		DefaultScopes: []string{"user:email", "read:user"},
		AuthParams: url.Values{
			"allow_signup": {"true"},
		},
		Enrich:    githubEmail,
		Normalize: githubNormalize,
	}
}

// NewGithub builds the GitHub strategy.
func NewGithub(creds Credentials) (Strategy, error) {
	return New(GithubSpec(), creds)
}

type githubEmailEntry struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// githubEmail fills raw["email"] from /user/emails when the profile
// came back without one (private email setting).
func githubEmail(ctx context.Context, f Fetcher, tok *Token, raw RawProfile) error {
	if raw.Str("email") != "" {
		return nil
	}

	var emails []githubEmailEntry
	if err := f.GetJSON(ctx, githubEmailsURL, tok, nil, &emails); err != nil {
		return fmt.Errorf("fetch emails: %w", err)
	}
	if len(emails) == 0 {
		return nil
	}

	best := emails[0]
	for _, e := range emails {
		if e.Primary && e.Verified {
			best = e
			break
		}
		if e.Verified && !best.Verified {
			best = e
		}
	}
	raw["email"] = best.Email
	raw["email_verified"] = best.Verified
	return nil
}

func githubNormalize(raw RawProfile) *Profile {
	first, last := splitName(raw.Str("name"))
	display := raw.Str("name")
	if display == "" {
		display = raw.Str("login")
	}
	return &Profile{
		ID:          raw.ID("id"),
		Email:       raw.Str("email"),
		FirstName:   first,
		LastName:    last,
		DisplayName: display,
		Picture:     raw.Str("avatar_url"),
		Verified:    raw.Bool("email_verified"),
	}
}

// splitName breaks a free-form display name into first name and the
// rest.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	first = parts[0]
	if len(parts) == 2 {
		last = strings.TrimSpace(parts[1])
	}
	return first, last
}
