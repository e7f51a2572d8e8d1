package oauth

import (
	"context"
	"fmt"
	"strings"
)

const linkedinEmailURL = "https://api.linkedin.com/v2/emailAddress?q=members&projection=(elements*(handle~))"

// LinkedinSpec describes LinkedIn's OAuth 2.0 endpoints. The v2 /me
// payload has no email; the enrichment hook fetches it from the
// emailAddress projection endpoint.
func LinkedinSpec() ProviderSpec {
	return ProviderSpec{
		Name:          "linkedin",
		AuthURL:       "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:      "https://www.linkedin.com/oauth/v2/accessToken",
		ProfileURL:    "https://api.linkedin.com/v2/me",
		DefaultScopes: []string{"r_liteprofile", "r_emailaddress"},
		ProfileHeaders: map[string]string{
			"X-Restli-Protocol-Version": "2.0.0",
		},
		Enrich:    linkedinEmail,
		Normalize: linkedinNormalize,
	}
}

// NewLinkedin builds the LinkedIn strategy.
func NewLinkedin(creds Credentials) (Strategy, error) {
	return New(LinkedinSpec(), creds)
}

// linkedinEmail resolves the member email from the projection
// endpoint: elements[0]["handle~"].emailAddress.
func linkedinEmail(ctx context.Context, f Fetcher, tok *Token, raw RawProfile) error {
	var payload struct {
		Elements []map[string]any `json:"elements"`
	}
	if err := f.GetJSON(ctx, linkedinEmailURL, tok, map[string]string{
		"X-Restli-Protocol-Version": "2.0.0",
	}, &payload); err != nil {
		return fmt.Errorf("fetch email: %w", err)
	}
	if len(payload.Elements) == 0 {
		return nil
	}
	handle, ok := payload.Elements[0]["handle~"].(map[string]any)
	if !ok {
		return nil
	}
	if email, ok := handle["emailAddress"].(string); ok {
		raw["email"] = email
	}
	return nil
}

func linkedinNormalize(raw RawProfile) *Profile {
	first := localizedName(raw, "firstName")
	last := localizedName(raw, "lastName")
	display := strings.TrimSpace(first + " " + last)
	return &Profile{
		ID:          raw.ID("id"),
		Email:       raw.Str("email"),
		FirstName:   first,
		LastName:    last,
		DisplayName: display,
		Verified:    raw.Str("email") != "",
	}
}

// localizedName unwraps LinkedIn's MultiLocaleString shape:
// {"localized": {"en_US": "Jane"}, "preferredLocale": {...}}.
// It prefers the preferred locale, then en_US, then any value.
func localizedName(raw RawProfile, key string) string {
	field := raw.Map(key)
	if field == nil {
		return ""
	}
	localized, ok := field["localized"].(map[string]any)
	if !ok || len(localized) == 0 {
		return ""
	}

	if pref, ok := field["preferredLocale"].(map[string]any); ok {
		lang, _ := pref["language"].(string)
		country, _ := pref["country"].(string)
		if lang != "" && country != "" {
			if v, ok := localized[lang+"_"+country].(string); ok {
				return v
			}
		}
	}
	if v, ok := localized["en_US"].(string); ok {
		return v
	}
	for _, v := range localized {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
