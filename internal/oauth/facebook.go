package oauth

import (
	"fmt"
	"net/url"
)

// DefaultGraphAPIVersion is the Graph API version used when the
// configuration doesn't pin one.
const DefaultGraphAPIVersion = "v12.0"

// FacebookSpec describes Facebook's Graph API OAuth endpoints. The
// token endpoint takes its parameters as a GET query, and the profile
// endpoint wants the access token in the query too.
func FacebookSpec(graphAPIVersion string) ProviderSpec {
	if graphAPIVersion == "" {
		graphAPIVersion = DefaultGraphAPIVersion
	}
	return ProviderSpec{
		Name:          "facebook",
		AuthURL:       fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth", graphAPIVersion),
		TokenURL:      fmt.Sprintf("https://graph.facebook.com/%s/oauth/access_token", graphAPIVersion),
		ProfileURL:    fmt.Sprintf("https://graph.facebook.com/%s/me", graphAPIVersion),
		DefaultScopes: []string{"email", "public_profile"},
		TokenMethod:   "GET",
		ProfileInQuery: true,
		ProfileQuery: url.Values{
			"fields": {"id,email,first_name,last_name,name"},
		},
		Normalize: func(raw RawProfile) *Profile {
			email := raw.Str("email")
			return &Profile{
				ID:          raw.ID("id"),
				Email:       email,
				FirstName:   raw.Str("first_name"),
				LastName:    raw.Str("last_name"),
				DisplayName: raw.Str("name"),
				// Graph only returns emails the user confirmed.
				Verified: email != "",
			}
		},
	}
}

// NewFacebook builds the Facebook strategy.
func NewFacebook(creds Credentials, graphAPIVersion string) (Strategy, error) {
	return New(FacebookSpec(graphAPIVersion), creds)
}
