package oauth

import "fmt"

// DefaultMicrosoftTenant signs in both work/school and personal
// accounts.
const DefaultMicrosoftTenant = "common"

// MicrosoftSpec describes the Microsoft identity platform (v2.0)
// endpoints for the given tenant. Profiles come from Microsoft Graph.
func MicrosoftSpec(tenant string) ProviderSpec {
	if tenant == "" {
		tenant = DefaultMicrosoftTenant
	}
	return ProviderSpec{
		Name:          "microsoft",
		AuthURL:       fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/authorize", tenant),
		TokenURL:      fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenant),
		ProfileURL:    "https://graph.microsoft.com/v1.0/me",
		DefaultScopes: []string{"user.read"},
		Normalize: func(raw RawProfile) *Profile {
			// Personal accounts have no mail attribute; the UPN is the
			// sign-in address there.
			email := raw.Str("mail")
			if email == "" {
				email = raw.Str("userPrincipalName")
			}
			return &Profile{
				ID:          raw.ID("id"),
				Email:       email,
				FirstName:   raw.Str("givenName"),
				LastName:    raw.Str("surname"),
				DisplayName: raw.Str("displayName"),
				Verified:    email != "",
			}
		},
	}
}

// NewMicrosoft builds the Microsoft strategy.
func NewMicrosoft(creds Credentials, tenant string) (Strategy, error) {
	return New(MicrosoftSpec(tenant), creds)
}
