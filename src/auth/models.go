package auth

import (
	"time"
)

// GoogleUserInfo is the payload returned by the Google oauth2 v2 userinfo
// endpoint. The hd field is only present for Workspace accounts.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
	HostedDomain  string `json:"hd,omitempty"`
}

// Credential is the token material granted by the provider. RefreshToken is
// empty when the user re-authorizes without a new consent prompt.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry"`
}

// OAuthState is the anti-forgery token persisted between the authorization
// redirect and the provider callback.
type OAuthState struct {
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionClaims is what a resolved session token carries: enough to
// recognize the user and call Google APIs without re-authenticating.
type SessionClaims struct {
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Picture    string      `json:"picture"`
	Credential *Credential `json:"credential"`
}
