package auth

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionManager binds an authenticated profile and its credential snapshot
// to a self-contained signed token carried in a cookie. Tokens are stateless:
// there is nothing to delete server-side, logout just expires the cookie.
type SessionManager struct {
	secret   []byte
	duration time.Duration
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	Credential string `json:"credential"`
}

func NewSessionManager(secret string, duration time.Duration) *SessionManager {
	return &SessionManager{
		secret:   []byte(secret),
		duration: duration,
	}
}

func (m *SessionManager) Bind(profile *GoogleUserInfo, credential *Credential) (string, error) {
	snapshot, err := json.Marshal(credential)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   profile.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
		},
		Email:      profile.Email,
		Name:       profile.Name,
		Picture:    profile.Picture,
		Credential: string(snapshot),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Resolve verifies signature and expiry. An absent, malformed or expired
// token is not an error, just "not logged in".
func (m *SessionManager) Resolve(token string) (*SessionClaims, bool) {
	if token == "" {
		return nil, false
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}

	var credential Credential
	if err := json.Unmarshal([]byte(claims.Credential), &credential); err != nil {
		return nil, false
	}

	return &SessionClaims{
		Email:      claims.Email,
		Name:       claims.Name,
		Picture:    claims.Picture,
		Credential: &credential,
	}, true
}

// Duration is the session lifetime, exported for cookie max-age.
func (m *SessionManager) Duration() time.Duration {
	return m.duration
}
