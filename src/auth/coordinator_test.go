package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider is an in-process identity provider counting every call it
// receives.
type fakeProvider struct {
	server       *httptest.Server
	tokenCalls   atomic.Int64
	profileCalls atomic.Int64

	tokenStatus   int
	profileStatus int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	p := &fakeProvider{
		tokenStatus:   http.StatusOK,
		profileStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls.Add(1)
		if p.tokenStatus != http.StatusOK {
			http.Error(w, "invalid_grant", p.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "t1",
			"refresh_token": "r1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		p.profileCalls.Add(1)
		if p.profileStatus != http.StatusOK {
			http.Error(w, "upstream error", p.profileStatus)
			return
		}
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(GoogleUserInfo{
			ID:            "g-123",
			Email:         "a@example.com",
			VerifiedEmail: true,
			Name:          "A",
			GivenName:     "A",
			FamilyName:    "Example",
			Picture:       "https://example.com/a.png",
			Locale:        "en",
		})
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func setupTestCoordinator(t *testing.T, provider *fakeProvider) (*Coordinator, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	stateStore := NewStateStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 10*time.Minute)

	oauthConfig := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8000/auth",
		Scopes:       []string{"openid"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  provider.server.URL + "/authorize",
			TokenURL: provider.server.URL + "/token",
		},
	}

	co := NewCoordinator(oauthConfig, stateStore)
	co.userInfoURL = provider.server.URL + "/userinfo"
	return co, mr
}

func issueState(t *testing.T, co *Coordinator) string {
	t.Helper()
	authURL, err := co.BeginAuthorization(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestCoordinator_BeginAuthorization(t *testing.T) {
	provider := newFakeProvider(t)
	co, _ := setupTestCoordinator(t, provider)

	authURL, err := co.BeginAuthorization(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:8000/auth", u.Query().Get("redirect_uri"))
	assert.Equal(t, "openid", u.Query().Get("scope"))
	assert.NotEmpty(t, u.Query().Get("state"))

	// Building the URL must not talk to the provider
	assert.EqualValues(t, 0, provider.tokenCalls.Load())
}

func TestCoordinator_CompleteAuthorization(t *testing.T) {
	provider := newFakeProvider(t)
	co, _ := setupTestCoordinator(t, provider)
	state := issueState(t, co)

	profile, credential, err := co.CompleteAuthorization(context.Background(), "code-1", state)
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", profile.Email)
	assert.Equal(t, "A", profile.Name)
	assert.True(t, profile.VerifiedEmail)

	assert.Equal(t, "t1", credential.AccessToken)
	assert.Equal(t, "r1", credential.RefreshToken)
	assert.Equal(t, "client-id", credential.ClientID)
	assert.Equal(t, provider.server.URL+"/token", credential.TokenURI)
	assert.Equal(t, []string{"openid"}, credential.Scopes)
	assert.WithinDuration(t, time.Now().Add(time.Hour), credential.Expiry, time.Minute)
}

func TestCoordinator_InvalidStateBeforeAnyNetworkCall(t *testing.T) {
	provider := newFakeProvider(t)
	co, _ := setupTestCoordinator(t, provider)
	issueState(t, co)

	profile, credential, err := co.CompleteAuthorization(context.Background(), "code-1", "forged")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, profile)
	assert.Nil(t, credential)

	assert.EqualValues(t, 0, provider.tokenCalls.Load())
	assert.EqualValues(t, 0, provider.profileCalls.Load())
}

func TestCoordinator_StateIsSingleUse(t *testing.T) {
	provider := newFakeProvider(t)
	co, _ := setupTestCoordinator(t, provider)
	state := issueState(t, co)

	_, _, err := co.CompleteAuthorization(context.Background(), "code-1", state)
	require.NoError(t, err)

	_, _, err = co.CompleteAuthorization(context.Background(), "code-2", state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCoordinator_MissingCode(t *testing.T) {
	provider := newFakeProvider(t)
	co, _ := setupTestCoordinator(t, provider)
	state := issueState(t, co)

	_, _, err := co.CompleteAuthorization(context.Background(), "", state)
	assert.ErrorIs(t, err, ErrMissingCode)
	assert.EqualValues(t, 0, provider.tokenCalls.Load())
}

func TestCoordinator_StateStoreUnavailable(t *testing.T) {
	provider := newFakeProvider(t)
	co, mr := setupTestCoordinator(t, provider)
	state := issueState(t, co)

	mr.Close()

	_, _, err := co.CompleteAuthorization(context.Background(), "code-1", state)
	assert.ErrorIs(t, err, ErrStateUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidState)

	assert.EqualValues(t, 0, provider.tokenCalls.Load())
	assert.EqualValues(t, 0, provider.profileCalls.Load())
}

func TestCoordinator_TokenExchangeFailed(t *testing.T) {
	provider := newFakeProvider(t)
	provider.tokenStatus = http.StatusBadRequest
	co, _ := setupTestCoordinator(t, provider)
	state := issueState(t, co)

	_, _, err := co.CompleteAuthorization(context.Background(), "code-1", state)
	assert.ErrorIs(t, err, ErrTokenExchange)
	assert.EqualValues(t, 0, provider.profileCalls.Load())
}

func TestCoordinator_ProfileFetchFailed(t *testing.T) {
	provider := newFakeProvider(t)
	provider.profileStatus = http.StatusInternalServerError
	co, _ := setupTestCoordinator(t, provider)
	state := issueState(t, co)

	_, _, err := co.CompleteAuthorization(context.Background(), "code-1", state)
	assert.ErrorIs(t, err, ErrProfileFetch)
	assert.EqualValues(t, 1, provider.tokenCalls.Load())
}
