package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"www.github.com/Wanderer0074348/CalSync/src/config"
)

const userInfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOAuthConfig builds the oauth2 config for the Google authorization
// endpoint from application configuration.
func GoogleOAuthConfig(cfg *config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     google.Endpoint,
	}
}

// Coordinator drives the authorization-code grant: auth URL construction,
// state verification, code exchange and profile fetch. It never touches the
// user store; persistence happens in the HTTP layer after a successful
// completion.
type Coordinator struct {
	oauthConfig *oauth2.Config
	stateStore  *StateStore
	httpClient  *http.Client
	userInfoURL string
}

func NewCoordinator(oauthConfig *oauth2.Config, stateStore *StateStore) *Coordinator {
	return &Coordinator{
		oauthConfig: oauthConfig,
		stateStore:  stateStore,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		userInfoURL: userInfoEndpoint,
	}
}

// BeginAuthorization issues a fresh state token and returns the provider
// authorization URL carrying it. No network call is made.
func (co *Coordinator) BeginAuthorization(ctx context.Context) (string, error) {
	state, err := co.stateStore.GenerateState()
	if err != nil {
		return "", err
	}

	if err := co.stateStore.SaveState(ctx, state); err != nil {
		return "", fmt.Errorf("failed to save state: %w", err)
	}

	return co.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// CompleteAuthorization exchanges the callback code for tokens and fetches
// the user's profile. The state check runs before any network call; a
// mismatch terminates the attempt with ErrInvalidState and the client must
// restart the flow. Nothing here is retried: authorization codes are
// single-use.
func (co *Coordinator) CompleteAuthorization(ctx context.Context, code, state string) (*GoogleUserInfo, *Credential, error) {
	valid, err := co.stateStore.ConsumeState(ctx, state)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}
	if !valid {
		return nil, nil, ErrInvalidState
	}

	if code == "" {
		return nil, nil, ErrMissingCode
	}

	exchangeCtx, cancel := context.WithTimeout(
		context.WithValue(ctx, oauth2.HTTPClient, co.httpClient),
		10*time.Second,
	)
	defer cancel()

	token, err := co.oauthConfig.Exchange(exchangeCtx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	profile, err := co.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	credential := &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     co.oauthConfig.Endpoint.TokenURL,
		ClientID:     co.oauthConfig.ClientID,
		Scopes:       co.oauthConfig.Scopes,
		Expiry:       token.Expiry,
	}

	return profile, credential, nil
}

func (co *Coordinator) fetchUserInfo(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, co.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := co.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch user info: status %d, body: %s", resp.StatusCode, string(body))
	}

	var profile GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &profile, nil
}
