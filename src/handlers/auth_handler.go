package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"www.github.com/Wanderer0074348/CalSync/src/auth"
	"www.github.com/Wanderer0074348/CalSync/src/config"
	"www.github.com/Wanderer0074348/CalSync/src/middleware"
	"www.github.com/Wanderer0074348/CalSync/src/store"
)

// FlowCoordinator drives the authorization-code grant.
type FlowCoordinator interface {
	BeginAuthorization(ctx context.Context) (string, error)
	CompleteAuthorization(ctx context.Context, code, state string) (*auth.GoogleUserInfo, *auth.Credential, error)
}

// UserUpserter persists the outcome of a successful authorization.
type UserUpserter interface {
	Upsert(ctx context.Context, profile *auth.GoogleUserInfo, credential *auth.Credential) (*store.UserRecord, error)
}

type AuthHandler struct {
	coordinator FlowCoordinator
	users       UserUpserter
	sessions    *auth.SessionManager
	session     config.SessionConfig
	frontendURL string
	logger      *zap.Logger
}

func NewAuthHandler(
	coordinator FlowCoordinator,
	users UserUpserter,
	sessions *auth.SessionManager,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthHandler {
	frontendURL := cfg.Server.FrontendURL
	if frontendURL == "" {
		frontendURL = "http://localhost:3001"
	}

	return &AuthHandler{
		coordinator: coordinator,
		users:       users,
		sessions:    sessions,
		session:     cfg.Session,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func (h *AuthHandler) dashboardURL() string {
	return h.frontendURL + "/dashboard"
}

// SignUp starts a fresh authorization attempt and redirects to the provider.
func (h *AuthHandler) SignUp(c *gin.Context) {
	url, err := h.coordinator.BeginAuthorization(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to begin authorization", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sign-in"})
		return
	}

	c.Redirect(http.StatusFound, url)
}

// Login short-circuits to the dashboard when the session cookie still
// resolves; otherwise it behaves like SignUp.
func (h *AuthHandler) Login(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookie); err == nil {
		if _, ok := h.sessions.Resolve(token); ok {
			c.JSON(http.StatusOK, gin.H{"url": h.dashboardURL()})
			return
		}
	}

	h.SignUp(c)
}

// Callback is the provider redirect target: complete the authorization,
// persist the user and bind the session cookie.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	profile, credential, err := h.coordinator.CompleteAuthorization(c.Request.Context(), code, state)
	if err != nil {
		h.failAuthorization(c, err)
		return
	}

	if _, err := h.users.Upsert(c.Request.Context(), profile, credential); err != nil {
		h.logger.Error("failed to persist user", zap.String("email", profile.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := h.sessions.Bind(profile, credential)
	if err != nil {
		h.logger.Error("failed to bind session", zap.String("email", profile.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.setSessionCookie(c, token, int(h.sessions.Duration().Seconds()))
	h.logger.Info("user authorized", zap.String("email", profile.Email))

	c.JSON(http.StatusOK, gin.H{"url": h.dashboardURL()})
}

// failAuthorization maps the flow error taxonomy onto status codes. Client
// mistakes get a reason; upstream and store failures get a generic body with
// detail in the logs only.
func (h *AuthHandler) failAuthorization(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state parameter, please try signing in again"})
	case errors.Is(err, auth.ErrMissingCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code not found"})
	case errors.Is(err, auth.ErrStateUnavailable):
		h.logger.Error("state store unavailable", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	case errors.Is(err, auth.ErrTokenExchange):
		h.logger.Error("token exchange failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Sign-in failed, please try again"})
	case errors.Is(err, auth.ErrProfileFetch):
		h.logger.Error("profile fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-in failed, please try again"})
	default:
		h.logger.Error("authorization failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.Redirect(http.StatusFound, "/")
}

// Me returns the authenticated principal from the session.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.Session(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"email":   claims.Email,
		"name":    claims.Name,
		"picture": claims.Picture,
	}})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if h.session.CookieSameSite == "strict" {
		sameSite = http.SameSiteStrictMode
	} else if h.session.CookieSameSite == "none" {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)

	cookieDomain := h.session.CookieDomain
	if cookieDomain == "localhost" {
		cookieDomain = ""
	}

	c.SetCookie(
		middleware.SessionCookie,
		token,
		maxAge,
		"/",
		cookieDomain,
		h.session.CookieSecure,
		true,
	)
}
