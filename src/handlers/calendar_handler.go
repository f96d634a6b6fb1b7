package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"www.github.com/Wanderer0074348/CalSync/src/calendar"
	"www.github.com/Wanderer0074348/CalSync/src/middleware"
	"www.github.com/Wanderer0074348/CalSync/src/store"
)

// CalendarLister fetches the user's calendars from the provider.
type CalendarLister interface {
	ListCalendars(ctx context.Context, accessToken string) ([]calendar.Item, error)
}

// CalendarStore is the persistence surface the calendar endpoints need.
type CalendarStore interface {
	GetByEmail(ctx context.Context, email string) (*store.UserRecord, error)
	SaveCalendars(ctx context.Context, email string, calendars []store.CalendarEntry) error
	ToggleCalendar(ctx context.Context, email, calendarID string) (*store.CalendarEntry, error)
}

type CalendarHandler struct {
	lister CalendarLister
	users  CalendarStore
	logger *zap.Logger
}

func NewCalendarHandler(lister CalendarLister, users CalendarStore, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{
		lister: lister,
		users:  users,
		logger: logger,
	}
}

// List returns the user's calendars with their persisted enabled flags.
// Calendars never seen before default to disabled and are persisted that way.
func (h *CalendarHandler) List(c *gin.Context) {
	claims, ok := middleware.Session(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	items, err := h.lister.ListCalendars(c.Request.Context(), claims.Credential.AccessToken)
	if err != nil {
		h.logger.Error("failed to list calendars", zap.String("email", claims.Email), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list calendars"})
		return
	}

	record, err := h.users.GetByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		h.storeFailure(c, claims.Email, err)
		return
	}

	merged, changed := calendar.MergeEnabled(items, record.Calendars)
	if changed {
		if err := h.users.SaveCalendars(c.Request.Context(), claims.Email, merged); err != nil {
			h.storeFailure(c, claims.Email, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"calendars": merged})
}

// Toggle flips the enabled flag on one calendar.
func (h *CalendarHandler) Toggle(c *gin.Context) {
	claims, ok := middleware.Session(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	entry, err := h.users.ToggleCalendar(c.Request.Context(), claims.Email, c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"calendar": entry})
	case errors.Is(err, store.ErrCalendarNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Calendar not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Calendar was modified, reload and retry"})
	default:
		h.storeFailure(c, claims.Email, err)
	}
}

func (h *CalendarHandler) storeFailure(c *gin.Context, email string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	h.logger.Error("user store failure", zap.String("email", email), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
