package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"www.github.com/Wanderer0074348/CalSync/src/store"
)

const calendarListEndpoint = "https://www.googleapis.com/calendar/v3/users/me/calendarList"

// Item is one calendar from the Google calendarList API.
type Item struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

type listResponse struct {
	Items         []Item `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// Client lists a user's calendars with their own access token.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    calendarListEndpoint,
	}
}

func (c *Client) ListCalendars(ctx context.Context, accessToken string) ([]Item, error) {
	var items []Item
	pageToken := ""

	for {
		page, next, err := c.listPage(ctx, accessToken, pageToken)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		if next == "" {
			return items, nil
		}
		pageToken = next
	}
}

func (c *Client) listPage(ctx context.Context, accessToken, pageToken string) ([]Item, string, error) {
	endpoint := c.baseURL
	if pageToken != "" {
		endpoint += "?pageToken=" + url.QueryEscape(pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list calendars: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("failed to list calendars: status %d, body: %s", resp.StatusCode, string(body))
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("failed to decode calendar list: %w", err)
	}

	return page.Items, page.NextPageToken, nil
}

// MergeEnabled overlays persisted enabled flags onto a freshly listed set of
// calendars. Calendars without a stored flag default to disabled. The second
// return value reports whether the merged list differs from what is stored,
// i.e. whether it needs persisting.
func MergeEnabled(items []Item, stored []store.CalendarEntry) ([]store.CalendarEntry, bool) {
	enabled := make(map[string]bool, len(stored))
	for _, entry := range stored {
		enabled[entry.ID] = entry.Enabled
	}

	merged := make([]store.CalendarEntry, 0, len(items))
	changed := len(items) != len(stored)
	for i, item := range items {
		entry := store.CalendarEntry{
			ID:      item.ID,
			Summary: item.Summary,
			Enabled: enabled[item.ID],
		}
		if !changed {
			changed = stored[i] != entry
		}
		merged = append(merged, entry)
	}

	return merged, changed
}
