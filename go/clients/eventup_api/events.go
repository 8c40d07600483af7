package eventup_api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/eventup/live/go/internal/models"
)

// GetEvent returns a single event. Event details are public, no token is sent.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	endpoint := fmt.Sprintf(EventEndpoint, url.PathEscape(eventID))

	var event models.Event
	if err := c.GetJSON(ctx, endpoint, "", &event); err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// GetRelatedEvents returns events of the same category, excluding eventID
func (c *Client) GetRelatedEvents(ctx context.Context, categoryID, eventID string, page, limit int) (*models.EventPage, error) {
	if page <= 0 {
		page = DefaultRelatedPage
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	params := url.Values{}
	params.Set("category", categoryID)
	params.Set("eventId", eventID)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var result models.EventPage
	if err := c.GetJSON(ctx, RelatedEventsEndpoint+"?"+params.Encode(), "", &result); err != nil {
		return nil, fmt.Errorf("failed to get related events: %w", err)
	}
	return &result, nil
}
