// Package enrollment queries the academic platform for a user's enrolled
// courses. The platform is treated as a black-box oracle: any failure mode
// (network error, non-2xx status, malformed body) degrades to an empty set,
// so callers never have to handle an error.
package enrollment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"notification-service/internal/course"
)

const defaultTimeout = 5 * time.Second

// Service answers "which courses is this user enrolled in?".
type Service interface {
	EnrolledCourses(ctx context.Context, userID string) course.Set
}

// Client is the HTTP implementation of Service against the platform API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the platform at baseURL. A nil httpClient
// gets a default with a request timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// EnrolledCourses fetches the user's enrolled course ids. It always succeeds
// from the caller's perspective: every failure returns the empty set.
func (c *Client) EnrolledCourses(ctx context.Context, userID string) course.Set {
	endpoint := fmt.Sprintf("%s/api/users/%s/enrolled-courses", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		slog.Warn("Failed to build enrollment request", "userID", userID, "error", err)
		return course.Set{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Enrollment lookup failed", "userID", userID, "error", err)
		return course.Set{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 404 means the platform does not know the user; other statuses are
		// treated the same way so a platform outage never breaks joins.
		slog.Debug("Enrollment lookup returned non-OK status", "userID", userID, "status", resp.StatusCode)
		return course.Set{}
	}

	// The platform serializes ids inconsistently (numbers or strings);
	// course.ID normalizes both during decoding.
	var ids []course.ID
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		slog.Warn("Failed to decode enrollment response", "userID", userID, "error", err)
		return course.Set{}
	}

	return course.NewSet(ids...)
}
