package toggl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.track.toggl.com/api/v9"

	// CreatedWith identifies this tool on entries it updates.
	CreatedWith = "togglbird"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("toggl API error (status %d): %s", e.StatusCode, e.Body)
}

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	cache      *ProjectCache
	logger     *slog.Logger
}

func NewClient(token string, baseURL string, cacheTTL time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:  NewProjectCache(cacheTTL),
		logger: logger,
	}
}

// doRequest issues a single authenticated call. Failures are not retried.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.SetBasicAuth(c.token, "api_token")
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("toggl API request", "method", method, "path", path)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("API request transport error", "method", method, "path", path, "error", err, "elapsed", time.Since(requestStart))
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("toggl API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API request failed", "method", method, "path", path, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (c *Client) GetWorkspaces(ctx context.Context) ([]Workspace, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/me/workspaces", nil)
	if err != nil {
		return nil, fmt.Errorf("getting workspaces: %w", err)
	}

	var workspaces []Workspace
	if err := json.Unmarshal(data, &workspaces); err != nil {
		return nil, fmt.Errorf("parsing workspaces response: %w", err)
	}

	return workspaces, nil
}

func (c *Client) GetProjects(ctx context.Context, workspaceID int64) ([]Project, error) {
	if cached := c.cache.Get(workspaceID); cached != nil {
		return cached, nil
	}

	path := fmt.Sprintf("/workspaces/%d/projects", workspaceID)
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting projects: %w", err)
	}

	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("parsing projects response: %w", err)
	}

	c.cache.Set(workspaceID, projects)
	return projects, nil
}

// GetTimeEntries lists the entries of the current user that started
// inside [start, end].
func (c *Client) GetTimeEntries(ctx context.Context, start, end time.Time) ([]TimeEntry, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))

	data, err := c.doRequest(ctx, http.MethodGet, "/me/time_entries?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("getting time entries: %w", err)
	}

	var entries []TimeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing time entries response: %w", err)
	}

	return entries, nil
}

// UpdateTags replaces the tag set of a single entry.
func (c *Client) UpdateTags(ctx context.Context, workspaceID, entryID int64, tags []string) (*TimeEntry, error) {
	path := fmt.Sprintf("/workspaces/%d/time_entries/%d", workspaceID, entryID)
	data, err := c.doRequest(ctx, http.MethodPut, path, TagsUpdate{Tags: tags, CreatedWith: CreatedWith})
	if err != nil {
		return nil, fmt.Errorf("updating time entry %d: %w", entryID, err)
	}

	var updated TimeEntry
	if err := json.Unmarshal(data, &updated); err != nil {
		return nil, fmt.Errorf("parsing time entry response: %w", err)
	}

	return &updated, nil
}
