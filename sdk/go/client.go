// Package maintsdk is a minimal client for the maintbot operations API.
package maintsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the operations API. Set either BearerToken or OpsKey;
// health checks work without credentials.
type Client struct {
	BaseURL     string
	BasePath    string
	OpsKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v0",
		Timeout:  10 * time.Second,
	}
}

// Issue represents the API issue model.
type Issue struct {
	ID                   int64   `json:"id"`
	CreatedAt            string  `json:"created_at"`
	ReporterID           int64   `json:"reporter_id"`
	ReporterDisplayName  string  `json:"reporter_display_name,omitempty"`
	Area                 string  `json:"area,omitempty"`
	Subarea              string  `json:"subarea,omitempty"`
	EquipmentPath        string  `json:"equipment_path,omitempty"`
	Description          string  `json:"description"`
	Status               string  `json:"status"`
	ResolvedAt           *string `json:"resolved_at,omitempty"`
	ResolverID           *int64  `json:"resolver_id,omitempty"`
	ResolverDisplayName  *string `json:"resolver_display_name,omitempty"`
	ReporterNameSnapshot string  `json:"reporter_name_snapshot,omitempty"`
	ReporterRoleSnapshot string  `json:"reporter_role_snapshot,omitempty"`
}

// IssueFilters narrows List results. Zero values mean no filter.
type IssueFilters struct {
	Status     string
	ReporterID int64
	Limit      int
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Health checks the API is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

// ListIssues returns issues newest first.
func (c *Client) ListIssues(ctx context.Context, f IssueFilters) ([]Issue, error) {
	endpoint := "issues"
	var params []string
	if f.Status != "" {
		params = append(params, "status="+f.Status)
	}
	if f.ReporterID != 0 {
		params = append(params, fmt.Sprintf("reporter_id=%d", f.ReporterID))
	}
	if f.Limit > 0 {
		params = append(params, fmt.Sprintf("limit=%d", f.Limit))
	}
	if len(params) > 0 {
		endpoint += "?" + strings.Join(params, "&")
	}
	var resp []Issue
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetIssue fetches one issue by id.
func (c *Client) GetIssue(ctx context.Context, id int64) (Issue, error) {
	var resp Issue
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("issues/%d", id), nil, &resp)
	return resp, err
}

// CloseIssue closes an open issue. resolverName may be empty; the server
// falls back to the authenticated subject. An already closed issue surfaces
// as an APIError with status 409.
func (c *Client) CloseIssue(ctx context.Context, id int64, resolverName string) (Issue, error) {
	body := map[string]any{}
	if resolverName != "" {
		body["resolver_name"] = resolverName
	}
	var resp Issue
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("issues/%d/close", id), body, &resp)
	return resp, err
}

// PurgeIssues deletes every issue and resets numbering. Irreversible.
func (c *Client) PurgeIssues(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "issues", nil, nil)
}

// ExportExcel downloads the full issue list as an xlsx workbook.
func (c *Client) ExportExcel(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "issues/export.xlsx", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		var b bytes.Buffer
		if err := json.NewEncoder(&b).Encode(body); err != nil {
			return err
		}
		buf = &b
	}
	req, err := c.newRequest(ctx, method, endpoint, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	url := c.base() + "/" + strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.OpsKey != "":
		req.Header.Set("X-Ops-Key", c.OpsKey)
	}
	return req, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c.HTTPClient
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
