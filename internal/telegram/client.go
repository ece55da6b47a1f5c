// Package telegram is the Bot API transport: a thin JSON client, the gateway
// adapter for outbound messages, and the webhook/long-poll inbound paths.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

type Client struct {
	Token   string
	BaseURL string
	HTTP    *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		Token: token,
		HTTP:  &http.Client{Timeout: 35 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) methodURL(method string) string {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(base, "/"), c.Token, method)
}

// call posts params as JSON and decodes the result envelope into out, which
// may be nil when the caller only cares about success.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	var env apiResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%s: status %d: %s", method, res.StatusCode, strings.TrimSpace(string(body)))
	}
	if !env.OK {
		return &APIError{Method: method, Status: res.StatusCode, Description: env.Description}
	}
	if out != nil {
		return json.Unmarshal(env.Result, out)
	}
	return nil
}

// upload posts a document as multipart form data.
func (c *Client) upload(ctx context.Context, method string, fields map[string]string, fileField, filename string, file []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile(fileField, filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(file); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, method, nil)
}

// APIError is a Bot API level failure (ok=false in the envelope).
type APIError struct {
	Method      string
	Status      int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Method, e.Status, e.Description)
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// DeleteWebhook removes a registered webhook, required before long polling.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": false}, nil)
}

// SetWebhook registers url for update delivery, with an optional secret token
// echoed back on every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	params := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if secret != "" {
		params["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", params, nil)
}
