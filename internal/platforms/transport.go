package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// call describes one vendor request. At most one of JSON and Form is set.
type call struct {
	Method string
	URL    string
	Query  url.Values
	Header map[string]string
	Bearer string
	JSON   interface{}
	Form   url.Values
}

// Transport sends JSON or form-encoded requests to vendor APIs and decodes
// JSON responses. Non-2xx responses become *APIError.
type Transport struct {
	client *http.Client
}

func NewTransport(timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transport{client: &http.Client{Timeout: timeout}}
}

// NewTransportWithClient uses an existing client, e.g. one from httptest.
func NewTransportWithClient(client *http.Client) *Transport {
	return &Transport{client: client}
}

// HTTPClient exposes the underlying client for OAuth libraries.
func (t *Transport) HTTPClient() *http.Client {
	return t.client
}

func (t *Transport) do(ctx context.Context, c call, out interface{}) error {
	return t.doWith(ctx, t.client, c, out)
}

// doWith sends c through client; used for OAuth 1.0a signed clients.
func (t *Transport) doWith(ctx context.Context, client *http.Client, c call, out interface{}) error {
	target := c.URL
	if len(c.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + c.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case c.JSON != nil:
		payload, err := json.Marshal(c.JSON)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case c.Form != nil:
		body = strings.NewReader(c.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}
	for k, v := range c.Header {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: vendorMessage(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// vendorMessage pulls the error text out of the vendor error shapes we know.
func vendorMessage(raw []byte) string {
	var body struct {
		Error interface{} `json:"error"`
		// LinkedIn, Snapchat
		Message string `json:"message"`
		// OAuth token endpoints
		Description string `json:"error_description"`
		// Twitter
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
		// Snapchat
		DebugMessage string `json:"debug_message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}

	switch e := body.Error.(type) {
	case map[string]interface{}:
		// Facebook and Google nest {"error": {"message": ...}}
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
	case string:
		if body.Description != "" {
			return body.Description
		}
		if e != "" {
			return e
		}
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.DebugMessage != "":
		return body.DebugMessage
	case len(body.Errors) > 0 && body.Errors[0].Message != "":
		return body.Errors[0].Message
	case body.Description != "":
		return body.Description
	}
	return strings.TrimSpace(string(raw))
}
