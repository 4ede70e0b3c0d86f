package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// APIError represents a non-2xx response from the Hub API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hub api error %d: %s", e.StatusCode, e.Message)
}

// resultEnvelope is the Hub's success wrapper: {"result": <payload>}.
type resultEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// do performs an HTTP request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	return respBody, nil
}

// get performs a GET request and decodes the result envelope into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeResult(body, out)
}

// post performs a POST request and decodes the result envelope into out.
// out may be nil when the caller only cares about success.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := c.do(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return err
	}
	return decodeResult(body, out)
}

// put performs a PUT request and decodes the result envelope into out.
func (c *Client) put(ctx context.Context, path string, payload, out any) error {
	body, err := c.do(ctx, http.MethodPut, path, nil, payload)
	if err != nil {
		return err
	}
	return decodeResult(body, out)
}

func decodeResult(body []byte, out any) error {
	if out == nil {
		return nil
	}

	var env resultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal response envelope: %w", err)
	}
	if len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}
