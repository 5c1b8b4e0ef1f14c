package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"examsight/internal/supervisor"
)

// apiClient is a thin HTTP client for the daemon control API.
type apiClient struct {
	base   string
	client *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) statuses(ctx context.Context) (map[string]supervisor.Status, error) {
	var out map[string]supervisor.Status
	if err := c.do(ctx, http.MethodGet, "/api/streams", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) startStream(ctx context.Context, name, url string) (bool, error) {
	body := map[string]string{"source_url": url}
	var out struct {
		Started bool `json:"started"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/streams/"+name+"/start", body, &out); err != nil {
		return false, err
	}
	return out.Started, nil
}

func (c *apiClient) stopStream(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/streams/"+name+"/stop", nil, nil)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
