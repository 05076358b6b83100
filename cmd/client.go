package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// envelope is the response shape of every API route.
type envelope struct {
	OK         bool            `json:"ok"`
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	NextCursor *string         `json:"nextCursor"`
	Counts     map[string]int  `json:"counts"`
}

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(addr string) *apiClient {
	base := strings.TrimSuffix(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{base: base, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *apiClient) do(ctx context.Context, method, path string) (envelope, error) {
	var env envelope
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return env, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return env, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, err)
	}
	if !env.OK {
		return env, fmt.Errorf("%s %s: %s", method, path, env.Error)
	}
	return env, nil
}
