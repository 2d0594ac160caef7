package ratelimit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type checkRequest struct {
	Key      string `json:"key"`
	Limit    int    `json:"limit"`
	WindowMS int64  `json:"window_ms"`
	Cost     int    `json:"cost"`
}

type checkResponse struct {
	Allowed      bool  `json:"allowed"`
	Remaining    int   `json:"remaining"`
	ResetMS      int64 `json:"reset_ms"`
	RetryAfterMS int64 `json:"retry_after_ms"`
}

// RemoteCounter delegates counting to the single logical owner of each key, a
// counter service reached over HTTP. All serialization of concurrent
// increments happens there; this client carries no state.
type RemoteCounter struct {
	baseURL string
	client  *http.Client
}

func NewRemoteCounter(baseURL string) *RemoteCounter {
	return &RemoteCounter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *RemoteCounter) Check(ctx context.Context, key string, limit int, window time.Duration, cost int) (*Result, error) {
	body, err := json.Marshal(checkRequest{
		Key:      key,
		Limit:    limit,
		WindowMS: window.Milliseconds(),
		Cost:     cost,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/check", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("counter service returned status %d", resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return &Result{
		Allowed:    out.Allowed,
		Limit:      limit,
		Remaining:  out.Remaining,
		Reset:      time.UnixMilli(out.ResetMS),
		RetryAfter: time.Duration(out.RetryAfterMS) * time.Millisecond,
	}, nil
}
