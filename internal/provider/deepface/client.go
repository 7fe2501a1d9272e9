package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	representPath = "/represent"
	maxBackoff    = 30 * time.Second
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Model      string
	Detector   string
	RetryCount int
}

// DefaultConfig keeps embeddings in the same 128-d space as the in-process
// dlib detector. A late answer is useless to a live camera loop, so
// retries are off.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:5005",
		Timeout:    5 * time.Second,
		Model:      "Dlib",
		Detector:   "opencv",
		RetryCount: 0,
	}
}

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// Permanent reports whether repeating the request cannot help.
func (e *StatusError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type Client struct {
	httpClient *http.Client
	config     Config
}

func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
	}
}

// Represent asks the service for one embedding per face in the image.
func (c *Client) Represent(ctx context.Context, imageBase64 string) (*RepresentResponse, error) {
	payload, err := json.Marshal(RepresentRequest{
		Img:              imageBase64,
		Model:            c.config.Model,
		Detector:         c.config.Detector,
		EnforceDetection: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		var resp RepresentResponse
		lastErr = c.post(ctx, representPath, payload, &resp)
		if lastErr == nil {
			return &resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Permanent() {
			return nil, lastErr
		}
		if errors.Is(lastErr, ErrInvalidResponse) {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrDeepFaceUnavailable, lastErr)
}

// calculateBackoff doubles from one second per attempt, capped at maxBackoff.
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 1 {
		return time.Second
	}
	backoff := time.Second << min(attempt-1, 5)
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

func (c *Client) post(ctx context.Context, path string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
