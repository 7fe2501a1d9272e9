package deepface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// representServer answers /represent with status and body, counting calls.
func representServer(t *testing.T, calls *atomic.Int32, respond func(n int32) (int, interface{})) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)

		assert.Equal(t, representPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req RepresentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dGVzdA==", req.Img)
		assert.Equal(t, "Dlib", req.Model)
		assert.False(t, req.EnforceDetection)

		status, body := respond(n)
		w.WriteHeader(status)
		if raw, ok := body.(string); ok {
			_, _ = w.Write([]byte(raw))
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func clientFor(server *httptest.Server, retries int) *Client {
	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = retries
	return NewClient(config)
}

func TestClient_Represent(t *testing.T) {
	oneFace := RepresentResponse{Results: []RepresentResult{{
		Embedding:  make([]float64, 128),
		FacialArea: FacialArea{X: 10, Y: 20, W: 100, H: 80},
	}}}

	tests := []struct {
		name       string
		status     int
		body       interface{}
		wantFaces  int
		wantErr    error
		wantStatus int
	}{
		{name: "one face", status: http.StatusOK, body: oneFace, wantFaces: 1},
		{name: "no faces", status: http.StatusOK, body: RepresentResponse{Results: []RepresentResult{}}},
		{name: "server error", status: http.StatusInternalServerError, body: map[string]string{"error": "boom"}, wantErr: ErrDeepFaceUnavailable, wantStatus: 500},
		{name: "unavailable", status: http.StatusServiceUnavailable, body: map[string]string{"error": "loading"}, wantErr: ErrDeepFaceUnavailable, wantStatus: 503},
		{name: "bad request", status: http.StatusBadRequest, body: map[string]string{"error": "bad image"}, wantStatus: 400},
		{name: "garbage body", status: http.StatusOK, body: "not json", wantErr: ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := representServer(t, &calls, func(int32) (int, interface{}) { return tt.status, tt.body })

			resp, err := clientFor(server, 0).Represent(context.Background(), "dGVzdA==")

			if tt.wantErr == nil && tt.wantStatus == 0 {
				require.NoError(t, err)
				require.Len(t, resp.Results, tt.wantFaces)
				if tt.wantFaces > 0 {
					assert.Equal(t, FacialArea{X: 10, Y: 20, W: 100, H: 80}, resp.Results[0].FacialArea)
				}
				return
			}

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantStatus != 0 {
				assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.wantStatus))
			}
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClient_ClientErrorIsTyped(t *testing.T) {
	var calls atomic.Int32
	server := representServer(t, &calls, func(int32) (int, interface{}) {
		return http.StatusUnprocessableEntity, map[string]string{"error": "no face"}
	})

	_, err := clientFor(server, 3).Represent(context.Background(), "dGVzdA==")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	assert.True(t, statusErr.Permanent())
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}

func TestClient_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := representServer(t, &calls, func(n int32) (int, interface{}) {
		if n == 1 {
			return http.StatusServiceUnavailable, map[string]string{"error": "warming up"}
		}
		return http.StatusOK, RepresentResponse{Results: []RepresentResult{}}
	})

	resp, err := clientFor(server, 1).Represent(context.Background(), "dGVzdA==")

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	server := representServer(t, &calls, func(int32) (int, interface{}) {
		return http.StatusOK, RepresentResponse{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := clientFor(server, 2).Represent(ctx, "dGVzdA==")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.Timeout = 50 * time.Millisecond

	_, err := NewClient(config).Represent(context.Background(), "dGVzdA==")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeepFaceUnavailable)
	assert.Contains(t, err.Error(), "Timeout")
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, maxBackoff},
		{10, maxBackoff},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}
