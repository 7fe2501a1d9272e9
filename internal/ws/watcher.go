package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

type SessionSource interface {
	Session(ctx context.Context) (*service.SessionView, error)
}

// SessionWatcher polls the session on behalf of all connected dashboards
// and broadcasts only when the view changes. Nothing is polled while no
// dashboard is connected.
type SessionWatcher struct {
	source   SessionSource
	hub      *Hub
	logger   *slog.Logger
	interval time.Duration
	last     []byte
	done     chan struct{}
}

func NewSessionWatcher(source SessionSource, hub *Hub, logger *slog.Logger, interval time.Duration) *SessionWatcher {
	if interval == 0 {
		interval = time.Second
	}

	return &SessionWatcher{
		source:   source,
		hub:      hub,
		logger:   logger.With("component", "session_watcher"),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *SessionWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session watcher started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session watcher stopped")
			return
		case <-w.done:
			w.logger.Info("session watcher stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

func (w *SessionWatcher) Stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

// Tick runs one poll. It reports whether an event was broadcast.
func (w *SessionWatcher) Tick(ctx context.Context) bool {
	if w.hub.ConnectedClients() == 0 {
		w.last = nil
		return false
	}

	view, err := w.source.Session(ctx)
	if err != nil {
		w.logger.Warn("session poll failed", "error", err)
		return false
	}

	encoded, err := json.Marshal(view)
	if err != nil {
		return false
	}
	if bytes.Equal(encoded, w.last) {
		return false
	}

	w.last = encoded
	w.hub.Broadcast(EventSessionUpdated, view)
	return true
}
