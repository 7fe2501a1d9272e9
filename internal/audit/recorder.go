package audit

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// AccessEventStore persists accepted matches.
type AccessEventStore interface {
	Create(ctx context.Context, e *domain.AccessEvent) error
}

// Recorder writes one access event per identity per window. A person
// standing in front of the camera is matched every detection cycle; only
// the first match in the window is recorded.
type Recorder struct {
	store  AccessEventStore
	audit  Logger
	logger *slog.Logger
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[int64]time.Time
}

func NewRecorder(store AccessEventStore, auditLogger Logger, logger *slog.Logger, window time.Duration) *Recorder {
	return &Recorder{
		store:  store,
		audit:  auditLogger,
		logger: logger.With("component", "access_recorder"),
		window: window,
		now:    time.Now,
		last:   make(map[int64]time.Time),
	}
}

// Record stores event unless the same identity was recorded within the
// window. Failures are logged and never returned: auditing must not stop
// the door from opening.
func (r *Recorder) Record(ctx context.Context, event domain.AccessEvent) bool {
	now := r.now()

	r.mu.Lock()
	if prev, ok := r.last[event.IdentityID]; ok && now.Sub(prev) < r.window {
		r.mu.Unlock()
		return false
	}
	r.last[event.IdentityID] = now
	r.mu.Unlock()

	if err := r.store.Create(ctx, &event); err != nil {
		r.logger.WarnContext(ctx, "failed to store access event",
			slog.Int64("identity_id", event.IdentityID),
			slog.String("error", err.Error()),
		)
	}

	_ = r.audit.Log(ctx, Event{
		ID:           event.ID,
		EventType:    EventAccessGranted,
		IdentityID:   event.IdentityID,
		IdentityName: event.IdentityName,
		Source:       "kiosk",
		Success:      true,
		Metadata: map[string]string{
			"distance":        strconv.FormatFloat(event.Distance, 'f', 4, 64),
			"relay_triggered": strconv.FormatBool(event.RelayTriggered),
		},
	})

	return true
}
