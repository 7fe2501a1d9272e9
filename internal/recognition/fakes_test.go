package recognition

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func embedding(seed float64) []float64 {
	v := make([]float64, domain.EmbeddingDimension)
	for i := range v {
		v[i] = seed
	}
	return v
}

type fakeFrame struct {
	downsampled int
	lastScale   float64
	err         error
}

func (f *fakeFrame) Size() image.Point { return image.Pt(640, 480) }

func (f *fakeFrame) Downsample(scale float64) ([]byte, error) {
	f.downsampled++
	f.lastScale = scale
	if f.err != nil {
		return nil, f.err
	}
	return []byte("jpeg"), nil
}

type fakeCamera struct {
	frames int
	served int
	err    error
	closed int
}

func (c *fakeCamera) Next(ctx context.Context) (Frame, error) {
	if c.served >= c.frames {
		if c.err != nil {
			return nil, c.err
		}
		return nil, ErrSourceExhausted
	}
	c.served++
	return &fakeFrame{}, nil
}

func (c *fakeCamera) Close() error {
	c.closed++
	return nil
}

type shownFrame struct {
	overlays []Overlay
	hud      HUD
}

type fakeDisplay struct {
	actions []Action
	shown   []shownFrame
	showErr error
	closed  int
}

func (d *fakeDisplay) Show(_ Frame, overlays []Overlay, hud HUD) error {
	if d.showErr != nil {
		return d.showErr
	}
	d.shown = append(d.shown, shownFrame{overlays: overlays, hud: hud})
	return nil
}

func (d *fakeDisplay) Poll() Action {
	if len(d.actions) == 0 {
		return ActionNone
	}
	a := d.actions[0]
	d.actions = d.actions[1:]
	return a
}

func (d *fakeDisplay) Close() error {
	d.closed++
	return nil
}

// fakeDetector returns scripted results per call, repeating the last one.
type fakeDetector struct {
	results [][]provider.DetectedFace
	errs    []error
	calls   int
	closed  int
	during  func()
}

func (d *fakeDetector) Detect(_ context.Context, _ []byte) ([]provider.DetectedFace, error) {
	i := d.calls
	d.calls++
	if d.during != nil {
		d.during()
	}
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if len(d.results) == 0 {
		return nil, nil
	}
	if i >= len(d.results) {
		i = len(d.results) - 1
	}
	return d.results[i], nil
}

func (d *fakeDetector) Close() error {
	d.closed++
	return nil
}

type MockGallery struct {
	mock.Mock
}

func (m *MockGallery) List(ctx context.Context) ([]domain.Identity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Identity), args.Error(1)
}

type MockSession struct {
	mock.Mock
}

func (m *MockSession) SetActive(ctx context.Context, userID int64, userName string) error {
	args := m.Called(ctx, userID, userName)
	return args.Error(0)
}

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) Pulse(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockRelay) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, event domain.AccessEvent) bool {
	args := m.Called(ctx, event)
	return args.Bool(0)
}

type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdentityStore) Create(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

type fakeEnroller struct {
	cycles []Cycle
	err    error
	during func()
}

func (e *fakeEnroller) Enroll(_ context.Context, cycle Cycle) (*domain.Identity, error) {
	e.cycles = append(e.cycles, cycle)
	if e.during != nil {
		e.during()
	}
	if e.err != nil {
		return nil, e.err
	}
	return &domain.Identity{ID: 1, Name: "Alice", Profile: domain.ProfileModerate}, nil
}

// fakePrompter answers from scripted lines and reports io.EOF once they run out.
type fakePrompter struct {
	names    []string
	profiles []string
	notes    []string
}

func (p *fakePrompter) Name(context.Context) (string, error) {
	if len(p.names) == 0 {
		return "", io.EOF
	}
	n := p.names[0]
	p.names = p.names[1:]
	return n, nil
}

func (p *fakePrompter) Profile(context.Context) (string, error) {
	if len(p.profiles) == 0 {
		return "", io.EOF
	}
	n := p.profiles[0]
	p.profiles = p.profiles[1:]
	return n, nil
}

func (p *fakePrompter) Notify(msg string) {
	p.notes = append(p.notes, msg)
}

type recordingAudit struct {
	events []audit.Event
	err    error
}

func (a *recordingAudit) Log(_ context.Context, event audit.Event) error {
	a.events = append(a.events, event)
	return a.err
}

var errBoom = errors.New("boom")
