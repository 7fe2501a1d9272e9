package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	defaultBaudRate = 9600
	// Opening the port resets most USB microcontrollers; writes sent
	// during the reboot are lost.
	serialSettleDelay = 2 * time.Second
)

var errWritePending = errors.New("previous serial write still pending")

type serialTransport struct {
	port serial.Port
	name string
	busy atomic.Bool
}

func dialSerial(ctx context.Context, u *url.URL) (Transport, error) {
	name := u.Host + u.Path
	if name == "" {
		return nil, domain.ErrTransportUnavailable.WithError(fmt.Errorf("serial address has no port"))
	}

	baud := defaultBaudRate
	if v := u.Query().Get("baud"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil || b <= 0 {
			return nil, domain.ErrTransportUnavailable.WithError(fmt.Errorf("invalid baud rate %q", v))
		}
		baud = b
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, domain.ErrTransportUnavailable.WithError(fmt.Errorf("open %s: %w", name, err))
	}

	select {
	case <-ctx.Done():
		_ = port.Close()
		return nil, ctx.Err()
	case <-time.After(serialSettleDelay):
	}

	return &serialTransport{port: port, name: name}, nil
}

// Write gives up when ctx expires. The port write itself cannot be
// interrupted, so a stuck write keeps the transport busy until it returns.
func (t *serialTransport) Write(ctx context.Context, payload []byte) error {
	if !t.busy.CompareAndSwap(false, true) {
		return errWritePending
	}

	done := make(chan error, 1)
	go func() {
		defer t.busy.Store(false)
		_, err := t.port.Write(payload)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write %s: %w", t.name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("write %s: %w", t.name, ctx.Err())
	}
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
