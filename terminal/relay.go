package terminal

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTransport wraps a device failure that ended a relay.
var ErrTransport = errors.New("transport failure")

// RelayConfig configures a Relay.
type RelayConfig struct {
	Port     string
	Device   Device
	Queue    *Queue
	Display  *Display
	Loopback bool
	Poll     time.Duration
	Log      *logrus.Entry
}

// Relay pumps the outbound queue to the device and device lines to the
// display for as long as its key reader runs.
type Relay struct {
	cfg RelayConfig
}

func NewRelay(cfg RelayConfig) *Relay {
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPollInterval
	}
	if cfg.Display == nil {
		cfg.Display = NewDisplay(io.Discard)
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Relay{cfg: cfg}
}

// Run relays until done is closed or the device fails. A failure, including
// one received on faults from the key reader, is reported on the display once
// and returned wrapping ErrTransport. The device is closed on return.
func (r *Relay) Run(done <-chan struct{}, faults <-chan error) error {
	defer func() {
		if err := r.cfg.Device.Close(); err != nil {
			r.cfg.Log.WithError(err).Debug("closing device")
		}
	}()

	for {
		select {
		case <-done:
			r.flush()
			return nil
		default:
		}

		if err := r.step(done, faults); err != nil {
			r.cfg.Log.WithError(err).Warn("relay stopped")
			r.cfg.Display.Statusf("%s is disconnected", r.cfg.Port)
			return fmt.Errorf("%w: %s: %w", ErrTransport, r.cfg.Port, err)
		}
	}
}

func (r *Relay) step(done <-chan struct{}, faults <-chan error) error {
	select {
	case err := <-faults:
		return err
	default:
	}

	if chunk := r.cfg.Queue.Drain(); len(chunk) > 0 {
		if _, err := r.cfg.Device.Write(chunk); err != nil {
			return err
		}
	}

	// In loopback mode the key reader owns device reads.
	if r.cfg.Loopback {
		select {
		case err := <-faults:
			return err
		case <-done:
		case <-time.After(r.cfg.Poll):
		}
		return nil
	}

	line, err := r.cfg.Device.ReadLine()
	if err != nil {
		return err
	}
	if len(line) > 0 {
		if _, err := r.cfg.Display.Write(line); err != nil {
			r.cfg.Log.WithError(err).Debug("writing to display")
		}
	}
	return nil
}

// flush writes what the reader queued just before it stopped.
func (r *Relay) flush() {
	chunk := r.cfg.Queue.Drain()
	if len(chunk) == 0 {
		return
	}
	if _, err := r.cfg.Device.Write(chunk); err != nil {
		r.cfg.Log.WithError(err).Warn("flushing queued input")
	}
}
