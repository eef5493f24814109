package terminal

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const testPoll = 10 * time.Millisecond

var errUnplugged = errors.New("unplugged")

// fakeInput is a keyboard fed from a channel. Closing it reports EOF.
type fakeInput struct {
	keys       chan byte
	acquireErr error
	acquired   atomic.Int32
	released   atomic.Int32
}

func newFakeInput(keys ...byte) *fakeInput {
	f := &fakeInput{keys: make(chan byte, 64)}
	f.send(keys...)
	return f
}

func (f *fakeInput) send(keys ...byte) {
	for _, k := range keys {
		f.keys <- k
	}
}

func (f *fakeInput) Acquire() (func(), error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired.Add(1)
	var once sync.Once
	return func() { once.Do(func() { f.released.Add(1) }) }, nil
}

func (f *fakeInput) ReadKey(timeout time.Duration) (byte, bool, error) {
	if timeout <= 0 {
		select {
		case k, ok := <-f.keys:
			if !ok {
				return 0, false, io.EOF
			}
			return k, true, nil
		default:
			return 0, false, nil
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case k, ok := <-f.keys:
		if !ok {
			return 0, false, io.EOF
		}
		return k, true, nil
	case <-timer.C:
		return 0, false, nil
	}
}

// fakeDevice records writes and serves reads from channels. After it has
// returned an error, any further I/O is counted in opsAfterFailure.
type fakeDevice struct {
	mu              sync.Mutex
	written         bytes.Buffer
	writeErr        error
	readErr         error
	closed          bool
	closes          int
	failed          bool
	opsAfterFailure int

	lines    chan []byte
	incoming chan byte
	timeout  time.Duration
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		lines:    make(chan []byte, 16),
		incoming: make(chan byte, 64),
		timeout:  testPoll,
	}
}

func (d *fakeDevice) failWrites(err error) {
	d.mu.Lock()
	d.writeErr = err
	d.mu.Unlock()
}

func (d *fakeDevice) failReads(err error) {
	d.mu.Lock()
	d.readErr = err
	d.mu.Unlock()
}

// begin accounts for one I/O call and returns the error it must fail with.
func (d *fakeDevice) begin(injected error) error {
	if d.failed {
		d.opsAfterFailure++
	}
	if d.closed {
		d.failed = true
		return errors.New("device closed")
	}
	if injected != nil {
		d.failed = true
		return injected
	}
	return nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(d.writeErr); err != nil {
		return 0, err
	}
	return d.written.Write(p)
}

func (d *fakeDevice) ReadLine() ([]byte, error) {
	d.mu.Lock()
	err := d.begin(d.readErr)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	select {
	case line := <-d.lines:
		return line, nil
	case <-time.After(d.timeout):
		return nil, nil
	}
}

func (d *fakeDevice) ReadOne() ([]byte, error) {
	d.mu.Lock()
	err := d.begin(d.readErr)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	select {
	case b := <-d.incoming:
		return []byte{b}, nil
	case <-time.After(d.timeout):
		return nil, nil
	}
}

func (d *fakeDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.closes++
	return nil
}

func (d *fakeDevice) Written() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written.String()
}

func (d *fakeDevice) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *fakeDevice) OpsAfterFailure() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opsAfterFailure
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func testLog(t *testing.T) (*logrus.Entry, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

// logged reports whether hook holds an entry with msg at level.
func logged(hook *test.Hook, level logrus.Level, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for goroutine to finish")
	}
}
