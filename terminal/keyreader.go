package terminal

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPollInterval bounds every keyboard wait so that the quit signal and
// the device state are re-checked promptly.
const DefaultPollInterval = 50 * time.Millisecond

// Device is the serial connection as seen by the relay.
type Device interface {
	Write(p []byte) (int, error)
	// ReadLine returns bytes up to and including a newline, or whatever
	// arrived before the read timeout. It is empty when the line was idle.
	ReadLine() ([]byte, error)
	// ReadOne returns at most one byte within the read timeout.
	ReadOne() ([]byte, error)
	IsOpen() bool
	// Close must tolerate repeated calls.
	Close() error
}

// KeyReaderConfig configures a KeyReader.
type KeyReaderConfig struct {
	Input   RawInput
	Device  Device
	Queue   *Queue
	Quit    *QuitSignal
	Escapes EscapeTable
	// Display receives device bytes in loopback mode.
	Display  io.Writer
	Loopback bool
	Poll     time.Duration
	Log      *logrus.Entry
}

// KeyReader turns keystrokes into outbound chunks on its own goroutine.
//
// In interactive mode keys are translated and queued. In loopback mode bytes
// from the device are shown and queued to be sent back, and keys other than
// the quit chord go straight to the device.
//
// When the device closes under it, the reader waits for one more key and
// queues it; the session reads that key as the reconnect choice.
type KeyReader struct {
	cfg    KeyReaderConfig
	done   chan struct{}
	faults chan error
	err    error
}

func NewKeyReader(cfg KeyReaderConfig) *KeyReader {
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPollInterval
	}
	if cfg.Quit == nil {
		cfg.Quit = &QuitSignal{}
	}
	if cfg.Display == nil {
		cfg.Display = io.Discard
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &KeyReader{
		cfg:    cfg,
		done:   make(chan struct{}),
		faults: make(chan error, 1),
	}
}

// Start runs the reader on a new goroutine. It must be called once.
func (k *KeyReader) Start() {
	go func() {
		defer close(k.done)
		k.err = k.run()
		if k.err != nil {
			k.cfg.Log.WithError(k.err).Warn("key reader stopped")
		}
	}()
}

// Done is closed when the reader goroutine has returned.
func (k *KeyReader) Done() <-chan struct{} { return k.done }

// Faults delivers a device error met by the reader itself (loopback mode).
func (k *KeyReader) Faults() <-chan error { return k.faults }

func (k *KeyReader) Alive() bool {
	select {
	case <-k.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the reader has stopped and returns its error, if any.
func (k *KeyReader) Wait() error {
	<-k.done
	return k.err
}

func (k *KeyReader) run() error {
	release, err := k.cfg.Input.Acquire()
	if err != nil {
		return err
	}
	defer release()

	for {
		if k.cfg.Quit.IsSet() {
			return nil
		}
		if !k.cfg.Device.IsOpen() {
			return k.awaitAnswer()
		}

		timeout := k.cfg.Poll
		if k.cfg.Loopback {
			if err := k.echo(); err != nil {
				k.fault(err)
				return k.awaitAnswer()
			}
			timeout = 0
		}

		key, ok, err := k.cfg.Input.ReadKey(timeout)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if key == QuitChord || k.cfg.Quit.IsSet() {
			return nil
		}

		if k.cfg.Loopback {
			if _, err := k.cfg.Device.Write([]byte{key}); err != nil {
				k.fault(err)
				return k.awaitAnswer()
			}
			continue
		}

		chunk, err := k.translate(key)
		if err != nil || k.cfg.Quit.IsSet() {
			return err
		}
		k.cfg.Queue.Push(chunk)
		if !k.cfg.Device.IsOpen() {
			// The device closed while we waited; that key is the answer.
			return nil
		}
	}
}

// echo queues at most one byte from the device to be sent back and shows it.
func (k *KeyReader) echo() error {
	b, err := k.cfg.Device.ReadOne()
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	k.cfg.Queue.Push(b)
	if _, err := k.cfg.Display.Write(b); err != nil {
		k.cfg.Log.WithError(err).Debug("writing to display")
	}
	return nil
}

// awaitAnswer queues the next key after the device went away. In loopback
// mode the queue holds only echo bytes, which can no longer be sent, so it is
// cleared first.
func (k *KeyReader) awaitAnswer() error {
	if k.cfg.Loopback {
		k.cfg.Queue.Drain()
	}
	for !k.cfg.Quit.IsSet() {
		key, ok, err := k.cfg.Input.ReadKey(k.cfg.Poll)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if key == QuitChord || k.cfg.Quit.IsSet() {
			return nil
		}
		chunk, err := k.translate(key)
		if err != nil || k.cfg.Quit.IsSet() {
			return err
		}
		k.cfg.Queue.Push(chunk)
		return nil
	}
	return nil
}

// translate maps one key, reading the second byte of an escape prefix.
func (k *KeyReader) translate(key byte) ([]byte, error) {
	if !k.cfg.Escapes.IsPrefix(key) {
		return []byte{key}, nil
	}
	for !k.cfg.Quit.IsSet() {
		code, ok, err := k.cfg.Input.ReadKey(k.cfg.Poll)
		if err != nil {
			return nil, err
		}
		if ok {
			return k.cfg.Escapes.Translate(key, code), nil
		}
	}
	return []byte{key}, nil
}

func (k *KeyReader) fault(err error) {
	k.cfg.Log.WithError(err).Debug("device error in key reader")
	select {
	case k.faults <- err:
	default:
	}
}
