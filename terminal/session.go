package terminal

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrOpenFailure is returned by Session.Run when the device cannot be opened.
var ErrOpenFailure = errors.New("open failure")

// State is the session lifecycle state.
type State int

const (
	Connecting State = iota
	Relaying
	Disconnected
	AwaitingReconnectChoice
	Terminated
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Relaying:
		return "relaying"
	case Disconnected:
		return "disconnected"
	case AwaitingReconnectChoice:
		return "awaiting-reconnect-choice"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// Port names the device in messages.
	Port string
	// Open connects to the device. It is called once per Run.
	Open  func() (Device, error)
	Input RawInput
	// Display defaults to a discarding display when nil.
	Display  *Display
	Quit     *QuitSignal
	Escapes  *EscapeTable // nil selects DefaultEscapeTable
	Loopback bool
	Poll     time.Duration
	Log      *logrus.Entry
	// OnState, if set, observes every transition.
	OnState func(State)
}

// Session runs one connection attempt at a time: open, relay, and on
// disconnection ask whether to reconnect.
type Session struct {
	cfg     SessionConfig
	escapes EscapeTable

	mu    sync.Mutex
	state State
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Quit == nil {
		cfg.Quit = &QuitSignal{}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Display == nil {
		cfg.Display = NewDisplay(io.Discard)
	}
	escapes := DefaultEscapeTable()
	if cfg.Escapes != nil {
		escapes = *cfg.Escapes
	}
	return &Session{
		cfg:     cfg,
		escapes: escapes,
		state:   Connecting,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.cfg.Log.WithField("state", state.String()).Debug("session state")
	if s.cfg.OnState != nil {
		s.cfg.OnState(state)
	}
}

// Run performs one connection attempt and reports whether the user asked to
// reconnect. The caller loops while retry is true. err is only set when the
// device could not be opened.
func (s *Session) Run() (retry bool, err error) {
	log := s.cfg.Log.WithField("port", s.cfg.Port)

	s.setState(Connecting)
	device, err := s.cfg.Open()
	if err != nil {
		s.cfg.Display.Statusf("Failed to open %s", s.cfg.Port)
		s.setState(Terminated)
		return false, fmt.Errorf("%w: %s: %w", ErrOpenFailure, s.cfg.Port, err)
	}

	s.setState(Relaying)
	chord := "Ctrl+] or "
	if s.cfg.Loopback {
		chord = ""
	}
	s.cfg.Display.Statusf("%s is connected. Press %s%s to quit", s.cfg.Port, chord, QuitSignalName)

	queue := &Queue{}
	reader := NewKeyReader(KeyReaderConfig{
		Input:    s.cfg.Input,
		Device:   device,
		Queue:    queue,
		Quit:     s.cfg.Quit,
		Escapes:  s.escapes,
		Display:  s.cfg.Display,
		Loopback: s.cfg.Loopback,
		Poll:     s.cfg.Poll,
		Log:      log.WithField("component", "keyreader"),
	})
	reader.Start()

	relay := NewRelay(RelayConfig{
		Port:     s.cfg.Port,
		Device:   device,
		Queue:    queue,
		Display:  s.cfg.Display,
		Loopback: s.cfg.Loopback,
		Poll:     s.cfg.Poll,
		Log:      log.WithField("component", "relay"),
	})
	relayErr := relay.Run(reader.Done(), reader.Faults())

	if relayErr != nil {
		s.setState(Disconnected)
		if reader.Alive() {
			s.setState(AwaitingReconnectChoice)
			s.cfg.Display.Statusf("Press R to reconnect the device, or press Enter to exit")
			if err := reader.Wait(); err != nil {
				log.WithError(err).Debug("key reader ended while awaiting reconnect choice")
			}
			if wantsReconnect(queue) {
				log.Info("reconnect requested")
				return true, nil
			}
		}
	}

	if err := reader.Wait(); err != nil {
		log.WithError(err).Debug("key reader ended with error")
	}
	s.setState(Terminated)
	return false, nil
}

// wantsReconnect reports whether the oldest residual chunk is r or R.
func wantsReconnect(q *Queue) bool {
	first, ok := q.Front()
	return ok && len(first) == 1 && (first[0] == 'r' || first[0] == 'R')
}
