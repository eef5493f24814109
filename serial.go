package serial

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrOpen classifies failures to open or configure a device.
	ErrOpen = errors.New("serial: open failed")
	// ErrDisconnected is returned when a device fails after a successful open
	// (hang-up, EOF, or an I/O error from the driver).
	ErrDisconnected = errors.New("serial: device disconnected")
	// ErrClosed is returned by operations on a closed Port.
	ErrClosed = errors.New("serial: port closed")
)

const (
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultDelimiter   = "\n"
)

// Parity selects the parity bit mode. The values are the letters used on the
// command line.
type Parity byte

const (
	ParityNone  Parity = 'N'
	ParityEven  Parity = 'E'
	ParityOdd   Parity = 'O'
	ParityMark  Parity = 'M'
	ParitySpace Parity = 'S'
)

// ParseParity accepts N, E, O, M or S in either case.
func ParseParity(s string) (Parity, error) {
	if len(s) == 1 {
		p := Parity(strings.ToUpper(s)[0])
		switch p {
		case ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace:
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid parity %q (want one of N, E, O, S, M)", s)
}

func (p Parity) String() string { return string(rune(p)) }

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device      string
	BaudRate    int
	DataBits    int    // 5..8, default 8
	Parity      Parity // default ParityNone
	StopBits    int    // 1 or 2, default 1
	ReadTimeout time.Duration
	Delimiter   string // default "\n"
}

func (c Config) withDefaults() Config {
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.Parity == 0 {
		c.Parity = ParityNone
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Delimiter == "" {
		c.Delimiter = DefaultDelimiter
	}
	return c
}

// Port provides low-latency, killable access to a Linux serial port.
// It is safe for concurrent use by multiple goroutines.
type Port struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd

	// mu is held shared by every I/O call and exclusively by Close, so the
	// descriptors are never released under a pending poll or read.
	mu sync.RWMutex

	bufMu   sync.Mutex
	pending []byte
}

// Open opens a serial port using the provided Config.
// The port is configured for raw, low-latency, non-buffered operation.
func Open(cfg Config) (*Port, error) {
	cfg = cfg.withDefaults()

	baud, ok := baudRates[cfg.BaudRate]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported baud rate %d", ErrOpen, cfg.BaudRate)
	}
	size, ok := dataBits[cfg.DataBits]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported data bits %d", ErrOpen, cfg.DataBits)
	}
	if cfg.StopBits != 1 && cfg.StopBits != 2 {
		return nil, fmt.Errorf("%w: unsupported stop bits %d", ErrOpen, cfg.StopBits)
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK|syscall.O_CLOEXEC, 0666)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, cfg.Device, err)
	}

	if err := configure(fd, cfg, baud, size); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, cfg.Device, err)
	}

	// Turn back into blocking mode now that config is done
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("%w: %s: set blocking: %w", ErrOpen, cfg.Device, err)
	}

	// Create self-pipe for killability
	pipeFds := make([]int, 2)
	if err := unix.Pipe2(pipeFds, unix.O_CLOEXEC); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("%w: pipe: %w", ErrOpen, err)
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

func configure(fd int, cfg Config, baud, size uint32) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.INPCK
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CMSPAR | unix.CSTOPB
	termios.Cflag |= size | unix.CREAD | unix.CLOCAL

	switch cfg.Parity {
	case ParityNone:
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	default:
		return fmt.Errorf("unsupported parity %q", cfg.Parity)
	}
	if cfg.Parity != ParityNone {
		termios.Iflag |= unix.INPCK
	}
	if cfg.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	// Baud rate
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	// Set VMIN=1, VTIME=0; timeouts are enforced with poll
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

// Name returns the device path the port was opened with.
func (s *Port) Name() string { return s.config.Device }

// IsOpen reports whether Close has not been called yet.
func (s *Port) IsOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Write writes p to the port in one operation.
func (s *Port) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.IsOpen() {
		return 0, ErrClosed
	}
	n, err := s.file.Write(p)
	if err != nil {
		return n, s.transportError("write", err)
	}
	return n, nil
}

// WriteLine writes a line (with specified newline) to the serial port.
func (s *Port) WriteLine(line string, newline string) error {
	_, err := s.Write([]byte(line + newline))
	return err
}

// ReadLine returns the bytes up to and including the configured delimiter.
// If no delimiter arrives within ReadTimeout it returns whatever was received,
// which is empty when the line was idle.
func (s *Port) ReadLine() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	delim := []byte(s.config.Delimiter)
	deadline := time.Now().Add(s.config.ReadTimeout)
	for {
		if idx := bytes.Index(s.pending, delim); idx >= 0 {
			return s.take(idx + len(delim)), nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return s.take(len(s.pending)), nil
		}
		if err := s.fill(remaining); err != nil {
			return nil, err
		}
	}
}

// ReadOne returns at most one byte, waiting up to ReadTimeout for it.
// The result is empty when nothing arrived.
func (s *Port) ReadOne() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	if len(s.pending) == 0 {
		if err := s.fill(s.config.ReadTimeout); err != nil {
			return nil, err
		}
	}
	if len(s.pending) == 0 {
		return nil, nil
	}
	return s.take(1), nil
}

// ReadLinesLoop continuously reads lines from the serial port and invokes onLine
// for each complete line, without the delimiter. If an error occurs, onError is
// called and the loop exits. Close ends the loop without calling onError.
func (s *Port) ReadLinesLoop(onLine func(string), onError func(error)) {
	buf := make([]byte, 4096)
	line := ""
	for {
		n, err := s.readBlocking(buf)
		if errors.Is(err, ErrClosed) {
			return
		}
		if err != nil {
			onError(err)
			return
		}
		line += string(buf[:n])
		for {
			idx := strings.Index(line, s.config.Delimiter)
			if idx < 0 {
				break
			}
			onLine(line[:idx])
			line = line[idx+len(s.config.Delimiter):]
		}
	}
}

func (s *Port) readBlocking(buf []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ready, err := s.wait(-1)
	if err != nil || !ready {
		return 0, err
	}
	return s.read(buf)
}

// fill waits up to timeout for input and appends it to the pending buffer.
// Callers hold mu and bufMu.
func (s *Port) fill(timeout time.Duration) error {
	ready, err := s.wait(timeout)
	if err != nil || !ready {
		return err
	}
	buf := make([]byte, 4096)
	n, err := s.read(buf)
	if err != nil {
		return err
	}
	s.pending = append(s.pending, buf[:n]...)
	return nil
}

func (s *Port) take(n int) []byte {
	if n == 0 {
		return nil
	}
	out := append([]byte(nil), s.pending[:n]...)
	s.pending = s.pending[n:]
	return out
}

// wait polls the device and the self-pipe. A negative timeout blocks until
// data or Close. It reports false with a nil error on timeout.
func (s *Port) wait(timeout time.Duration) (bool, error) {
	ms := -1
	if timeout >= 0 {
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	for {
		if !s.IsOpen() {
			return false, ErrClosed
		}
		pfd := []unix.PollFd{
			{Fd: int32(s.fd), Events: unix.POLLIN},
			{Fd: int32(s.pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfd, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, s.transportError("poll", err)
		}
		// Check killability
		if !s.IsOpen() || pfd[1].Revents != 0 {
			return false, ErrClosed
		}
		if n == 0 {
			return false, nil
		}
		revents := pfd[0].Revents
		if revents&unix.POLLIN != 0 {
			return true, nil
		}
		if revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return false, fmt.Errorf("%w: %s: hang-up", ErrDisconnected, s.config.Device)
		}
		return false, nil
	}
}

func (s *Port) read(buf []byte) (int, error) {
	n, err := s.file.Read(buf)
	if err != nil {
		return 0, s.transportError("read", err)
	}
	return n, nil
}

func (s *Port) transportError(op string, err error) error {
	if errors.Is(err, os.ErrClosed) || !s.IsOpen() {
		return ErrClosed
	}
	return fmt.Errorf("%w: %s %s: %w", ErrDisconnected, op, s.config.Device, err)
}

// Close closes the serial port and unblocks any pending reads.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *Port) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		// Wake up poll using self-pipe
		unix.Write(s.pipeW, []byte{1})

		s.mu.Lock()
		defer s.mu.Unlock()
		err = s.file.Close()
		unix.Close(s.pipeR)
		unix.Close(s.pipeW)
	})
	return err
}

var dataBits = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

// IsSupportedBaudRate reports whether Open accepts baud.
func IsSupportedBaudRate(baud int) bool {
	_, ok := baudRates[baud]
	return ok
}

var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}
