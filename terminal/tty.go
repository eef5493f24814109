package terminal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// RawInput is a keyboard that can be switched into raw mode for the lifetime
// of a key reader.
type RawInput interface {
	// Acquire enters raw, unbuffered, no-echo mode. The returned release
	// restores the previous mode; calling it more than once is harmless.
	Acquire() (release func(), err error)
	// ReadKey waits up to timeout for one byte. ok is false on timeout.
	ReadKey(timeout time.Duration) (key byte, ok bool, err error)
}

// TTY reads raw keys from a terminal file, usually os.Stdin.
type TTY struct {
	fd int
}

func NewTTY(f *os.File) *TTY {
	return &TTY{fd: int(f.Fd())}
}

// Acquire puts the terminal in raw mode. Input that is not a terminal (a pipe
// in script mode) is read as is.
func (t *TTY) Acquire() (func(), error) {
	if !term.IsTerminal(t.fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return nil, fmt.Errorf("set terminal raw mode: %w", err)
	}
	var once sync.Once
	return func() {
		once.Do(func() { _ = term.Restore(t.fd, state) })
	}, nil
}

func (t *TTY) ReadKey(timeout time.Duration) (byte, bool, error) {
	pfd := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, int(timeout/time.Millisecond))
	if err == unix.EINTR || n == 0 {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("poll keyboard: %w", err)
	}

	var b [1]byte
	n, err = unix.Read(t.fd, b[:])
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read keyboard: %w", err)
	case n == 0:
		return 0, false, io.EOF
	}
	return b[0], true, nil
}
