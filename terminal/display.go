package terminal

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Display is the user's screen. Device bytes written to it are decoded as
// UTF-8 with invalid bytes shown as U+FFFD; a rune split across writes is held
// back until it is complete. It is safe for concurrent use.
type Display struct {
	mu      sync.Mutex
	out     io.Writer
	decoded io.WriteCloser
	status  *color.Color
}

func NewDisplay(out io.Writer) *Display {
	return &Display{
		out:     out,
		decoded: transform.NewWriter(out, unicode.UTF8.NewDecoder()),
		status:  color.New(color.FgCyan),
	}
}

// Write shows device bytes. It always consumes all of p unless out fails.
func (d *Display) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decoded.Write(p)
}

// Statusf prints a "--- message ---" line. Lines end in CRLF because the
// terminal may be in raw mode.
func (d *Display) Statusf(format string, args ...any) {
	d.Linef("%s", d.status.Sprintf("--- "+format+" ---", args...))
}

// Linef prints one plain line.
func (d *Display) Linef(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format+"\r\n", args...)
}
