package terminal

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// QuitSignalName is how the default quit signal is produced from a keyboard.
const QuitSignalName = `CTRL+\`

// QuitSignal is a set-once flag requesting the key reader to stop. It is never
// reset; a fresh process starts with it clear.
type QuitSignal struct {
	set atomic.Bool
}

// Set raises the flag and reports whether this call was the one that did.
func (q *QuitSignal) Set() bool { return q.set.CompareAndSwap(false, true) }

func (q *QuitSignal) IsSet() bool { return q.set.Load() }

// NotifyQuit routes sigs (SIGQUIT when none are given) to q. The signals no
// longer terminate the process; they only raise the flag. onQuit, if not nil,
// runs once when the flag is first raised. The returned func stops delivery.
func NotifyQuit(q *QuitSignal, onQuit func(), sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGQUIT}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ch:
				if q.Set() && onQuit != nil {
					onQuit()
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
