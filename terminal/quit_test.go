package terminal

import (
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQuitSignal_SetOnce(t *testing.T) {
	var q QuitSignal
	require.False(t, q.IsSet())
	require.True(t, q.Set())
	require.False(t, q.Set())
	require.True(t, q.IsSet())
}

func TestNotifyQuit(t *testing.T) {
	var q QuitSignal
	var calls atomic.Int32
	stop := NotifyQuit(&q, func() { calls.Add(1) }, syscall.SIGUSR1)
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
	require.Eventually(t, q.IsSet, time.Second, 5*time.Millisecond)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, calls.Load())

	stop()
	stop()
}
