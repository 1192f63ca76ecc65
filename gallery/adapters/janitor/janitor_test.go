package janitor

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingEvicter struct {
	calls atomic.Int32
}

func (e *countingEvicter) Evict(time.Time, time.Duration) int {
	e.calls.Add(1)
	return 1
}

func TestJanitorEvictsPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t)

	ev := &countingEvicter{}
	j := New(slog.New(slog.NewTextHandler(io.Discard, nil)), ev, 20*time.Millisecond)
	j.Start(t.Context())

	require.Eventually(t, func() bool { return ev.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	j.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	j := New(slog.Default(), &countingEvicter{}, 0)
	require.Equal(t, time.Minute, j.every)
	j.Stop()
}
