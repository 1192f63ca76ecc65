package janitor

import (
	"context"
	"log/slog"
	"time"
)

type Evicter interface {
	Evict(now time.Time, idle time.Duration) int
}

// Janitor periodically drops idle sessions.
type Janitor struct {
	log    *slog.Logger
	svc    Evicter
	idle   time.Duration
	every  time.Duration
	cancel context.CancelFunc
	done   chan struct{}
}

func New(log *slog.Logger, svc Evicter, idle time.Duration) *Janitor {
	every := idle / 2
	if every <= 0 {
		every = time.Minute
	}
	return &Janitor{
		log:   log,
		svc:   svc,
		idle:  idle,
		every: every,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				j.log.Info("janitor stopped")
				return
			case now := <-ticker.C:
				if n := j.svc.Evict(now, j.idle); n > 0 {
					j.log.Info("idle sessions evicted", "count", n)
				}
			}
		}
	}()
}

// Stop cancels the janitor and waits for it to exit.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
		<-j.done
	}
}
