package playback

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Run is one playback started by Player.Start.
type Run struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	applied atomic.Int64
	skipped atomic.Int64
	draws   atomic.Int64
}

func newRun(cancel context.CancelFunc) *Run {
	return &Run{cancel: cancel, done: make(chan struct{})}
}

// Done is closed once both tasks have exited.
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) Wait() { <-r.done }

// Cancel stops both tasks and waits for them to exit.
func (r *Run) Cancel() {
	r.cancel()
	r.Wait()
}

type Stats struct {
	Applied int
	Skipped int
	Draws   int
}

func (s Stats) fields() logrus.Fields {
	return logrus.Fields{"applied": s.Applied, "skipped": s.Skipped, "draws": s.Draws}
}

func (r *Run) Stats() Stats {
	return Stats{
		Applied: int(r.applied.Load()),
		Skipped: int(r.skipped.Load()),
		Draws:   int(r.draws.Load()),
	}
}
