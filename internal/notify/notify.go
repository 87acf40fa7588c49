// Package notify delivers short user-visible messages.
package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier shows msg to the user for roughly d. Notify must not block.
type Notifier interface {
	Notify(msg string, d time.Duration)
}

// Func adapts a function to a Notifier.
type Func func(msg string, d time.Duration)

func (f Func) Notify(msg string, d time.Duration) { f(msg, d) }

// Log writes notifications to a logger, for headless runs.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) Notify(msg string, d time.Duration) {
	l.Logger.WithField("for", d).Warn(msg)
}

// Message is a recorded notification.
type Message struct {
	Text     string
	Duration time.Duration
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Notify(msg string, d time.Duration) {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Text: msg, Duration: d})
	r.mu.Unlock()
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}
