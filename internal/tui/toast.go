package tui

import (
	"sync"
	"time"
)

// Toaster keeps the latest notification until it expires. Players notify
// from their own goroutines; the view polls Current on every frame.
type Toaster struct {
	mu    sync.Mutex
	msg   string
	until time.Time
	now   func() time.Time
}

func NewToaster() *Toaster {
	return &Toaster{now: time.Now}
}

func (t *Toaster) Notify(msg string, d time.Duration) {
	t.mu.Lock()
	t.msg = msg
	t.until = t.now().Add(d)
	t.mu.Unlock()
}

// Current returns the message on show, or "" once it has expired.
func (t *Toaster) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.msg == "" || !t.now().Before(t.until) {
		return ""
	}
	return t.msg
}
