// Package share hands exported run files to a share target on request.
//
// A Sink is armed with deferred providers when a playback starts. Nothing is
// exported until Share is called.
package share

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotArmed is returned by Share when no run has armed the sink.
var ErrNotArmed = errors.New("share: nothing to share")

// Request is what a Target receives.
type Request struct {
	Subject string
	Text    string
	Files   []string
}

// Result is passed to the completion callback.
type Result struct {
	Request Request
	// Target describes where the files went, e.g. a directory.
	Target string
	Err    error
}

type Callback func(Result)

// Target delivers a share request.
type Target interface {
	Share(ctx context.Context, req Request) (string, error)
}

type Sink struct {
	mu       sync.Mutex
	target   Target
	subject  func() string
	text     func() string
	files    func() ([]string, error)
	callback Callback
}

func NewSink(target Target) *Sink {
	return &Sink{target: target}
}

// Arm replaces the providers of any previous run.
func (s *Sink) Arm(subject, text func() string, files func() ([]string, error), cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = subject
	s.text = text
	s.files = files
	s.callback = cb
}

func (s *Sink) Reset() {
	s.Arm(nil, nil, nil, nil)
}

func (s *Sink) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files != nil
}

// Share evaluates the providers and hands the result to the target. The
// callback runs once with the outcome, including failures.
func (s *Sink) Share(ctx context.Context) (Result, error) {
	s.mu.Lock()
	target, subject, text, files, cb := s.target, s.subject, s.text, s.files, s.callback
	s.mu.Unlock()

	if files == nil {
		return Result{}, ErrNotArmed
	}

	res := Result{}
	if subject != nil {
		res.Request.Subject = subject()
	}
	if text != nil {
		res.Request.Text = text()
	}

	paths, err := files()
	if err != nil {
		res.Err = errors.Wrap(err, "export run files")
	} else {
		res.Request.Files = paths
		res.Target, res.Err = target.Share(ctx, res.Request)
	}

	if cb != nil {
		cb(res)
	}
	return res, res.Err
}
