// Package scene is a headless scene graph driven by playback.
//
// All reads and writes of object state go through Update or View so that an
// animation task, running tweens and a renderer never race. Tweens progress
// only when Advance is called by the host render loop.
package scene

import (
	"sync"
	"time"
)

type Property int

const (
	Position Property = iota
	Rotation
	Scale
)

func (p Property) get(t *Transform) Vec3 {
	switch p {
	case Rotation:
		return t.Rotation
	case Scale:
		return t.Scale
	}
	return t.Position
}

func (p Property) set(t *Transform, v Vec3) {
	switch p {
	case Rotation:
		t.Rotation = v
	case Scale:
		t.Scale = v
	default:
		t.Position = v
	}
}

// Tween animates one property of Target to To over Duration, after Delay.
// The start value is captured when the delay has elapsed. OnUpdate and
// OnComplete run with the scene locked and must not call back into the Scene.
type Tween struct {
	Target     *Object
	Property   Property
	To         Vec3
	Duration   time.Duration
	Delay      time.Duration
	OnUpdate   func()
	OnComplete func()

	elapsed time.Duration
	started bool
	from    Vec3
}

// step advances the tween and reports whether it has finished.
func (tw *Tween) step(dt time.Duration) bool {
	tw.elapsed += dt
	if tw.elapsed < tw.Delay {
		return false
	}
	if !tw.started {
		tw.started = true
		tw.from = tw.Property.get(&tw.Target.Transform)
	}

	t := 1.0
	if tw.Duration > 0 {
		t = float64(tw.elapsed-tw.Delay) / float64(tw.Duration)
		if t > 1 {
			t = 1
		}
	}
	tw.Property.set(&tw.Target.Transform, tw.from.Lerp(tw.To, t))
	if tw.OnUpdate != nil {
		tw.OnUpdate()
	}
	if t < 1 {
		return false
	}
	if tw.OnComplete != nil {
		tw.OnComplete()
	}
	return true
}

type Scene struct {
	mu     sync.RWMutex
	root   *Object
	tweens []*Tween
	hooks  map[int]func(dt time.Duration)
	nextID int
}

func New(root *Object) *Scene {
	return &Scene{root: root, hooks: make(map[int]func(time.Duration))}
}

// Update runs fn with exclusive access to the tree.
func (s *Scene) Update(fn func(root *Object)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.root)
}

// View runs fn with shared read access to the tree.
func (s *Scene) View(fn func(root *Object)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.root)
}

// Play schedules tweens. They start on the next Advance.
func (s *Scene) Play(tweens ...*Tween) {
	s.mu.Lock()
	s.tweens = append(s.tweens, tweens...)
	s.mu.Unlock()
}

// Kill drops every scheduled tween without completing it.
func (s *Scene) Kill() {
	s.mu.Lock()
	s.tweens = nil
	s.mu.Unlock()
}

// Tweens returns the number of running or pending tweens.
func (s *Scene) Tweens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tweens)
}

// OnAdvance registers fn to run on every Advance with the scene locked; fn
// must not call back into the Scene. The returned function unregisters it.
func (s *Scene) OnAdvance(fn func(dt time.Duration)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.hooks[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.hooks, id)
		s.mu.Unlock()
	}
}

// Advance moves every tween and per-frame hook forward by dt.
func (s *Scene) Advance(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	running := s.tweens[:0]
	for _, tw := range s.tweens {
		if !tw.step(dt) {
			running = append(running, tw)
		}
	}
	for i := len(running); i < len(s.tweens); i++ {
		s.tweens[i] = nil
	}
	s.tweens = running

	for _, fn := range s.hooks {
		fn(dt)
	}
}
