package scene

import (
	"math"
	"sync"
	"testing"
	"time"
)

func near(a, b Vec3) bool {
	return a.Sub(b).Length() < 1e-9
}

func rig() *Object {
	root := NewObject("rig", "")
	arm := NewObject("arm", "arm")
	arm.Add(NewObject("wheel", "wheel"))
	root.Add(arm, NewObject("arm2", "arm"))
	return root
}

func TestFindRoles(t *testing.T) {
	roles := FindRoles(rig(), []string{"arm", "wheel", "missing"})

	if len(roles["arm"]) != 2 || roles["arm"][0].Name != "arm" || roles["arm"][1].Name != "arm2" {
		t.Errorf("unexpected arm matches: %v", roles["arm"])
	}
	if len(roles["wheel"]) != 1 {
		t.Errorf("expected nested match, got %d", len(roles["wheel"]))
	}
	missing, ok := roles["missing"]
	if !ok || missing == nil || len(missing) != 0 {
		t.Errorf("expected empty non-nil slice for missing tag, got %v (present=%v)", missing, ok)
	}
}

func TestFindWithTagIncludesRoot(t *testing.T) {
	root := NewObject("root", "base")
	if got := root.FindWithTag("base"); len(got) != 1 {
		t.Errorf("expected root to match its own tag, got %d", len(got))
	}
	if got := root.FindWithTag(""); len(got) != 0 {
		t.Errorf("empty tag should match nothing, got %d", len(got))
	}
}

func TestTweenInterpolates(t *testing.T) {
	root := rig()
	s := New(root)
	arm := root.Child("arm")

	completed := false
	s.Play(&Tween{
		Target:     arm,
		Property:   Rotation,
		To:         Vec3{0, 0, 90},
		Duration:   time.Second,
		Delay:      500 * time.Millisecond,
		OnComplete: func() { completed = true },
	})

	s.Advance(500 * time.Millisecond)
	s.Advance(500 * time.Millisecond)
	s.View(func(*Object) {
		if !near(arm.Transform.Rotation, Vec3{0, 0, 45}) {
			t.Errorf("expected halfway rotation, got %v", arm.Transform.Rotation)
		}
	})

	s.Advance(time.Second)
	if !completed {
		t.Error("tween did not complete")
	}
	if s.Tweens() != 0 {
		t.Errorf("expected finished tween to be dropped, %d left", s.Tweens())
	}
	if !near(arm.Transform.Rotation, Vec3{0, 0, 90}) {
		t.Errorf("expected final rotation, got %v", arm.Transform.Rotation)
	}
}

func TestTweenCapturesStartLate(t *testing.T) {
	obj := NewObject("tank", "tank")
	s := New(obj)
	s.Play(&Tween{Target: obj, Property: Scale, To: Vec3{1, 0, 1}, Duration: time.Second, Delay: time.Second})

	s.Update(func(*Object) { obj.Transform.Scale = Vec3{1, 4, 1} })
	s.Advance(time.Second)
	s.Advance(250 * time.Millisecond)

	if !near(obj.Transform.Scale, Vec3{1, 3, 1}) {
		t.Errorf("expected scale from captured start, got %v", obj.Transform.Scale)
	}
}

func TestZeroDurationTweenSnaps(t *testing.T) {
	obj := NewObject("tube", "")
	s := New(obj)
	s.Play(&Tween{Target: obj, Property: Position, To: Vec3{1, 2, 3}})
	s.Advance(0)

	if !near(obj.Transform.Position, Vec3{1, 2, 3}) || s.Tweens() != 0 {
		t.Errorf("expected immediate completion, got %v", obj.Transform.Position)
	}
}

func TestKill(t *testing.T) {
	obj := NewObject("x", "")
	s := New(obj)
	s.Play(&Tween{Target: obj, Property: Position, To: Vec3{10, 0, 0}, Duration: time.Second})
	s.Kill()
	s.Advance(time.Second)

	if obj.Transform.Position != (Vec3{}) {
		t.Errorf("killed tween moved object to %v", obj.Transform.Position)
	}
}

func TestOnAdvance(t *testing.T) {
	s := New(NewObject("root", ""))
	var total time.Duration
	cancel := s.OnAdvance(func(dt time.Duration) { total += dt })

	s.Advance(10 * time.Millisecond)
	s.Advance(15 * time.Millisecond)
	cancel()
	s.Advance(time.Second)

	if total != 25*time.Millisecond {
		t.Errorf("expected 25ms, got %v", total)
	}
}

func TestConcurrentUpdateAndAdvance(t *testing.T) {
	obj := NewObject("arm", "arm")
	s := New(obj)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Update(func(*Object) { obj.Rotate(Vec3{Z: 1}) })
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Advance(time.Millisecond)
		}
	}()
	wg.Wait()

	if obj.Transform.Rotation.Z != 1000 {
		t.Errorf("expected 1000 degrees, got %v", obj.Transform.Rotation.Z)
	}
}

func TestMoveTowards(t *testing.T) {
	tests := []struct {
		name   string
		from   Vec3
		to     Vec3
		delta  float64
		expect Vec3
	}{
		{"partial", Vec3{}, Vec3{10, 0, 0}, 4, Vec3{4, 0, 0}},
		{"reaches", Vec3{}, Vec3{3, 4, 0}, 10, Vec3{3, 4, 0}},
		{"backwards", Vec3{}, Vec3{1, 0, 0}, -2, Vec3{-2, 0, 0}},
		{"already there", Vec3{1, 1, 1}, Vec3{1, 1, 1}, 5, Vec3{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.MoveTowards(tt.to, tt.delta); !near(got, tt.expect) {
				t.Errorf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestCurve(t *testing.T) {
	p := [5]Vec3{{0, 0, 0}, {1, 2, 0}, {2, 2, 0}, {3, 2, 0}, {4, 0, 0}}
	pts := Curve(p, CurveSegments)

	if len(pts) != CurveSegments+1 {
		t.Fatalf("expected %d points, got %d", CurveSegments+1, len(pts))
	}
	if !near(pts[0], p[0]) || !near(pts[len(pts)-1], p[4]) {
		t.Errorf("curve must start and end at the outer control points: %v %v", pts[0], pts[len(pts)-1])
	}

	// symmetric control points put the apex at x=2
	mid := Quartic(p, 0.5)
	if math.Abs(mid.X-2) > 1e-9 {
		t.Errorf("expected apex at x=2, got %v", mid)
	}
	// Bernstein weights of the middle three points at t=0.5 sum to 14/16
	if math.Abs(mid.Y-2*14.0/16.0) > 1e-9 {
		t.Errorf("unexpected apex height %v", mid.Y)
	}
}
