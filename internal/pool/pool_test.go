package pool

import (
	"math/rand"
	"testing"
)

type item struct {
	kind   string
	active bool
}

func newItem(kind string) func() *item {
	return func() *item { return &item{kind: kind} }
}

func deactivate(it *item) { it.active = false }

func TestPoolWarm(t *testing.T) {
	p := New(newItem("a"), deactivate)
	p.Warm(4)
	p.Warm(2)

	st := p.Stats()
	if st.Created != 4 || st.Free != 4 || st.Active != 0 {
		t.Errorf("unexpected stats after warm: %+v", st)
	}
}

func TestPoolReusesReturnedObjects(t *testing.T) {
	p := New(newItem("a"), deactivate)
	p.Warm(1)

	first := p.Get()
	first.active = true
	p.Put(first)

	if first.active {
		t.Error("Put did not deactivate the object")
	}

	again := p.Get()
	if again != first {
		t.Error("expected the returned object to be reused")
	}
	if p.Stats().Created != 1 {
		t.Errorf("expected 1 created object, got %d", p.Stats().Created)
	}
}

func TestPoolGrowsLazily(t *testing.T) {
	p := New(newItem("a"), nil)
	p.Warm(2)

	borrowed := []*item{p.Get(), p.Get(), p.Get()}
	st := p.Stats()
	if st.Created != 3 || st.Active != 3 || st.Free != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}

	for _, it := range borrowed {
		p.Put(it)
	}
	st = p.Stats()
	if st.Created != 3 || st.Active != 0 || st.Free != 3 {
		t.Errorf("unexpected stats after return: %+v", st)
	}
}

func TestPoolConservation(t *testing.T) {
	p := New(newItem("a"), deactivate)
	rng := rand.New(rand.NewSource(7))

	var held []*item
	highWater, lastCreated := 0, 0
	for i := 0; i < 2000; i++ {
		if len(held) > 0 && rng.Intn(2) == 0 {
			j := rng.Intn(len(held))
			p.Put(held[j])
			held = append(held[:j], held[j+1:]...)
		} else {
			held = append(held, p.Get())
		}
		if len(held) > highWater {
			highWater = len(held)
		}

		st := p.Stats()
		if st.Created < lastCreated {
			t.Fatalf("created count decreased from %d to %d", lastCreated, st.Created)
		}
		lastCreated = st.Created
		if st.Active+st.Free != st.Created {
			t.Fatalf("active %d + free %d != created %d", st.Active, st.Free, st.Created)
		}
		if st.Created != highWater {
			t.Fatalf("created %d != high-water mark %d", st.Created, highWater)
		}
	}
}

func TestManagerRoutesByKey(t *testing.T) {
	m := NewManager(func(it *item) string { return it.kind })
	m.Create("a", 2, newItem("a"), deactivate)
	m.Create("b", 1, newItem("b"), deactivate)

	a, ok := m.Get("a")
	if !ok || a.kind != "a" {
		t.Fatalf("Get(a) = %v, %v", a, ok)
	}
	b, _ := m.Get("b")

	if m.Stats("a").Active != 1 || m.Stats("b").Active != 1 {
		t.Errorf("unexpected active counts: a=%+v b=%+v", m.Stats("a"), m.Stats("b"))
	}

	m.ReturnAll([]*item{a, b})
	if m.Stats("a").Free != 2 || m.Stats("b").Free != 1 {
		t.Errorf("unexpected free counts: a=%+v b=%+v", m.Stats("a"), m.Stats("b"))
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("expected Get on an unknown key to fail")
	}
	if m.Return(&item{kind: "missing"}) {
		t.Error("expected Return on an unknown key to fail")
	}
}
