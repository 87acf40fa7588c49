// Package apparatus holds the drivers that animate each lab apparatus and a
// registry that hides their record types behind Runner.
package apparatus

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrUnknown is returned for apparatus names that are not registered.
var ErrUnknown = errors.New("apparatus: unknown apparatus")

// Factory builds a runner bound to env.
type Factory func(env Env) Runner

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register(HydraulicName, func(env Env) Runner {
		return newRunner[HydraulicRecord](NewHydraulic(), NewHydraulicScene(), env)
	})
	r.Register(PendulumName, func(env Env) Runner {
		return newRunner[PendulumRecord](NewPendulum(), NewPendulumScene(), env)
	})
	r.Register(TowercopterName, func(env Env) Runner {
		return newRunner[TowercopterRecord](NewTowercopter(), NewTowercopterScene(), env)
	})

	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

func (r *Registry) Get(name string, env Env) (Runner, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknown, "%q", name)
	}
	return f(env), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
