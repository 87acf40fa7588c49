package playback

import (
	"time"

	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/csvexport"
	"github.com/san-kum/labplay/internal/experiment"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/san-kum/labplay/internal/scene"
	"github.com/san-kum/labplay/internal/share"
)

// Params are the inputs of one run. Both are read-only to the player.
type Params struct {
	Experiment *experiment.ParameterSet
	Selected   map[string]string
}

// ChartSpec describes the chart an apparatus draws.
type ChartSpec struct {
	Title string
	XUnit string
	YUnit string
	// Grace delays the first draw so it lines up with the start sequence.
	Grace time.Duration
}

// Channel maps a record to one chart series.
type Channel[T any] struct {
	Label string
	Color chart.Color
	Value func(T) (float64, error)
}

// Driver animates one kind of apparatus from its records.
type Driver[T sample.Record] interface {
	Name() string
	// Tags lists the role tags resolved from the scene. It must return the
	// same tags on every call.
	Tags() []string
	// Apply mutates the scene for one record. It runs with the scene locked
	// and must leave the scene untouched when it returns an error.
	Apply(rec T, roles scene.Roles) error
	Chart() ChartSpec
	Channels() []Channel[T]
	Schema() csvexport.Schema[T]
}

// Preparer is implemented by drivers with a start sequence. Prepare runs
// before the animation task starts; the returned hold delays the first
// record. An error aborts the run.
type Preparer[T sample.Record] interface {
	Prepare(sc *scene.Scene, roles scene.Roles, records []T, params Params) (time.Duration, error)
}

// Finisher is implemented by drivers with a stop sequence. Finish runs after
// the last record unless the run was cancelled.
type Finisher interface {
	Finish(sc *scene.Scene, roles scene.Roles)
}

// ComponentFinder overrides how role tags are resolved.
type ComponentFinder interface {
	FindComponents(root *scene.Object, tags []string) scene.Roles
}

// ShareTexter supplies the subject and body used when a run is shared.
type ShareTexter interface {
	ShareSubject() string
	ShareText() string
}

// ShareCallbacker supplies the callback run after a share completes.
type ShareCallbacker interface {
	ShareCallback() share.Callback
}
