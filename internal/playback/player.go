// Package playback replays apparatus records as scene animation and a live
// chart, paced by the records' own timestamps.
//
// A run consists of two goroutines: an animation task applying records to the
// scene and a chart task redrawing at a fixed interval. Starting a run cancels
// the previous one and waits for its tasks to exit, so a player never has more
// than one task pair touching the scene and the chart.
package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/csvexport"
	"github.com/san-kum/labplay/internal/experiment"
	"github.com/san-kum/labplay/internal/notify"
	"github.com/san-kum/labplay/internal/reduce"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/san-kum/labplay/internal/scene"
	"github.com/san-kum/labplay/internal/share"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDrawInterval = time.Second
	NoticeDuration      = 3 * time.Second

	MsgNoData     = "No simulation data"
	MsgNoTimeStep = "Simulation data has no time step"

	defaultShareSubject = "Simulation Data"
)

// ErrNoData is returned by Start when a run has too few records to play. It
// is a notice for the caller, not a failure.
var ErrNoData = errors.New("playback: not enough records")

// Deps are the collaborators a player drives. Scene and Chart are required.
type Deps struct {
	Scene        *scene.Scene
	Chart        *chart.Graph
	Notifier     notify.Notifier
	Share        *share.Sink
	Exporter     *csvexport.Exporter
	Clock        Clock
	Logger       logrus.FieldLogger
	DrawInterval time.Duration
}

type Player[T sample.Record] struct {
	driver   Driver[T]
	scene    *scene.Scene
	chart    *chart.Graph
	notifier notify.Notifier
	share    *share.Sink
	exporter *csvexport.Exporter
	clock    Clock
	log      logrus.FieldLogger
	interval time.Duration

	startMu sync.Mutex
	mu      sync.Mutex
	current *Run
	active  atomic.Int32
}

func NewPlayer[T sample.Record](driver Driver[T], deps Deps) *Player[T] {
	p := &Player[T]{
		driver:   driver,
		scene:    deps.Scene,
		chart:    deps.Chart,
		notifier: deps.Notifier,
		share:    deps.Share,
		exporter: deps.Exporter,
		clock:    deps.Clock,
		log:      deps.Logger,
		interval: deps.DrawInterval,
	}
	if p.clock == nil {
		p.clock = RealClock{}
	}
	if p.log == nil {
		p.log = logrus.StandardLogger()
	}
	if p.notifier == nil {
		p.notifier = notify.Log{Logger: p.log}
	}
	if p.interval <= 0 {
		p.interval = DefaultDrawInterval
	}
	p.log = p.log.WithField("apparatus", driver.Name())
	return p
}

func (p *Player[T]) Driver() Driver[T] { return p.driver }

// ActiveTasks returns the number of running animation and chart tasks.
func (p *Player[T]) ActiveTasks() int {
	return int(p.active.Load())
}

// Current returns the latest run, which may have finished.
func (p *Player[T]) Current() *Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Stop cancels the current run and waits for its tasks to exit. It waits for
// a concurrent Start to finish, so the run that Start launches is stopped too.
func (p *Player[T]) Stop() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	p.stopCurrent()
}

// stopCurrent cancels the published run. Callers hold startMu.
func (p *Player[T]) stopCurrent() {
	p.mu.Lock()
	run := p.current
	p.mu.Unlock()
	if run != nil {
		run.Cancel()
	}
}

// Start cancels any previous run and plays records. With two records or fewer
// it shows a notice and returns ErrNoData. Records without a positive time
// step are rejected the same way. Otherwise the tasks are running when Start
// returns and the share sink is armed with the run's export.
func (p *Player[T]) Start(ctx context.Context, records []T, params Params) (*Run, error) {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.stopCurrent()

	if len(records) <= 2 {
		p.notifier.Notify(MsgNoData, NoticeDuration)
		return nil, ErrNoData
	}

	reduced, err := reduce.ForGraph(records)
	if err != nil {
		p.notifier.Notify(MsgNoTimeStep, NoticeDuration)
		return nil, errors.Wrap(err, "prepare chart data")
	}

	roles := p.findRoles()

	p.scene.Kill()
	var hold time.Duration
	if prep, ok := p.driver.(Preparer[T]); ok {
		hold, err = prep.Prepare(p.scene, roles, records, params)
		if err != nil {
			p.notifier.Notify(err.Error(), NoticeDuration)
			return nil, errors.Wrap(err, "start sequence")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(cancel)
	log := p.log.WithField("records", len(records))
	log.WithFields(logrus.Fields{
		"chart_records": len(reduced.Samples),
		"step":          reduced.Step.String(),
	}).Info("starting playback")

	p.mu.Lock()
	p.current = run
	p.mu.Unlock()

	p.launch(run, func() { p.animate(runCtx, run, records, roles, hold) })
	p.launch(run, func() { p.draw(runCtx, run, reduced) })
	go func() {
		run.wg.Wait()
		cancel()
		close(run.done)
		log.WithFields(run.Stats().fields()).Info("playback finished")
	}()

	p.armShare(records, params)
	return run, nil
}

func (p *Player[T]) launch(run *Run, task func()) {
	run.wg.Add(1)
	p.active.Add(1)
	go func() {
		defer run.wg.Done()
		defer p.active.Add(-1)
		task()
	}()
}

func (p *Player[T]) findRoles() scene.Roles {
	var roles scene.Roles
	p.scene.View(func(root *scene.Object) {
		if f, ok := p.driver.(ComponentFinder); ok {
			roles = f.FindComponents(root, p.driver.Tags())
			return
		}
		roles = scene.FindRoles(root, p.driver.Tags())
	})
	return roles
}

// animate applies each record at start + (t - t0). Deadlines come from the
// timestamps, so sleep overshoot never accumulates.
func (p *Player[T]) animate(ctx context.Context, run *Run, records []T, roles scene.Roles, hold time.Duration) {
	log := p.log.WithField("task", "animation")

	if err := p.clock.Sleep(ctx, hold); err != nil {
		return
	}

	start := p.clock.Now()
	var first, prev, step decimal.Decimal
	seen := false
	for i, rec := range records {
		t, err := sample.ParseTime(rec.TimeText())
		if err != nil {
			log.WithError(err).WithField("sample", i).Warn("skipping sample")
			run.skipped.Add(1)
			continue
		}
		if !seen {
			first, prev, seen = t, t, true
		}

		if err := sleepUntil(ctx, p.clock, start.Add(sample.Duration(t.Sub(first)))); err != nil {
			return
		}

		var applyErr error
		p.scene.Update(func(*scene.Object) {
			applyErr = p.driver.Apply(rec, roles)
		})
		if applyErr != nil {
			log.WithError(applyErr).WithField("sample", i).Warn("skipping sample")
			run.skipped.Add(1)
			continue
		}
		run.applied.Add(1)

		if t.GreaterThan(prev) {
			step = t.Sub(prev)
		}
		prev = t
	}

	if !seen {
		return
	}
	// hold the last record for one more step before stopping
	if err := sleepUntil(ctx, p.clock, start.Add(sample.Duration(prev.Sub(first).Add(step)))); err != nil {
		return
	}
	if f, ok := p.driver.(Finisher); ok {
		f.Finish(p.scene, roles)
	}
}

func (p *Player[T]) draw(ctx context.Context, run *Run, reduced reduce.Result[T]) {
	log := p.log.WithField("task", "chart")
	spec := p.driver.Chart()
	channels := p.driver.Channels()

	last, _ := sample.LastTime(reduced.Samples)
	batches := reduce.Split(reduced.Samples, last, sample.Seconds(p.interval))

	p.chart.SetUp(spec.Title, spec.XUnit, spec.YUnit)
	if err := p.clock.Sleep(ctx, spec.Grace); err != nil {
		return
	}

	series := make([]chart.Series, len(channels))
	for i, ch := range channels {
		series[i] = chart.Series{Label: ch.Label, Color: ch.Color}
	}
	values := make([]float64, len(channels))

	for b, batch := range batches {
		for _, rec := range batch {
			if !channelValues(channels, rec, values, log) {
				continue
			}
			for i, v := range values {
				series[i].Points = append(series[i].Points, v)
			}
		}

		if ctx.Err() != nil {
			return
		}
		p.chart.Draw(series, reduced.Step)
		run.draws.Add(1)

		if b == len(batches)-1 {
			return
		}
		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return
		}
	}
}

// channelValues fills values from rec. A row with any unreadable channel is
// dropped as a whole so series stay aligned.
func channelValues[T any](channels []Channel[T], rec T, values []float64, log logrus.FieldLogger) bool {
	for i, ch := range channels {
		v, err := ch.Value(rec)
		if err != nil {
			log.WithError(err).WithField("series", ch.Label).Warn("skipping chart row")
			return false
		}
		values[i] = v
	}
	return true
}

func (p *Player[T]) armShare(records []T, params Params) {
	if p.share == nil || p.exporter == nil {
		return
	}

	subject := func() string { return defaultShareSubject }
	text := func() string { return "" }
	if st, ok := p.driver.(ShareTexter); ok {
		subject, text = st.ShareSubject, st.ShareText
	}
	var cb share.Callback
	if sc, ok := p.driver.(ShareCallbacker); ok {
		cb = sc.ShareCallback()
	}

	p.share.Arm(subject, text, func() ([]string, error) {
		return p.Export(records, params)
	}, cb)
}

// Export writes the run's selected parameters and records and returns both
// file paths, parameters first.
func (p *Player[T]) Export(records []T, params Params) ([]string, error) {
	if p.exporter == nil {
		return nil, errors.New("playback: no exporter configured")
	}
	paramsPath, err := p.exporter.WriteParameters(csvexport.ParametersFile, params.Selected, experiment.IDParam)
	if err != nil {
		return nil, err
	}
	dataPath, err := csvexport.WriteRecords(p.exporter, csvexport.DataFile, p.driver.Schema(), records)
	if err != nil {
		return nil, err
	}
	return []string{paramsPath, dataPath}, nil
}
