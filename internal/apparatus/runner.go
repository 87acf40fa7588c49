package apparatus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/api"
	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/csvexport"
	"github.com/san-kum/labplay/internal/notify"
	"github.com/san-kum/labplay/internal/playback"
	"github.com/san-kum/labplay/internal/reduce"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/san-kum/labplay/internal/scene"
	"github.com/san-kum/labplay/internal/share"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Env carries the collaborators shared by every runner of a process.
type Env struct {
	Chart        *chart.Graph
	Notifier     notify.Notifier
	Share        *share.Sink
	Exporter     *csvexport.Exporter
	Clock        playback.Clock
	Logger       logrus.FieldLogger
	DrawInterval time.Duration
}

// Info describes an apparatus.
type Info struct {
	Name    string
	Tags    []string
	Chart   playback.ChartSpec
	Columns []string
	Series  []string
}

// Summary describes the loaded records.
type Summary struct {
	Records      int
	Duration     decimal.Decimal
	NativeStep   decimal.Decimal
	ChartStep    decimal.Decimal
	ChartRecords int
	Every        int
}

// Runner plays one apparatus without exposing its record type.
type Runner interface {
	Info() Info
	Scene() *scene.Scene
	// Load replaces the records with JSON data, either a bare list or a
	// {"simulation": [...]} envelope.
	Load(data []byte) (int, error)
	// Fetch replaces the records with a fresh simulation from the data source.
	Fetch(ctx context.Context, c *api.Client, params map[string]string) (int, error)
	Marshal() ([]byte, error)
	Summary() (Summary, error)
	// Series returns the full chart series without pacing.
	Series() ([]chart.Series, decimal.Decimal, error)
	Start(ctx context.Context, params playback.Params) (*playback.Run, error)
	Stop()
	ActiveTasks() int
	Export(params playback.Params) ([]string, error)
}

type runner[T sample.Record] struct {
	driver playback.Driver[T]
	scene  *scene.Scene
	player *playback.Player[T]
	log    logrus.FieldLogger

	mu      sync.Mutex
	records []T
}

func newRunner[T sample.Record](driver playback.Driver[T], root *scene.Object, env Env) *runner[T] {
	sc := scene.New(root)
	graph := env.Chart
	if graph == nil {
		graph = chart.New(chart.DefaultOptions())
	}
	log := env.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &runner[T]{
		driver: driver,
		scene:  sc,
		log:    log.WithField("apparatus", driver.Name()),
		player: playback.NewPlayer(driver, playback.Deps{
			Scene:        sc,
			Chart:        graph,
			Notifier:     env.Notifier,
			Share:        env.Share,
			Exporter:     env.Exporter,
			Clock:        env.Clock,
			Logger:       log,
			DrawInterval: env.DrawInterval,
		}),
	}
}

func (r *runner[T]) Info() Info {
	info := Info{
		Name:    r.driver.Name(),
		Tags:    r.driver.Tags(),
		Chart:   r.driver.Chart(),
		Columns: r.driver.Schema().Header(),
	}
	for _, ch := range r.driver.Channels() {
		info.Series = append(info.Series, ch.Label)
	}
	return info
}

func (r *runner[T]) Scene() *scene.Scene { return r.scene }

func (r *runner[T]) set(records []T) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = records
	return len(records)
}

func (r *runner[T]) get() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records
}

func (r *runner[T]) Load(data []byte) (int, error) {
	records, err := sample.Decode[T](data)
	if err != nil {
		return 0, err
	}
	return r.set(records), nil
}

func (r *runner[T]) Fetch(ctx context.Context, c *api.Client, params map[string]string) (int, error) {
	records, err := api.FetchSimulation[T](ctx, c, params)
	if err != nil {
		return 0, err
	}
	r.log.WithField("records", len(records)).Info("fetched simulation")
	return r.set(records), nil
}

func (r *runner[T]) Marshal() ([]byte, error) {
	data, err := json.Marshal(r.get())
	return data, errors.Wrap(err, "encode records")
}

func (r *runner[T]) Summary() (Summary, error) {
	records := r.get()
	s := Summary{Records: len(records)}
	s.Duration, _ = sample.LastTime(records)

	native, err := reduce.NativeStep(records)
	if err != nil {
		return s, err
	}
	s.NativeStep = native

	res, err := reduce.ForGraph(records)
	if err != nil {
		return s, err
	}
	s.ChartStep = res.Step
	s.ChartRecords = len(res.Samples)
	s.Every = res.Every
	return s, nil
}

func (r *runner[T]) Series() ([]chart.Series, decimal.Decimal, error) {
	res, err := reduce.ForGraph(r.get())
	if err != nil {
		return nil, decimal.Zero, err
	}

	channels := r.driver.Channels()
	series := make([]chart.Series, len(channels))
	for i, ch := range channels {
		series[i] = chart.Series{Label: ch.Label, Color: ch.Color}
	}

	values := make([]float64, len(channels))
rows:
	for _, rec := range res.Samples {
		for i, ch := range channels {
			v, err := ch.Value(rec)
			if err != nil {
				continue rows
			}
			values[i] = v
		}
		for i, v := range values {
			series[i].Points = append(series[i].Points, v)
		}
	}
	return series, res.Step, nil
}

func (r *runner[T]) Start(ctx context.Context, params playback.Params) (*playback.Run, error) {
	return r.player.Start(ctx, r.get(), params)
}

func (r *runner[T]) Stop()            { r.player.Stop() }
func (r *runner[T]) ActiveTasks() int { return r.player.ActiveTasks() }

func (r *runner[T]) Export(params playback.Params) ([]string, error) {
	return r.player.Export(r.get(), params)
}
