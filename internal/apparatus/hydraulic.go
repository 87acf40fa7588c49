package apparatus

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/csvexport"
	"github.com/san-kum/labplay/internal/playback"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/san-kum/labplay/internal/scene"
)

const HydraulicName = "hydraulic"

const (
	hydraulicSequence = 1500 * time.Millisecond
	// MaxWaterLevel is the tallest water column the tanks can show. Higher
	// runs are scaled down uniformly.
	MaxWaterLevel = 50.0

	drainPointName = "DrainPoint"
	tankDrainDelay = 500 * time.Millisecond
	tankDrainTime  = time.Second
)

// HydraulicRecord is one sample of the three-tank system, levels in cm.
type HydraulicRecord struct {
	Time sample.Text `json:"time"`
	H1   sample.Text `json:"h1"`
	H2   sample.Text `json:"h2"`
	H3   sample.Text `json:"h3"`
}

func (r HydraulicRecord) TimeText() string { return string(r.Time) }

func (r HydraulicRecord) levels() ([3]float64, error) {
	var h [3]float64
	for i, text := range []sample.Text{r.H1, r.H2, r.H3} {
		v, err := sample.ParseFloat(fmt.Sprintf("h%d", i+1), text)
		if err != nil {
			return h, err
		}
		h[i] = v
	}
	return h, nil
}

func hydraulicTag(kind string, n int) string {
	return "hydraulic_" + kind + strconv.Itoa(n)
}

var (
	tankTags = []string{hydraulicTag("tank", 1), hydraulicTag("tank", 2), hydraulicTag("tank", 3)}

	// output valves drain a tank, between valves connect two tanks and open
	// in reverse.
	outputValves = []valveSpec{
		{tag: hydraulicTag("valve", 1), param: "V1"},
		{tag: hydraulicTag("valve", 2), param: "V2"},
		{tag: hydraulicTag("valve", 3), param: "V3"},
	}
	betweenValves = []valveSpec{
		{tag: hydraulicTag("valve", 4), param: "V13", reverse: true},
		{tag: hydraulicTag("valve", 5), param: "V23", reverse: true},
	}

	shorterTubes = []tubeSpec{
		{hydraulicTag("tube", 1), 250 * time.Millisecond},
		{hydraulicTag("tube", 3), 250 * time.Millisecond},
		{hydraulicTag("tube", 5), 300 * time.Millisecond},
		{hydraulicTag("tube", 7), 100 * time.Millisecond},
	}
	longerTubes = []tubeSpec{
		{hydraulicTag("tube", 2), 185 * time.Millisecond},
		{hydraulicTag("tube", 4), 185 * time.Millisecond},
		{hydraulicTag("tube", 6), 300 * time.Millisecond},
		{hydraulicTag("tube", 8), 405 * time.Millisecond},
	}
)

type valveSpec struct {
	tag     string
	param   string
	reverse bool
}

type tubeSpec struct {
	tag  string
	fill time.Duration
}

var (
	full    = scene.Vec3{X: 1, Y: 1, Z: 1}
	drained = scene.Vec3{X: 1, Y: 0, Z: 1}
)

// Hydraulic animates three water tanks joined by valves and tubes.
type Hydraulic struct {
	bias float64
}

func NewHydraulic() *Hydraulic {
	return &Hydraulic{bias: 1}
}

func (h *Hydraulic) Name() string { return HydraulicName }

func (h *Hydraulic) Tags() []string {
	tags := append([]string{}, tankTags...)
	for _, v := range outputValves {
		tags = append(tags, v.tag)
	}
	for _, v := range betweenValves {
		tags = append(tags, v.tag)
	}
	for i := 1; i <= 8; i++ {
		tags = append(tags, hydraulicTag("tube", i))
	}
	return tags
}

func (h *Hydraulic) Apply(rec HydraulicRecord, roles scene.Roles) error {
	levels, err := rec.levels()
	if err != nil {
		return err
	}
	for i, tag := range tankTags {
		for _, tank := range roles.Get(tag) {
			tank.Transform.Scale.Y = levels[i] * h.bias
		}
	}
	return nil
}

func (h *Hydraulic) Chart() playback.ChartSpec {
	return playback.ChartSpec{Title: "Hydraulic system", XUnit: "s", YUnit: "cm", Grace: hydraulicSequence}
}

func (h *Hydraulic) Channels() []playback.Channel[HydraulicRecord] {
	return []playback.Channel[HydraulicRecord]{
		{Label: "H1", Color: chart.Red, Value: func(r HydraulicRecord) (float64, error) { return sample.ParseFloat("h1", r.H1) }},
		{Label: "H2", Color: chart.Green, Value: func(r HydraulicRecord) (float64, error) { return sample.ParseFloat("h2", r.H2) }},
		{Label: "H3", Color: chart.Yellow, Value: func(r HydraulicRecord) (float64, error) { return sample.ParseFloat("h3", r.H3) }},
	}
}

func (h *Hydraulic) Schema() csvexport.Schema[HydraulicRecord] {
	return csvexport.Schema[HydraulicRecord]{
		{Name: "time", Value: func(r HydraulicRecord) string { return string(r.Time) }},
		{Name: "h1", Value: func(r HydraulicRecord) string { return string(r.H1) }},
		{Name: "h2", Value: func(r HydraulicRecord) string { return string(r.H2) }},
		{Name: "h3", Value: func(r HydraulicRecord) string { return string(r.H3) }},
	}
}

func (h *Hydraulic) ShareSubject() string { return "Hydraulic simulation data" }
func (h *Hydraulic) ShareText() string    { return "" }

// Prepare opens the valves to the selected percentages while both tube lines
// fill, and fixes the level scale for the run.
func (h *Hydraulic) Prepare(sc *scene.Scene, roles scene.Roles, records []HydraulicRecord, params playback.Params) (time.Duration, error) {
	var tweens []*scene.Tween
	for _, group := range [][]valveSpec{outputValves, betweenValves} {
		for _, v := range group {
			rot, ok, err := valveRotation(v, params)
			if err != nil {
				return 0, err
			}
			if !ok {
				continue
			}
			tweens = append(tweens, rotate(roles.Get(v.tag), rot, 0)...)
		}
	}
	for _, line := range [][]tubeSpec{shorterTubes, longerTubes} {
		var at time.Duration
		for _, tube := range line {
			for _, obj := range roles.Get(tube.tag) {
				tweens = append(tweens, &scene.Tween{Target: obj, Property: scene.Scale, To: full, Duration: tube.fill, Delay: at})
			}
			at += tube.fill
		}
	}

	bias := levelBias(records)
	sc.Update(func(*scene.Object) { h.bias = bias })
	sc.Play(tweens...)
	return hydraulicSequence, nil
}

// Finish closes the between valves, drains tubes and tanks through the
// output valves and closes those last.
func (h *Hydraulic) Finish(sc *scene.Scene, roles scene.Roles) {
	var tweens []*scene.Tween
	for _, v := range betweenValves {
		tweens = append(tweens, rotate(roles.Get(v.tag), 0, 0)...)
	}

	drainAt := hydraulicSequence
	for _, v := range outputValves {
		tweens = append(tweens, rotate(roles.Get(v.tag), 90, drainAt)...)
	}
	for _, line := range [][]tubeSpec{shorterTubes, longerTubes} {
		at := drainAt
		for _, tube := range line {
			for _, obj := range roles.Get(tube.tag) {
				tweens = append(tweens, drainTube(obj, tube.fill, at))
			}
			at += tube.fill
		}
	}

	tanksAt := 2*hydraulicSequence + tankDrainDelay
	for _, tag := range tankTags {
		for _, tank := range roles.Get(tag) {
			tweens = append(tweens, &scene.Tween{Target: tank, Property: scene.Scale, To: drained, Duration: tankDrainTime, Delay: tanksAt})
		}
	}

	closeAt := 3*hydraulicSequence + tankDrainDelay
	for _, v := range outputValves {
		tweens = append(tweens, rotate(roles.Get(v.tag), 0, closeAt)...)
	}

	sc.Play(tweens...)
}

// drainTube shrinks the tube's drain point and then empties the tube in one
// step, restoring the drain point for the next fill. Tubes without a drain
// point shrink directly.
func drainTube(tube *scene.Object, d, delay time.Duration) *scene.Tween {
	point := tube.Child(drainPointName)
	if point == nil {
		return &scene.Tween{Target: tube, Property: scene.Scale, To: drained, Duration: d, Delay: delay}
	}
	return &scene.Tween{
		Target:   point,
		Property: scene.Scale,
		To:       drained,
		Duration: d,
		Delay:    delay,
		OnComplete: func() {
			tube.Transform.Scale = drained
			point.Transform.Scale = full
		},
	}
}

func rotate(valves []*scene.Object, degrees float64, delay time.Duration) []*scene.Tween {
	tweens := make([]*scene.Tween, 0, len(valves))
	for _, v := range valves {
		tweens = append(tweens, &scene.Tween{
			Target:   v,
			Property: scene.Rotation,
			To:       scene.Vec3{Z: degrees},
			Duration: hydraulicSequence,
			Delay:    delay,
		})
	}
	return tweens
}

// valveRotation maps an opening percentage to degrees, a quarter turn being
// fully open. The selected value wins over the experiment default; a valve
// with neither is left where it is.
func valveRotation(v valveSpec, params playback.Params) (float64, bool, error) {
	text, ok := params.Selected[v.param]
	if !ok {
		text, ok = params.Experiment.Default(v.param)
	}
	if !ok {
		return 0, false, nil
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false, errors.Errorf("invalid opening of valve %s: %q", v.param, text)
	}
	if v.reverse {
		pct = 100 - pct
	}
	return pct / 100 * 90, true, nil
}

// levelBias scales levels so the highest of all three tanks fits
// MaxWaterLevel. Unreadable samples are ignored.
func levelBias(records []HydraulicRecord) float64 {
	highest := 0.0
	for _, r := range records {
		levels, err := r.levels()
		if err != nil {
			continue
		}
		for _, l := range levels {
			if l > highest {
				highest = l
			}
		}
	}
	if highest > MaxWaterLevel {
		return MaxWaterLevel / highest
	}
	return 1
}

// NewHydraulicScene builds the three-tank rig with empty tanks and tubes.
func NewHydraulicScene() *scene.Object {
	root := scene.NewObject("hydraulic", "")
	for i, tag := range tankTags {
		tank := scene.NewObject(fmt.Sprintf("Tank%d", i+1), tag)
		tank.Transform.Position = scene.Vec3{X: float64(i) * 0.4}
		tank.Transform.Scale = drained
		root.Add(tank)
	}
	for i := 1; i <= 5; i++ {
		root.Add(scene.NewObject(fmt.Sprintf("Valve%d", i), hydraulicTag("valve", i)))
	}
	for i := 1; i <= 8; i++ {
		tube := scene.NewObject(fmt.Sprintf("Tube%d", i), hydraulicTag("tube", i))
		tube.Transform.Scale = drained
		root.Add(tube.Add(scene.NewObject(drainPointName, "")))
	}
	return root
}
