package apparatus

import (
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/csvexport"
	"github.com/san-kum/labplay/internal/playback"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/san-kum/labplay/internal/scene"
)

const (
	TowercopterName = "towercopter"

	towercopterEngineTag    = "towercopter_engine"
	towercopterPlatformTag  = "towercopter_platform"
	towercopterPropellerTag = "towercopter_propeller"
	towercopterCableTag     = "towercopter_cable"

	// MaxHeight is the highest flight, in cm, the tower can show.
	MaxHeight = 80.0

	spinSpeed     = 1080.0 // degrees per second
	spinDownSpeed = 540.0  // degrees per second squared
	landingTime   = 2 * time.Second
	cablePoints   = 5
)

var propellerRest = scene.Vec3{X: -90}

// TowercopterRecord is one sample of the tethered copter, height in cm.
type TowercopterRecord struct {
	Time   sample.Text `json:"time"`
	Height sample.Text `json:"height"`
}

func (r TowercopterRecord) TimeText() string { return string(r.Time) }

type cableRest struct {
	points    [cablePoints]scene.Vec3
	sideRatio float64
}

// Towercopter lifts the engines and platforms along the tower and pulls the
// supply cable taut as they rise. Propellers spin while a run is active.
type Towercopter struct {
	bias   float64
	height float64
	cables map[*scene.Object]*cableRest

	speed    float64
	spinning bool
	slowDown bool
	unhook   func()
}

func NewTowercopter() *Towercopter {
	return &Towercopter{bias: 1, speed: spinSpeed, cables: make(map[*scene.Object]*cableRest)}
}

func (t *Towercopter) Name() string { return TowercopterName }

func (t *Towercopter) Tags() []string {
	return []string{towercopterEngineTag, towercopterPlatformTag, towercopterPropellerTag, towercopterCableTag}
}

func (t *Towercopter) Apply(rec TowercopterRecord, roles scene.Roles) error {
	raw, err := sample.ParseFloat("height", rec.Height)
	if err != nil {
		return err
	}
	h := raw / 100 * t.bias

	for _, obj := range t.lifted(roles) {
		obj.Transform.Position.Y = h
	}
	for _, cable := range roles.Get(towercopterCableTag) {
		rest, ok := t.cables[cable]
		if !ok {
			continue
		}
		pts := cable.Children()
		pts[1].Transform.Position = pts[1].Transform.Position.MoveTowards(
			pts[0].Transform.Position.Lerp(pts[2].Transform.Position, 0.5),
			(h-t.height)*rest.sideRatio,
		)
		for i := 2; i < cablePoints; i++ {
			pts[i].Transform.Position.X = rest.points[i].X + h
		}
		redraw(cable)
	}
	t.height = h
	return nil
}

func (t *Towercopter) lifted(roles scene.Roles) []*scene.Object {
	objs := append([]*scene.Object{}, roles.Get(towercopterEngineTag)...)
	return append(objs, roles.Get(towercopterPlatformTag)...)
}

func (t *Towercopter) Chart() playback.ChartSpec {
	return playback.ChartSpec{Title: "Towercopter", XUnit: "s", YUnit: "cm", Grace: time.Second}
}

func (t *Towercopter) Channels() []playback.Channel[TowercopterRecord] {
	return []playback.Channel[TowercopterRecord]{
		{Label: "Flight height", Color: chart.Red, Value: func(r TowercopterRecord) (float64, error) { return sample.ParseFloat("height", r.Height) }},
	}
}

func (t *Towercopter) Schema() csvexport.Schema[TowercopterRecord] {
	return csvexport.Schema[TowercopterRecord]{
		{Name: "time", Value: func(r TowercopterRecord) string { return string(r.Time) }},
		{Name: "height", Value: func(r TowercopterRecord) string { return string(r.Height) }},
	}
}

func (t *Towercopter) ShareSubject() string { return "Towercopter simulation data" }
func (t *Towercopter) ShareText() string    { return "" }

// Prepare restores the cables, starts the propellers and fixes the height
// scale for the run. Cable rest positions are taken the first time a cable is
// seen so an interrupted run does not shift them.
func (t *Towercopter) Prepare(sc *scene.Scene, roles scene.Roles, records []TowercopterRecord, _ playback.Params) (time.Duration, error) {
	cables := roles.Get(towercopterCableTag)
	for _, cable := range cables {
		if n := len(cable.Children()); n < cablePoints {
			return 0, errors.Errorf("cable %s has %d control points, want %d", cable.Name, n, cablePoints)
		}
	}
	bias := heightBias(records)
	props := roles.Get(towercopterPropellerTag)

	sc.Update(func(*scene.Object) {
		t.bias = bias
		t.height = 0
		for _, cable := range cables {
			rest, ok := t.cables[cable]
			if !ok {
				rest = restOf(cable)
				t.cables[cable] = rest
			}
			for i, pt := range cable.Children()[:cablePoints] {
				pt.Transform.Position = rest.points[i]
			}
			redraw(cable)
		}
		for _, p := range props {
			p.Transform.Rotation = propellerRest
		}
		t.speed = spinSpeed
		t.slowDown = false
		t.spinning = true
	})

	if t.unhook != nil {
		t.unhook()
	}
	t.unhook = sc.OnAdvance(func(dt time.Duration) { t.spin(props, dt) })
	return 0, nil
}

// spin runs on every frame with the scene locked. While landing the speed
// drops before each step until it turns negative.
func (t *Towercopter) spin(props []*scene.Object, dt time.Duration) {
	if !t.spinning {
		return
	}
	secs := dt.Seconds()
	if t.slowDown {
		if t.speed < 0 {
			return
		}
		t.speed -= spinDownSpeed * secs
	}
	for _, p := range props {
		p.Rotate(scene.Vec3{Z: t.speed * secs})
	}
}

// Finish lands the copter, slackens the cables and winds the propellers
// down. They stop when the landing completes.
func (t *Towercopter) Finish(sc *scene.Scene, roles scene.Roles) {
	var tweens []*scene.Tween
	for _, obj := range t.lifted(roles) {
		tweens = append(tweens, &scene.Tween{Target: obj, Property: scene.Position, Duration: landingTime})
	}

	sc.Update(func(*scene.Object) {
		t.slowDown = true
		for _, cable := range roles.Get(towercopterCableTag) {
			rest, ok := t.cables[cable]
			if !ok {
				continue
			}
			cable := cable
			for i, pt := range cable.Children()[1:cablePoints] {
				tweens = append(tweens, &scene.Tween{
					Target:   pt,
					Property: scene.Position,
					To:       rest.points[i+1],
					Duration: landingTime,
					OnUpdate: func() { redraw(cable) },
				})
			}
		}
		if len(tweens) == 0 {
			t.spinning = false
		}
	})

	if len(tweens) == 0 {
		return
	}
	tweens[len(tweens)-1].OnComplete = func() { t.spinning = false }
	sc.Play(tweens...)
}

// Spinning reports whether the propellers still turn. Call it with the scene
// locked, from Update or View.
func (t *Towercopter) Spinning() bool { return t.spinning }

func restOf(cable *scene.Object) *cableRest {
	rest := &cableRest{}
	for i, pt := range cable.Children()[:cablePoints] {
		rest.points[i] = pt.Transform.Position
	}
	rest.sideRatio = rest.points[1].Sub(rest.points[0]).Length() * (5.0 / 6.0) / (MaxHeight / 100)
	return rest
}

func redraw(cable *scene.Object) {
	var p [cablePoints]scene.Vec3
	for i, pt := range cable.Children()[:cablePoints] {
		p[i] = pt.Transform.Position
	}
	cable.Line = scene.Curve(p, scene.CurveSegments)
}

// heightBias scales heights so the highest flight fits MaxHeight.
func heightBias(records []TowercopterRecord) float64 {
	highest := 0.0
	for _, r := range records {
		h, err := sample.ParseFloat("height", r.Height)
		if err == nil && h > highest {
			highest = h
		}
	}
	if highest > MaxHeight {
		return MaxHeight / highest
	}
	return 1
}

// NewTowercopterScene builds the tower with one engine and its platform on
// the same carriage, and the cable running from the base to the carriage.
func NewTowercopterScene() *scene.Object {
	engine := scene.NewObject("Engine", towercopterEngineTag).Add(
		scene.NewObject("PropellerLeft", towercopterPropellerTag),
		scene.NewObject("PropellerRight", towercopterPropellerTag),
	)
	cable := scene.NewObject("Cable", towercopterCableTag)
	for i, pos := range []scene.Vec3{
		{X: 0, Y: 0},
		{X: 0.02, Y: 0.1},
		{X: 0.1, Y: 0.15},
		{X: 0.15, Y: 0.15},
		{X: 0.2, Y: 0.15},
	} {
		pt := scene.NewObject("Point"+string(rune('0'+i)), "")
		pt.Transform.Position = pos
		cable.Add(pt)
	}
	redraw(cable)

	return scene.NewObject("towercopter", "").Add(
		scene.NewObject("Tower", "").Add(engine, scene.NewObject("Platform", towercopterPlatformTag)),
		cable,
	)
}
