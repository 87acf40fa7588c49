package apparatus

import (
	"time"

	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/csvexport"
	"github.com/san-kum/labplay/internal/playback"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/san-kum/labplay/internal/scene"
)

const (
	PendulumName = "pendulum"

	pendulumPropellerTag = "rwpendulum_propeller"
	pendulumArmTag       = "rwpendulum_arm"

	pendulumSequence = 3 * time.Second
	rad2deg          = 57.29577951308232
)

// PendulumRecord is one sample of the reaction wheel pendulum. Theta is the
// arm angle from upright and Phi the wheel angle, both in radians.
type PendulumRecord struct {
	Time  sample.Text `json:"time"`
	Theta sample.Text `json:"theta"`
	Phi   sample.Text `json:"phi"`
}

func (r PendulumRecord) TimeText() string { return string(r.Time) }

// Pendulum swings the arm up and spins the wheel by the change in angle
// between samples.
type Pendulum struct {
	theta, phi float64
}

func NewPendulum() *Pendulum { return &Pendulum{} }

func (p *Pendulum) Name() string   { return PendulumName }
func (p *Pendulum) Tags() []string { return []string{pendulumPropellerTag, pendulumArmTag} }

func (p *Pendulum) Apply(rec PendulumRecord, roles scene.Roles) error {
	theta, err := sample.ParseFloat("theta", rec.Theta)
	if err != nil {
		return err
	}
	phi, err := sample.ParseFloat("phi", rec.Phi)
	if err != nil {
		return err
	}
	theta *= rad2deg
	phi *= rad2deg

	for _, arm := range roles.Get(pendulumArmTag) {
		arm.Rotate(scene.Vec3{Z: theta - p.theta})
	}
	for _, prop := range roles.Get(pendulumPropellerTag) {
		prop.Rotate(scene.Vec3{Z: phi - p.phi})
	}
	p.theta, p.phi = theta, phi
	return nil
}

func (p *Pendulum) Chart() playback.ChartSpec {
	return playback.ChartSpec{Title: "Pendulum", XUnit: "s", Grace: pendulumSequence}
}

func (p *Pendulum) Channels() []playback.Channel[PendulumRecord] {
	return []playback.Channel[PendulumRecord]{
		{Label: "Arm", Color: chart.Red, Value: func(r PendulumRecord) (float64, error) { return sample.ParseFloat("theta", r.Theta) }},
		{Label: "Propeller", Color: chart.Green, Value: func(r PendulumRecord) (float64, error) { return sample.ParseFloat("phi", r.Phi) }},
	}
}

func (p *Pendulum) Schema() csvexport.Schema[PendulumRecord] {
	return csvexport.Schema[PendulumRecord]{
		{Name: "time", Value: func(r PendulumRecord) string { return string(r.Time) }},
		{Name: "theta", Value: func(r PendulumRecord) string { return string(r.Theta) }},
		{Name: "phi", Value: func(r PendulumRecord) string { return string(r.Phi) }},
	}
}

func (p *Pendulum) ShareSubject() string { return "Pendulum simulation data" }
func (p *Pendulum) ShareText() string    { return "" }

// Prepare swings the arms through a full turn to upright.
func (p *Pendulum) Prepare(sc *scene.Scene, roles scene.Roles, _ []PendulumRecord, _ playback.Params) (time.Duration, error) {
	sc.Update(func(*scene.Object) { p.theta, p.phi = 0, 0 })
	sc.Play(swing(roles.Get(pendulumArmTag), 360)...)
	return pendulumSequence, nil
}

// Finish lets the arms hang down again.
func (p *Pendulum) Finish(sc *scene.Scene, roles scene.Roles) {
	sc.Play(swing(roles.Get(pendulumArmTag), 180)...)
}

func swing(arms []*scene.Object, degrees float64) []*scene.Tween {
	tweens := make([]*scene.Tween, 0, len(arms))
	for _, arm := range arms {
		tweens = append(tweens, &scene.Tween{
			Target:   arm,
			Property: scene.Rotation,
			To:       scene.Vec3{Z: degrees},
			Duration: pendulumSequence,
		})
	}
	return tweens
}

// NewPendulumScene builds a hanging arm carrying the reaction wheel.
func NewPendulumScene() *scene.Object {
	arm := scene.NewObject("Arm", pendulumArmTag)
	arm.Transform.Rotation = scene.Vec3{Z: 180}
	wheel := scene.NewObject("Wheel", pendulumPropellerTag)
	wheel.Transform.Position = scene.Vec3{Y: 0.3}
	return scene.NewObject("pendulum", "").Add(
		scene.NewObject("Base", "").Add(arm.Add(wheel)),
	)
}
