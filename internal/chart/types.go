package chart

import (
	"fmt"
	"math"
)

// Color is an opaque RGB color.
type Color struct {
	R, G, B uint8
}

var (
	Red    = Color{0xff, 0x00, 0x00}
	Green  = Color{0x00, 0xff, 0x00}
	Yellow = Color{0xff, 0xeb, 0x04}
	Blue   = Color{0x00, 0x00, 0xff}
	Gray   = Color{0x80, 0x80, 0x80}
	White  = Color{0xff, 0xff, 0xff}
)

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Series is one named, colored sequence of values sampled at a fixed step.
type Series struct {
	Label  string
	Color  Color
	Points []float64
}

func (s Series) clone() Series {
	pts := make([]float64, len(s.Points))
	copy(pts, s.Points)
	return Series{Label: s.Label, Color: s.Color, Points: pts}
}

// Kind identifies a primitive type. Each pooled kind has its own pool.
type Kind int

const (
	KindConnector Kind = iota
	KindLabelX
	KindDashX
	KindLabelY
	KindDashY
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindConnector:
		return "connector"
	case KindLabelX:
		return "label-x"
	case KindDashX:
		return "dash-x"
	case KindLabelY:
		return "label-y"
	case KindDashY:
		return "dash-y"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Vec2 is a position in chart space: origin bottom-left, X right, Y up.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Sub(o Vec2) Vec2         { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Add(o Vec2) Vec2         { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Scale(f float64) Vec2    { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Length() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Distance(o Vec2) float64 { return v.Sub(o).Length() }

func (v Vec2) Normalized() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return v.Scale(1 / l)
}

// Visual is a drawable primitive. Connectors are centred on Position, rotated
// by Angle degrees and Size.X long; labels carry Text.
type Visual struct {
	Kind     Kind
	Active   bool
	Position Vec2
	Size     Vec2
	Angle    float64
	Color    Color
	Text     string
	Series   int
}

// Endpoints returns the two ends of a connector.
func (v Visual) Endpoints() (Vec2, Vec2) {
	rad := v.Angle * math.Pi / 180
	half := Vec2{math.Cos(rad), math.Sin(rad)}.Scale(v.Size.X / 2)
	return v.Position.Sub(half), v.Position.Add(half)
}

// LegendEntry is a series toggle.
type LegendEntry struct {
	Label   string
	Color   Color
	Visible bool
}

// angleOf returns the direction of dir in degrees within [0, 360).
func angleOf(dir Vec2) float64 {
	dir = dir.Normalized()
	n := math.Atan2(dir.Y, dir.X) * 180 / math.Pi
	if n < 0 {
		n += 360
	}
	return n
}
