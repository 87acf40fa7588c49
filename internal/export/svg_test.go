package export

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/viz"
	"github.com/shopspring/decimal"
)

func wellFormed(t *testing.T, svg string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(svg))
	for {
		_, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			t.Fatalf("malformed svg: %v\n%s", err, svg)
		}
	}
}

func TestChartToSVG(t *testing.T) {
	g := chart.New(chart.DefaultOptions())
	g.SetUp("Pendulum <θ & φ>", "s", "")
	g.Draw([]chart.Series{
		{Label: "Arm", Color: chart.Red, Points: []float64{-1, 0, 1}},
		{Label: "Propeller", Color: chart.Green, Points: []float64{2, 2, 2}},
	}, decimal.RequireFromString("0.1"))

	svg := ChartToSVG(g.Snapshot())
	wellFormed(t, svg)

	if !strings.Contains(svg, "Pendulum &lt;θ &amp; φ&gt;") {
		t.Error("title not escaped")
	}
	if n := strings.Count(svg, `stroke="#ff0000"`); n != 2 {
		t.Errorf("expected 2 arm connectors, got %d", n)
	}
	if !strings.Contains(svg, "stroke-dasharray") {
		t.Error("zero line missing for negative range")
	}
	if !strings.Contains(svg, ">Propeller<") {
		t.Error("legend missing")
	}
}

func TestCanvasToSVG(t *testing.T) {
	if CanvasToSVG(nil, 2, "#fff") != "" {
		t.Error("nil canvas should render nothing")
	}
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0, "")
	c.Set(3, 3, "")
	svg := CanvasToSVG(c, 4, "#00ff00")
	wellFormed(t, svg)
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
}
