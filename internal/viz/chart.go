package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/labplay/internal/chart"
)

// RenderChart rasterises a chart snapshot into cols x rows cells, including
// the title, legend and axis labels. Hidden series are listed dimmed.
func RenderChart(s chart.Snapshot, cols, rows int, th Theme) string {
	yLabels := labelsOf(s, chart.KindLabelY)
	margin := 0
	for _, l := range yLabels {
		if n := len([]rune(l.Text)); n > margin {
			margin = n
		}
	}
	margin++

	// title, legend and x labels take a row each
	cv := PlotCanvas(s, cols-margin, rows-3, th)
	_, h := cv.Dots()

	labelAt := make(map[int]string, len(yLabels))
	for _, l := range yLabels {
		y := int(math.Round((1 - l.Position.Y/s.Height) * float64(h-1)))
		labelAt[y/4] = l.Text
	}

	axis := lipgloss.NewStyle().Foreground(th.Axis)
	lines := make([]string, 0, rows)
	lines = append(lines, th.TitleStyle().Render(s.Title), legend(s.Legend, th))
	for r := 0; r < cv.Height; r++ {
		lines = append(lines, axis.Render(padLeft(labelAt[r], margin-1))+" "+cv.Row(r))
	}
	lines = append(lines, axis.Render(xAxis(s, cv.Width, margin)))
	return strings.Join(lines, "\n")
}

// PlotCanvas draws the plot area of a snapshot, without any text, onto a
// canvas of cols x rows cells.
func PlotCanvas(s chart.Snapshot, cols, rows int, th Theme) *Canvas {
	cv := NewCanvas(cols, rows)
	w, h := cv.Dots()
	toDots := func(p chart.Vec2) (int, int) {
		x := p.X / s.Width * float64(w-1)
		y := (1 - p.Y/s.Height) * float64(h-1)
		return int(math.Round(x)), int(math.Round(y))
	}

	cv.DrawLine(0, 0, 0, h-1, th.Axis)
	cv.DrawLine(0, h-1, w-1, h-1, th.Axis)

	for _, v := range s.Visuals {
		switch v.Kind {
		case chart.KindConnector:
			a, b := v.Endpoints()
			x0, y0 := toDots(a)
			x1, y1 := toDots(b)
			cv.DrawLine(x0, y0, x1, y1, th.SeriesColor(v.Color))
		case chart.KindPoint:
			x, y := toDots(v.Position)
			cv.Set(x, y, th.SeriesColor(v.Color))
		case chart.KindDashY:
			if v.Color != chart.Gray {
				continue
			}
			_, y := toDots(chart.Vec2{Y: v.Position.Y})
			for x := 2; x < w; x += 4 {
				cv.Set(x, y, th.Muted)
			}
		}
	}
	return cv
}

func labelsOf(s chart.Snapshot, kind chart.Kind) []chart.Visual {
	var out []chart.Visual
	for _, v := range s.Visuals {
		if v.Kind == kind && v.Active {
			out = append(out, v)
		}
	}
	return out
}

// xAxis spreads the x labels under the canvas without letting them overlap.
func xAxis(s chart.Snapshot, width, margin int) string {
	row := []rune(strings.Repeat(" ", width+margin+8))
	next := 0
	for _, l := range labelsOf(s, chart.KindLabelX) {
		text := []rune(l.Text)
		col := margin + int(math.Round(l.Position.X/s.Width*float64(width-1))) - len(text)/2
		if col < next {
			col = next
		}
		if col+len(text) > len(row) {
			continue
		}
		copy(row[col:], text)
		next = col + len(text) + 1
	}
	return strings.TrimRight(string(row), " ")
}

func legend(entries []chart.LegendEntry, th Theme) string {
	parts := make([]string, 0, len(entries))
	for i, e := range entries {
		key := string(rune('1' + i))
		if !e.Visible {
			parts = append(parts, th.MutedStyle().Render(key+" □ "+e.Label))
			continue
		}
		swatch := lipgloss.NewStyle().Foreground(th.SeriesColor(e.Color)).Render("■")
		parts = append(parts, key+" "+swatch+" "+e.Label)
	}
	return strings.Join(parts, "   ")
}

func padLeft(s string, n int) string {
	if d := n - len([]rune(s)); d > 0 {
		return strings.Repeat(" ", d) + s
	}
	return s
}
