package viz

import (
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/labplay/internal/chart"
)

var ansiColors = map[chart.Color]asciigraph.AnsiColor{
	chart.Red:    asciigraph.Red,
	chart.Green:  asciigraph.Green,
	chart.Yellow: asciigraph.Yellow,
	chart.Blue:   asciigraph.Blue,
	chart.Gray:   asciigraph.Gray,
	chart.White:  asciigraph.White,
}

// Plot draws every non-empty series on one asciigraph plot. It returns ""
// when there is nothing to draw.
func Plot(series []chart.Series, width, height int, caption string) string {
	var data [][]float64
	var colors []asciigraph.AnsiColor
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		data = append(data, s.Points)
		c, ok := ansiColors[s.Color]
		if !ok {
			c = asciigraph.Default
		}
		colors = append(colors, c)
	}
	if len(data) == 0 {
		return ""
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	)
}
