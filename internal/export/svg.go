// Package export renders chart snapshots and canvases as SVG.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/viz"
)

const (
	margin       = 60
	legendHeight = 30
	background   = "#0a0a0a"
	axisColor    = "#888899"
	textColor    = "#e0e0e0"
)

// ChartToSVG draws the visuals of a chart snapshot. Chart coordinates have
// their origin at the bottom left of the plot area.
func ChartToSVG(s chart.Snapshot) string {
	width := s.Width + 2*margin
	height := s.Height + 2*margin + legendHeight
	toX := func(x float64) float64 { return margin + x }
	toY := func(y float64) float64 { return margin + s.Height - y }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))

	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" text-anchor="middle" font-family="sans-serif" font-size="18" font-weight="bold" fill="%s">%s</text>
`, width/2, margin/2, textColor, escapeXML(s.Title)))

	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1" d="M%.1f,%.1f L%.1f,%.1f L%.1f,%.1f"/>
`, axisColor, toX(0), toY(s.Height), toX(0), toY(0), toX(s.Width), toY(0)))

	for _, v := range s.Visuals {
		switch v.Kind {
		case chart.KindConnector:
			a, b := v.Endpoints()
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2" stroke-linecap="round"/>
`, toX(a.X), toY(a.Y), toX(b.X), toY(b.Y), v.Color.Hex()))
		case chart.KindPoint:
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>
`, toX(v.Position.X), toY(v.Position.Y), v.Color.Hex()))
		case chart.KindLabelX:
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="12" fill="%s">%s</text>
`, toX(v.Position.X), toY(v.Position.Y), textColor, escapeXML(v.Text)))
		case chart.KindLabelY:
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" text-anchor="end" dominant-baseline="middle" font-family="sans-serif" font-size="12" fill="%s">%s</text>
`, toX(v.Position.X), toY(v.Position.Y), textColor, escapeXML(v.Text)))
		case chart.KindDashX:
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>
`, toX(v.Position.X), toY(0), toX(v.Position.X), toY(v.Position.Y), axisColor))
		case chart.KindDashY:
			if v.Color == chart.Gray {
				sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1" stroke-dasharray="4 4"/>
`, toX(0), toY(v.Position.Y), toX(s.Width), toY(v.Position.Y), v.Color.Hex()))
				continue
			}
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>
`, toX(v.Position.X), toY(v.Position.Y), toX(0), toY(v.Position.Y), axisColor))
		}
	}

	x := float64(margin)
	y := height - legendHeight
	for _, e := range s.Legend {
		opacity := "1"
		if !e.Visible {
			opacity = "0.3"
		}
		sb.WriteString(fmt.Sprintf(`<g opacity="%s"><rect x="%.1f" y="%.1f" width="12" height="12" fill="%s"/><text x="%.1f" y="%.1f" font-family="sans-serif" font-size="12" fill="%s">%s</text></g>
`, opacity, x, y, e.Color.Hex(), x+18, y+11, textColor, escapeXML(e.Label)))
		x += 30 + float64(7*len(e.Label))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// CanvasToSVG converts a braille canvas to SVG, one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64, fill string) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.Dots()
	width := float64(w) * scale
	height := float64(h) * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, background, fill))

	r := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !canvas.Lit(x, y) {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, float64(x)*scale+scale/2, float64(y)*scale+scale/2, r))
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

func escapeXML(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	).Replace(s)
}
