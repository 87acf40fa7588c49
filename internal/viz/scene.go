package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/labplay/internal/scene"
)

// RenderScene lists the tagged objects of the tree with their transforms and
// draws any cable curves below the listing.
func RenderScene(root *scene.Object, cols, rows int, th Theme) string {
	var lines []string
	tag := lipgloss.NewStyle().Foreground(th.Accent)
	var curves []*scene.Object

	var walk func(o *scene.Object, depth int)
	walk = func(o *scene.Object, depth int) {
		if len(o.Line) > 1 {
			curves = append(curves, o)
		}
		if o.Tag != "" {
			lines = append(lines, strings.Repeat("  ", depth)+o.Name+" "+tag.Render(o.Tag)+" "+th.MutedStyle().Render(transform(o.Transform)))
		} else {
			lines = append(lines, strings.Repeat("  ", depth)+th.MutedStyle().Render(o.Name))
		}
		for _, c := range o.Children() {
			walk(c, depth+1)
		}
	}
	walk(root, 0)

	if len(curves) > 0 && rows > len(lines)+2 {
		cv := NewCanvas(cols, rows-len(lines))
		DrawCurves(cv, curves, th.Accent)
		lines = append(lines, cv.Render())
	}
	return strings.Join(lines, "\n")
}

func transform(t scene.Transform) string {
	return fmt.Sprintf("pos(%s) rot(%s) scale(%s)", vec(t.Position), vec(t.Rotation), vec(t.Scale))
}

func vec(v scene.Vec3) string {
	return fmt.Sprintf("%.2f, %.2f, %.2f", v.X, v.Y, v.Z)
}

// DrawCurves fits the local XY polylines of objs into the canvas, keeping
// their aspect ratio.
func DrawCurves(cv *Canvas, objs []*scene.Object, color lipgloss.Color) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, o := range objs {
		for _, p := range o.Line {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	w, h := cv.Dots()
	span := math.Max(maxX-minX, maxY-minY)
	if span <= 0 || math.IsInf(span, 0) {
		return
	}
	scale := math.Min(float64(w-1), float64(h-1)) / span

	for _, o := range objs {
		for i := 1; i < len(o.Line); i++ {
			a, b := o.Line[i-1], o.Line[i]
			cv.DrawLine(
				int(math.Round((a.X-minX)*scale)), h-1-int(math.Round((a.Y-minY)*scale)),
				int(math.Round((b.X-minX)*scale)), h-1-int(math.Round((b.Y-minY)*scale)),
				color,
			)
		}
	}
}
