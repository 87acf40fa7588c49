package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille dots per cell:
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells. Dot coordinates run from the top-left,
// Width*2 across and Height*4 down. The last colour set in a cell wins.
type Canvas struct {
	Width, Height int
	grid          [][]rune
	colors        [][]lipgloss.Color
}

func NewCanvas(w, h int) *Canvas {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	c := &Canvas{Width: w, Height: h, grid: make([][]rune, h), colors: make([][]lipgloss.Color, h)}
	for i := range c.grid {
		c.grid[i] = make([]rune, w)
		c.colors[i] = make([]lipgloss.Color, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

// Set lights the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int, color lipgloss.Color) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	if c.grid[row][col] < blank {
		c.grid[row][col] = blank
	}
	c.grid[row][col] |= pixelMap[y%4][x%2]
	if color != "" {
		c.colors[row][col] = color
	}
}

// Lit reports whether the dot at (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	r := c.grid[y/4][x/2]
	return r >= blank && r <= blank+0xff && r&pixelMap[y%4][x%2] != 0
}

// Text writes s into a row starting at col, replacing the cells it covers.
func (c *Canvas) Text(col, row int, s string, color lipgloss.Color) {
	if row < 0 || row >= c.Height {
		return
	}
	for _, r := range s {
		if col >= 0 && col < c.Width {
			c.grid[row][col] = r
			c.colors[row][col] = color
		}
		col++
	}
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = blank
			c.colors[i][j] = ""
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, color lipgloss.Color) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0, color)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Row returns one row with colours applied.
func (c *Canvas) Row(row int) string {
	var b strings.Builder
	cells := c.grid[row]
	for i := 0; i < len(cells); {
		j := i + 1
		for j < len(cells) && c.colors[row][j] == c.colors[row][i] {
			j++
		}
		run := string(cells[i:j])
		if color := c.colors[row][i]; color != "" {
			run = lipgloss.NewStyle().Foreground(color).Render(run)
		}
		b.WriteString(run)
		i = j
	}
	return b.String()
}

// Render returns every row with colours applied.
func (c *Canvas) Render() string {
	rows := make([]string, c.Height)
	for i := range rows {
		rows[i] = c.Row(i)
	}
	return strings.Join(rows, "\n")
}

// String returns the plain runes without colour.
func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
