package chart

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/pool"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxPoints  = 120
	DefaultXDivisions = 8
	DefaultYDivisions = 5

	// warmSeries sizes the connector pool for the widest built-in apparatus.
	warmSeries = 3

	connectorThickness = 5
	pointSize          = 20
	labelOffsetX       = -20
	labelOffsetY       = -30
	dashOffset         = -3
	yPadding           = 1.1
)

// ErrNoSuchSeries is returned when toggling a legend entry that does not exist.
var ErrNoSuchSeries = errors.New("chart: no such series")

type Options struct {
	Width      float64
	Height     float64
	MaxPoints  int
	XDivisions int
	YDivisions int
	ShowPoints bool
}

func DefaultOptions() Options {
	return Options{
		Width:      600,
		Height:     300,
		MaxPoints:  DefaultMaxPoints,
		XDivisions: DefaultXDivisions,
		YDivisions: DefaultYDivisions,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.MaxPoints <= 1 {
		o.MaxPoints = d.MaxPoints
	}
	if o.XDivisions <= 0 {
		o.XDivisions = d.XDivisions
	}
	if o.YDivisions <= 0 {
		o.YDivisions = d.YDivisions
	}
	return o
}

// Frame summarises the last layout: the visible window and where each visible
// series' points landed.
type Frame struct {
	Records int
	MinX    decimal.Decimal
	MaxX    decimal.Decimal
	YMin    float64
	YMax    float64
	Visible []int
	Points  map[int][]Vec2
}

// Graph renders line series against shared axes. All methods are safe for
// concurrent use; legend toggles may arrive from a UI goroutine while a
// playback task draws.
type Graph struct {
	mu   sync.Mutex
	opts Options

	pools  *pool.Manager[Kind, *Visual]
	pooled []*Visual
	owned  []*Visual

	title  string
	xUnit  string
	yUnit  string
	series []Series
	xStep  decimal.Decimal
	legend []LegendEntry
	fresh  bool
	frame  Frame

	onChange func()
}

// New creates a graph and warms its pools from the axis division counts and
// the point cap.
func New(opts Options) *Graph {
	opts = opts.withDefaults()
	g := &Graph{
		opts:  opts,
		pools: pool.NewManager(func(v *Visual) Kind { return v.Kind }),
	}

	capacity := map[Kind]int{
		KindConnector: (opts.MaxPoints - 1) * warmSeries,
		KindLabelX:    opts.XDivisions + 1,
		KindDashX:     opts.XDivisions + 1,
		KindLabelY:    opts.YDivisions + 1,
		KindDashY:     opts.YDivisions + 2,
	}
	for kind, n := range capacity {
		kind := kind
		g.pools.Create(kind, n, func() *Visual { return &Visual{Kind: kind} }, deactivate)
	}
	return g
}

func deactivate(v *Visual) {
	*v = Visual{Kind: v.Kind}
}

func (g *Graph) Options() Options {
	return g.opts
}

// OnChange registers fn to be called after every redraw, outside the lock.
func (g *Graph) OnChange(fn func()) {
	g.mu.Lock()
	g.onChange = fn
	g.mu.Unlock()
}

// SetUp starts a new chart session: the legend and series are cleared and
// the next Draw rebuilds the legend.
func (g *Graph) SetUp(title, xUnit, yUnit string) {
	g.mu.Lock()
	g.fresh = true
	g.legend = nil
	g.title = title
	g.xUnit = xUnit
	g.yUnit = yUnit
	g.xStep = decimal.Zero
	g.series = nil
	g.mu.Unlock()
	g.changed()
}

// Draw replaces the chart contents with series sampled every xStep seconds.
// The caller keeps ownership of series; Draw copies the points.
func (g *Graph) Draw(series []Series, xStep decimal.Decimal) {
	g.mu.Lock()
	if g.fresh {
		g.legend = make([]LegendEntry, len(series))
		for i, s := range series {
			g.legend[i] = LegendEntry{Label: s.Label, Color: s.Color, Visible: true}
		}
		g.fresh = false
	}

	g.series = make([]Series, len(series))
	for i, s := range series {
		g.series[i] = s.clone()
	}
	g.xStep = xStep
	g.layout()
	g.mu.Unlock()
	g.changed()
}

// Toggle flips the visibility of series i and redraws with the last series.
func (g *Graph) Toggle(i int) error {
	g.mu.Lock()
	if i < 0 || i >= len(g.legend) {
		g.mu.Unlock()
		return errors.Wrapf(ErrNoSuchSeries, "index %d", i)
	}
	g.legend[i].Visible = !g.legend[i].Visible
	g.layout()
	g.mu.Unlock()
	g.changed()
	return nil
}

// Reset returns all pooled visuals, drops owned visuals and the legend, and
// clears the title and series. Reset is idempotent.
func (g *Graph) Reset() {
	g.mu.Lock()
	g.release()
	g.legend = nil
	g.series = nil
	g.title = ""
	g.xUnit = ""
	g.yUnit = ""
	g.xStep = decimal.Zero
	g.fresh = false
	g.frame = Frame{}
	g.mu.Unlock()
	g.changed()
}

// PoolStats reports the pool of one primitive kind.
func (g *Graph) PoolStats(kind Kind) pool.Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pools.Stats(kind)
}

func (g *Graph) changed() {
	g.mu.Lock()
	fn := g.onChange
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (g *Graph) release() {
	g.pools.ReturnAll(g.pooled)
	g.pooled = g.pooled[:0]
	g.owned = nil
}

func (g *Graph) borrow(kind Kind) *Visual {
	v, ok := g.pools.Get(kind)
	if !ok {
		v = &Visual{Kind: kind}
	}
	v.Active = true
	g.pooled = append(g.pooled, v)
	return v
}

func (g *Graph) visible(i int) bool {
	if i >= len(g.legend) {
		return true
	}
	return g.legend[i].Visible
}

// layout rebuilds every visual from g.series. Callers hold g.mu.
func (g *Graph) layout() {
	g.release()

	records := 0
	for _, s := range g.series {
		if len(s.Points) > records {
			records = len(s.Points)
		}
	}

	maxX := decimal.NewFromInt(int64(records)).Mul(g.xStep)
	minX := decimal.Zero
	windows := make([][]float64, len(g.series))
	for i, s := range g.series {
		windows[i] = s.Points
	}
	if records > g.opts.MaxPoints {
		dropped := records - g.opts.MaxPoints
		// every series loses the same span so all stay aligned with the x axis
		for i, pts := range windows {
			windows[i] = pts[min(dropped, len(pts)):]
		}
		minX = decimal.NewFromInt(int64(dropped)).Mul(g.xStep)
		records = g.opts.MaxPoints
	}

	var active []int
	for i := range windows {
		if g.visible(i) {
			active = append(active, i)
		}
	}

	yMin, yMax := bounds(windows, active)

	g.frame = Frame{
		Records: records,
		MinX:    minX,
		MaxX:    maxX,
		YMin:    yMin,
		YMax:    yMax,
		Visible: active,
		Points:  make(map[int][]Vec2, len(active)),
	}

	if records > 0 {
		xSize := g.opts.Width / float64(records)
		for _, si := range active {
			pts := windows[si]
			placed := make([]Vec2, 0, len(pts))
			for i, v := range pts {
				p := Vec2{
					X: xSize + float64(i)*xSize,
					Y: (v - yMin) / (yMax - yMin) * g.opts.Height,
				}
				if g.opts.ShowPoints {
					g.owned = append(g.owned, &Visual{
						Kind: KindPoint, Active: true, Position: p,
						Size: Vec2{pointSize, pointSize}, Color: g.series[si].Color, Series: si,
					})
				}
				if i > 0 {
					g.connect(si, g.series[si].Color, placed[i-1], p)
				}
				placed = append(placed, p)
			}
			g.frame.Points[si] = placed
		}
	}

	g.axisX(minX, maxX)
	g.axisY(yMin, yMax)
}

func (g *Graph) connect(series int, color Color, a, b Vec2) {
	dir := b.Sub(a).Normalized()
	dist := a.Distance(b)
	v := g.borrow(KindConnector)
	v.Color = color
	v.Series = series
	v.Size = Vec2{dist, connectorThickness}
	v.Position = a.Add(dir.Scale(dist * 0.5))
	v.Angle = angleOf(dir)
}

func (g *Graph) axisX(minX, maxX decimal.Decimal) {
	div := decimal.NewFromInt(int64(g.opts.XDivisions))
	span := maxX.Sub(minX)
	for i := 0; i <= g.opts.XDivisions; i++ {
		n := decimal.NewFromInt(int64(i)).Div(div)
		x := n.InexactFloat64() * g.opts.Width

		label := g.borrow(KindLabelX)
		label.Position = Vec2{x, labelOffsetX}
		label.Text = span.Mul(n).Add(minX).Round(1).String() + g.xUnit

		dash := g.borrow(KindDashX)
		dash.Position = Vec2{x, dashOffset}
	}
}

func (g *Graph) axisY(yMin, yMax float64) {
	for i := 0; i <= g.opts.YDivisions; i++ {
		n := float64(i) / float64(g.opts.YDivisions)
		y := n * g.opts.Height

		label := g.borrow(KindLabelY)
		label.Position = Vec2{labelOffsetY, y}
		label.Text = formatInt(math.RoundToEven((yMax-yMin)*n+yMin)) + g.yUnit

		dash := g.borrow(KindDashY)
		dash.Position = Vec2{dashOffset, y}
	}

	if yMin != 0 {
		zero := g.borrow(KindDashY)
		zero.Color = Gray
		zero.Position = Vec2{dashOffset, (0 - yMin) / (yMax - yMin) * g.opts.Height}
	}
}

// bounds returns the padded Y range of the active series. Zero is always part
// of the range; each extreme is pushed 10% away from zero. Non-finite values
// are ignored.
func bounds(windows [][]float64, active []int) (float64, float64) {
	yMax, yMin := 0.0, 0.0
	for _, i := range active {
		for _, v := range windows[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v > yMax {
				yMax = v
			}
			if v < yMin {
				yMin = v
			}
		}
	}
	if yMax >= 0 {
		yMax *= yPadding
	} else {
		yMax /= yPadding
	}
	if yMin >= 0 {
		yMin /= yPadding
	} else {
		yMin *= yPadding
	}
	if yMax == yMin {
		yMax = yMin + 1
	}
	return yMin, yMax
}

func formatInt(v float64) string {
	if v == 0 {
		// avoid "-0"
		return "0"
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "?"
	}
	return decimal.NewFromFloat(v).String()
}

// Snapshot is a copy of the chart state handed to renderers.
type Snapshot struct {
	Title   string
	XUnit   string
	YUnit   string
	Width   float64
	Height  float64
	Legend  []LegendEntry
	Visuals []Visual
	Frame   Frame
}

// Snapshot copies the active visuals, legend and last frame.
func (g *Graph) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		Title:  g.title,
		XUnit:  g.xUnit,
		YUnit:  g.yUnit,
		Width:  g.opts.Width,
		Height: g.opts.Height,
		Legend: append([]LegendEntry(nil), g.legend...),
	}
	s.Visuals = make([]Visual, 0, len(g.pooled)+len(g.owned))
	for _, v := range g.pooled {
		s.Visuals = append(s.Visuals, *v)
	}
	for _, v := range g.owned {
		s.Visuals = append(s.Visuals, *v)
	}

	s.Frame = g.frame
	s.Frame.Visible = append([]int(nil), g.frame.Visible...)
	s.Frame.Points = make(map[int][]Vec2, len(g.frame.Points))
	for k, pts := range g.frame.Points {
		s.Frame.Points[k] = append([]Vec2(nil), pts...)
	}
	return s
}

// Count returns the number of visuals of kind in the snapshot.
func (s Snapshot) Count(kind Kind) int {
	n := 0
	for _, v := range s.Visuals {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

// Labels returns the label texts of kind in drawing order.
func (s Snapshot) Labels(kind Kind) []string {
	var out []string
	for _, v := range s.Visuals {
		if v.Kind == kind {
			out = append(out, v.Text)
		}
	}
	return out
}
