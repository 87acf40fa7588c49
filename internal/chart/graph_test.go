package chart

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func ramp(n int, scale float64) []float64 {
	pts := make([]float64, n)
	for i := range pts {
		pts[i] = float64(i) * scale
	}
	return pts
}

var _ = Describe("Graph", func() {
	var (
		g    *Graph
		step decimal.Decimal
	)

	BeforeEach(func() {
		g = New(DefaultOptions())
		step = decimal.RequireFromString("0.1")
		g.SetUp("Levels", "s", "cm")
	})

	Describe("legend", func() {
		It("is built on the first draw after SetUp", func() {
			g.Draw([]Series{
				{Label: "H1", Color: Red, Points: []float64{1, 2}},
				{Label: "H2", Color: Green, Points: []float64{3, 4}},
			}, step)
			g.Draw([]Series{{Label: "other", Color: Blue, Points: []float64{1}}}, step)

			legend := g.Snapshot().Legend
			Expect(legend).To(HaveLen(2))
			Expect(legend[0]).To(Equal(LegendEntry{Label: "H1", Color: Red, Visible: true}))
			Expect(legend[1].Label).To(Equal("H2"))
		})

		It("is rebuilt after another SetUp", func() {
			g.Draw([]Series{{Label: "H1", Points: []float64{1}}}, step)
			g.SetUp("Angles", "s", "°")
			g.Draw([]Series{{Label: "Arm"}, {Label: "Propeller"}}, step)

			snap := g.Snapshot()
			Expect(snap.Title).To(Equal("Angles"))
			Expect(snap.Legend).To(HaveLen(2))
			Expect(snap.Legend[0].Label).To(Equal("Arm"))
		})
	})

	Describe("point cap", func() {
		It("keeps the last points and shifts the x axis", func() {
			g.Draw([]Series{{Label: "H1", Color: Red, Points: ramp(200, 1)}}, step)

			snap := g.Snapshot()
			Expect(snap.Frame.Records).To(Equal(DefaultMaxPoints))
			Expect(snap.Frame.MinX.String()).To(Equal("8"))
			Expect(snap.Frame.MaxX.String()).To(Equal("20"))
			Expect(snap.Frame.Points[0]).To(HaveLen(DefaultMaxPoints))
			Expect(snap.Count(KindConnector)).To(Equal(DefaultMaxPoints - 1))

			labels := snap.Labels(KindLabelX)
			Expect(labels).To(HaveLen(DefaultXDivisions + 1))
			Expect(labels[0]).To(Equal("8s"))
			Expect(labels[1]).To(Equal("9.5s"))
			Expect(labels[DefaultXDivisions]).To(Equal("20s"))
		})

		It("drops the same span from shorter series", func() {
			g.Draw([]Series{
				{Label: "H1", Points: ramp(200, 1)},
				{Label: "H2", Points: ramp(150, 1)},
				{Label: "H3", Points: ramp(50, 1)},
			}, step)

			frame := g.Snapshot().Frame
			Expect(frame.Points[0]).To(HaveLen(DefaultMaxPoints))
			Expect(frame.Points[1]).To(HaveLen(70))
			Expect(frame.Points[2]).To(BeEmpty())
		})

		It("starts the x axis at zero below the cap", func() {
			g.Draw([]Series{{Label: "H1", Points: ramp(50, 1)}}, step)

			labels := g.Snapshot().Labels(KindLabelX)
			Expect(labels[0]).To(Equal("0s"))
			Expect(labels[DefaultXDivisions]).To(Equal("5s"))
		})
	})

	Describe("y bounds", func() {
		It("pads a positive range and keeps zero", func() {
			g.Draw([]Series{{Label: "H1", Points: ramp(10, 1)}}, step)

			frame := g.Snapshot().Frame
			Expect(frame.YMin).To(BeZero())
			Expect(frame.YMax).To(BeNumerically("~", 9.9, 1e-9))
		})

		It("pads both sides and marks zero for a signed range", func() {
			g.Draw([]Series{{Label: "θ", Points: []float64{-5, 5}}}, step)

			snap := g.Snapshot()
			Expect(snap.Frame.YMin).To(BeNumerically("~", -5.5, 1e-9))
			Expect(snap.Frame.YMax).To(BeNumerically("~", 5.5, 1e-9))
			Expect(snap.Count(KindDashY)).To(Equal(DefaultYDivisions + 2))

			var zero []Visual
			for _, v := range snap.Visuals {
				if v.Kind == KindDashY && v.Color == Gray {
					zero = append(zero, v)
				}
			}
			Expect(zero).To(HaveLen(1))
			Expect(zero[0].Position.Y).To(BeNumerically("~", snap.Height/2, 1e-9))
		})

		It("widens a flat range to one unit", func() {
			g.Draw([]Series{{Label: "H1", Points: []float64{0, 0, 0}}}, step)

			frame := g.Snapshot().Frame
			Expect(frame.YMin).To(BeZero())
			Expect(frame.YMax).To(Equal(1.0))
			Expect(g.Snapshot().Count(KindDashY)).To(Equal(DefaultYDivisions + 1))
		})

		It("ignores non-finite values", func() {
			Expect(func() {
				g.Draw([]Series{{Label: "H1", Points: []float64{1, 2, math.Inf(1), math.NaN(), math.Inf(-1)}}}, step)
			}).NotTo(Panic())

			snap := g.Snapshot()
			Expect(snap.Frame.YMin).To(BeZero())
			Expect(snap.Frame.YMax).To(BeNumerically("~", 2.2, 1e-9))
			Expect(snap.Labels(KindLabelY)).NotTo(ContainElement(ContainSubstring("NaN")))
		})

		It("labels the y axis with rounded values", func() {
			g.Draw([]Series{{Label: "H1", Points: []float64{0, 50}}}, step)

			Expect(g.Snapshot().Labels(KindLabelY)).To(Equal([]string{
				"0cm", "11cm", "22cm", "33cm", "44cm", "55cm",
			}))
		})
	})

	Describe("connectors", func() {
		It("join consecutive points", func() {
			g.Draw([]Series{{Label: "H1", Color: Red, Points: []float64{0, 10}}}, step)

			snap := g.Snapshot()
			pts := snap.Frame.Points[0]
			Expect(pts).To(HaveLen(2))
			Expect(pts[0]).To(Equal(Vec2{X: 300, Y: 0}))

			var conn Visual
			for _, v := range snap.Visuals {
				if v.Kind == KindConnector {
					conn = v
				}
			}
			Expect(conn.Color).To(Equal(Red))
			Expect(conn.Size.Y).To(Equal(float64(connectorThickness)))
			Expect(conn.Angle).To(BeNumerically(">=", 0))
			Expect(conn.Angle).To(BeNumerically("<", 360))

			a, b := conn.Endpoints()
			Expect(a.Distance(pts[0])).To(BeNumerically("<", 1e-9))
			Expect(b.Distance(pts[1])).To(BeNumerically("<", 1e-9))
		})

		It("point downward at angles above 180", func() {
			g.Draw([]Series{{Label: "H1", Points: []float64{10, 0}}}, step)

			for _, v := range g.Snapshot().Visuals {
				if v.Kind == KindConnector {
					Expect(v.Angle).To(BeNumerically(">", 180))
				}
			}
		})
	})

	Describe("Toggle", func() {
		series := []Series{
			{Label: "H1", Color: Red, Points: ramp(20, 1)},
			{Label: "H2", Color: Green, Points: ramp(20, -2)},
		}

		It("hides and restores a series", func() {
			g.Draw(series, step)
			before := g.Snapshot()

			Expect(g.Toggle(1)).To(Succeed())
			hidden := g.Snapshot()
			Expect(hidden.Legend[1].Visible).To(BeFalse())
			Expect(hidden.Frame.Visible).To(Equal([]int{0}))
			Expect(hidden.Frame.YMin).To(BeZero())

			Expect(g.Toggle(1)).To(Succeed())
			Expect(g.Snapshot().Visuals).To(Equal(before.Visuals))
		})

		It("rejects an unknown index", func() {
			g.Draw(series, step)
			err := g.Toggle(5)
			Expect(errors.Is(err, ErrNoSuchSeries)).To(BeTrue())
		})

		It("draws only axes when every series is hidden", func() {
			g.Draw(series, step)
			Expect(g.Toggle(0)).To(Succeed())
			Expect(g.Toggle(1)).To(Succeed())

			snap := g.Snapshot()
			Expect(snap.Count(KindConnector)).To(BeZero())
			Expect(snap.Count(KindLabelX)).To(Equal(DefaultXDivisions + 1))
			Expect(snap.Frame.YMax).To(Equal(1.0))
		})
	})

	Describe("pools", func() {
		It("are warmed from the options", func() {
			st := g.PoolStats(KindConnector)
			Expect(st.Created).To(Equal((DefaultMaxPoints - 1) * 3))
			Expect(st.Active).To(BeZero())
			Expect(g.PoolStats(KindDashY).Created).To(Equal(DefaultYDivisions + 2))
		})

		It("conserve objects across redraws", func() {
			three := []Series{
				{Label: "H1", Points: ramp(300, 1)},
				{Label: "H2", Points: ramp(300, 2)},
				{Label: "H3", Points: ramp(300, 3)},
			}
			for i := 0; i < 5; i++ {
				g.Draw(three, step)
			}
			st := g.PoolStats(KindConnector)
			Expect(st.Created).To(Equal((DefaultMaxPoints - 1) * 3))
			Expect(st.Active).To(Equal(st.Created))

			g.Draw(three[:2], step)
			st = g.PoolStats(KindConnector)
			Expect(st.Active).To(Equal((DefaultMaxPoints - 1) * 2))
			Expect(st.Active + st.Free).To(Equal(st.Created))
		})

		It("grow only when a draw needs more", func() {
			four := make([]Series, 4)
			for i := range four {
				four[i] = Series{Label: "s", Points: ramp(200, 1)}
			}
			g.Draw(four, step)
			g.Draw(four, step)

			st := g.PoolStats(KindConnector)
			Expect(st.Created).To(Equal((DefaultMaxPoints - 1) * 4))
		})
	})

	Describe("Reset", func() {
		It("returns every pooled visual and is idempotent", func() {
			g.Draw([]Series{{Label: "H1", Points: ramp(40, 1)}}, step)
			g.Reset()
			g.Reset()

			for _, kind := range []Kind{KindConnector, KindLabelX, KindDashX, KindLabelY, KindDashY} {
				st := g.PoolStats(kind)
				Expect(st.Active).To(BeZero(), kind.String())
				Expect(st.Free).To(Equal(st.Created), kind.String())
			}
			snap := g.Snapshot()
			Expect(snap.Visuals).To(BeEmpty())
			Expect(snap.Legend).To(BeEmpty())
			Expect(snap.Title).To(BeEmpty())
		})
	})

	It("drops owned point markers on redraw", func() {
		opts := DefaultOptions()
		opts.ShowPoints = true
		g = New(opts)
		g.SetUp("Levels", "s", "cm")

		g.Draw([]Series{{Label: "H1", Points: ramp(10, 1)}}, step)
		g.Draw([]Series{{Label: "H1", Points: ramp(4, 1)}}, step)
		Expect(g.Snapshot().Count(KindPoint)).To(Equal(4))
	})

	It("copies the caller's series", func() {
		pts := []float64{1, 2, 3}
		g.Draw([]Series{{Label: "H1", Points: pts}}, step)
		pts[0] = 100

		Expect(g.Snapshot().Frame.YMax).To(BeNumerically("~", 3.3, 1e-9))
	})

	It("notifies on every change", func() {
		calls := 0
		g.OnChange(func() { calls++ })
		g.Draw([]Series{{Label: "H1", Points: []float64{1}}}, step)
		Expect(g.Toggle(0)).To(Succeed())
		g.Reset()
		Expect(calls).To(Equal(3))
	})
})
