package playback

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/csvexport"
	"github.com/san-kum/labplay/internal/notify"
	"github.com/san-kum/labplay/internal/reduce"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/san-kum/labplay/internal/scene"
	"github.com/san-kum/labplay/internal/share"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type rec struct {
	T sample.Text
	V sample.Text
}

func (r rec) TimeText() string { return string(r.T) }

func recs(pairs ...string) []rec {
	out := make([]rec, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, rec{T: sample.Text(pairs[i]), V: sample.Text(pairs[i+1])})
	}
	return out
}

func ramp(n int, step string) []rec {
	d := decimal.RequireFromString(step)
	out := make([]rec, n)
	for i := range out {
		out[i] = rec{T: sample.Text(d.Mul(decimal.NewFromInt(int64(i))).String()), V: "1"}
	}
	return out
}

type fakeDriver struct {
	clock      Clock
	hold       time.Duration
	prepareErr error
	onPrepare  func()

	mu       sync.Mutex
	applied  []time.Time
	finished int
}

func (d *fakeDriver) Name() string   { return "fake" }
func (d *fakeDriver) Tags() []string { return []string{"arm", "missing"} }

func (d *fakeDriver) Apply(r rec, roles scene.Roles) error {
	v, err := sample.ParseFloat("v", r.V)
	if err != nil {
		return err
	}
	for _, arm := range roles.Get("arm") {
		arm.Transform.Rotation.Z = v
	}
	d.mu.Lock()
	d.applied = append(d.applied, d.clock.Now())
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) Chart() ChartSpec {
	return ChartSpec{Title: "Fake", XUnit: "s", YUnit: "cm"}
}

func (d *fakeDriver) Channels() []Channel[rec] {
	return []Channel[rec]{{
		Label: "V",
		Color: chart.Red,
		Value: func(r rec) (float64, error) { return sample.ParseFloat("v", r.V) },
	}}
}

func (d *fakeDriver) Schema() csvexport.Schema[rec] {
	return csvexport.Schema[rec]{
		{Name: "time", Value: func(r rec) string { return string(r.T) }},
		{Name: "v", Value: func(r rec) string { return string(r.V) }},
	}
}

func (d *fakeDriver) Prepare(*scene.Scene, scene.Roles, []rec, Params) (time.Duration, error) {
	if d.onPrepare != nil {
		d.onPrepare()
	}
	return d.hold, d.prepareErr
}

func (d *fakeDriver) Finish(*scene.Scene, scene.Roles) {
	d.mu.Lock()
	d.finished++
	d.mu.Unlock()
}

func (d *fakeDriver) ShareSubject() string { return "Fake data" }
func (d *fakeDriver) ShareText() string    { return "" }

func (d *fakeDriver) appliedAt() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.applied...)
}

func (d *fakeDriver) finishCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finished
}

// drive advances the clock whenever every running task is asleep, until the
// run ends.
func drive(clock *ManualClock, p *Player[rec], run *Run) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-run.Done():
			return
		default:
		}
		if n := clock.Waiters(); n > 0 && n >= p.ActiveTasks() {
			clock.AdvanceToNext()
			continue
		}
		time.Sleep(100 * time.Microsecond)
	}
	Fail("playback did not finish")
}

var _ = Describe("Player", func() {
	var (
		t0       time.Time
		clock    *ManualClock
		driver   *fakeDriver
		graph    *chart.Graph
		notes    *notify.Recorder
		sink     *share.Sink
		exporter *csvexport.Exporter
		sc       *scene.Scene
		arm      *scene.Object
		player   *Player[rec]
		params   Params
	)

	BeforeEach(func() {
		t0 = time.Unix(1000, 0)
		clock = NewManualClock(t0)
		driver = &fakeDriver{clock: clock}
		graph = chart.New(chart.DefaultOptions())
		notes = &notify.Recorder{}
		sink = share.NewSink(share.DirTarget{Dir: GinkgoT().TempDir()})
		exporter = csvexport.New(GinkgoT().TempDir())

		arm = scene.NewObject("arm", "arm")
		sc = scene.New(scene.NewObject("rig", "").Add(arm))

		logger := logrus.New()
		logger.SetOutput(io.Discard)

		player = NewPlayer[rec](driver, Deps{
			Scene:    sc,
			Chart:    graph,
			Notifier: notes,
			Share:    sink,
			Exporter: exporter,
			Clock:    clock,
			Logger:   logger,
		})
		params = Params{Selected: map[string]string{"id": "7", "V1": "40"}}
	})

	Describe("degenerate input", func() {
		DescribeTable("rejects short runs with one notice",
			func(records []rec) {
				run, err := player.Start(context.Background(), records, params)
				Expect(run).To(BeNil())
				Expect(errors.Is(err, ErrNoData)).To(BeTrue())

				Expect(notes.Messages()).To(HaveLen(1))
				Expect(notes.Messages()[0].Text).To(Equal(MsgNoData))
				Expect(player.ActiveTasks()).To(BeZero())
				Expect(driver.appliedAt()).To(BeEmpty())
				Expect(arm.Transform.Rotation.Z).To(BeZero())
				Expect(sink.Armed()).To(BeFalse())
			},
			Entry("nil", nil),
			Entry("one record", recs("0", "1")),
			Entry("two records", recs("0", "1", "0.1", "2")),
		)

		It("rejects records without a positive time step", func() {
			run, err := player.Start(context.Background(), recs("0", "1", "0", "2", "0", "3"), params)
			Expect(run).To(BeNil())
			Expect(errors.Is(err, reduce.ErrNoPositiveStep)).To(BeTrue())
			Expect(notes.Messages()).To(HaveLen(1))
			Expect(notes.Messages()[0].Text).To(Equal(MsgNoTimeStep))
			Expect(player.ActiveTasks()).To(BeZero())
		})

		It("aborts when the start sequence fails", func() {
			driver.prepareErr = errors.New("valve V1 has no opening")
			_, err := player.Start(context.Background(), ramp(5, "0.5"), params)
			Expect(err).To(HaveOccurred())
			Expect(notes.Messages()[0].Text).To(ContainSubstring("valve V1"))
			Expect(player.ActiveTasks()).To(BeZero())
		})
	})

	Describe("timing", func() {
		It("applies records at their timestamps", func() {
			records := recs("0", "1", "0.25", "2", "0.5", "3", "1.5", "4", "1.75", "5")
			run, err := player.Start(context.Background(), records, params)
			Expect(err).NotTo(HaveOccurred())
			drive(clock, player, run)

			applied := driver.appliedAt()
			Expect(applied).To(HaveLen(5))
			offsets := make([]time.Duration, len(applied))
			for i, at := range applied {
				offsets[i] = at.Sub(applied[0])
			}
			Expect(offsets).To(Equal([]time.Duration{
				0, 250 * time.Millisecond, 500 * time.Millisecond, 1500 * time.Millisecond, 1750 * time.Millisecond,
			}))
			Expect(arm.Transform.Rotation.Z).To(Equal(5.0))
			Expect(driver.finishCount()).To(Equal(1))
			Expect(run.Stats().Applied).To(Equal(5))
		})

		It("measures from the first record when it is not at zero", func() {
			run, err := player.Start(context.Background(), recs("2", "1", "2.5", "1", "4", "1"), params)
			Expect(err).NotTo(HaveOccurred())
			drive(clock, player, run)

			applied := driver.appliedAt()
			Expect(applied[0]).To(Equal(t0))
			Expect(applied[2].Sub(applied[0])).To(Equal(2 * time.Second))
		})

		It("holds the first record for the start sequence", func() {
			driver.hold = 1500 * time.Millisecond
			run, err := player.Start(context.Background(), ramp(4, "0.5"), params)
			Expect(err).NotTo(HaveOccurred())
			drive(clock, player, run)

			applied := driver.appliedAt()
			Expect(applied[0]).To(Equal(t0.Add(1500 * time.Millisecond)))
			Expect(applied[3].Sub(applied[0])).To(Equal(1500 * time.Millisecond))
		})

		It("skips unreadable records and keeps the timeline", func() {
			records := recs("0", "1", "0.5", "oops", "1", "3", "", "4", "1.5", "5")
			run, err := player.Start(context.Background(), records, params)
			Expect(err).NotTo(HaveOccurred())
			drive(clock, player, run)

			stats := run.Stats()
			Expect(stats.Applied).To(Equal(3))
			Expect(stats.Skipped).To(Equal(2))

			applied := driver.appliedAt()
			Expect(applied[1].Sub(applied[0])).To(Equal(time.Second))
			Expect(applied[2].Sub(applied[0])).To(Equal(1500 * time.Millisecond))
		})
	})

	Describe("chart task", func() {
		It("draws the reduced series", func() {
			run, err := player.Start(context.Background(), ramp(51, "0.02"), params)
			Expect(err).NotTo(HaveOccurred())
			drive(clock, player, run)

			snap := graph.Snapshot()
			Expect(snap.Title).To(Equal("Fake"))
			Expect(snap.Legend).To(HaveLen(1))
			Expect(snap.Legend[0].Label).To(Equal("V"))
			Expect(snap.Frame.Records).To(Equal(11))
			Expect(snap.Frame.MaxX.String()).To(Equal("1.1"))
			Expect(run.Stats().Draws).To(Equal(1))
		})

		It("redraws once per interval with growing batches", func() {
			run, err := player.Start(context.Background(), ramp(31, "0.1"), params)
			Expect(err).NotTo(HaveOccurred())
			drive(clock, player, run)

			Expect(run.Stats().Draws).To(Equal(3))
			Expect(graph.Snapshot().Frame.Records).To(Equal(31))
		})

		It("drops rows with unreadable channels", func() {
			records := recs("0", "1", "0.5", "x", "1", "3", "1.5", "4")
			run, err := player.Start(context.Background(), records, params)
			Expect(err).NotTo(HaveOccurred())
			drive(clock, player, run)

			Expect(graph.Snapshot().Frame.Records).To(Equal(3))
		})
	})

	Describe("cancellation", func() {
		It("keeps exactly one task pair running", func() {
			first, err := player.Start(context.Background(), ramp(100, "1"), params)
			Expect(err).NotTo(HaveOccurred())
			Expect(player.ActiveTasks()).To(Equal(2))

			second, err := player.Start(context.Background(), ramp(100, "1"), params)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Done()).To(BeClosed())
			Expect(player.ActiveTasks()).To(Equal(2))
			Expect(player.Current()).To(BeIdenticalTo(second))

			second.Cancel()
			Expect(player.ActiveTasks()).To(BeZero())
			Expect(driver.finishCount()).To(BeZero())
		})

		It("stops a run that is still starting", func() {
			stopped := make(chan struct{})
			driver.onPrepare = func() {
				go func() {
					player.Stop()
					close(stopped)
				}()
				Consistently(stopped, 50*time.Millisecond).ShouldNot(BeClosed())
			}

			run, err := player.Start(context.Background(), ramp(100, "1"), params)
			Expect(err).NotTo(HaveOccurred())

			Eventually(stopped).Should(BeClosed())
			Expect(run.Done()).To(BeClosed())
			Expect(player.ActiveTasks()).To(BeZero())
		})

		It("stops when the parent context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			run, err := player.Start(ctx, ramp(100, "1"), params)
			Expect(err).NotTo(HaveOccurred())

			cancel()
			Eventually(run.Done()).Should(BeClosed())
			Expect(player.ActiveTasks()).To(BeZero())
		})
	})

	Describe("sharing", func() {
		It("arms the sink without exporting", func() {
			run, err := player.Start(context.Background(), ramp(5, "0.5"), params)
			Expect(err).NotTo(HaveOccurred())
			defer run.Cancel()

			Expect(sink.Armed()).To(BeTrue())
			entries, err := os.ReadDir(exporter.Dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())

			res, err := sink.Share(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Request.Subject).To(Equal("Fake data"))
			Expect(res.Request.Files).To(HaveLen(2))

			rows, err := csvexport.ReadAll(res.Request.Files[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([][]string{{"V1"}, {"40"}}))

			data, err := os.ReadFile(res.Request.Files[1])
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Split(strings.TrimSpace(string(data)), "\n")).To(HaveLen(6))
		})
	})
})
