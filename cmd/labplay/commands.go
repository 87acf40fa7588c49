package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/api"
	"github.com/san-kum/labplay/internal/apparatus"
	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/config"
	"github.com/san-kum/labplay/internal/csvexport"
	"github.com/san-kum/labplay/internal/export"
	"github.com/san-kum/labplay/internal/notify"
	"github.com/san-kum/labplay/internal/playback"
	"github.com/san-kum/labplay/internal/reduce"
	"github.com/san-kum/labplay/internal/share"
	"github.com/san-kum/labplay/internal/storage"
	"github.com/san-kum/labplay/internal/tui"
	"github.com/san-kum/labplay/internal/viz"
	"github.com/spf13/cobra"
)

const headlessFrame = 33 * time.Millisecond

func newClient() (*api.Client, error) {
	if current.cfg.API.BaseURL == "" {
		return nil, errors.New("no data source configured: set api.base_url or pass --api")
	}
	return api.NewClient(current.cfg.APIConfig(), current.log), nil
}

func fetchRun(cmd *cobra.Command, args []string) error {
	name, experimentID := args[0], args[1]
	client, err := newClient()
	if err != nil {
		return err
	}
	r, err := current.registry.Get(name, apparatus.Env{Logger: current.log})
	if err != nil {
		return err
	}

	overrides := map[string]string{}
	if preset != "" {
		p, ok := config.GetPreset(name, preset)
		if !ok {
			return errors.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
		for k, v := range p.Parameters {
			overrides[k] = v
		}
	}
	for k, v := range params {
		overrides[k] = v
	}

	ctx := cmd.Context()
	set, err := client.ParameterSet(ctx, experimentID)
	if err != nil {
		return err
	}
	selected := set.Selection(experimentID, overrides)

	n, err := r.Fetch(ctx, client, selected)
	if err != nil {
		return err
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	id, err := current.store.Save(storage.RunMetadata{
		Apparatus:    name,
		ExperimentID: experimentID,
		Parameters:   selected,
		Records:      n,
	}, data)
	if err != nil {
		return err
	}

	fmt.Printf("run saved: %s (%d records)\n", id, n)
	return nil
}

func listExperiments(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	controllers, err := client.Catalog(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(controllers) == 0 {
		fmt.Printf("no experiments for %s\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCONTROLLER\tINPUTS\tDOCS")
	for _, c := range controllers {
		var inputs []string
		for _, in := range c.Parameters.Visible() {
			inputs = append(inputs, in.SchemaVar+"="+in.Initial())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			c.ExperimentID,
			c.Name,
			strings.Join(inputs, " "),
			c.Parameters.DocumentationLink(client.BaseURL()),
		)
	}
	return w.Flush()
}

// loadRun restores a cached run into a fresh runner bound to env.
func loadRun(runID string, env apparatus.Env) (apparatus.Runner, *storage.RunMetadata, error) {
	meta, err := current.store.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	data, err := current.store.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	if env.Logger == nil {
		env.Logger = current.log
	}
	r, err := current.registry.Get(meta.Apparatus, env)
	if err != nil {
		return nil, nil, err
	}
	if _, err := r.Load(data); err != nil {
		return nil, nil, errors.Wrapf(err, "run %s", runID)
	}
	return r, meta, nil
}

func playRun(cmd *cobra.Command, args []string) error {
	cfg := current.cfg
	graph := chart.New(cfg.ChartOptions())
	sink := share.NewSink(share.DirTarget{Dir: cfg.ExportDir})
	env := apparatus.Env{
		Chart:        graph,
		Share:        sink,
		Exporter:     csvexport.New(cfg.ExportDir),
		DrawInterval: cfg.Playback.DrawInterval,
	}

	if headless {
		env.Notifier = notify.Log{Logger: current.log}
		r, meta, err := loadRun(args[0], env)
		if err != nil {
			return err
		}
		return playHeadless(cmd.Context(), r, sink, playback.Params{Selected: meta.Parameters})
	}

	closer, err := logFile()
	if err != nil {
		return err
	}
	defer closer.Close()

	toasts := tui.NewToaster()
	env.Notifier = toasts
	r, meta, err := loadRun(args[0], env)
	if err != nil {
		return err
	}
	defer r.Stop()
	return tui.Run(cmd.Context(), tui.Options{
		Runner: r,
		Chart:  graph,
		Share:  sink,
		Toasts: toasts,
		Params: playback.Params{Selected: meta.Parameters},
		Theme:  viz.GetTheme(theme),
	})
}

// playHeadless hosts the frame loop itself so tweens and stop sequences still
// complete, then returns once the scene is idle. Runs too short to play are
// not failures; the notifier has already reported them.
func playHeadless(ctx context.Context, r apparatus.Runner, sink *share.Sink, params playback.Params) error {
	run, err := r.Start(ctx, params)
	if errors.Is(err, playback.ErrNoData) || errors.Is(err, reduce.ErrNoPositiveStep) {
		return nil
	}
	if err != nil {
		return err
	}
	defer r.Stop()

	sc := r.Scene()
	ticker := time.NewTicker(headlessFrame)
	defer ticker.Stop()
	last := time.Now()

loop:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			sc.Advance(now.Sub(last))
			last = now
			select {
			case <-run.Done():
				if sc.Tweens() == 0 {
					break loop
				}
			default:
			}
		}
	}

	st := run.Stats()
	fmt.Printf("played %d records (%d skipped), %d chart batches\n", st.Applied, st.Skipped, st.Draws)

	if doShare {
		res, err := sink.Share(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("shared %d files to %s\n", len(res.Request.Files), res.Target)
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	r, meta, err := loadRun(args[0], apparatus.Env{})
	if err != nil {
		return err
	}
	series, _, err := r.Series()
	if err != nil {
		return err
	}

	info := r.Info()
	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("apparatus: %s\n\n", meta.Apparatus)
	out := viz.Plot(series, width, height, fmt.Sprintf("%s (%s over %s)", info.Chart.Title, info.Chart.YUnit, info.Chart.XUnit))
	if out == "" {
		return errors.New("no data to plot")
	}
	fmt.Println(out)
	return nil
}

func reduceRun(cmd *cobra.Command, args []string) error {
	r, meta, err := loadRun(args[0], apparatus.Env{})
	if err != nil {
		return err
	}
	s, err := r.Summary()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", meta.ID)
	fmt.Fprintf(w, "records\t%d\n", s.Records)
	fmt.Fprintf(w, "duration\t%ss\n", s.Duration)
	fmt.Fprintf(w, "native step\t%ss\n", s.NativeStep)
	fmt.Fprintf(w, "chart step\t%ss\n", s.ChartStep)
	fmt.Fprintf(w, "chart records\t%d (every %d)\n", s.ChartRecords, s.Every)
	return w.Flush()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	r, meta, err := loadRun(args[0], apparatus.Env{Exporter: csvexport.New(current.cfg.ExportDir)})
	if err != nil {
		return err
	}
	paths, err := r.Export(playback.Params{Selected: meta.Parameters})
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("exported: %s\n", p)
	}
	return nil
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	graph := chart.New(current.cfg.ChartOptions())
	r, _, err := loadRun(args[0], apparatus.Env{Chart: graph})
	if err != nil {
		return err
	}
	series, step, err := r.Series()
	if err != nil {
		return err
	}

	spec := r.Info().Chart
	graph.SetUp(spec.Title, spec.XUnit, spec.YUnit)
	graph.Draw(series, step)
	snap := graph.Snapshot()

	if err := os.WriteFile(output, []byte(export.ChartToSVG(snap)), 0644); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	fmt.Printf("snapshot written to %s\n", output)

	if raster != "" {
		th := viz.GetTheme(theme)
		cv := viz.PlotCanvas(snap, width, height, th)
		if err := os.WriteFile(raster, []byte(export.CanvasToSVG(cv, 4, string(th.Accent))), 0644); err != nil {
			return errors.Wrap(err, "write raster")
		}
		fmt.Printf("raster written to %s\n", raster)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := current.store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAPPARATUS\tEXPERIMENT\tTIME\tRECORDS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			run.ID,
			run.Apparatus,
			run.ExperimentID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Records,
		)
	}
	return w.Flush()
}

func describeApparatus(cmd *cobra.Command, args []string) error {
	names := current.registry.List()
	if len(args) == 1 {
		names = args
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCHART\tSERIES\tCOLUMNS\tTAGS")
	for _, name := range names {
		r, err := current.registry.Get(name, apparatus.Env{Logger: current.log})
		if err != nil {
			return err
		}
		info := r.Info()
		fmt.Fprintf(w, "%s\t%s (%s/%s)\t%s\t%s\t%s\n",
			info.Name,
			info.Chart.Title, info.Chart.YUnit, info.Chart.XUnit,
			strings.Join(info.Series, ","),
			strings.Join(info.Columns, ","),
			strings.Join(info.Tags, ","),
		)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.ListPresets(args[0])
	if len(names) == 0 {
		fmt.Printf("no presets for apparatus: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, name := range names {
		p, _ := config.GetPreset(args[0], name)
		fmt.Printf("  %-10s %s\n", name, p.Description)
	}
	return nil
}
