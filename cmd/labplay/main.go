package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/apparatus"
	"github.com/san-kum/labplay/internal/config"
	"github.com/san-kum/labplay/internal/logging"
	"github.com/san-kum/labplay/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	dataDir    string
	exportDir  string
	baseURL    string

	params   map[string]string
	preset   string
	headless bool
	doShare  bool
	theme    string
	width    int
	height   int
	output   string
	raster   string
)

// app is built once per invocation from the config file and global flags.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    *storage.Store
	registry *apparatus.Registry
}

var current app

func main() {
	rootCmd := &cobra.Command{
		Use:           "labplay",
		Short:         "replay lab apparatus simulations in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, os.Stderr)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "run cache directory")
	rootCmd.PersistentFlags().StringVar(&exportDir, "export", config.DefaultExportDir, "export directory")

	fetchCmd := &cobra.Command{
		Use:   "fetch [apparatus] [experiment_id]",
		Short: "run a simulation on the data source and cache it",
		Args:  cobra.ExactArgs(2),
		RunE:  fetchRun,
	}
	fetchCmd.Flags().StringVar(&baseURL, "api", "", "data source base URL")
	fetchCmd.Flags().StringToStringVarP(&params, "param", "p", nil, "input parameter override (name=value)")
	fetchCmd.Flags().StringVar(&preset, "preset", "", "apply a parameter preset before overrides")

	experimentsCmd := &cobra.Command{
		Use:   "experiments [apparatus]",
		Short: "list the experiments the data source offers",
		Args:  cobra.ExactArgs(1),
		RunE:  listExperiments,
	}
	experimentsCmd.Flags().StringVar(&baseURL, "api", "", "data source base URL")

	playCmd := &cobra.Command{
		Use:   "play [run_id]",
		Short: "play a cached run",
		Args:  cobra.ExactArgs(1),
		RunE:  playRun,
	}
	playCmd.Flags().BoolVar(&headless, "headless", false, "play without the terminal view")
	playCmd.Flags().BoolVar(&doShare, "share", false, "share the run files when a headless run finishes")
	playCmd.Flags().StringVar(&theme, "theme", "lab", "terminal theme")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the chart series of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&width, "width", 70, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 15, "plot height")

	reduceCmd := &cobra.Command{
		Use:   "reduce [run_id]",
		Short: "show how a run is reduced for the chart",
		Args:  cobra.ExactArgs(1),
		RunE:  reduceRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run parameters and data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [run_id]",
		Short: "render the full chart of a run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotRun,
	}
	snapshotCmd.Flags().StringVarP(&output, "output", "o", "chart.svg", "SVG output path")
	snapshotCmd.Flags().StringVar(&raster, "raster", "", "also write the braille rendering as SVG")
	snapshotCmd.Flags().IntVar(&width, "width", 100, "raster width in cells")
	snapshotCmd.Flags().IntVar(&height, "height", 25, "raster height in cells")
	snapshotCmd.Flags().StringVar(&theme, "theme", "lab", "raster theme")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list cached runs",
		RunE:  listRuns,
	}

	apparatusCmd := &cobra.Command{
		Use:   "apparatus [name]",
		Short: "describe the registered apparatus",
		Args:  cobra.MaximumNArgs(1),
		RunE:  describeApparatus,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [apparatus]",
		Short: "list parameter presets for an apparatus",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(fetchCmd, experimentsCmd, playCmd, plotCmd, reduceCmd, exportCSVCmd, snapshotCmd, listCmd, apparatusCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the config and lets explicitly set flags override it.
func setup(cmd *cobra.Command, logOut io.Writer) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("export") {
		cfg.ExportDir = exportDir
	}
	if flags.Changed("api") {
		cfg.API.BaseURL = baseURL
	}

	log, err := logging.New(cfg.LogLevel, logOut)
	if err != nil {
		return err
	}

	current = app{
		cfg:      cfg,
		log:      log,
		store:    storage.New(cfg.DataDir),
		registry: apparatus.NewRegistry(),
	}
	return nil
}

// logFile redirects logging away from the terminal while the full-screen
// view owns it.
func logFile() (io.Closer, error) {
	dir := filepath.Dir(current.cfg.DataDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}
	f, err := os.OpenFile(filepath.Join(dir, "labplay.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	current.log.SetOutput(f)
	return f, nil
}
