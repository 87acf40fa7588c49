package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/api"
	"github.com/san-kum/labplay/internal/chart"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDataDir      = ".labplay/runs"
	DefaultExportDir    = ".labplay/export"
	DefaultLogLevel     = "info"
	DefaultDrawInterval = time.Second
	DefaultTimeout      = 30 * time.Second
)

type Config struct {
	API       APIConfig      `yaml:"api"`
	DataDir   string         `yaml:"data_dir"`
	ExportDir string         `yaml:"export_dir"`
	LogLevel  string         `yaml:"log_level"`
	Chart     ChartConfig    `yaml:"chart"`
	Playback  PlaybackConfig `yaml:"playback"`
}

type APIConfig struct {
	BaseURL                      string        `yaml:"base_url"`
	ControllersEndpoint          string        `yaml:"controllers_endpoint"`
	ExperimentParametersEndpoint string        `yaml:"experiment_parameters_endpoint"`
	SimulationEndpoint           string        `yaml:"simulation_endpoint"`
	Token                        string        `yaml:"api_token"`
	Timeout                      time.Duration `yaml:"timeout"`
}

type ChartConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	MaxPoints  int     `yaml:"max_points"`
	XDivisions int     `yaml:"x_divisions"`
	YDivisions int     `yaml:"y_divisions"`
	ShowPoints bool    `yaml:"show_points"`
}

type PlaybackConfig struct {
	DrawInterval time.Duration `yaml:"draw_interval"`
}

func DefaultConfig() *Config {
	opts := chart.DefaultOptions()
	return &Config{
		API: APIConfig{
			ControllersEndpoint:          "/api/controllers/",
			ExperimentParametersEndpoint: "/api/experiments/",
			SimulationEndpoint:           "/api/simulation",
			Timeout:                      DefaultTimeout,
		},
		DataDir:   DefaultDataDir,
		ExportDir: DefaultExportDir,
		LogLevel:  DefaultLogLevel,
		Chart: ChartConfig{
			Width:      opts.Width,
			Height:     opts.Height,
			MaxPoints:  opts.MaxPoints,
			XDivisions: opts.XDivisions,
			YDivisions: opts.YDivisions,
			ShowPoints: opts.ShowPoints,
		},
		Playback: PlaybackConfig{DrawInterval: DefaultDrawInterval},
	}
}

// Load reads path over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write config")
}

func (c *Config) ChartOptions() chart.Options {
	return chart.Options{
		Width:      c.Chart.Width,
		Height:     c.Chart.Height,
		MaxPoints:  c.Chart.MaxPoints,
		XDivisions: c.Chart.XDivisions,
		YDivisions: c.Chart.YDivisions,
		ShowPoints: c.Chart.ShowPoints,
	}
}

func (c *Config) APIConfig() api.Config {
	return api.Config{
		BaseURL:                      c.API.BaseURL,
		ControllersEndpoint:          c.API.ControllersEndpoint,
		ExperimentParametersEndpoint: c.API.ExperimentParametersEndpoint,
		SimulationEndpoint:           c.API.SimulationEndpoint,
		Token:                        c.API.Token,
		Timeout:                      c.API.Timeout,
	}
}
