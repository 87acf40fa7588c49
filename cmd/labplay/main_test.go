package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/labplay/internal/apparatus"
	"github.com/san-kum/labplay/internal/config"
	"github.com/san-kum/labplay/internal/notify"
	"github.com/san-kum/labplay/internal/playback"
	"github.com/san-kum/labplay/internal/share"
	"github.com/san-kum/labplay/internal/storage"
	"github.com/spf13/cobra"
)

func TestSetupFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labplay.yaml")
	if err := os.WriteFile(path, []byte("data_dir: from-config\nexport_dir: exports\nlog_level: warn\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&dataDir, "data", config.DefaultDataDir, "")
	cmd.Flags().StringVar(&exportDir, "export", config.DefaultExportDir, "")
	cmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "")
	configFile = path
	t.Cleanup(func() { configFile = "" })

	runs := filepath.Join(dir, "runs")
	if err := cmd.ParseFlags([]string{"--data", runs}); err != nil {
		t.Fatal(err)
	}
	if err := setup(cmd, io.Discard); err != nil {
		t.Fatal(err)
	}

	if current.cfg.DataDir != runs {
		t.Errorf("DataDir = %q, want flag value %q", current.cfg.DataDir, runs)
	}
	if current.cfg.ExportDir != "exports" {
		t.Errorf("ExportDir = %q, want config value", current.cfg.ExportDir)
	}
	if got := current.log.GetLevel().String(); got != "warning" {
		t.Errorf("log level = %q, want warning", got)
	}
	if len(current.registry.List()) != 3 {
		t.Errorf("registry = %v", current.registry.List())
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "")
	if err := cmd.ParseFlags([]string{"--log-level", "loud"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { logLevel = config.DefaultLogLevel })
	if err := setup(cmd, io.Discard); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestPlayHeadlessShortRun(t *testing.T) {
	dir := t.TempDir()
	cmd := &cobra.Command{Use: "test"}
	if err := setup(cmd, io.Discard); err != nil {
		t.Fatal(err)
	}
	current.store = storage.New(dir)

	tests := []struct {
		name    string
		samples string
		notice  string
	}{
		{"two records", `[{"time":"0","theta":"0","phi":"0"},{"time":"0.1","theta":"1","phi":"1"}]`, playback.MsgNoData},
		{"no time step", `[{"time":"0","theta":"0","phi":"0"},{"time":"0","theta":"1","phi":"1"},{"time":"0","theta":"2","phi":"2"}]`, playback.MsgNoTimeStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := current.store.Save(storage.RunMetadata{Apparatus: apparatus.PendulumName}, []byte(tt.samples))
			if err != nil {
				t.Fatal(err)
			}
			notes := &notify.Recorder{}
			r, meta, err := loadRun(id, apparatus.Env{Notifier: notes})
			if err != nil {
				t.Fatal(err)
			}

			err = playHeadless(context.Background(), r, share.NewSink(nil), playback.Params{Selected: meta.Parameters})
			if err != nil {
				t.Errorf("playHeadless = %v, want nil", err)
			}
			msgs := notes.Messages()
			if len(msgs) != 1 || msgs[0].Text != tt.notice {
				t.Errorf("notices = %v, want one %q", msgs, tt.notice)
			}
		})
	}
}
