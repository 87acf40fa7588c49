// Package tui hosts playback in a terminal. Its frame loop advances the scene
// so tweens and per-frame hooks run at wall-clock speed.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/apparatus"
	"github.com/san-kum/labplay/internal/chart"
	"github.com/san-kum/labplay/internal/notify"
	"github.com/san-kum/labplay/internal/playback"
	"github.com/san-kum/labplay/internal/scene"
	"github.com/san-kum/labplay/internal/share"
	"github.com/san-kum/labplay/internal/viz"
)

const frameInterval = 33 * time.Millisecond

// Options wires a playback view.
type Options struct {
	Runner apparatus.Runner
	Chart  *chart.Graph
	Share  *share.Sink
	Toasts *Toaster
	Params playback.Params
	Theme  viz.Theme
}

type model struct {
	ctx    context.Context
	runner apparatus.Runner
	graph  *chart.Graph
	sink   *share.Sink
	toasts *Toaster
	params playback.Params
	theme  viz.Theme

	run       *playback.Run
	lastFrame time.Time
	showScene bool
	sharing   bool

	width  int
	height int
}

func newModel(ctx context.Context, opts Options) model {
	toasts := opts.Toasts
	if toasts == nil {
		toasts = NewToaster()
	}
	theme := opts.Theme
	if theme.Name == "" {
		theme = viz.ThemeLab
	}
	return model{
		ctx:       ctx,
		runner:    opts.Runner,
		graph:     opts.Chart,
		sink:      opts.Share,
		toasts:    toasts,
		params:    opts.Params,
		theme:     theme,
		showScene: true,
		width:     100,
		height:    30,
	}
}

type frameMsg time.Time

type startedMsg struct {
	run *playback.Run
	err error
}

type sharedMsg struct {
	res share.Result
	err error
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m model) start() tea.Cmd {
	return func() tea.Msg {
		run, err := m.runner.Start(m.ctx, m.params)
		return startedMsg{run: run, err: err}
	}
}

func (m model) share() tea.Cmd {
	return func() tea.Msg {
		res, err := m.sink.Share(m.ctx)
		return sharedMsg{res: res, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.start(), frame())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case frameMsg:
		now := time.Time(msg)
		if !m.lastFrame.IsZero() {
			m.runner.Scene().Advance(now.Sub(m.lastFrame))
		}
		m.lastFrame = now
		return m, frame()
	case startedMsg:
		// start failures are announced through the notifier
		m.run = msg.run
		return m, nil
	case sharedMsg:
		m.sharing = false
		if msg.err != nil {
			m.toasts.Notify("Share failed: "+msg.err.Error(), playback.NoticeDuration)
		} else {
			m.toasts.Notify("Shared to "+msg.res.Target, playback.NoticeDuration)
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "esc", "ctrl+c":
		m.runner.Stop()
		return m, tea.Quit
	case "r":
		return m, m.start()
	case "s":
		if m.sink == nil || m.sharing {
			return m, nil
		}
		m.sharing = true
		return m, m.share()
	case "v":
		m.showScene = !m.showScene
	case "t":
		m.theme = nextTheme(m.theme)
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			// unknown series are ignored
			_ = m.graph.Toggle(int(key[0] - '1'))
		}
	}
	return m, nil
}

func nextTheme(current viz.Theme) viz.Theme {
	for i, t := range viz.Themes {
		if t.Name == current.Name {
			return viz.Themes[(i+1)%len(viz.Themes)]
		}
	}
	return viz.Themes[0]
}

func (m model) View() string {
	info := m.runner.Info()
	header := m.theme.TitleStyle().Render("labplay · "+info.Name) + "  " + m.status()

	rows := max(m.height-8, 8)
	chartWidth := max(m.width-4, 24)
	if m.showScene {
		chartWidth = max(m.width*3/5, 24)
	}
	body := m.theme.Panel().Render(viz.RenderChart(m.graph.Snapshot(), chartWidth, rows, m.theme))
	if m.showScene {
		var sceneView string
		m.runner.Scene().View(func(root *scene.Object) {
			sceneView = viz.RenderScene(root, max(m.width-chartWidth-8, 8), rows, m.theme)
		})
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.theme.Panel().Render(sceneView))
	}

	lines := []string{header, body}
	if toast := m.toasts.Current(); toast != "" {
		lines = append(lines, m.theme.Toast().Render(toast))
	}
	lines = append(lines, m.theme.KeyHint().Render("1-9 toggle series · r restart · s share · v scene · t theme · q quit"))
	return strings.Join(lines, "\n")
}

func (m model) status() string {
	if m.run == nil {
		return m.theme.MutedStyle().Render("idle")
	}
	st := m.run.Stats()
	state := "playing"
	select {
	case <-m.run.Done():
		state = "finished"
	default:
	}
	return m.theme.MutedStyle().Render(fmt.Sprintf("%s · applied %d · skipped %d · draws %d", state, st.Applied, st.Skipped, st.Draws))
}

// Run plays opts.Runner in a full-screen terminal view until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return errors.Wrap(err, "playback view")
}

var _ notify.Notifier = (*Toaster)(nil)
