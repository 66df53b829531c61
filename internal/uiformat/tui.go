package uiformat

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// TUIRenderer is the interactive bubbletea progress renderer used for
// the build command on a TTY. It never fills the screen: build output
// stays visible once the program exits.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	started bool
	done    chan struct{}
}

// NewTUIRenderer builds a TUIRenderer, failing if cfg.Output is not a TTY.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}
	return &TUIRenderer{cfg: cfg, done: make(chan struct{})}, nil
}

func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	model := newBuildModel(GetStyles(r.cfg.NoColor))
	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(model, opts...)
	r.started = true
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()
	if program != nil {
		program.Quit()
		<-r.done
	}
	return nil
}

type progressMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats

type buildModel struct {
	styles   Styles
	spinner  spinner.Model
	bar      progress.Model
	stage    Stage
	current  int
	total    int
	message  string
	errors   int
	warnings int
	stats    CompletionStats
	done     bool
}

func newBuildModel(styles Styles) buildModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	bar := progress.New(progress.WithDefaultGradient())
	return buildModel{styles: styles, spinner: sp, bar: bar, stage: StageLoading}
}

func (m buildModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		m.message = msg.Message
		return m, nil
	case errorMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}
		return m, nil
	case completeMsg:
		m.done = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m buildModel) View() string {
	if m.done {
		line := fmt.Sprintf("%s %d nodes indexed, %d memories loaded in %s",
			m.styles.Success.Render("done"), m.stats.Nodes, m.stats.Memories, m.stats.Duration.Round(100*time.Millisecond))
		if m.stats.Errors > 0 || m.stats.Warnings > 0 {
			line += fmt.Sprintf(" (%d errors, %d warnings)", m.stats.Errors, m.stats.Warnings)
		}
		return line + "\n"
	}
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.current) / float64(m.total)
	}
	stage := m.styles.Active.Render(m.stage.String())
	return fmt.Sprintf("%s %s %s %s\n", m.spinner.View(), stage, m.bar.ViewAs(pct), m.message)
}
