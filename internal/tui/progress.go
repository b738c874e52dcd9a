// Package tui shows the progress of a long run in the terminal.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/kosmos/internal/kosmos"
	"github.com/san-kum/kosmos/internal/sim"
)

const (
	barWidth     = 36
	historyWidth = 48
	frameEvery   = 50 * time.Millisecond
)

type progressMsg struct {
	step   int
	time   float64
	energy float64
}

type doneMsg struct {
	result *sim.Result
	err    error
}

type Model struct {
	name     string
	total    int
	started  time.Time
	cancel   context.CancelFunc
	e0       float64
	progress progressMsg
	history  []float64
	maxDrift float64

	done     bool
	quitting bool
	result   *sim.Result
	err      error
}

func NewModel(name string, total int, initialEnergy float64, cancel context.CancelFunc) Model {
	return Model{
		name:    name,
		total:   total,
		started: time.Now(),
		cancel:  cancel,
		e0:      initialEnergy,
		history: make([]float64, 0, historyWidth),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case progressMsg:
		m.progress = msg
		d := m.drift(msg.energy)
		m.maxDrift = math.Max(m.maxDrift, d)
		m.history = append(m.history, d)
		if len(m.history) > historyWidth {
			m.history = m.history[1:]
		}
		return m, nil
	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) drift(energy float64) float64 {
	if m.e0 == 0 {
		return 0
	}
	return math.Abs(energy-m.e0) / math.Abs(m.e0)
}

func (m Model) View() string {
	var b strings.Builder

	status := green.Render("● running")
	switch {
	case m.done && m.err != nil:
		status = red.Render("✗ stopped")
	case m.done:
		status = green.Render("✓ done")
	case m.quitting:
		status = yellow.Render("○ stopping")
	}
	b.WriteString(fmt.Sprintf("\n   %s  %s\n", cyan.Render(m.name), status))

	fraction := 1.0
	if m.total > 0 {
		fraction = float64(m.progress.step) / float64(m.total)
	}
	b.WriteString(fmt.Sprintf("   %s %s\n",
		progressBar(fraction, barWidth),
		dim.Render(fmt.Sprintf("%d/%d  %3.0f%%", m.progress.step, m.total, fraction*100))))

	elapsed := time.Since(m.started)
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(m.progress.step) / s
	}
	b.WriteString(fmt.Sprintf("   %s %s  %s %s  %s %s\n\n",
		dim.Render("t"), white.Render(fmt.Sprintf("%.6g", m.progress.time)),
		dim.Render("rate"), white.Render(fmt.Sprintf("%.0f steps/s", rate)),
		dim.Render("elapsed"), white.Render(elapsed.Truncate(time.Millisecond).String())))

	current := 0.0
	if len(m.history) > 0 {
		current = m.history[len(m.history)-1]
	}
	b.WriteString(fmt.Sprintf("   %s %s  %s %s\n",
		dim.Render("energy drift"), driftStyle(current).Render(fmt.Sprintf("%.3e", current)),
		dim.Render("max"), driftStyle(m.maxDrift).Render(fmt.Sprintf("%.3e", m.maxDrift))))
	if len(m.history) > 1 {
		b.WriteString("   " + cyan.Render(sparkline(m.history, historyWidth)) + "\n")
	}

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}
	if !m.done {
		b.WriteString("\n" + dim.Render("   q stop") + "\n")
	}
	return b.String()
}

// progressObserver forwards the Kosmos state to the program at most once
// per frame, and always on the final step.
type progressObserver struct {
	send  func(tea.Msg)
	base  int
	total int
	last  time.Time
}

func (o *progressObserver) OnStep(k *kosmos.Kosmos) {
	now := time.Now()
	step := k.Steps() - o.base
	if now.Sub(o.last) < frameEvery && step < o.total {
		return
	}
	o.last = now
	o.send(progressMsg{step: step, time: k.Time(), energy: k.TotalEnergy()})
}

// Run executes the runner under a progress view and returns its result.
// Quitting the view cancels the run; the partial result is returned with
// the cancellation error.
func Run(ctx context.Context, name string, runner *sim.Runner, cfg sim.Config) (*sim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	k := runner.Kosmos()
	m := NewModel(name, cfg.Steps, k.TotalEnergy(), cancel)
	p := tea.NewProgram(m)

	runner.AddObserver(&progressObserver{send: p.Send, base: k.Steps(), total: cfg.Steps})

	go func() {
		res, err := runner.Run(ctx, cfg)
		p.Send(doneMsg{result: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		return nil, err
	}
	fm := final.(Model)
	return fm.result, fm.err
}
