package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"echoburst/internal/runner"
	"echoburst/internal/tui/components"
	"echoburst/internal/tui/styles"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const sparkWidth = 40

type snapshotMsg runner.StatsSnapshot

type doneMsg struct {
	report *runner.Report
	err    error
}

// Model renders a run live from the runner's snapshot channel.
type Model struct {
	Cfg      runner.Config
	Updates  runner.StatsUpdateChan
	Progress progress.Model
	Failures components.Sparkline

	Last      runner.StatsSnapshot
	Report    *runner.Report
	Err       error
	StartTime time.Time
	Quitting  bool
	Width     int

	cancel   context.CancelFunc
	lastFail uint64
}

func NewModel(cfg runner.Config, updates runner.StatsUpdateChan, cancel context.CancelFunc) Model {
	return Model{
		Cfg:       cfg,
		Updates:   updates,
		Progress:  progress.New(progress.WithDefaultGradient()),
		Failures:  components.NewSparkline(sparkWidth, "Failures / tick", styles.Error),
		StartTime: time.Now(),
		cancel:    cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.Updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Progress.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.Quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case snapshotMsg:
		snap := runner.StatsSnapshot(msg)
		if snap.Fail >= m.lastFail {
			m.Failures.Add(snap.Fail - m.lastFail)
		}
		m.lastFail = snap.Fail
		m.Last = snap

		pct := 0.0
		if snap.BatchesTotal > 0 {
			pct = float64(snap.BatchesDone) / float64(snap.BatchesTotal)
		}
		return m, tea.Batch(m.Progress.SetPercent(pct), waitForSnapshot(m.Updates))

	case doneMsg:
		m.Report = msg.report
		m.Err = msg.err
		m.Quitting = true
		return m, tea.Quit

	case progress.FrameMsg:
		progressModel, cmd := m.Progress.Update(msg)
		m.Progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.Quitting {
		if m.Report != nil {
			return styles.Success.Render(fmt.Sprintf("Run finished: %d failed of %d.", m.Report.Failed, m.Report.Requests)) + "\n"
		}
		return "Stopping...\n"
	}

	s := strings.Builder{}

	s.WriteString(styles.Title.Render("🚀 " + m.Cfg.Target.TestName()))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("URL: %s\n", m.Cfg.Endpoint()))
	s.WriteString(styles.Subtle.Render(fmt.Sprintf("Requests: %d | Batch: %d | Elapsed: %s",
		m.Cfg.TotalRequests, m.Cfg.BatchSize, time.Since(m.StartTime).Round(time.Second))))
	s.WriteString("\n\n")

	snap := m.Last
	failed := styles.Value.Render(fmt.Sprintf("%d", snap.Fail))
	if snap.Fail > 0 {
		failed = styles.Error.Render(fmt.Sprintf("%d", snap.Fail))
	}
	leftCol := fmt.Sprintf(
		"Batches:  %d/%d\nRequests: %d\nInflight: %d\nFailed:   %s",
		snap.BatchesDone, snap.BatchesTotal, snap.Requests, snap.Inflight, failed,
	)
	rightCol := fmt.Sprintf(
		"Latency\n  P50: %.1f ms\n  P90: %.1f ms\n  P99: %.1f ms\n  Max: %.1f ms",
		snap.P50Ms, snap.P90Ms, snap.P99Ms, snap.MaxMs,
	)
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(30).Render(leftCol),
		lipgloss.NewStyle().Width(30).Render(rightCol),
	))

	s.WriteString("\n\n")
	s.WriteString(m.Progress.View())
	s.WriteString("\n\n")
	s.WriteString(m.Failures.View())
	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "abort"))

	return s.String()
}

func waitForSnapshot(updates runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

// Run drives r under the live view. Quitting the view cancels the run; Run
// still waits for the batch in flight to drain and returns its report.
func Run(ctx context.Context, r *runner.Runner, updates runner.StatsUpdateChan) (*runner.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.Pool() == nil {
		if err := r.Prepare(); err != nil {
			return nil, err
		}
	}

	p := tea.NewProgram(NewModel(r.Cfg, updates, cancel))

	done := make(chan doneMsg, 1)
	go func() {
		report, err := r.Run(ctx)
		done <- doneMsg{report, err}
		p.Send(doneMsg{report, err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("tui: %w", err)
	}

	out := <-done
	return out.report, out.err
}
