package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/hayeah/ghcat/internal/concat"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// stateMsg carries a run state into the UI.
type stateMsg concat.State

// finishedMsg is sent once the operation returns.
type finishedMsg struct{ err error }

// progressModel renders the live state of one run.
type progressModel struct {
	title      string
	spinner    spinner.Model
	state      concat.State
	err        error
	finished   bool
	cancelling bool
	cancel     context.CancelFunc
}

func newProgressModel(title string, cancel context.CancelFunc) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return progressModel{
		title:   title,
		spinner: s,
		state:   concat.State{Phase: concat.Running, Progress: "Starting..."},
		cancel:  cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = concat.State(msg)
		return m, nil
	case finishedMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if !m.cancelling {
				m.cancelling = true
				m.cancel()
			}
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	switch {
	case m.finished && m.err != nil:
		b.WriteString(errStyle.Render("✗ " + m.err.Error()))
	case m.finished:
		b.WriteString(okStyle.Render("✓ " + summarize(m.state)))
	case m.cancelling:
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), dimStyle.Render("Cancelling...")))
	default:
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), m.state.Progress))
	}
	b.WriteString("\n")
	return b.String()
}

// summarize describes a final state in one line.
func summarize(s concat.State) string {
	if s.Phase != concat.Succeeded || s.Document == nil {
		return "Done"
	}
	doc := s.Document
	msg := fmt.Sprintf("Fetched %d files from %s/%s@%s", len(doc.Files), doc.Owner, doc.Repo, doc.Branch)
	if n := len(doc.Failures()); n > 0 {
		msg += fmt.Sprintf(" (%d failed)", n)
	}
	return msg
}

// logReporter reports progress as log lines when there is no terminal.
type logReporter struct {
	logger *slog.Logger
}

func (r logReporter) Report(s concat.State) {
	if s.Phase == concat.Running {
		r.logger.Info(s.Progress)
	}
}

// isTerminal reports whether stderr is a terminal, where the live view goes.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// withProgress runs fn, rendering its states live when interactive is set and
// logging them otherwise.
func withProgress[T any](ctx context.Context, pipe *Pipeline, interactive bool, title string, fn func(ctx context.Context, rep concat.Reporter) (T, error)) (T, error) {
	if !interactive {
		return fn(ctx, logReporter{logger: pipe.Logger})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipe.LogSink.Hold()
	defer pipe.LogSink.Release()

	p := tea.NewProgram(newProgressModel(title, cancel), tea.WithOutput(os.Stderr))

	var (
		v   T
		err error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err = fn(ctx, concat.ReporterFunc(func(s concat.State) {
			p.Send(stateMsg(s))
		}))
		p.Send(finishedMsg{err: err})
	}()

	if _, uiErr := p.Run(); uiErr != nil {
		cancel()
		<-done
		if err == nil {
			err = fmt.Errorf("progress view failed: %w", uiErr)
		}
		return v, err
	}
	<-done
	return v, err
}
