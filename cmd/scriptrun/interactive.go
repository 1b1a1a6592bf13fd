package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib/config"
	"github.com/wippyai/scriptlib/internal/runner"
	"github.com/wippyai/scriptlib/marshal"
	"github.com/wippyai/scriptlib/native/sim"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const logLines = 10

type interactiveModel struct {
	err      error
	r        *runner.Runner
	cfg      config.Runner
	filename string
	entities table.Model
	logs     []string
	held     []int32
	paused   bool
	contacts int
}

type loadedMsg struct {
	err error
	r   *runner.Runner
}

type tickMsg struct{}

func newInteractiveModel(filename string, cfg config.Runner) *interactiveModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Entity", Width: 14},
			{Title: "Position", Width: 26},
			{Title: "Behaviors", Width: 30},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	return &interactiveModel{filename: filename, cfg: cfg, entities: t}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadScene
}

func (m *interactiveModel) loadScene() tea.Msg {
	ctx := context.Background()
	// stderr belongs to the terminal UI; script output is shown from the
	// engine log instead.
	r, err := runner.Load(ctx, m.filename, options(m.cfg, zap.NewNop()))
	if err != nil {
		return loadedMsg{err: err}
	}
	if err := r.Start(ctx); err != nil {
		_ = r.Close(ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{r: r}
}

func (m *interactiveModel) tick() tea.Cmd {
	return tea.Tick(m.cfg.Timestep, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.r != nil {
				_ = m.r.Close(context.Background())
			}
			return m, tea.Quit

		case "p":
			m.paused = !m.paused

		case "n":
			if m.paused && m.r != nil {
				m.step()
			}

		case "up", "down", "pgup", "pgdown", "home", "end":
			var cmd tea.Cmd
			m.entities, cmd = m.entities.Update(msg)
			return m, cmd

		default:
			m.press(msg.String())
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.r = msg.r
		m.collect()
		return m, m.tick()

	case tickMsg:
		if m.r == nil {
			return m, nil
		}
		if !m.paused {
			m.step()
		}
		return m, m.tick()
	}

	return m, nil
}

// press holds a key down for the next frame. Terminals report no key
// releases, so every press lasts exactly one step.
func (m *interactiveModel) press(name string) {
	if m.r == nil {
		return
	}
	if name == " " {
		name = "SPACE"
	}
	key, err := marshal.ParseKey(name)
	if err != nil {
		return
	}
	m.r.SetKey(int32(key), true)
	m.held = append(m.held, int32(key))
}

func (m *interactiveModel) step() {
	f, err := m.r.Step(context.Background(), m.cfg.DT())
	for _, code := range m.held {
		m.r.SetKey(code, false)
	}
	m.held = m.held[:0]
	if err != nil {
		m.err = err
		return
	}
	m.contacts += f.Contacts
	m.collect()
}

func (m *interactiveModel) collect() {
	var rows []table.Row
	for _, e := range m.r.Entities() {
		rows = append(rows, table.Row{
			e.Name,
			fmt.Sprintf("%7.2f %7.2f %7.2f", e.Position.X, e.Position.Y, e.Position.Z),
			strings.Join(e.Behaviors, ", "),
		})
	}
	m.entities.SetRows(rows)

	for _, line := range m.r.Logs() {
		style := traceStyle
		switch line.Level {
		case sim.LevelWarn:
			style = warnStyle
		case sim.LevelError:
			style = errorStyle
		}
		m.logs = append(m.logs, style.Render(fmt.Sprintf("[%s] %s", line.Level, line.Message)))
	}
	if len(m.logs) > logLines {
		m.logs = m.logs[len(m.logs)-logLines:]
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.r == nil {
		return "Loading scene..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Scene Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	state := "running"
	if m.paused {
		state = "paused"
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("frame %d • %d contacts • %d faults • %s",
		m.r.Frame(), m.contacts, m.r.Faults(), state)))
	b.WriteString("\n\n")

	b.WriteString(m.entities.View())
	b.WriteString("\n\n")

	for _, line := range m.logs {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("p pause • n step • ↑/↓ select • other keys go to scripts • q quit"))

	return b.String()
}

func runInteractive(filename string, cfg config.Runner) error {
	p := tea.NewProgram(newInteractiveModel(filename, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
