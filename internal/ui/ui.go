package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/memwatch/internal/alert"
	"github.com/Dicklesworthstone/memwatch/internal/config"
	"github.com/Dicklesworthstone/memwatch/internal/engine"
	"github.com/Dicklesworthstone/memwatch/internal/model"
	"github.com/Dicklesworthstone/memwatch/internal/report"
	"github.com/Dicklesworthstone/memwatch/internal/session"
)

// Controller is the part of the engine the view drives.
type Controller interface {
	ConfigureThreshold(percent int)
	Threshold() int
	SessionStatus() engine.Status
	StartLoggingSession(ctx context.Context, req session.Request) error
}

// Model renders snapshots pushed by the engine.
type Model struct {
	ctl       Controller
	cfg       config.Config
	latest    model.Snapshot
	alert     string
	notice    string
	filter    string
	filtering bool
	quit      context.CancelFunc
	width     int
	height    int
}

func New(ctl Controller, cfg config.Config, quit context.CancelFunc) *Model {
	return &Model{
		ctl:    ctl,
		cfg:    cfg,
		latest: model.Zero(),
		filter: cfg.Sampling.Filter,
		quit:   quit,
		width:  120,
		height: 40,
	}
}

// Messages
type (
	snapshotMsg model.Snapshot
	alertMsg    string
	noticeMsg   string
)

// Attach subscribes send to the engine's snapshot, alert and hand-off
// failure events. Call before the engine runs.
func Attach(eng *engine.Engine, send func(tea.Msg)) {
	eng.OnSnapshot(func(s model.Snapshot) { send(snapshotMsg(s)) })
	eng.OnAlert(func(msg string) { send(alertMsg(msg)) })
	eng.OnHandOffError(func(err error) { send(noticeMsg("log not saved: " + err.Error())) })
}

// Notice returns a message that shows text in the status line.
func Notice(text string) tea.Msg { return noticeMsg(text) }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case snapshotMsg:
		m.latest = model.Snapshot(msg)
	case alertMsg:
		m.alert = string(msg)
	case noticeMsg:
		m.notice = string(msg)
	case tea.KeyMsg:
		if m.filtering {
			return m, m.editFilter(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			if m.quit != nil {
				m.quit()
			}
			return m, tea.Quit
		case "/":
			m.filtering = true
		case "+", "=":
			m.adjustThreshold(5)
		case "-":
			m.adjustThreshold(-5)
		case "l":
			return m, m.startLog()
		}
	}
	return m, nil
}

func (m *Model) editFilter(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.filtering = false
	case tea.KeyBackspace:
		if r := []rune(m.filter); len(r) > 0 {
			m.filter = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.filter += string(msg.Runes)
	case tea.KeyCtrlC:
		if m.quit != nil {
			m.quit()
		}
		return tea.Quit
	}
	return nil
}

func (m *Model) adjustThreshold(delta int) {
	t := m.ctl.Threshold() + delta
	if t < 0 {
		t = 0
	}
	if t > 99 {
		t = 99
	}
	m.ctl.ConfigureThreshold(t)
	if t == 0 {
		m.alert = ""
		m.notice = "alert disabled"
		return
	}
	m.notice = fmt.Sprintf("alert threshold set to %d%%", t)
}

func (m *Model) startLog() tea.Cmd {
	req := m.cfg.SessionRequest()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := m.ctl.StartLoggingSession(ctx, req)
		switch {
		case errors.Is(err, session.ErrAlreadyRunning):
			return noticeMsg("a logging session is already running")
		case err != nil:
			return noticeMsg("logging not started: " + err.Error())
		default:
			return noticeMsg(fmt.Sprintf("logging every %s for %s", req.Interval, req.Duration))
		}
	}
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	header := titleStyle.Render("Memory Monitor") + "  " +
		subtleStyle.Render(s.Taken.Format("Mon Jan 2 15:04:05 MST 2006"))

	used := alert.UsedPercent(s.TotalKB, s.AvailableKB)
	memCard := card("Memory",
		fmt.Sprintf("%s\nTotal %s | Available %s",
			gaugeBar(float64(used), 28),
			report.FormatReading(s, s.TotalKB),
			report.FormatReading(s, s.AvailableKB)))

	alertCard := card("Alert", m.thresholdLine())
	logCard := card("Logging", m.sessionLine())

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, memCard, alertCard, logCard)

	shown := s.Filter(m.filter)
	rows := m.height - lipgloss.Height(line1) - 9
	if rows < 5 {
		rows = 5
	}
	title := fmt.Sprintf("Processes (%d)", len(shown.Processes))
	if m.filter != "" || m.filtering {
		title += fmt.Sprintf("  filter: %s", m.filter)
		if m.filtering {
			title += "_"
		}
	}
	table := card(title, renderTable(shown.Processes, rows))

	parts := []string{header, line1}
	if m.alert != "" {
		parts = append(parts, alertStyle.Render(m.alert))
	}
	parts = append(parts, table)
	footer := "q quit  / filter  +/- threshold  l start log"
	if m.notice != "" {
		footer = m.notice + "  |  " + footer
	}
	parts = append(parts, subtleStyle.Render(footer))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) thresholdLine() string {
	t := m.ctl.Threshold()
	if t <= 0 {
		return "Alert is not set."
	}
	return fmt.Sprintf("Alert threshold set to %d%%", t)
}

func (m *Model) sessionLine() string {
	st := m.ctl.SessionStatus()
	if st.State != session.Running {
		return "idle"
	}
	return fmt.Sprintf("sample %d/%d every %s", st.Taken, st.Planned, st.Interval)
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func renderTable(rows []model.ProcessSample, limit int) string {
	n := min(limit, len(rows))
	var b strings.Builder
	report.WriteTableHeader(&b)
	for i := 0; i < n; i++ {
		fmt.Fprintln(&b, report.FormatRow(rows[i]))
	}
	if len(rows) > n {
		fmt.Fprintf(&b, "… %d more\n", len(rows)-n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Run blocks until prog exits. Cancellation of the program's context is a
// normal shutdown.
func Run(ctx context.Context, prog *tea.Program) error {
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// NewProgram builds the full-screen program for m.
func NewProgram(ctx context.Context, m *Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
}
