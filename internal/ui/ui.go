// Package ui renders the metric store as a terminal dashboard.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/store"
)

const gaugeWidth = 28

// Model polls a Store and renders its records.
type Model struct {
	store   *store.Store
	refresh time.Duration
	snap    model.Snapshot
	ready   bool
	width   int
	height  int
}

// New returns a dashboard that re-reads st every refresh.
func New(st *store.Store, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = time.Second
	}
	return &Model{
		store:   st,
		refresh: refresh,
		snap:    st.Snapshot(),
		ready:   st.Ready(),
		width:   120,
		height:  40,
	}
}

// Messages
type tickMsg struct{}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) Init() tea.Cmd { return m.tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.snap = m.store.Snapshot()
		m.ready = m.store.Ready()
		return m, m.tickCmd()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)

	colorOK      = lipgloss.Color("42")
	colorWarning = lipgloss.Color("214")
	colorDanger  = lipgloss.Color("196")

	sparkRunes = []rune("▁▂▃▄▅▆▇█")
)

func (m *Model) View() string {
	s := m.snap
	status := "initializing"
	if m.ready {
		status = "live"
	}
	header := titleStyle.Render("Host Info") + "  " +
		subtleStyle.Render(fmt.Sprintf("%s  %s  (q to quit)", s.OS.Name, status))

	cpuCard := card("CPU", strings.Join([]string{
		truncate(s.CPU.Name, 40),
		gaugeBar(s.CPU.UsagePercent, gaugeWidth),
		fmt.Sprintf("%d cores @ %d MHz", s.CPU.CoreCount, s.CPU.FrequencyMHz),
		sparkline(values(s.CPU.History)),
	}, "\n"))

	memCard := card("Memory", strings.Join([]string{
		fmt.Sprintf("RAM  %d GB", s.Memory.RAMTotalGB),
		gaugeBar(s.Memory.RAMUsedPercent, gaugeWidth),
		fmt.Sprintf("Swap %d GB  %5.1f%%", s.Memory.SwapTotalGB, s.Memory.SwapUsedPercent),
		sparkline(values(s.Memory.History)),
	}, "\n"))

	diskCard := card("Disk", strings.Join([]string{
		fmt.Sprintf("%d GB total", s.Disk.TotalSizeGB),
		gaugeBar(s.Disk.UsedPercent, gaugeWidth),
		fmt.Sprintf("R %s MB  %s", lastMB(s.Disk.ReadHistory), sparkline(values(s.Disk.ReadHistory))),
		fmt.Sprintf("W %s MB  %s", lastMB(s.Disk.WriteHistory), sparkline(values(s.Disk.WriteHistory))),
	}, "\n"))

	osCard := card("OS", strings.Join([]string{
		truncate(s.OS.Name, 40),
		"kernel " + s.OS.KernelVersion,
		fmt.Sprintf("up %d days", s.OS.UptimeDays),
	}, "\n"))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, diskCard, osCard)
	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2)
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	var color lipgloss.Color
	switch {
	case pct >= 90:
		color = colorDanger
	case pct >= 70:
		color = colorWarning
	default:
		color = colorOK
	}
	bar := progress.New(
		progress.WithWidth(width),
		progress.WithoutPercentage(),
		progress.WithSolidFill(string(color)),
	)
	return fmt.Sprintf("%s %5.1f%%", bar.ViewAs(pct/100), pct)
}

func card(title, body string) string {
	return cardStyle.Render(labelStyle.Render(title) + "\n" + body)
}

type number interface{ ~float64 | ~uint64 }

func values[T number](h model.History[T]) []float64 {
	out := make([]float64, len(h))
	for i, s := range h {
		out[i] = float64(s.Value)
	}
	return out
}

// sparkline scales vs between their own min and max.
func sparkline(vs []float64) string {
	if len(vs) == 0 {
		return subtleStyle.Render("-")
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs {
		lo = minFloat(lo, v)
		hi = maxFloat(hi, v)
	}
	out := make([]rune, len(vs))
	for i, v := range vs {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}

func lastMB(h model.History[uint64]) string {
	if len(h) == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", h[len(h)-1].Value)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// RunTUI starts the Bubble Tea program and stops it when ctx is cancelled.
func RunTUI(ctx context.Context, st *store.Store, refresh time.Duration) error {
	prog := tea.NewProgram(New(st, refresh), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		prog.Quit()
	}()
	_, err := prog.Run()
	return err
}
