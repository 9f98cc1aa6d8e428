// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/netbus/pkg/hwp"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of the decoded heat pump state",
	Long: `Full-screen dashboard showing the canonical heat pump state as it is
decoded from the bus: temperatures, mode, setpoints, fan mode, defrost
and flow meter configuration, plus a scrolling frame log and bus
statistics.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("25")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type monitorTickMsg time.Time

type monitorFrameMsg struct {
	line string
}

type monitorFeedDoneMsg struct {
	err error
}

type monitorModel struct {
	bus       *hwp.Bus
	stats     *hwp.Statistics
	frames    chan monitorFrameMsg
	feedInfo  string
	log       []string
	maxLog    int
	width     int
	height    int
	err       error
	quitting  bool
	feedEnded bool
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.waitFrame(), monitorTick())
}

func monitorTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m *monitorModel) waitFrame() tea.Cmd {
	return func() tea.Msg {
		return <-m.frames
	}
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case monitorTickMsg:
		return m, monitorTick()
	case monitorFrameMsg:
		m.log = append(m.log, msg.line)
		if len(m.log) > m.maxLog {
			m.log = m.log[len(m.log)-m.maxLog:]
		}
		return m, m.waitFrame()
	case monitorFeedDoneMsg:
		m.feedEnded = true
		m.err = msg.err
	}
	return m, nil
}

func fmtTemp(v *float64) string {
	if v == nil {
		return staleStyle.Render("--.-°C")
	}
	return valueStyle.Render(fmt.Sprintf("%.1f°C", *v))
}

func fmtOpt[T fmt.Stringer](v *T) string {
	if v == nil {
		return staleStyle.Render("unknown")
	}
	return valueStyle.Render((*v).String())
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func (m *monitorModel) View() string {
	if m.quitting {
		return ""
	}
	d := m.bus.Data()

	var left strings.Builder
	left.WriteString(row("Mode", fmtOpt(d.Mode)) + "\n")
	left.WriteString(row("Action", fmtOpt(d.Action)) + "\n")
	left.WriteString(row("Fan mode", fmtOpt(d.FanMode)) + "\n")
	left.WriteString(row("Restriction", fmtOpt(d.ModeRestrictions)) + "\n")
	target := staleStyle.Render("--.-°C")
	if d.TargetTemperature != nil {
		target = valueStyle.Render(fmt.Sprintf("%.1f°C (%.1f..%.1f)",
			*d.TargetTemperature, d.MinTarget(), d.MaxTarget()))
	}
	left.WriteString(row("Target", target) + "\n")
	flow := staleStyle.Render("unknown")
	if d.WaterFlow != nil {
		if *d.WaterFlow {
			flow = valueStyle.Render("flowing")
		} else {
			flow = errStyle.Render("not flowing")
		}
	}
	left.WriteString(row("Water flow", flow) + "\n")
	left.WriteString(row("Flow meter", fmtOpt(d.FlowMeter)) + "\n")
	left.WriteString(row("Defrost mode", fmtOpt(d.DefrostEcoModeSetting)))

	var right strings.Builder
	right.WriteString(row("t02 Inlet", fmtTemp(d.InletTemp)) + "\n")
	right.WriteString(row("t03 Outlet", fmtTemp(d.OutletTemp)) + "\n")
	right.WriteString(row("t04 Coil", fmtTemp(d.CoilTemp)) + "\n")
	right.WriteString(row("t06 Exhaust", fmtTemp(d.ExhaustTemp)) + "\n")
	right.WriteString(row("r01 Cool setpoint", fmtTemp(d.SetpointCooling)) + "\n")
	right.WriteString(row("r02 Heat setpoint", fmtTemp(d.SetpointHeating)) + "\n")
	right.WriteString(row("r03 Auto setpoint", fmtTemp(d.SetpointAuto)) + "\n")
	status := m.bus.Poll()
	if m.bus.IsHeaterOffline() {
		right.WriteString(row("Status", errStyle.Render(status)))
	} else {
		right.WriteString(row("Status", valueStyle.Render(status)))
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		borderStyle.Render(left.String()),
		borderStyle.Render(right.String()))

	m.stats.PulseDrops = m.bus.PulseDrops()
	statsLine := fmt.Sprintf("frames %d (heater %d / keypad %d)  checksum errors %d  resets %d  drops %d",
		m.stats.TotalFrames, m.stats.HeaterFrames, m.stats.ControllerFrames,
		m.stats.ChecksumErrors, m.stats.FramerResets, m.stats.PulseDrops)

	logLines := m.log
	maxVisible := m.height - lipgloss.Height(panels) - 6
	if maxVisible > 0 && len(logLines) > maxVisible {
		logLines = logLines[len(logLines)-maxVisible:]
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Netbus Monitor — "+m.feedInfo) + "\n\n")
	b.WriteString(panels + "\n")
	b.WriteString(staleStyle.Render(statsLine) + "\n\n")
	b.WriteString(strings.Join(logLines, "\n"))
	if m.feedEnded {
		b.WriteString("\n" + errStyle.Render("feed ended"))
		if m.err != nil {
			b.WriteString(errStyle.Render(": " + m.err.Error()))
		}
	}
	b.WriteString("\n" + staleStyle.Render("q to quit"))
	return b.String()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan monitorFrameMsg, 64)
	stats := hwp.NewStatistics()
	bus := newEngine(hwp.BusConfig{
		Stats: stats,
		OnFrame: func(f hwp.Frame, changed bool) {
			if !changed {
				return
			}
			prev, ok := f.PrevRawPacket()
			var prevRef *hwp.Packet
			if ok {
				prevRef = &prev
			}
			line := fmt.Sprintf("[%s] %s%s",
				f.FrameTime().Format("15:04:05"),
				hwp.HeaderFormat("Chg", f.RawPacket(), prevRef, f.TypeString(), f.Source(), f.FrameAge()),
				f.Format(false))
			select {
			case frames <- monitorFrameMsg{line: line}:
			default:
			}
		},
	})
	defer bus.Close()

	conn, info, pump, err := runFeed(ctx, bus)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	model := &monitorModel{
		bus:      bus,
		stats:    stats,
		frames:   frames,
		feedInfo: info,
		maxLog:   200,
	}
	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		err := pump()
		program.Send(monitorFeedDoneMsg{err: err})
	}()

	_, err = program.Run()
	return err
}
