// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/netbus/pkg/hwp"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

var controlTUICmd = &cobra.Command{
	Use:   "control_tui",
	Short: "Interactive control console",
	Long: `Interactive console for driving the heat pump while watching the bus.

Commands:
  show                         print the current decoded state
  mode <off|cool|heat|auto>    stage a climate mode change
  target <temp>                stage a target temperature change
  fan <low|high|ambient|scheduled|ambient-scheduled>
  restriction <cooling|any|heating>
  flowmeter <on|off>           stage a flow meter change (u01)
  ppl <n>                      stage a pulses-per-liter change (u02)
  send                         derive and transmit the staged changes
  clear                        drop the staged changes
  passive <on|off>             toggle passive mode
  quit`,
	RunE: runControlTUI,
}

func init() {
	rootCmd.AddCommand(controlTUICmd)
}

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

type controlModel struct {
	bus     *hwp.Bus
	conn    Connection
	input   textinput.Model
	history []string
	staged  *hwp.Call
	passive bool
	quit    bool
}

func newControlModel(bus *hwp.Bus, conn Connection) *controlModel {
	ti := textinput.New()
	ti.Placeholder = "command (help: see --help)"
	ti.Focus()
	ti.CharLimit = 128
	ti.Width = 60
	return &controlModel{
		bus:     bus,
		conn:    conn,
		input:   ti,
		staged:  hwp.NewCall(),
		passive: true,
	}
}

func (m *controlModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.SetValue("")
			m.exec(line)
			if m.quit {
				return m, tea.Quit
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *controlModel) say(s string) {
	m.history = append(m.history, s)
	if len(m.history) > 20 {
		m.history = m.history[len(m.history)-20:]
	}
}

// exec parses and runs one console command.
func (m *controlModel) exec(line string) {
	words, err := shlex.Split(line)
	if err != nil {
		m.say(warnStyle.Render("parse error: " + err.Error()))
		return
	}
	if len(words) == 0 {
		return
	}
	arg := ""
	if len(words) > 1 {
		arg = words[1]
	}
	switch words[0] {
	case "quit", "exit", "q":
		m.quit = true
	case "show":
		m.showState()
	case "clear":
		m.staged = hwp.NewCall()
		m.say("staged changes dropped")
	case "passive":
		m.passive = arg != "off"
		m.say(fmt.Sprintf("passive mode %v", m.passive))
	case "mode":
		if v, ok := hwp.ClimateModeFromString(arg); ok {
			m.staged.SetMode(v)
			m.say("staged mode " + v.String())
		} else {
			m.say(warnStyle.Render("unknown mode " + arg))
		}
	case "target":
		if v, err := strconv.ParseFloat(arg, 64); err == nil {
			m.staged.SetTargetTemperature(v)
			m.say(fmt.Sprintf("staged target %.1f", v))
		} else {
			m.say(warnStyle.Render("bad temperature " + arg))
		}
	case "fan":
		if v, ok := hwp.FanModeFromString(arg); ok {
			m.staged.SetFanMode(v)
			m.say("staged fan mode " + v.String())
		} else {
			m.say(warnStyle.Render("unknown fan mode " + arg))
		}
	case "restriction":
		if v, ok := hwp.ModeRestrictionFromString(arg); ok {
			m.staged.SetModeRestriction(v)
			m.say("staged restriction " + v.String())
		} else {
			m.say(warnStyle.Render("unknown restriction " + arg))
		}
	case "flowmeter":
		switch arg {
		case "on":
			m.staged.SetFlowMeter(hwp.FlowMeterEnabled)
			m.say("staged flow meter on")
		case "off":
			m.staged.SetFlowMeter(hwp.FlowMeterDisabled)
			m.say("staged flow meter off")
		default:
			m.say(warnStyle.Render("flowmeter takes on|off"))
		}
	case "ppl":
		if v, err := strconv.ParseUint(arg, 10, 16); err == nil {
			m.staged.SetPulsesPerLiter(uint16(v))
			m.say(fmt.Sprintf("staged pulses/liter %d", v))
		} else {
			m.say(warnStyle.Render("bad pulses/liter " + arg))
		}
	case "send":
		m.send()
	default:
		m.say(warnStyle.Render("unknown command " + words[0]))
	}
}

func (m *controlModel) showState() {
	d := m.bus.Data()
	show := func(name string, v *float64) {
		if v != nil {
			m.say(fmt.Sprintf("%-12s %.1f°C", name, *v))
		}
	}
	if d.Mode != nil {
		m.say("mode         " + d.Mode.String())
	}
	if d.FanMode != nil {
		m.say("fan          " + d.FanMode.String())
	}
	show("target", d.TargetTemperature)
	show("inlet", d.InletTemp)
	show("outlet", d.OutletTemp)
	show("coil", d.CoilTemp)
	show("exhaust", d.ExhaustTemp)
	if d.Mode == nil && d.InletTemp == nil {
		m.say(noteStyle.Render("nothing decoded yet"))
	}
}

func (m *controlModel) send() {
	if m.staged.IsEmpty() {
		m.say(warnStyle.Render("nothing staged"))
		return
	}
	call := m.staged
	m.staged = hwp.NewCall()
	frames := m.bus.DeriveFrames(call)
	for _, r := range call.Rejections() {
		m.say(warnStyle.Render("rejected: " + r))
	}
	for _, w := range call.Warnings() {
		m.say(warnStyle.Render(w))
	}
	if len(frames) == 0 {
		if len(call.Rejections()) == 0 && len(call.Warnings()) == 0 {
			m.say("no changes to send")
		}
		return
	}
	if m.passive {
		m.say(warnStyle.Render("passive mode, not transmitting"))
		for _, pkt := range frames {
			m.say(hwp.HeaderFormat("HOLD", pkt, nil,
				fmt.Sprintf("TYPE_%02X   ", pkt.Type()), hwp.SourceLocal, 0))
		}
		return
	}
	if m.conn == nil {
		m.say(warnStyle.Render("replay feed, cannot transmit"))
		return
	}
	for _, pkt := range frames {
		if err := WriteProbeTransmit(m.conn, &pkt, hwp.DefaultTransmitCount); err != nil {
			m.say(warnStyle.Render("transmit error: " + err.Error()))
			return
		}
		m.say(fmt.Sprintf("transmitted type 0x%02X", pkt.Type()))
	}
}

func (m *controlModel) View() string {
	if m.quit {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Netbus Control Console") + "\n\n")
	b.WriteString(strings.Join(m.history, "\n"))
	b.WriteString("\n\n" + promptStyle.Render("> ") + m.input.View() + "\n")
	b.WriteString(noteStyle.Render("esc to quit"))
	return b.String()
}

func runControlTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newEngine(hwp.BusConfig{})
	defer bus.Close()

	conn, _, pump, err := runFeed(ctx, bus)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}
	go pump()

	program := tea.NewProgram(newControlModel(bus, conn))
	_, err = program.Run()
	return err
}
