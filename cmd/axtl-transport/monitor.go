// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/cindertrace/axtl/pkg/transport"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch live receive activity and stats in a terminal UI",
	Long: `A terminal UI showing live receive activity, resync counts, and
CRC failure counts as frames arrive. Press q to quit.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// logItem is one line in the scrolling activity log.
type logItem string

func (i logItem) FilterValue() string { return string(i) }

type statsMsg transport.Stats

type frameMsg struct {
	status  transport.Status
	payload []byte
}

type monitorModel struct {
	portName string
	baudRate int
	stats    transport.Stats
	log      list.Model
	width    int
	height   int
	quitting bool
}

func newMonitorModel(portName string, baudRate int) monitorModel {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 80, 20)
	l.Title = "activity"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	return monitorModel{
		portName: portName,
		baudRate: baudRate,
		log:      l,
		width:    80,
		height:   24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m monitorModel) addLog(entry string) monitorModel {
	items := append(m.log.Items(), logItem(entry))
	const maxEntries = 200
	if len(items) > maxEntries {
		items = items[len(items)-maxEntries:]
	}
	m.log.SetItems(items)
	m.log.Select(len(items) - 1)
	return m
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.log.SetSize(msg.Width, msg.Height-8)

	case statsMsg:
		m.stats = transport.Stats(msg)

	case frameMsg:
		if msg.status.Ok() {
			m = m.addLog(fmt.Sprintf("[%s] %s  %s", time.Now().Format("15:04:05"), msg.status, hex.EncodeToString(msg.payload)))
		} else {
			m = m.addLog(fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg.status))
		}
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	header := titleStyle.Render("axtl-transport monitor")
	conn := headerStyle.Render(fmt.Sprintf("Port: %s @ %d baud | Press 'q' to quit", m.portName, m.baudRate))

	stats := boxStyle.Render(fmt.Sprintf(
		"%s %s   %s %s   %s %s   %s %s   %s %s",
		labelStyle.Render("sent"), valueStyle.Render(fmt.Sprint(m.stats.Sent)),
		labelStyle.Render("received"), valueStyle.Render(fmt.Sprint(m.stats.Received)),
		labelStyle.Render("crc-failures"), valueStyle.Render(fmt.Sprint(m.stats.CRCFailures)),
		labelStyle.Render("timeouts"), valueStyle.Render(fmt.Sprint(m.stats.Timeouts)),
		labelStyle.Render("resyncs"), valueStyle.Render(fmt.Sprint(m.stats.ResyncDiscards)),
	))

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n", header, conn, stats, m.log.View())
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	layer, err := openLayer(cfg)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer layer.Close()

	m := newMonitorModel(portName, baudRate)
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		m.width, m.height = w, h
		m.log.SetSize(w, h-8)
	}
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for {
			st := layer.Receive()
			p.Send(statsMsg(layer.Stats()))

			if !st.Ok() {
				p.Send(frameMsg{status: st})
				continue
			}

			payload := make([]byte, layer.PayloadSize())
			layer.Read(payload, 0)
			p.Send(frameMsg{status: st, payload: payload})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
