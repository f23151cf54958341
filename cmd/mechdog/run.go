package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/mechdog/pkg/control"
	"github.com/gwillem/mechdog/pkg/gait"
	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/mcu"
	"github.com/gwillem/mechdog/pkg/remote"
	"github.com/gwillem/mechdog/pkg/servo"
)

type RunCommand struct {
	Speed      int    `long:"speed" description:"Walking speed level 1-4 (default from config)"`
	Trajectory string `long:"trajectory" choice:"circular" choice:"square" description:"Swing trajectory"`
	Listen     string `long:"listen" description:"Serve the JSON-RPC remote on this address, e.g. :8080"`
	NoMCU      bool   `long:"no-mcu" description:"Ignore the configured MCU link"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	tableHeight  = 7 // joint table
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	heightStep   = 5 // mm per key press
)

// Leg colors for the hip swing chart
var legColors = map[kinematics.LegID]string{
	kinematics.BackRight:  "196", // red
	kinematics.FrontRight: "208", // orange
	kinematics.BackLeft:   "46",  // green
	kinematics.FrontLeft:  "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const helpText = "arrows walk  space stop  z/x turn  1-4 speed  j jog  c trajectory  +/- height\n" +
	"u up  i sit  l lay  p paw  g wiggle  t tinkle  y stretch  q quit"

type runModel struct {
	ctrl     *control.Controller
	chart    *streamlinechart.Model
	width    int // terminal width
	height   int // terminal height
	logs     []string
	quitting bool
	state    control.State
	prev     kinematics.JointTable
	bodyY    float64
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg control.State
type logMsg string

func waitForState(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 12 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - tableHeight - footerHeight - borderSize
	if height < 6 {
		height = 6
	}
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(ctrl *control.Controller) runModel {
	chart := streamlinechart.New(80, 12,
		streamlinechart.WithYRange(-60, 60),
	)

	for _, leg := range kinematics.Legs() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(legColors[leg.ID]))
		chart.SetDataSetStyles(leg.ID.String(), runes.ThinLineStyle, style)
	}

	return runModel{
		ctrl:  ctrl,
		chart: &chart,
		state: ctrl.Snapshot(),
		bodyY: ctrl.Variant().Stance.Height,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if action := m.handleKey(msg.String()); action != "" {
			m.addLog(action)
		}
		return m, nil

	case stateMsg:
		state := control.State(msg)
		// Only push samples while the joints move (freeze when idle)
		if state.Joints != m.state.Joints {
			for _, leg := range kinematics.Legs() {
				deg := float64(state.Joints[leg.Index()][kinematics.Rotation]) / 10
				m.chart.PushDataSet(leg.ID.String(), deg)
			}
			m.chart.DrawAll()
			m.prev = m.state.Joints
		}
		m.state = state
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

// handleKey maps a key to a controller command and describes it.
func (m *runModel) handleKey(key string) string {
	c := m.ctrl
	walk := func(angle int, name string) string {
		c.Walk(angle)
		return "walk " + name
	}
	posture := func(p gait.Posture) string {
		c.SetPosture(p)
		return "posture " + p.String()
	}

	switch key {
	case "up", "w":
		return walk(gait.Forward, "forward")
	case "down", "s":
		return walk(gait.Backward, "backward")
	case "left", "a":
		return walk(gait.Left, "left")
	case "right", "d":
		return walk(gait.Right, "right")
	case " ":
		c.Walk(gait.Stop)
		c.Rotate(gait.NoRotation)
		return "stop"
	case "z":
		c.Rotate(gait.CCW)
		return "turn left"
	case "x":
		c.Rotate(gait.CW)
		return "turn right"
	case "1", "2", "3", "4":
		level := int(key[0] - '0')
		c.SetSpeed(level)
		return fmt.Sprintf("speed %d", level)
	case "j":
		on := !m.state.Jogging
		c.SetJog(on)
		return fmt.Sprintf("jog %v", on)
	case "c":
		t := gait.Square
		if m.state.Trajectory == gait.Square {
			t = gait.Circular
		}
		c.SetTrajectory(t)
		return "trajectory " + t.String()
	case "+", "=", "-":
		y := m.bodyY + heightStep
		if key == "-" {
			y = m.bodyY - heightStep
		}
		if !c.SetHeight(int(y)) {
			return fmt.Sprintf("height %.0f out of range", y)
		}
		m.bodyY = y
		return fmt.Sprintf("height %.0f", y)
	case "u":
		return posture(gait.Up)
	case "i":
		return posture(gait.Sit)
	case "l":
		return posture(gait.Lay)
	case "p":
		return posture(gait.Paw)
	case "g":
		return posture(gait.Wiggle)
	case "t":
		return posture(gait.Tinkle)
	case "y":
		return posture(gait.Stretch)
	}
	return ""
}

func (m runModel) View() string {
	if m.quitting {
		return "Controller stopped.\n"
	}

	var sb strings.Builder
	s := m.state

	// Header
	sb.WriteString(titleStyle.Render("mechdog " + m.ctrl.Variant().Name))
	sb.WriteString(fmt.Sprintf(" - %s %s, speed %d, %s tick", s.Gait, s.Trajectory, s.Speed, s.Period))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%s step %d, phase %d, stopped %v]", s.Posture, s.Step, s.Phase, s.Stopped)))
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Joint table
	sb.WriteString(jointTable(s.Joints, m.prev))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	logLines := statusStyle.Render(helpText)
	if len(m.logs) > 0 {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, leg := range kinematics.Legs() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(legColors[leg.ID])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+leg.ID.String()+" hip")
	}
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'mechdog setup' first.")
		return err
	}
	if cfg.Servos.Port == "" {
		fmt.Fprintln(os.Stderr, "Servo bus not configured. Run 'mechdog setup' first.")
		return errors.New("no servo port")
	}

	v, err := cfg.ResolveVariant()
	if err != nil {
		return err
	}
	traj, err := gait.ParseTrajectory(firstSet(c.Trajectory, cfg.Trajectory))
	if err != nil {
		return err
	}
	speed := c.Speed
	if speed == 0 {
		speed = cfg.Speed
	}

	fmt.Printf("Loaded configuration from %s\n", opts.Config)

	drv, err := servo.Open(cfg.Servos, v.Joints)
	if err != nil {
		return fmt.Errorf("open servo bus: %w", err)
	}

	ctrl, err := control.New(control.Config{
		Variant:    v,
		Driver:     drv,
		Speed:      speed,
		Trajectory: traj,
	})
	if err != nil {
		drv.Close()
		return fmt.Errorf("create controller: %w", err)
	}
	defer ctrl.Close()

	// Library logging goes to the log box instead of the alternate screen
	logrus.SetOutput(io.Discard)
	logrus.AddHook(ctrl.Hook(logrus.GetLevel()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Error("controller stopped")
		}
	}()

	if cfg.MCU.Port != "" && !c.NoMCU {
		port, err := mcu.Open(cfg.MCU.Port, cfg.MCU.Baud)
		if err != nil {
			cancel()
			<-done
			return fmt.Errorf("open mcu link: %w", err)
		}
		defer port.Close()
		go func() {
			if err := mcu.Serve(ctx, port, cfg.MCU.ID, ctrl.Apply); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("mcu link closed")
			}
		}()
	}

	if listen := firstSet(c.Listen, cfg.Listen); listen != "" {
		go func() {
			if err := remote.ListenAndServe(ctx, listen, remote.NewService(ctrl, cfg.MCU.ID)); err != nil {
				logrus.WithError(err).Error("remote stopped")
			}
		}()
	}

	p := tea.NewProgram(initialRunModel(ctrl), tea.WithAltScreen())
	_, err = p.Run()

	cancel()
	<-done
	if err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
