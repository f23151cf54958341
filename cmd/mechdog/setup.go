package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/mechdog/pkg/gait"
	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/robot"
	"github.com/gwillem/mechdog/pkg/servo"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var errAborted = errors.New("setup aborted")

type SetupCommand struct {
	Variant         string `long:"variant" description:"Robot variant (skips the prompt)"`
	SkipCalibration bool   `long:"skip-calibration" description:"Keep the variant's joint calibration"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("mechdog Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	cfg := &robot.Config{}
	if existing, err := loadConfig(); err == nil {
		cfg = existing
		fmt.Println(dimStyle.Render("Updating " + opts.Config))
	}
	cfg.ApplyDefaults()

	// Step 1: variant
	if c.Variant != "" {
		cfg.Variant = c.Variant
	} else if err := chooseVariant(cfg); err != nil {
		return err
	}
	if _, err := cfg.ResolveVariant(); err != nil {
		return err
	}

	// Step 2: servo bus
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Servo bus ━━━"))
	fmt.Println()
	ports, err := listPorts()
	if err != nil {
		return err
	}
	buses := findBuses(ports)
	if len(buses) == 0 {
		fmt.Println("No servo bus found.")
		fmt.Println("Make sure the robot is connected and powered on.")
		return errors.New("no servo bus found")
	}
	bus, err := chooseBus(buses)
	if err != nil {
		return err
	}
	cfg.Servos = robot.ServoConfig{Protocol: bus.protocol, Port: bus.port}
	cfg.ApplyDefaults()

	// Step 3: MCU link
	if err := chooseMCUPort(cfg, ports); err != nil {
		return err
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	// Step 4: calibration
	if !c.SkipCalibration && confirm("Calibrate joint offsets now?") {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Calibration ━━━"))
		fmt.Println()
		if err := calibrate(cfg); err != nil {
			return err
		}
		if err := cfg.SaveTo(opts.Config); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start walking with: " + headerStyle.Render("mechdog run"))
	return nil
}

func chooseVariant(cfg *robot.Config) error {
	var options []huh.Option[string]
	for _, name := range robot.VariantNames(robot.BuiltinVariants()) {
		options = append(options, huh.NewOption(name, name))
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which robot is this?").
				Options(options...).
				Value(&cfg.Variant),
		),
	)
	if err := form.Run(); err != nil {
		return errAborted
	}
	return nil
}

type busInfo struct {
	port     string
	protocol string
}

func listPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out, nil
}

func findBuses(ports []string) []busInfo {
	fmt.Println("Scanning serial ports for servos...")

	var buses []busInfo
	for _, port := range ports {
		if probeLSS(port) {
			fmt.Printf("  Found LSS servos on %s\n", port)
			buses = append(buses, busInfo{port: port, protocol: robot.ProtocolLSS})
			continue
		}
		if n := probeFeetech(port); n > 0 {
			fmt.Printf("  Found %d Feetech servos on %s\n", n, port)
			buses = append(buses, busInfo{port: port, protocol: robot.ProtocolFeetech})
		}
	}
	return buses
}

// probeLSS asks the first leg servo for its id.
func probeLSS(port string) bool {
	d, err := servo.OpenLSS(port, robot.DefaultLSSBaud, nil)
	if err != nil {
		return false
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return d.Ping(ctx, robot.ServoIDs()[0]) == nil
}

// probeFeetech scans for leg servo ids and returns how many answered.
func probeFeetech(port string) int {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return 0
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids := robot.ServoIDs()
	found, err := bus.Scan(ctx, ids[0], ids[len(ids)-1])
	if err != nil {
		return 0
	}
	return countLegServos(found)
}

func countLegServos(found []feetech.FoundServo) int {
	n := 0
	for _, s := range found {
		if _, _, ok := robot.ParseServoID(s.ID); ok {
			n++
		}
	}
	return n
}

func chooseBus(buses []busInfo) (busInfo, error) {
	if len(buses) == 1 {
		return buses[0], nil
	}
	var options []huh.Option[int]
	for i, b := range buses {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", b.port, b.protocol), i))
	}
	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which port drives the legs?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return busInfo{}, errAborted
	}
	return buses[choice], nil
}

func chooseMCUPort(cfg *robot.Config, ports []string) error {
	options := []huh.Option[string]{huh.NewOption("None", "")}
	for _, port := range ports {
		if port == cfg.Servos.Port {
			continue
		}
		options = append(options, huh.NewOption(port, port))
	}
	if len(options) == 1 {
		cfg.MCU.Port = ""
		return nil
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Remote controller link").
				Description("Serial port the motion command board is connected to").
				Options(options...).
				Value(&cfg.MCU.Port),
		),
	)
	if err := form.Run(); err != nil {
		return errAborted
	}
	return nil
}

func confirm(title string) bool {
	ok := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return ok
}

// calibrate relaxes the servos, lets the user hold the robot in its neutral
// stance and derives joint offsets from the readings.
func calibrate(cfg *robot.Config) error {
	v, err := cfg.ResolveVariant()
	if err != nil {
		return err
	}
	drv, err := servo.Open(cfg.Servos, v.Joints)
	if err != nil {
		return fmt.Errorf("open servo bus: %w", err)
	}
	defer drv.Close()

	reader, ok := drv.(servo.Reader)
	if !ok {
		return fmt.Errorf("%s servos cannot report positions", cfg.Servos.Protocol)
	}

	ctx := context.Background()
	// Init sets the rotation directions the readings depend on.
	if err := drv.Init(ctx); err != nil {
		return fmt.Errorf("init servos: %w", err)
	}
	if err := drv.Relax(ctx); err != nil {
		return fmt.Errorf("relax servos: %w", err)
	}

	fmt.Println("Servos are limp. Stand the robot in its neutral stance:")
	fmt.Println("legs straight under the hips, body level.")
	fmt.Println()

	neutral := gait.New(v).Joints()
	p := tea.NewProgram(newCalibrationModel(reader, neutral))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run calibration: %w", err)
	}
	cm := final.(calibrationModel)
	if !cm.accepted {
		return errAborted
	}
	if cm.err != nil {
		return fmt.Errorf("read servos: %w", cm.err)
	}

	cfg.Calibration = v.Joints.Recalibrate(neutral, cm.reading)
	for _, name := range robot.AllJoints() {
		fmt.Printf("  %-10s offset %d\n", name, cfg.Calibration[name].Offset)
	}
	return nil
}

// Calibration TUI model
type calibrationModel struct {
	reader   servo.Reader
	neutral  kinematics.JointTable
	reading  kinematics.JointTable
	prev     kinematics.JointTable
	err      error
	accepted bool
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(reader servo.Reader, neutral kinematics.JointTable) calibrationModel {
	return calibrationModel{reader: reader, neutral: neutral}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.accepted = m.err == nil
			m.quitting = true
			return m, tea.Quit
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		t, err := m.reader.ReadJoints(ctx)
		cancel()
		m.err = err
		if err == nil {
			m.prev, m.reading = m.reading, t
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(subHeaderStyle.Render("Servo readings"))
	sb.WriteString("\n")
	sb.WriteString(jointTable(m.reading, m.prev))
	sb.WriteString("\n")
	sb.WriteString(subHeaderStyle.Render("Neutral stance"))
	sb.WriteString("\n")
	sb.WriteString(jointTable(m.neutral, m.neutral))
	sb.WriteString("\n\n")
	if m.err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(m.err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("Press Enter to accept, q to cancel"))
	return sb.String()
}
