// Package servo sends joint tables to the twelve leg servos.
//
// A Driver receives the calibrated joint table once per tick. Two buses are
// supported: Lynxmotion LSS servos speaking the ASCII protocol over a serial
// port, and Feetech STS servos. A Recorder keeps every table in memory for
// simulation and tests.
package servo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/robot"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "servo",
})

// Driver sends joint tables to a servo bus. Angles are servo command angles
// in tenths of a degree, as produced by robot.Calibration.MapTable.
type Driver interface {
	// Init configures the servos and enables holding torque.
	Init(ctx context.Context) error
	WriteJoints(ctx context.Context, t kinematics.JointTable) error
	// SetFilter sets the servos' position filter count. Higher counts
	// smooth motion at the cost of lag.
	SetFilter(ctx context.Context, count int) error
	// Relax removes holding torque.
	Relax(ctx context.Context) error
	Close() error
}

// Reader is implemented by drivers that can read joint angles back, in the
// same frame WriteJoints takes.
type Reader interface {
	ReadJoints(ctx context.Context) (kinematics.JointTable, error)
}

// Sender is implemented by drivers that accept raw bus commands.
type Sender interface {
	Send(ctx context.Context, cmd Command) error
}

// Command is one raw servo bus command such as a move, limp or LED change.
type Command struct {
	ID       int
	Name     string
	Value    int
	HasValue bool
}

// Servo command names.
const (
	CmdMove          = "D"
	CmdLimp          = "L"
	CmdHold          = "H"
	CmdLED           = "LED"
	CmdGyre          = "G"
	CmdFilter        = "FPC"
	CmdMotionControl = "EM"
	CmdHoldStiffness = "AH"
	CmdStiffness     = "AS"
	CmdQueryID       = "QID"
	CmdQueryPosition = "QD"
)

// NewCommand returns a command carrying a value.
func NewCommand(id int, name string, value int) Command {
	return Command{ID: id, Name: name, Value: value, HasValue: true}
}

// String encodes the command in the LSS ASCII framing, "#<id><name>[value]\r".
func (c Command) String() string {
	s := "#" + strconv.Itoa(c.ID) + c.Name
	if c.HasValue {
		s += strconv.Itoa(c.Value)
	}
	return s + "\r"
}

// Open opens the servo bus described by cfg.
func Open(cfg robot.ServoConfig, cal robot.Calibration) (Driver, error) {
	switch cfg.Protocol {
	case robot.ProtocolLSS, "":
		return OpenLSS(cfg.Port, cfg.Baud, cal)
	case robot.ProtocolFeetech:
		return OpenFeetech(cfg.Port, cal)
	}
	return nil, fmt.Errorf("unknown servo protocol %q", cfg.Protocol)
}

// each calls fn for every joint of t with its servo id.
func each(t kinematics.JointTable, fn func(leg kinematics.Leg, joint kinematics.Joint, id, angle int)) {
	for _, leg := range kinematics.Legs() {
		for j, angle := range t[leg.Index()] {
			joint := kinematics.Joint(j)
			fn(leg, joint, robot.ServoID(leg.ID, joint), angle)
		}
	}
}
