package servo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/robot"
)

// Feetech STS position encoding.
const (
	feetechBaud   = 1_000_000
	stepsPerRev   = 4096
	centreStep    = 2048
	tenthsPerTurn = 3600
)

// Feetech drives Feetech STS servos through a sync-write servo group.
type Feetech struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
	cal   robot.Calibration
}

// OpenFeetech opens the STS bus at port.
func OpenFeetech(port string, cal robot.Calibration) (*Feetech, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: feetechBaud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	group := feetech.NewServoGroupByIDs(bus, robot.ServoIDs()...)

	return &Feetech{
		bus:   bus,
		group: group,
		cal:   cal,
	}, nil
}

// Init enables torque on all servos.
func (d *Feetech) Init(ctx context.Context) error {
	if err := d.group.EnableAll(ctx); err != nil {
		return fmt.Errorf("enable torque: %w", err)
	}
	return nil
}

// WriteJoints writes all twelve positions in one sync write.
func (d *Feetech) WriteJoints(ctx context.Context, t kinematics.JointTable) error {
	positions := make(feetech.PositionMap, 12)
	each(t, func(leg kinematics.Leg, joint kinematics.Joint, id, angle int) {
		positions[id] = ToSteps(angle, d.cal.Gyre(leg, joint))
	})

	if err := d.group.SetPositions(ctx, positions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// SetFilter is a no-op: STS servos have no position filter.
func (d *Feetech) SetFilter(ctx context.Context, count int) error {
	return nil
}

// Relax disables torque on all servos.
func (d *Feetech) Relax(ctx context.Context) error {
	if err := d.group.DisableAll(ctx); err != nil {
		return fmt.Errorf("disable torque: %w", err)
	}
	return nil
}

// ReadJoints reads all twelve positions in one sync read.
func (d *Feetech) ReadJoints(ctx context.Context) (kinematics.JointTable, error) {
	var t kinematics.JointTable

	positions, err := d.group.Positions(ctx)
	if err != nil {
		return t, fmt.Errorf("read positions: %w", err)
	}

	for id, raw := range positions {
		legID, joint, ok := robot.ParseServoID(id)
		if !ok {
			continue
		}
		leg := kinematics.NewLeg(legID)
		t[leg.Index()][joint] = FromSteps(raw, d.cal.Gyre(leg, joint))
	}
	return t, nil
}

// Close closes the bus connection.
func (d *Feetech) Close() error {
	return d.bus.Close()
}

// ToSteps converts an angle in tenths of a degree to an STS position,
// centred on half a turn.
func ToSteps(tenths, gyre int) int {
	return centreStep + int(math.Round(float64(gyre*tenths*stepsPerRev)/tenthsPerTurn))
}

// FromSteps is the inverse of ToSteps.
func FromSteps(steps, gyre int) int {
	return gyre * int(math.Round(float64((steps-centreStep)*tenthsPerTurn)/stepsPerRev))
}
