package kinematics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnreachable is returned when a target lies outside the leg's envelope.
var ErrUnreachable = errors.New("target unreachable")

// Joint indexes a column of the joint table.
type Joint int

const (
	Abduction Joint = iota
	Rotation
	Knee
)

// Angles holds one leg's joint angles in tenths of a degree, indexed by Joint.
type Angles [3]int

// Solve computes the joint angles that place the foot of leg at target,
// given in the leg's local frame.
func (g Geometry) Solve(leg Leg, target r3.Vec) (Angles, error) {
	yf := target.Y - g.FootRadius

	beta := math.Atan((g.L1 + leg.side*target.Z) / yf)
	h := yf / math.Cos(beta)
	gamma := math.Acos(g.L1 / h)
	abduction := beta + gamma - math.Pi/2

	yz := h * math.Sin(gamma)
	theta := math.Atan(target.X / yz)
	reach := yz / math.Cos(theta)

	knee := math.Acos((g.L2*g.L2 + g.L3*g.L3 - reach*reach) / (2 * g.L3 * g.L2))
	rotation := math.Acos((g.L2*g.L2+reach*reach-g.L3*g.L3)/(2*reach*g.L2)) + theta

	for _, v := range []float64{abduction, rotation, knee} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Angles{}, fmt.Errorf("%w: %s at (%.1f, %.1f, %.1f)",
				ErrUnreachable, leg.ID, target.X, target.Y, target.Z)
		}
	}

	return Angles{tenths(abduction), tenths(rotation), tenths(knee)}, nil
}

func tenths(rad float64) int {
	return int(rad * 1800 / math.Pi)
}

// JointTable holds the latest joint angles of all four legs.
type JointTable [4]Angles

// Set solves target for leg and stores the result. An unreachable target
// leaves the leg's previous angles in place and returns the solve error.
func (t *JointTable) Set(g Geometry, leg Leg, target r3.Vec) error {
	a, err := g.Solve(leg, target)
	if err != nil {
		return err
	}
	t[leg.Index()] = a
	return nil
}

// Leg returns the angles of the given leg.
func (t JointTable) Leg(id LegID) Angles {
	return t[int(id)-1]
}
