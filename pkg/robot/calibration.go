package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/gwillem/mechdog/pkg/kinematics"
)

// JointCalibration holds calibration data for one joint, shared by the
// four legs. Offset, Min and Max are in tenths of a degree. Gyre is the
// servo rotation direction for right legs; left legs use the opposite.
type JointCalibration struct {
	Offset int `json:"offset" yaml:"offset"`
	Min    int `json:"min" yaml:"min"`
	Max    int `json:"max" yaml:"max"`
	Gyre   int `json:"gyre" yaml:"gyre"`
}

// Calibration holds calibration data for all joints, keyed by joint name.
type Calibration map[JointName]JointCalibration

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var raw map[string]JointCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	cal := make(Calibration, len(raw))
	for name, jc := range raw {
		cal[JointName(name)] = jc
	}

	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}

// Validate checks that every joint is present with an ordered range.
func (c Calibration) Validate() error {
	for _, name := range AllJoints() {
		jc, ok := c[name]
		if !ok {
			return fmt.Errorf("calibration: missing joint %s", name)
		}
		if jc.Min > jc.Max {
			return fmt.Errorf("calibration: %s min %d above max %d", name, jc.Min, jc.Max)
		}
	}
	return nil
}

// Apply removes the calibration offset from a raw angle and clamps the
// result to the joint's range.
func (c JointCalibration) Apply(raw int) int {
	v := raw - c.Offset
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}

// Map converts a raw angle of the given joint into a servo command angle.
// Joints without calibration pass through unchanged.
func (c Calibration) Map(joint kinematics.Joint, raw int) int {
	names := AllJoints()
	if int(joint) < 0 || int(joint) >= len(names) {
		return raw
	}
	jc, ok := c[names[joint]]
	if !ok {
		return raw
	}
	return jc.Apply(raw)
}

// MapTable applies Map to every entry of a joint table.
func (c Calibration) MapTable(t kinematics.JointTable) kinematics.JointTable {
	var out kinematics.JointTable
	for leg := range t {
		for j, raw := range t[leg] {
			out[leg][j] = c.Map(kinematics.Joint(j), raw)
		}
	}
	return out
}

// Gyre returns the rotation direction of a servo, +1 or -1.
func (c Calibration) Gyre(leg kinematics.Leg, joint kinematics.Joint) int {
	g := 1
	if jc, ok := c[AllJoints()[joint]]; ok && jc.Gyre != 0 {
		g = jc.Gyre
	}
	if !leg.Right() {
		g = -g
	}
	return g
}

// Recalibrate returns a copy of c whose offsets make the neutral joint
// table map onto the servo readings taken with the robot held in its
// neutral stance. Each joint's offset is averaged over the four legs.
func (c Calibration) Recalibrate(neutral, reading kinematics.JointTable) Calibration {
	out := make(Calibration, len(c))
	for name, jc := range c {
		out[name] = jc
	}
	for j, name := range AllJoints() {
		sum := 0
		for leg := range neutral {
			sum += neutral[leg][j] - reading[leg][j]
		}
		jc := out[name]
		jc.Offset = int(math.Round(float64(sum) / float64(len(neutral))))
		out[name] = jc
	}
	return out
}
