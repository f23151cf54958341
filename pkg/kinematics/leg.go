// Package kinematics solves leg joint angles for a quadruped and maps the
// commanded body pose into each leg's local frame.
//
// Positions are in millimetres: X points forward, Y is the height measured
// down from the hip and Z is lateral. Angles are radians internally and
// tenths of a degree at the joint table.
package kinematics

import "fmt"

// Geometry holds the link lengths and body dimensions shared by all four
// legs of a robot variant.
type Geometry struct {
	L1         float64 `yaml:"l1"` // abduction axis to hip
	L2         float64 `yaml:"l2"` // hip to knee
	L3         float64 `yaml:"l3"` // knee to foot
	FootRadius float64 `yaml:"foot_radius"`
	HalfWidth  float64 `yaml:"half_width"`
	HalfLength float64 `yaml:"half_length"`
}

// LegID identifies a leg. IDs start at 1 and match the servo numbering.
type LegID int

const (
	BackRight LegID = iota + 1
	FrontRight
	BackLeft
	FrontLeft
)

var legNames = map[LegID]string{
	BackRight:  "back_right",
	FrontRight: "front_right",
	BackLeft:   "back_left",
	FrontLeft:  "front_left",
}

func (id LegID) String() string {
	if name, ok := legNames[id]; ok {
		return name
	}
	return fmt.Sprintf("leg(%d)", int(id))
}

// Leg carries the sign conventions of one leg. The signs are fixed at
// construction so every formula can be written once for all four legs.
type Leg struct {
	ID   LegID
	fore float64 // +1 front, -1 back
	side float64 // +1 right, -1 left
}

// NewLeg returns the leg with the given id and its signs.
func NewLeg(id LegID) Leg {
	l := Leg{ID: id, fore: -1, side: -1}
	if id == FrontRight || id == FrontLeft {
		l.fore = 1
	}
	if id == BackRight || id == FrontRight {
		l.side = 1
	}
	return l
}

// Legs returns all four legs in evaluation order.
func Legs() [4]Leg {
	return [4]Leg{NewLeg(BackRight), NewLeg(FrontRight), NewLeg(BackLeft), NewLeg(FrontLeft)}
}

// Index is the zero-based row of the leg in a JointTable.
func (l Leg) Index() int { return int(l.ID) - 1 }

// Right reports whether the leg is on the right side of the body.
func (l Leg) Right() bool { return l.side > 0 }

// Front reports whether the leg is a front leg.
func (l Leg) Front() bool { return l.fore > 0 }

// Side is +1 for right legs and -1 for left legs.
func (l Leg) Side() float64 { return l.side }

// Mirror maps a common stance magnitude onto this leg's rest offset.
func (l Leg) Mirror(x, z float64) (float64, float64) {
	return -l.fore * x, l.side * z
}
