package gait

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/robot"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "gait",
})

type legState struct {
	kinematics.Leg
	restX, restZ       float64
	newRestX, newRestZ float64
	xg, zg             float64 // glide position
}

// Engine is the kinematics and gait engine of one robot. It is not safe
// for concurrent use; callers serialize commands and ticks.
type Engine struct {
	variant robot.Variant
	geo     kinematics.Geometry
	legs    [4]legState
	joints  kinematics.JointTable

	cont, steps   int
	beta, newBeta Type
	trajectory    Trajectory
	director      float64 // radians
	newDirector   float64 // degrees
	moving        bool
	newMoving     bool
	rotAngle      float64
	newRotation   Rotation
	jog, newJog   bool
	updateFlag    bool
	stopped       bool
	balancing     bool

	lift, stride     float64
	pose             kinematics.Pose
	stanceX, stanceZ float64

	posture, newPosture Posture
	step                int
}

// New builds an engine standing in the neutral pose of variant v.
func New(v robot.Variant) *Engine {
	e := &Engine{
		variant: v,
		geo:     v.Geometry,
		beta:    Static,
		newBeta: Static,
		stopped: true,
		stanceX: v.Stance.X,
		stanceZ: v.Stance.Z,
	}
	for n, leg := range kinematics.Legs() {
		x, z := leg.Mirror(v.Stance.X, v.Stance.Z)
		e.legs[n] = legState{Leg: leg, restX: x, restZ: z, newRestX: x, newRestZ: z, xg: x, zg: z}
	}
	e.steps = (1 + int(e.beta)) * points
	e.pose = kinematics.Pose{X: e.frontalBias(), Y: v.Stance.Height, Z: v.Stance.Lateral}
	e.lift = v.Gait.FootElevation
	e.stride = e.strideFor(e.beta)
	e.placeAll(frame{})
	return e
}

// Tick advances the engine by one control period and recomputes the
// joint table.
func (e *Engine) Tick() {
	if e.posture == Up {
		e.walk()
	}
	if e.posture != Up {
		e.perform()
	}
}

func (e *Engine) place(n int, foot r3.Vec) {
	leg := e.legs[n].Leg
	target := kinematics.Quantize(e.geo.ToLegFrame(leg, foot, e.pose))
	if err := e.joints.Set(e.geo, leg, target); err != nil {
		log.WithField("leg", leg.ID).Debugf("holding joints: %v", err)
	}
}

// placeAll solves every leg at its glide position, raising the legs the
// frame lifts.
func (e *Engine) placeAll(f frame) {
	for n := range e.legs {
		foot := r3.Vec{X: e.legs[n].xg, Z: e.legs[n].zg}
		if f.lifted[n] {
			foot.Y = f.lift
		}
		e.place(n, foot)
	}
}

func (e *Engine) frontalBias() float64 {
	if e.beta == Dynamic {
		return e.variant.Gait.FrontalDynamic
	}
	return e.variant.Gait.FrontalStatic
}

func (e *Engine) strideFor(t Type) float64 {
	if t == Dynamic {
		return e.variant.Gait.StepDynamic
	}
	return e.variant.Gait.StepStatic
}

// Variant returns the robot variant the engine was built for.
func (e *Engine) Variant() robot.Variant { return e.variant }

// Stopped reports whether the body is at rest.
func (e *Engine) Stopped() bool { return e.stopped }

// Idle reports whether the body is at rest with no movement requested.
func (e *Engine) Idle() bool { return e.stopped && !e.newMoving }

// Moving reports whether translation is active.
func (e *Engine) Moving() bool { return e.moving }

// Jogging reports whether jog mode is active.
func (e *Engine) Jogging() bool { return e.jog }

// Gait returns the active gait type.
func (e *Engine) Gait() Type { return e.beta }

// Trajectory returns the active swing profile.
func (e *Engine) Trajectory() Trajectory { return e.trajectory }

// Posture returns the active posture.
func (e *Engine) Posture() Posture { return e.posture }

// RequestedPosture returns the posture the engine is heading for.
func (e *Engine) RequestedPosture() Posture { return e.newPosture }

// Phase returns the phase counter.
func (e *Engine) Phase() int { return e.cont }

// SequenceStep returns the step of the active posture routine.
func (e *Engine) SequenceStep() int { return e.step }

// Pose returns the current body pose.
func (e *Engine) Pose() kinematics.Pose { return e.pose }

// Glide returns a leg's glide position.
func (e *Engine) Glide(id kinematics.LegID) (x, z float64) {
	l := e.legs[int(id)-1]
	return l.xg, l.zg
}

// Rest returns a leg's active rest offset.
func (e *Engine) Rest(id kinematics.LegID) (x, z float64) {
	l := e.legs[int(id)-1]
	return l.restX, l.restZ
}

// Joints returns the raw joint table.
func (e *Engine) Joints() kinematics.JointTable { return e.joints }

// Output returns the joint table mapped through the variant's calibration,
// ready for the servo layer.
func (e *Engine) Output() kinematics.JointTable {
	return e.variant.Joints.MapTable(e.joints)
}
