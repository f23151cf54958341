package gait

import "math"

// Commands are buffered and committed by the coordinator at the next
// eligible stride boundary. Body offsets and attitude are applied at once
// but only when inside the variant's limits; out-of-range values are
// dropped and the setter reports false.

// Walk requests translation along angle degrees (Forward, Right, ...).
// Stop halts translation unless jog mode is on.
func (e *Engine) Walk(angle float64) bool {
	if angle < 0 || angle > Forward {
		return false
	}
	e.updateFlag = true
	e.newMoving = angle != Stop || e.newJog
	e.newDirector = angle
	return true
}

// Rotate requests turning in place.
func (e *Engine) Rotate(dir Rotation) bool {
	if dir < CCW || dir > CW {
		return false
	}
	e.updateFlag = true
	e.newRotation = dir
	return true
}

// SetGait requests a gait type. It takes effect at a phase where both
// step lengths line up, or when stopped.
func (e *Engine) SetGait(t Type) bool {
	if t != Dynamic && t != Static {
		return false
	}
	e.newBeta = t
	return true
}

// SetTrajectory selects the swing profile.
func (e *Engine) SetTrajectory(t Trajectory) {
	e.trajectory = t
}

// SetPosture requests a posture. A running routine finishes or reverses
// through its exit stages before the new posture starts.
func (e *Engine) SetPosture(p Posture) bool {
	if p < Up || p > Stretch {
		return false
	}
	if e.newPosture != p {
		e.newPosture = p
		e.updateFlag = true
		e.newMoving = false
		e.newRotation = NoRotation
	}
	return true
}

// SetJog turns jog mode on or off. Jogging trots in place while no walk
// direction is set. It reports false when the mode is already set.
func (e *Engine) SetJog(on bool) bool {
	if e.newJog == on {
		return false
	}
	e.newJog = on
	e.newPosture = Up
	e.Walk(Stop)
	return true
}

// SetStance changes the rest footprint magnitudes. Each leg adopts its new
// rest offset at the start of its own cycle.
func (e *Engine) SetStance(x, z float64) bool {
	lim := e.variant.Limits
	if !lim.Frontal.Contains(x) || !lim.Lateral.Contains(z) {
		return false
	}
	e.stanceX, e.stanceZ = x, z
	e.updateFlag = true
	return true
}

// SetHeight sets the body height in millimetres.
func (e *Engine) SetHeight(mm float64) bool {
	if e.posture != Up || !e.variant.Limits.Height.Contains(mm) {
		return false
	}
	e.pose.Y = mm
	return true
}

// SetFrontalOffset shifts the body forward or back. Only while stopped.
func (e *Engine) SetFrontalOffset(mm float64) bool {
	if !e.stopped || e.posture != Up || !e.variant.Limits.Frontal.Contains(mm) {
		return false
	}
	e.pose.X = mm
	return true
}

// SetLateralOffset shifts the body sideways. Only while stopped.
func (e *Engine) SetLateralOffset(mm float64) bool {
	if !e.stopped || e.posture != Up || !e.variant.Limits.Lateral.Contains(mm) {
		return false
	}
	e.pose.Z = mm
	return true
}

// SetRoll sets the body roll in degrees.
func (e *Engine) SetRoll(degrees float64) bool {
	if e.posture != Up || !e.variant.Limits.Roll.Contains(degrees) {
		return false
	}
	e.pose.Roll = degrees * math.Pi / 180
	return true
}

// SetPitch sets the body pitch in degrees.
func (e *Engine) SetPitch(degrees float64) bool {
	if e.posture != Up || !e.variant.Limits.Pitch.Contains(degrees) {
		return false
	}
	e.pose.Pitch = degrees * math.Pi / 180
	return true
}

// SetYaw sets the body yaw in degrees.
func (e *Engine) SetYaw(degrees float64) bool {
	if e.posture != Up || !e.variant.Limits.Yaw.Contains(degrees) {
		return false
	}
	e.pose.Yaw = degrees * math.Pi / 180
	return true
}
