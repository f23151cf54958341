package control

import (
	"github.com/gwillem/mechdog/pkg/gait"
	"github.com/gwillem/mechdog/pkg/mcu"
	"github.com/gwillem/mechdog/pkg/servo"
)

// Commands wake the loop for at least one tick and pick the speed level
// the command needs: walking and turning run at the requested speed, body
// adjustments while standing run at StopSpeed.

// Walk moves along angle degrees; 0 stops.
func (c *Controller) Walk(angle int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walk(angle)
}

func (c *Controller) walk(angle int) bool {
	if !c.engine.Walk(float64(angle)) {
		return false
	}
	c.moveFlag = true
	switch {
	case c.engine.Idle():
		c.changeSpeed(StopSpeed)
	case c.speed != c.actualSpeed:
		c.changeSpeed(c.speed)
	}
	return true
}

// Rotate turns in place.
func (c *Controller) Rotate(dir gait.Rotation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotate(dir)
}

func (c *Controller) rotate(dir gait.Rotation) bool {
	if !c.engine.Rotate(dir) {
		return false
	}
	c.moveFlag = true
	if c.speed != c.actualSpeed {
		c.changeSpeed(c.speed)
	}
	return true
}

// SetFrontalOffset shifts the body forward in millimetres while standing.
func (c *Controller) SetFrontalOffset(mm int) bool {
	return c.offset(func(e *gait.Engine) bool { return e.SetFrontalOffset(float64(mm)) })
}

// SetLateralOffset shifts the body sideways in millimetres while standing.
func (c *Controller) SetLateralOffset(mm int) bool {
	return c.offset(func(e *gait.Engine) bool { return e.SetLateralOffset(float64(mm)) })
}

// offset applies a body offset, which only makes sense while standing.
func (c *Controller) offset(apply func(*gait.Engine) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.moveFlag = true
	if !c.engine.Stopped() || c.engine.Posture() != gait.Up {
		return false
	}
	ok := apply(c.engine)
	if c.actualSpeed != StopSpeed {
		c.changeSpeed(StopSpeed)
	}
	return ok
}

// SetHeight sets the body height in millimetres.
func (c *Controller) SetHeight(mm int) bool {
	return c.attitude(func(e *gait.Engine) bool { return e.SetHeight(float64(mm)) })
}

// SetRoll sets the body roll in degrees.
func (c *Controller) SetRoll(deg int) bool {
	return c.attitude(func(e *gait.Engine) bool { return e.SetRoll(float64(deg)) })
}

// SetPitch sets the body pitch in degrees.
func (c *Controller) SetPitch(deg int) bool {
	return c.attitude(func(e *gait.Engine) bool { return e.SetPitch(float64(deg)) })
}

// SetYaw sets the body yaw in degrees.
func (c *Controller) SetYaw(deg int) bool {
	return c.attitude(func(e *gait.Engine) bool { return e.SetYaw(float64(deg)) })
}

func (c *Controller) attitude(apply func(*gait.Engine) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.moveFlag = true
	ok := apply(c.engine)
	if c.engine.Stopped() && c.actualSpeed != StopSpeed {
		c.changeSpeed(StopSpeed)
	}
	return ok
}

// SetPosture requests a posture. Walking and turning stop first.
func (c *Controller) SetPosture(p gait.Posture) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.RequestedPosture() == p {
		return true
	}
	if !c.engine.SetPosture(p) {
		return false
	}
	c.moveFlag = true
	return true
}

// SetJog turns trotting in place on or off.
func (c *Controller) SetJog(on bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.engine.SetJog(on) {
		return false
	}
	return c.walk(gait.Stop)
}

// SetTrajectory selects the swing profile.
func (c *Controller) SetTrajectory(t gait.Trajectory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveFlag = true
	c.engine.SetTrajectory(t)
}

// SetSpeed selects the walking speed level. It takes effect with the next
// walk or rotate command.
func (c *Controller) SetSpeed(s int) bool {
	if s < MinSpeed || s > MaxSpeed {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = s
	return true
}

// Speed returns the requested speed level.
func (c *Controller) Speed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Relay queues a raw servo command for the next tick.
func (c *Controller) Relay(cmd servo.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relay = append(c.relay, cmd)
}

// Apply executes one remote command.
func (c *Controller) Apply(cmd mcu.Command) {
	if cmd.Servo != nil {
		c.Relay(*cmd.Servo)
		return
	}
	if cmd.HasSpeed && cmd.Speed != 0 {
		c.SetSpeed(cmd.Speed)
	}

	v := cmd.Value
	switch cmd.Motion {
	case mcu.Walk:
		c.Walk(v)
	case mcu.Rotate:
		c.Rotate(gait.Rotation(v))
	case mcu.Roll:
		c.SetRoll(v)
	case mcu.Pitch:
		c.SetPitch(v)
	case mcu.Yaw:
		c.SetYaw(v)
	case mcu.FrontalOffset:
		c.SetFrontalOffset(v)
	case mcu.Height:
		c.SetHeight(v)
	case mcu.LateralOffset:
		c.SetLateralOffset(v)
	case mcu.GaitType:
		c.SetTrajectory(gait.Trajectory(v))
	case mcu.Up, mcu.Sit, mcu.Lay, mcu.Paw, mcu.Wiggle, mcu.Tinkle, mcu.Stretch:
		c.SetPosture(gait.Posture(cmd.Motion - mcu.Up))
	case mcu.JogOn:
		c.SetJog(true)
	case mcu.JogOff:
		c.SetJog(false)
	default:
		c.mu.Lock()
		c.walk(gait.Stop)
		c.rotate(gait.NoRotation)
		c.mu.Unlock()
	}
}
