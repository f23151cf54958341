package gait

import (
	"math"

	"github.com/gwillem/mechdog/pkg/kinematics"
)

// Phase offsets of legs 1..4, in swing lengths. Trot pairs the diagonals;
// crawl steps one leg at a time.
var (
	trotOrder  = [4]int{3, 0, 2, 1}
	crawlOrder = [4]int{0, 1, 2, 3}
)

// walk runs one tick of the gait coordinator.
func (e *Engine) walk() {
	settling := !e.newMoving && e.newRotation == NoRotation && e.stopped

	order := trotOrder
	if e.beta == Static {
		order = crawlOrder
		e.balance()
	}

	// gait changes land only where both step lengths agree on the phase
	if (e.cont == 3 || e.cont == 11 || e.stopped) && e.beta != e.newBeta {
		e.beta = e.newBeta
		e.steps = (1 + int(e.beta)) * points
		e.stride = e.strideFor(e.beta)
		e.lockFrontal()
	}

	e.stopped = false

	var fore, lateral int
	if e.updateFlag {
		fore, lateral = intent(e.newDirector)
	}

	settled := true
	for n := range e.legs {
		i := (e.cont + order[n]*points) % e.steps

		if e.updateFlag && i == 1 {
			if e.triggers(n, fore, lateral) || (!e.newMoving && e.newRotation == NoRotation) {
				e.commit()
			}
		}

		if !settling {
			e.lockFrontal()
		}

		foot, done := e.footPosition(n, i)
		settled = settled && done
		e.place(n, foot)
	}

	if settled {
		idle := e.newRotation == NoRotation && !e.newMoving
		switch {
		case e.beta == Static && idle && (e.pose.Z == 0 || settling) && !e.updateFlag:
			e.stopped = true
			e.posture = e.newPosture
			e.balancing = false
		case e.beta == Dynamic && idle:
			e.stopped = true
			e.posture = e.newPosture
		}
	}

	e.cont++
	if e.cont >= e.steps {
		e.cont = 0
	}
}

// intent classifies a walk direction as forward/backward and right/left,
// each -1, 0 or 1.
func intent(angle float64) (fore, lateral int) {
	switch {
	case Forward-angle < angleRange || angle < angleRange:
		fore = 1
	case math.Abs(angle-Backward) < angleRange:
		fore = -1
	}
	switch {
	case math.Abs(angle-Right) < angleRange:
		lateral = 1
	case math.Abs(angle-Left) < angleRange:
		lateral = -1
	}
	return fore, lateral
}

// triggers reports whether leg n is the one whose stride boundary commits
// pending commands for the given intent. Any rotation commits on the
// first leg to reach its boundary.
func (e *Engine) triggers(n, fore, lateral int) bool {
	if e.newRotation != NoRotation {
		return true
	}
	switch e.legs[n].ID {
	case kinematics.FrontRight:
		return fore >= 0 && lateral >= 0
	case kinematics.FrontLeft:
		return fore >= 0 && lateral <= 0
	case kinematics.BackRight:
		return fore <= 0 && lateral >= 0
	case kinematics.BackLeft:
		return fore <= 0 && lateral <= 0
	}
	return false
}

// commit makes the pending commands active.
func (e *Engine) commit() {
	e.updateFlag = false
	e.director = e.newDirector * math.Pi / 180
	e.moving = e.newMoving
	e.jog = e.newJog
	if e.jog {
		e.moving = true
	}
	e.rotAngle = float64(e.newRotation) * rotationStep

	for n := range e.legs {
		e.legs[n].newRestX, e.legs[n].newRestZ = e.legs[n].Mirror(e.stanceX, e.stanceZ)
	}
}

// balance shifts the body sideways in step with the crawl so the centre of
// gravity stays over the supporting feet.
func (e *Engine) balance() {
	if !e.balancing {
		x, z := e.legs[0].Mirror(e.stanceX, e.stanceZ)
		if e.moving || e.rotAngle != 0 || x != e.legs[0].newRestX || z != e.legs[0].newRestZ {
			e.balancing = true
		}
	}
	if e.balancing {
		e.pose.Z = math.Trunc(-e.variant.Gait.BalanceDistance * math.Sin(math.Pi*float64(e.cont-3)/8))
	}
}

func (e *Engine) lockFrontal() {
	if e.variant.Gait.LockFrontal {
		e.pose.X = e.frontalBias()
	}
}
