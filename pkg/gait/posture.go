package gait

import (
	"math"

	"github.com/gwillem/mechdog/pkg/kinematics"
)

// frame collects the leg lifts a posture stage makes in one tick.
type frame struct {
	lift   float64
	lifted [4]bool
}

func (f *frame) raise(n int, y float64) {
	f.lift = y
	f.lifted[n] = true
}

// stage is one step of a posture routine.
type stage struct {
	name string
	do   func(e *Engine, f *frame)
	next int
	// hold keeps the body stopped while the posture stays requested.
	hold bool
	// exit, when non-zero, replaces next once a different posture is
	// requested, after leave has run.
	exit  int
	leave func(e *Engine, f *frame)
	// final hands over to the requested posture.
	final bool
}

// routine is the transition table of one posture. Stage 0 is the entry.
type routine []stage

var routines = map[Posture]routine{
	Sit:     sitRoutine,
	Lay:     layRoutine,
	Paw:     pawRoutine,
	Wiggle:  wiggleRoutine,
	Tinkle:  tinkleRoutine,
	Stretch: stretchRoutine,
}

// perform runs one stage of the active posture routine.
func (e *Engine) perform() {
	r, ok := routines[e.posture]
	if !ok {
		e.posture, e.newPosture, e.step = Up, Up, 0
		e.placeAll(frame{})
		return
	}

	st := r[e.step]
	if e.step == 0 {
		e.stopped = false
	}

	var f frame
	if st.do != nil {
		st.do(e, &f)
	}

	next := st.next
	if st.hold {
		e.stopped = true
	}
	if st.exit != 0 && e.newPosture != e.posture {
		if st.leave != nil {
			st.leave(e, &f)
		}
		next = st.exit
		e.stopped = false
	}

	if st.final {
		log.WithField("posture", e.posture).Debugf("routine done, switching to %s", e.newPosture)
		e.step = 0
		e.posture = e.newPosture
		if e.posture == Up {
			e.stopped = true
		}
	} else {
		e.step = next
	}

	e.placeAll(f)
}

func deg(d float64) float64 { return d * math.Pi / 180 }

func (e *Engine) standHeight() float64 { return e.variant.Stance.Height }

func (e *Engine) restore(n int) {
	e.legs[n].xg, e.legs[n].zg = e.legs[n].restX, e.legs[n].restZ
}

func pause(name string, next int) stage {
	return stage{name: name, next: next}
}

func done() stage {
	return stage{name: "done", final: true}
}

// leg rows
const (
	backRight  = int(kinematics.BackRight) - 1
	frontRight = int(kinematics.FrontRight) - 1
	frontLeft  = int(kinematics.FrontLeft) - 1
)

var sitRoutine = routine{
	{name: "crouch", next: 1, do: func(e *Engine, f *frame) {
		e.pose = kinematics.Pose{Y: 120}
	}},
	{name: "tilt back", next: 2, do: func(e *Engine, f *frame) {
		e.pose.Pitch = deg(30)
		e.pose.X = -40
	}},
	{name: "tuck front left", next: 3, do: func(e *Engine, f *frame) {
		e.legs[frontLeft].zg = 20
		f.raise(frontLeft, 60)
	}},
	{name: "set front left", next: 4, do: func(e *Engine, f *frame) {
		f.raise(frontLeft, 0)
	}},
	{name: "tuck front right", next: 5, do: func(e *Engine, f *frame) {
		e.legs[frontRight].zg = -20
		f.raise(frontRight, 60)
	}},
	{name: "sitting", next: 5, hold: true, exit: 6, do: func(e *Engine, f *frame) {
		f.raise(frontRight, 0)
	}},
	{name: "untuck front left", next: 7, do: func(e *Engine, f *frame) {
		e.legs[frontLeft].zg = e.legs[frontLeft].restZ
		f.raise(frontLeft, 60)
	}},
	{name: "set front left", next: 8, do: func(e *Engine, f *frame) {
		f.raise(frontLeft, 0)
	}},
	{name: "untuck front right", next: 9, do: func(e *Engine, f *frame) {
		e.legs[frontRight].zg = e.legs[frontRight].restZ
		f.raise(frontRight, 60)
	}},
	{name: "set front right", next: 10, do: func(e *Engine, f *frame) {
		f.raise(frontRight, 0)
	}},
	{name: "level", next: 11, do: func(e *Engine, f *frame) {
		e.pose.Pitch = 0
		e.pose.X = 0
	}},
	{name: "stand", final: true, do: func(e *Engine, f *frame) {
		e.pose.Y = e.standHeight()
	}},
}

var pawRoutine = routine{
	{name: "shift weight", next: 1, do: func(e *Engine, f *frame) {
		e.pose = kinematics.Pose{X: -10, Y: 135, Z: 20, Pitch: deg(15)}
		f.raise(frontRight, 50)
	}},
	{name: "pawing", next: 1, hold: true, exit: 2,
		do: func(e *Engine, f *frame) {
			e.legs[frontRight].xg = -85
			e.legs[frontRight].zg = -20
			f.raise(frontRight, e.standHeight())
		},
		leave: func(e *Engine, f *frame) {
			f.lift = 50
			e.legs[frontRight].xg = -20
		}},
	{name: "lower paw", next: 3, do: func(e *Engine, f *frame) {
		e.pose.Pitch = 0
		e.pose.X = 0
		e.pose.Z = 0
		e.restore(frontRight)
		f.raise(frontRight, 0)
	}},
	pause("settle", 4),
	done(),
}

var layRoutine = routine{
	{name: "level", next: 1, do: func(e *Engine, f *frame) {
		e.pose = kinematics.Pose{Y: e.standHeight()}
	}},
	{name: "lying", next: 1, hold: true, exit: 2,
		do: func(e *Engine, f *frame) {
			e.pose = kinematics.Pose{Y: e.variant.Limits.Height.Min}
		},
		leave: func(e *Engine, f *frame) {
			e.pose.Y = e.standHeight()
		}},
	pause("settle", 3),
	done(),
}

var tinkleRoutine = routine{
	{name: "shift weight", next: 1, do: func(e *Engine, f *frame) {
		e.pose = kinematics.Pose{X: 30, Y: e.standHeight(), Z: 30}
	}},
	{name: "raise back right", next: 2, do: func(e *Engine, f *frame) {
		e.legs[backRight].zg = 30
		e.legs[backRight].xg = 0
		f.raise(backRight, e.standHeight()-70)
	}},
	{name: "tinkling", next: 2, hold: true, exit: 3,
		do: func(e *Engine, f *frame) {
			e.legs[backRight].zg = 120
			f.raise(backRight, e.standHeight()-70)
		},
		leave: func(e *Engine, f *frame) {
			e.legs[backRight].zg = 20
		}},
	{name: "lower back right", next: 4, do: func(e *Engine, f *frame) {
		e.restore(backRight)
		f.raise(backRight, 0)
		e.pose.Y = e.standHeight()
	}},
	{name: "recentre", next: 5, do: func(e *Engine, f *frame) {
		e.pose.Z = 0
		e.pose.X = 0
		e.pose.Y = e.standHeight()
	}},
	pause("settle", 6),
	done(),
}

var wiggleRoutine = routine{
	{name: "bow", next: 1, do: func(e *Engine, f *frame) {
		e.pose = kinematics.Pose{X: -20, Y: 135, Pitch: deg(-13)}
	}},
	{name: "wiggle left", next: 2, do: func(e *Engine, f *frame) {
		e.pose.Yaw = deg(10)
	}},
	{name: "wiggle right", next: 1, exit: 3,
		do: func(e *Engine, f *frame) {
			e.pose.Yaw = deg(-10)
		},
		leave: func(e *Engine, f *frame) {
			e.pose.Yaw = 0
		}},
	{name: "level", next: 4, do: func(e *Engine, f *frame) {
		e.pose.Pitch = 0
	}},
	{name: "recentre", next: 5, do: func(e *Engine, f *frame) {
		e.pose.X = 0
		e.pose.Z = 0
		e.pose.Y = e.standHeight()
	}},
	pause("settle", 6),
	done(),
}

func straighten(e *Engine, f *frame) {
	e.pose.Yaw = 0
	e.pose.Roll = 0
}

// Stages 3 to 6 are never entered: the stretch stage runs straighten
// itself and jumps to 7.
var stretchRoutine = routine{
	{name: "level", next: 1, do: func(e *Engine, f *frame) {
		e.pose = kinematics.Pose{Y: e.standHeight()}
	}},
	{name: "lean back", next: 2, do: func(e *Engine, f *frame) {
		e.pose.X = -20
		e.pose.Y = 110
	}},
	{name: "stretch", next: 7, do: func(e *Engine, f *frame) {
		e.pose.X = -50
		e.pose.Pitch = deg(-14)
		e.pose.Y = 120
		straighten(e, f)
	}},
	{name: "straighten", next: 7, do: straighten},
	{name: "sway out", next: 5, do: func(e *Engine, f *frame) {
		e.pose.Yaw = deg(5)
		e.pose.Roll = deg(5)
	}},
	{name: "sway centre", next: 6, do: straighten},
	{name: "sway back", next: 7, do: func(e *Engine, f *frame) {
		e.pose.Yaw = deg(-5)
		e.pose.Roll = deg(-5)
	}},
	{name: "stretching", next: 7, hold: true, exit: 8,
		do: straighten,
		leave: func(e *Engine, f *frame) {
			e.pose.Pitch = 0
			e.pose.X = -20
		}},
	{name: "recentre", next: 9, do: func(e *Engine, f *frame) {
		e.pose.X = 0
		e.pose.Z = 0
		e.pose.Yaw = 0
		e.pose.Y = e.standHeight()
	}},
	done(),
}
