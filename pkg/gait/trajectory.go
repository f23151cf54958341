package gait

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// snapTolerance absorbs rounding drift of a settled glide position.
const snapTolerance = 1e-6

// footPosition returns the foot waypoint of leg n at phase index i and
// whether the leg has settled at its rest offset.
func (e *Engine) footPosition(n, i int) (r3.Vec, bool) {
	l := &e.legs[n]

	lift, stride := e.lift, e.stride
	if !e.moving {
		stride = 0
	}
	if e.jog && e.director == 0 {
		lift = e.variant.Gait.JogFootElevation
		stride = 0
	}

	// rest offsets change only at the start of the leg's own cycle
	restChanging := l.restX != l.newRestX || l.restZ != l.newRestZ
	if restChanging && i == 0 {
		l.restX, l.restZ = l.newRestX, l.newRestZ
	}

	xy, zy := e.geo.Swivel(l.Leg, l.restX, l.restZ, e.rotAngle)
	tx := stride*math.Cos(e.director) + xy - l.restX
	tz := -stride*math.Sin(e.director) + zy - l.restZ

	var foot r3.Vec
	if i < points {
		foot = e.swing(i, lift, tx, tz)
		foot.X += l.restX
		foot.Z += l.restZ
		if i == points-1 {
			l.xg, l.zg = foot.X, foot.Z
			foot.Y = liftClearance
		}
	} else {
		beta := float64(e.beta)
		l.xg += tx / (2 * beta)
		l.zg += tz / (2 * beta)
		foot = r3.Vec{X: l.xg, Z: l.zg}
	}

	settled := math.Abs(l.xg-l.restX) < 1 && math.Abs(l.zg-l.restZ) < 1 &&
		!e.moving && e.rotAngle == 0 && !restChanging
	if settled {
		foot.Y = 0
		if math.Abs(l.xg-l.restX) < snapTolerance && math.Abs(l.zg-l.restZ) < snapTolerance {
			l.xg, l.zg = l.restX, l.restZ
			foot.X, foot.Z = l.xg, l.zg
		}
	}
	return foot, settled
}

// swing returns the swing waypoint relative to the rest offset. The foot
// travels from +t to -t while lifted.
func (e *Engine) swing(i int, lift, tx, tz float64) r3.Vec {
	if e.trajectory == Square {
		switch i {
		case 0:
			return r3.Vec{X: tx, Y: lift, Z: tz}
		case 1:
			return r3.Vec{Y: lift}
		case 2:
			return r3.Vec{X: -tx, Y: lift, Z: -tz}
		default:
			return r3.Vec{X: -tx, Z: -tz}
		}
	}
	a := float64(i+1) * math.Pi / points
	return r3.Vec{X: tx * math.Cos(a), Y: lift * math.Sin(a), Z: tz * math.Cos(a)}
}
