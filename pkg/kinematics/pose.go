package kinematics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is the commanded body translation and attitude. X is the frontal
// offset, Y the body height and Z the lateral offset, all in millimetres.
type Pose struct {
	X, Y, Z          float64
	Roll, Pitch, Yaw float64 // radians
}

// Swivel turns a foot offset (x, z) about the body centre by angle. The
// foot moves on an arc around the centre, using the lever arm from the foot
// to the leg's body corner. A zero angle returns the offset unchanged.
func (g Geometry) Swivel(leg Leg, x, z, angle float64) (float64, float64) {
	arm := g.HalfWidth + g.L1
	along := g.HalfLength - leg.fore*x
	across := arm + leg.side*z

	acl := math.Atan(along / across)
	r := across / math.Cos(acl)
	a := acl + leg.fore*leg.side*angle

	return leg.fore * (g.HalfLength - r*math.Sin(a)), leg.side * (r*math.Cos(a) - arm)
}

// ToLegFrame maps a foot waypoint in body coordinates into the leg's local
// frame for the given body pose. Yaw is applied first as a swivel of the
// foot, then pitch and roll each as a triangle solve on the leg's height.
func (g Geometry) ToLegFrame(leg Leg, foot r3.Vec, pose Pose) r3.Vec {
	w, l := g.HalfWidth, g.HalfLength
	xy, zy := g.Swivel(leg, foot.X+pose.X, foot.Z+pose.Z, pose.Yaw)

	height := pose.Y + leg.fore*l*math.Sin(pose.Pitch) - leg.side*w*math.Sin(pose.Roll) - foot.Y

	xb := xy - leg.fore*l*(1-math.Cos(pose.Pitch))
	ax := math.Atan(xb / height)
	hx := height / math.Cos(ax)
	height = hx * math.Cos(pose.Pitch+ax)
	x := hx * math.Sin(pose.Pitch+ax)

	zb := zy + leg.side*(w*(1-math.Cos(pose.Roll))+g.L1)
	az := math.Atan(zb / height)
	yh := height / math.Cos(az)

	return r3.Vec{
		X: x,
		Y: yh * math.Cos(pose.Roll+az),
		Z: yh*math.Sin(pose.Roll+az) - leg.side*g.L1,
	}
}

// Quantize truncates a target to whole millimetres, the resolution foot
// targets are commanded at.
func Quantize(v r3.Vec) r3.Vec {
	return r3.Vec{X: math.Trunc(v.X), Y: math.Trunc(v.Y), Z: math.Trunc(v.Z)}
}
