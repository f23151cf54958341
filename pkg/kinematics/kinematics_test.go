package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var mechdog = Geometry{L1: 52, L2: 93.4, L3: 90, FootRadius: 15, HalfWidth: 37, HalfLength: 100}

// planar has no abduction offset so expected angles are easy to derive.
var planar = Geometry{L1: 0, L2: 100, L3: 100}

func TestNewLeg(t *testing.T) {
	tests := []struct {
		id    LegID
		right bool
		front bool
		restX float64
		restZ float64
	}{
		{BackRight, true, false, 10, 5},
		{FrontRight, true, true, -10, 5},
		{BackLeft, false, false, 10, -5},
		{FrontLeft, false, true, -10, -5},
	}

	for _, tt := range tests {
		leg := NewLeg(tt.id)
		if leg.Right() != tt.right || leg.Front() != tt.front {
			t.Errorf("%s: right=%v front=%v, want %v %v", tt.id, leg.Right(), leg.Front(), tt.right, tt.front)
		}
		x, z := leg.Mirror(10, 5)
		if x != tt.restX || z != tt.restZ {
			t.Errorf("%s: Mirror(10, 5) = (%v, %v), want (%v, %v)", tt.id, x, z, tt.restX, tt.restZ)
		}
	}
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name   string
		leg    LegID
		target r3.Vec
		want   Angles
	}{
		{"folded right angle", BackRight, r3.Vec{Y: 100 * math.Sqrt2}, Angles{0, 450, 900}},
		{"forward reach", FrontRight, r3.Vec{X: 100, Y: 100}, Angles{0, 900, 900}},
		{"lateral right", BackRight, r3.Vec{Y: 100, Z: 100}, Angles{450, 450, 900}},
		{"lateral left", BackLeft, r3.Vec{Y: 100, Z: 100}, Angles{-450, 450, 900}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planar.Solve(NewLeg(tt.leg), tt.target)
			require.NoError(t, err)
			for j := range got {
				assert.InDelta(t, tt.want[j], got[j], 1, "joint %d", j)
			}
		})
	}
}

func TestSolveUnreachable(t *testing.T) {
	tests := []struct {
		name   string
		geo    Geometry
		target r3.Vec
	}{
		{"beyond full extension", planar, r3.Vec{Y: 250}},
		{"folded against the hip", mechdog, r3.Vec{Y: 16}},
		{"far forward", mechdog, r3.Vec{X: 300, Y: 140}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.geo.Solve(NewLeg(FrontLeft), tt.target)
			assert.ErrorIs(t, err, ErrUnreachable)
		})
	}
}

func TestJointTableHoldsOnUnreachable(t *testing.T) {
	var table JointTable
	leg := NewLeg(FrontRight)

	require.NoError(t, table.Set(mechdog, leg, r3.Vec{Y: 140}))
	before := table

	err := table.Set(mechdog, leg, r3.Vec{Y: 1000})
	require.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, before, table)
	assert.Equal(t, before.Leg(FrontRight), table[leg.Index()])
}

func TestSolveNeutralWithinCalibration(t *testing.T) {
	// Neutral standing pose for every leg lands inside the joint ranges
	// once calibration offsets are removed.
	offset := Angles{0, 745, 155}
	lo := Angles{-450, -600, 0}
	hi := Angles{450, 600, 1800}

	for _, leg := range Legs() {
		target := mechdog.ToLegFrame(leg, r3.Vec{}, Pose{X: 15, Y: 140})
		got, err := mechdog.Solve(leg, Quantize(target))
		require.NoError(t, err, leg.ID)
		for j := range got {
			v := got[j] - offset[j]
			assert.GreaterOrEqual(t, v, lo[j], "%s joint %d", leg.ID, j)
			assert.LessOrEqual(t, v, hi[j], "%s joint %d", leg.ID, j)
		}
	}
}

func TestSwivel(t *testing.T) {
	points := [][2]float64{{0, 0}, {20, -5}, {-15, 10}}

	for _, leg := range Legs() {
		for _, p := range points {
			x, z := mechdog.Swivel(leg, p[0], p[1], 0)
			assert.InDelta(t, p[0], x, 1e-9, "%s identity x", leg.ID)
			assert.InDelta(t, p[1], z, 1e-9, "%s identity z", leg.ID)

			// turning and turning back returns the foot
			rx, rz := mechdog.Swivel(leg, p[0], p[1], 0.1745)
			bx, bz := mechdog.Swivel(leg, rx, rz, -0.1745)
			assert.InDelta(t, p[0], bx, 1e-9, "%s inverse x", leg.ID)
			assert.InDelta(t, p[1], bz, 1e-9, "%s inverse z", leg.ID)

			// the foot stays on its arc around the body corner
			arm := mechdog.HalfWidth + mechdog.L1
			radius := func(x, z float64) float64 {
				return math.Hypot(mechdog.HalfLength-leg.fore*x, arm+leg.side*z)
			}
			assert.InDelta(t, radius(p[0], p[1]), radius(rx, rz), 1e-9, "%s radius", leg.ID)
		}
	}
}

func TestToLegFrameLevelPose(t *testing.T) {
	pose := Pose{X: 15, Y: 140, Z: -4}
	foot := r3.Vec{X: 12, Y: 30, Z: 3}

	for _, leg := range Legs() {
		got := mechdog.ToLegFrame(leg, foot, pose)
		assert.InDelta(t, foot.X+pose.X, got.X, 1e-9, leg.ID)
		assert.InDelta(t, pose.Y-foot.Y, got.Y, 1e-9, leg.ID)
		assert.InDelta(t, foot.Z+pose.Z, got.Z, 1e-9, leg.ID)
	}
}

func TestToLegFrameAttitude(t *testing.T) {
	rad := math.Pi / 18

	pitched := Pose{Y: 140, Pitch: rad}
	front := mechdog.ToLegFrame(NewLeg(FrontRight), r3.Vec{}, pitched)
	back := mechdog.ToLegFrame(NewLeg(BackRight), r3.Vec{}, pitched)
	if front.Y <= back.Y {
		t.Errorf("pitch up: front height %.2f, want above back height %.2f", front.Y, back.Y)
	}

	rolled := Pose{Y: 140, Roll: rad}
	right := mechdog.ToLegFrame(NewLeg(FrontRight), r3.Vec{}, rolled)
	left := mechdog.ToLegFrame(NewLeg(FrontLeft), r3.Vec{}, rolled)
	if right.Y >= left.Y {
		t.Errorf("roll: right height %.2f, want below left height %.2f", right.Y, left.Y)
	}
}

func TestQuantize(t *testing.T) {
	got := Quantize(r3.Vec{X: 1.9, Y: 139.99, Z: -2.7})
	assert.Equal(t, r3.Vec{X: 1, Y: 139, Z: -2}, got)
}
