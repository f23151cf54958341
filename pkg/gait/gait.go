// Package gait turns locomotion commands into per-tick joint angles for a
// quadruped.
//
// An Engine owns the shared phase counter and the four legs. Each Tick
// either walks (a phased swing/stance foot trajectory per leg, coordinated
// so that pending commands are committed only at stride boundaries) or
// performs a scripted posture. Both paths feed the same body pose
// transform and inverse kinematics.
package gait

import (
	"fmt"
	"strings"
)

// Type selects the step multiplier beta: stance lasts 2*beta swing lengths.
type Type int

const (
	Dynamic Type = 1 // trot
	Static  Type = 3 // crawl
)

func (t Type) String() string {
	switch t {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	}
	return fmt.Sprintf("gait(%d)", int(t))
}

// Rotation is the commanded turning direction.
type Rotation int

const (
	CCW        Rotation = -1
	NoRotation Rotation = 0
	CW         Rotation = 1
)

// Trajectory selects the swing profile.
type Trajectory int

const (
	Circular Trajectory = iota
	Square
)

func (t Trajectory) String() string {
	if t == Square {
		return "square"
	}
	return "circular"
}

// ParseTrajectory parses "circular" or "square". An empty string is circular.
func ParseTrajectory(s string) (Trajectory, error) {
	switch strings.ToLower(s) {
	case "", "circular":
		return Circular, nil
	case "square":
		return Square, nil
	}
	return Circular, fmt.Errorf("unknown trajectory %q", s)
}

// Posture is a named body posture. Up is the walking posture.
type Posture int

const (
	Up Posture = iota
	Sit
	Lay
	Paw
	Wiggle
	Tinkle
	Stretch
)

var postureNames = []string{"up", "sit", "lay", "paw", "wiggle", "tinkle", "stretch"}

func (p Posture) String() string {
	if p >= 0 && int(p) < len(postureNames) {
		return postureNames[p]
	}
	return fmt.Sprintf("posture(%d)", int(p))
}

// ParsePosture parses a posture name.
func ParsePosture(s string) (Posture, error) {
	for i, name := range postureNames {
		if strings.EqualFold(s, name) {
			return Posture(i), nil
		}
	}
	return Up, fmt.Errorf("unknown posture %q", s)
}

// Walk directions in degrees. Stop halts translation.
const (
	Stop     = 0
	Right    = 90
	Backward = 180
	Left     = 270
	Forward  = 360
)

const (
	points        = 4      // swing sub-steps
	rotationStep  = 0.1745 // radians turned per stride
	angleRange    = 60     // degrees either side of a direction that count as that direction
	liftClearance = 15     // foot height at touchdown
)
