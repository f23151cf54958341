// Package robot describes quadruped robot variants: their geometry, gait
// constants, command limits and joint calibration, plus the runtime config.
package robot

import "github.com/gwillem/mechdog/pkg/kinematics"

// JointName identifies a joint within a leg.
type JointName string

// Joint names, in kinematics.Joint order.
const (
	Abduction JointName = "abduction"
	Rotation  JointName = "rotation"
	Knee      JointName = "knee"
)

// AllJoints returns all joint names in joint-table column order.
func AllJoints() []JointName {
	return []JointName{
		Abduction,
		Rotation,
		Knee,
	}
}

// Broadcast is the bus address every servo listens on.
const Broadcast = 254

// ServoID returns the bus address of a joint: the leg id in the tens and
// the joint column plus one in the units (11..43).
func ServoID(leg kinematics.LegID, joint kinematics.Joint) int {
	return int(leg)*10 + int(joint) + 1
}

// ServoIDs returns all twelve servo ids, leg by leg.
func ServoIDs() []int {
	ids := make([]int, 0, 12)
	for _, leg := range kinematics.Legs() {
		for j := range AllJoints() {
			ids = append(ids, ServoID(leg.ID, kinematics.Joint(j)))
		}
	}
	return ids
}

// ParseServoID splits a servo id into its leg and joint.
func ParseServoID(id int) (kinematics.LegID, kinematics.Joint, bool) {
	leg, joint := kinematics.LegID(id/10), kinematics.Joint(id%10-1)
	if leg < kinematics.BackRight || leg > kinematics.FrontLeft || joint < kinematics.Abduction || joint > kinematics.Knee {
		return 0, 0, false
	}
	return leg, joint, true
}
