// Package mechdog drives four-legged walking robots built from smart servos.
//
// It solves leg inverse kinematics, generates crawl and trot gaits with a
// phased foot trajectory per leg, transforms body pose commands into each
// leg's frame and plays scripted postures such as sit, lay and paw. Joint
// angles go out to Lynxmotion LSS or Feetech STS servo buses.
//
// # Installation
//
//	go install github.com/gwillem/mechdog/cmd/mechdog@latest
//
// # Usage
//
// First, run setup to find the servo bus and calibrate the joints:
//
//	mechdog setup
//
// Then drive the robot from the keyboard, a serial remote or JSON-RPC:
//
//	mechdog run --listen :8080
//
// Without hardware, simulate a command sequence:
//
//	mechdog simulate -f '#100M0V360' -n 64
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/mechdog: CLI with setup, run, simulate and variants commands
//   - pkg/kinematics: Leg inverse kinematics and body pose transform
//   - pkg/robot: Robot variants, joint calibration and configuration
//   - pkg/gait: Gait engine, trajectories and postures
//   - pkg/control: Fixed-rate controller and speed levels
//   - pkg/servo: LSS and Feetech servo drivers
//   - pkg/mcu: Serial motion command protocol
//   - pkg/remote: JSON-RPC over websocket
package mechdog
