package main

import (
	"context"
	"fmt"

	"github.com/gwillem/mechdog/pkg/control"
	"github.com/gwillem/mechdog/pkg/gait"
	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/mcu"
	"github.com/gwillem/mechdog/pkg/robot"
	"github.com/gwillem/mechdog/pkg/servo"
)

type SimulateCommand struct {
	Variant    string   `long:"variant" default:"mechdog" description:"Robot variant"`
	Speed      int      `long:"speed" default:"1" description:"Walking speed level 1-4"`
	Trajectory string   `long:"trajectory" default:"circular" choice:"circular" choice:"square" description:"Swing trajectory"`
	Frames     []string `short:"f" long:"frame" description:"MCU frame to apply before ticking, e.g. '#100M0V360' (repeatable)"`
	Ticks      int      `short:"n" long:"ticks" default:"32" description:"Control ticks to run"`
	Every      bool     `long:"every" description:"Print the joint table after every tick"`
}

func (c *SimulateCommand) Execute(args []string) error {
	v, err := robot.LookupVariant(c.Variant)
	if err != nil {
		return err
	}
	traj, err := gait.ParseTrajectory(c.Trajectory)
	if err != nil {
		return err
	}

	rec := servo.NewRecorder()
	ctrl, err := control.New(control.Config{
		Variant:    v,
		Driver:     rec,
		Speed:      c.Speed,
		Trajectory: traj,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	for _, frame := range c.Frames {
		cmd, err := mcu.Parse(mcu.DefaultID, frame)
		if err != nil {
			return fmt.Errorf("frame %q: %w", frame, err)
		}
		ctrl.Apply(cmd)
	}

	ctx := context.Background()
	var prev kinematics.JointTable
	for i := range c.Ticks {
		ctrl.Step(ctx)
		if c.Every {
			s := ctrl.Snapshot()
			fmt.Println(statusLine(i+1, s))
			fmt.Println(jointTable(s.Joints, prev))
			prev = s.Joints
		}
	}

	s := ctrl.Snapshot()
	if !c.Every {
		if tables := rec.Tables(); len(tables) > 1 {
			prev = tables[len(tables)-2]
		}
		fmt.Println(statusLine(c.Ticks, s))
		fmt.Println(jointTable(s.Joints, prev))
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d joint tables written, filter counts %v", len(rec.Tables()), rec.Filters())))
	return nil
}

func statusLine(tick int, s control.State) string {
	return headerStyle.Render(fmt.Sprintf("tick %d", tick)) +
		statusStyle.Render(fmt.Sprintf("  %s %s, %s step %d, phase %d, period %s, stopped %v",
			s.Gait, s.Trajectory, s.Posture, s.Step, s.Phase, s.Period, s.Stopped))
}
