package control

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/mechdog/pkg/gait"
)

// Speed levels. Levels 1 to 4 are requested by the operator; the
// controller switches to SpecialSpeed while a posture runs and to
// StopSpeed while standing.
const (
	SpecialSpeed = 0
	MinSpeed     = 1
	MaxSpeed     = 4
	StopSpeed    = 5

	DefaultSpeed  = MinSpeed
	DefaultPeriod = 100 * time.Millisecond
)

type speedLevel struct {
	period time.Duration
	gait   gait.Type // zero keeps the current gait
	filter int
}

var speedLevels = map[int]speedLevel{
	SpecialSpeed: {period: 180 * time.Millisecond, filter: 14},
	1:            {period: 70 * time.Millisecond, gait: gait.Static, filter: 4},
	2:            {period: 60 * time.Millisecond, gait: gait.Static, filter: 4},
	3:            {period: 50 * time.Millisecond, gait: gait.Static, filter: 3},
	4:            {period: 55 * time.Millisecond, gait: gait.Dynamic, filter: 3},
	StopSpeed:    {period: 60 * time.Millisecond, filter: 14},
}

// changeSpeed switches the tick period, gait and servo filter to level s.
// Callers hold c.mu.
func (c *Controller) changeSpeed(s int) {
	lvl, ok := speedLevels[s]
	if !ok {
		return
	}
	c.moveFlag = true
	c.actualSpeed = s

	g := lvl.gait
	if s == StopSpeed {
		// standing keeps the gait the requested speed walks with
		g = gait.Static
		if c.speed == MaxSpeed {
			g = gait.Dynamic
		}
	}
	if g != 0 {
		c.engine.SetGait(g)
	}
	c.pacer.SetPeriod(lvl.period)
	c.filter = lvl.filter
	log.WithFields(logrus.Fields{"level": s, "period": lvl.period}).Debug("speed changed")
}
