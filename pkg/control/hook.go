package control

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogHook forwards logrus entries to the controller's log channel so a
// terminal UI can show them.
type LogHook struct {
	c      *Controller
	levels []logrus.Level
}

// Hook returns a hook that forwards entries at level or more severe.
func (c *Controller) Hook(level logrus.Level) *LogHook {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}
	return &LogHook{c: c, levels: levels}
}

func (h *LogHook) Levels() []logrus.Level { return h.levels }

func (h *LogHook) Fire(e *logrus.Entry) error {
	msg := e.Message
	if pkg, ok := e.Data["pkg"]; ok {
		msg = fmt.Sprintf("%v: %s", pkg, msg)
	}
	h.c.log("%s", msg)
	return nil
}
