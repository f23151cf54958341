// Package mcu implements the motion command protocol remote controllers use
// to drive the robot: ASCII frames "#<id>M<cmd>[V<value>][S<speed>]\r"
// addressed to the motion controller, plus raw servo commands relayed to
// the servo bus.
package mcu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gwillem/mechdog/pkg/servo"
)

// Addressing and link defaults.
const (
	DefaultID   = 100
	MinID       = 100
	MaxID       = 250
	Broadcast   = 254
	DefaultBaud = 38400
)

var (
	// ErrMalformed is returned for frames that do not follow the framing.
	ErrMalformed = errors.New("malformed frame")
	// ErrInvalidCommand is returned for unknown motion command numbers.
	ErrInvalidCommand = errors.New("invalid motion command")
	// ErrNotAddressed is returned for frames meant for another controller.
	ErrNotAddressed = errors.New("frame addressed to another controller")
)

// Motion is a motion command number.
type Motion int

const (
	Walk Motion = iota
	Rotate
	Roll
	Pitch
	Yaw
	FrontalOffset
	Height
	LateralOffset
	GaitType
)

const (
	Up Motion = iota + 10
	Sit
	Lay
	Paw
	Wiggle
	Tinkle
	Stretch
	Sequence
	JogOn
	JogOff

	maxMotion
)

var motionNames = map[Motion]string{
	Walk:          "walk",
	Rotate:        "rotate",
	Roll:          "roll",
	Pitch:         "pitch",
	Yaw:           "yaw",
	FrontalOffset: "frontal",
	Height:        "height",
	LateralOffset: "lateral",
	GaitType:      "gait",
	Up:            "up",
	Sit:           "sit",
	Lay:           "lay",
	Paw:           "paw",
	Wiggle:        "wiggle",
	Tinkle:        "tinkle",
	Stretch:       "stretch",
	Sequence:      "sequence",
	JogOn:         "jog-on",
	JogOff:        "jog-off",
}

func (m Motion) String() string {
	if s, ok := motionNames[m]; ok {
		return s
	}
	return fmt.Sprintf("motion(%d)", int(m))
}

// ParseMotion parses a motion name as printed by String.
func ParseMotion(s string) (Motion, error) {
	for m, name := range motionNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCommand, s)
}

// Command is one decoded frame. Servo is set for frames relayed to the
// servo bus; the other fields are unused then.
type Command struct {
	Motion   Motion
	Value    int
	HasValue bool
	Speed    int
	HasSpeed bool

	Servo *servo.Command
}

// Format encodes c as a frame addressed to id.
func Format(id int, c Command) string {
	if c.Servo != nil {
		return c.Servo.String()
	}
	s := "#" + strconv.Itoa(id) + "M" + strconv.Itoa(int(c.Motion))
	if c.HasValue {
		s += "V" + strconv.Itoa(c.Value)
		if c.HasSpeed {
			s += "S" + strconv.Itoa(c.Speed)
		}
	}
	return s + "\r"
}

// relayed lists the servo commands a controller passes through.
var relayed = []string{servo.CmdMove, servo.CmdLED, servo.CmdLimp, servo.CmdHold}

// Parse decodes one frame for the controller with the given id. Leading
// noise before '#' and a trailing '\r' are ignored.
func Parse(id int, frame string) (Command, error) {
	start := strings.IndexByte(frame, '#')
	if start < 0 {
		return Command{}, fmt.Errorf("%w: no start marker in %q", ErrMalformed, frame)
	}
	s := strings.TrimSuffix(frame[start+1:], "\r")

	to, rest, ok := digits(s)
	if !ok {
		return Command{}, fmt.Errorf("%w: missing id in %q", ErrMalformed, frame)
	}

	switch {
	case to < MinID || to == Broadcast:
		return parseRelay(to, rest, frame)
	case to != id:
		return Command{}, fmt.Errorf("%w: %d", ErrNotAddressed, to)
	}

	if !strings.HasPrefix(rest, "M") {
		return Command{}, fmt.Errorf("%w: expected M in %q", ErrMalformed, frame)
	}
	n, rest, ok := digits(rest[1:])
	if !ok || n >= int(maxMotion) {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidCommand, frame)
	}
	cmd := Command{Motion: Motion(n)}
	if rest == "" {
		return cmd, nil
	}
	if rest[0] != 'V' {
		return Command{}, fmt.Errorf("%w: unexpected %q in %q", ErrMalformed, rest[:1], frame)
	}

	value, speed, hasSpeed := strings.Cut(rest[1:], "S")
	v, err := strconv.Atoi(value)
	if err != nil {
		return Command{}, fmt.Errorf("%w: bad value in %q", ErrMalformed, frame)
	}
	cmd.Value, cmd.HasValue = v, true

	if hasSpeed {
		sp, tail, ok := digits(speed)
		if ok && tail == "" {
			cmd.Speed, cmd.HasSpeed = sp, true
		}
	}
	return cmd, nil
}

func parseRelay(to int, rest, frame string) (Command, error) {
	name := strings.TrimRightFunc(rest, func(r rune) bool {
		return r == '-' || (r >= '0' && r <= '9')
	})
	value := rest[len(name):]

	known := false
	for _, r := range relayed {
		if name == r {
			known = true
			break
		}
	}
	if !known {
		return Command{}, fmt.Errorf("%w: servo command %q not relayed", ErrMalformed, name)
	}

	sc := servo.Command{ID: to, Name: name}
	if value != "" {
		v, err := strconv.Atoi(value)
		if err != nil {
			return Command{}, fmt.Errorf("%w: bad value in %q", ErrMalformed, frame)
		}
		sc.Value, sc.HasValue = v, true
	}
	return Command{Servo: &sc}, nil
}

// digits splits a leading run of decimal digits off s.
func digits(s string) (int, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, false
	}
	return n, s[i:], true
}
