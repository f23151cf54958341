package servo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/robot"
)

const (
	lssReadTimeout  = 20 * time.Millisecond
	lssReplyTimeout = 100 * time.Millisecond
)

// ErrNoReply is returned when a servo does not answer a query in time.
var ErrNoReply = errors.New("no reply")

// LSS drives Lynxmotion smart servos over their ASCII serial protocol.
type LSS struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
	cal  robot.Calibration

	last kinematics.JointTable
	sent bool
}

// OpenLSS opens the serial port at path. A zero baud uses the LSS default.
func OpenLSS(path string, baud int, cal robot.Calibration) (*LSS, error) {
	if baud <= 0 {
		baud = robot.DefaultLSSBaud
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(lssReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return NewLSS(port, cal), nil
}

// NewLSS wraps an open port.
func NewLSS(port io.ReadWriteCloser, cal robot.Calibration) *LSS {
	return &LSS{port: port, cal: cal}
}

// Init sets each servo's rotation direction, turns off the servos' own
// motion profile and sets the stiffness the gait is tuned for.
func (d *LSS) Init(ctx context.Context) error {
	var cmds []Command
	each(kinematics.JointTable{}, func(leg kinematics.Leg, joint kinematics.Joint, id, _ int) {
		cmds = append(cmds, NewCommand(id, CmdGyre, d.cal.Gyre(leg, joint)))
	})
	cmds = append(cmds,
		NewCommand(robot.Broadcast, CmdMotionControl, 0),
		NewCommand(robot.Broadcast, CmdHoldStiffness, 1),
		NewCommand(robot.Broadcast, CmdStiffness, -2),
	)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = false
	return d.write(ctx, cmds...)
}

// WriteJoints moves every servo whose angle changed since the last write.
func (d *LSS) WriteJoints(ctx context.Context, t kinematics.JointTable) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var cmds []Command
	each(t, func(leg kinematics.Leg, joint kinematics.Joint, id, angle int) {
		if d.sent && d.last[leg.Index()][joint] == angle {
			return
		}
		cmds = append(cmds, NewCommand(id, CmdMove, angle))
	})
	if len(cmds) == 0 {
		return nil
	}
	if err := d.write(ctx, cmds...); err != nil {
		d.sent = false
		return err
	}
	d.last, d.sent = t, true
	return nil
}

// SetFilter sets the position filter count of every servo.
func (d *LSS) SetFilter(ctx context.Context, count int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(ctx, NewCommand(robot.Broadcast, CmdFilter, count))
}

// Relax makes every servo limp.
func (d *LSS) Relax(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = false
	return d.write(ctx, Command{ID: robot.Broadcast, Name: CmdLimp})
}

// Send writes a raw command.
func (d *LSS) Send(ctx context.Context, cmd Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cmd.Name != CmdMove {
		// after a limp or hold every servo needs its angle again
		d.sent = false
	}
	return d.write(ctx, cmd)
}

// Ping asks servo id for its id and reports whether it answered.
func (d *LSS) Ping(ctx context.Context, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.query(ctx, id, CmdQueryID)
	if err != nil {
		return err
	}
	if v != id {
		return fmt.Errorf("servo %d answered as %d", id, v)
	}
	return nil
}

// ReadJoints queries the position of every servo.
func (d *LSS) ReadJoints(ctx context.Context) (kinematics.JointTable, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		t    kinematics.JointTable
		errs []error
	)
	each(t, func(leg kinematics.Leg, joint kinematics.Joint, id, _ int) {
		v, err := d.query(ctx, id, CmdQueryPosition)
		if err != nil {
			errs = append(errs, fmt.Errorf("servo %d: %w", id, err))
			return
		}
		t[leg.Index()][joint] = v
	})
	return t, errors.Join(errs...)
}

// Close closes the serial port.
func (d *LSS) Close() error {
	return d.port.Close()
}

func (d *LSS) write(ctx context.Context, cmds ...Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var sb strings.Builder
	for _, c := range cmds {
		sb.WriteString(c.String())
	}
	if _, err := io.WriteString(d.port, sb.String()); err != nil {
		return fmt.Errorf("write servo bus: %w", err)
	}
	return nil
}

// query sends a query and parses the numeric reply "*<id><name><value>\r".
func (d *LSS) query(ctx context.Context, id int, name string) (int, error) {
	if err := d.write(ctx, Command{ID: id, Name: name}); err != nil {
		return 0, err
	}

	prefix := "*" + strconv.Itoa(id) + name
	deadline := time.Now().Add(lssReplyTimeout)
	var (
		line []byte
		buf  [1]byte
	)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := d.port.Read(buf[:])
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, ErrNoReply
			}
			return 0, fmt.Errorf("read servo bus: %w", err)
		}
		if n == 0 {
			continue
		}
		if buf[0] != '\r' {
			line = append(line, buf[0])
			continue
		}
		reply := string(line)
		line = line[:0]
		i := strings.Index(reply, prefix)
		if i < 0 {
			log.WithField("reply", reply).Debug("ignoring unexpected reply")
			continue
		}
		v, err := strconv.Atoi(reply[i+len(prefix):])
		if err != nil {
			return 0, fmt.Errorf("parse reply %q: %w", reply, err)
		}
		return v, nil
	}
	return 0, ErrNoReply
}
