// Package control runs the gait engine at a fixed rate and sends its joint
// tables to the servos.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/mechdog/pkg/gait"
	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/robot"
	"github.com/gwillem/mechdog/pkg/servo"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "control",
})

// DefaultResolution is how often Start checks whether a tick is due.
const DefaultResolution = 5 * time.Millisecond

// State is a snapshot published after every tick.
type State struct {
	Joints     kinematics.JointTable // servo command angles
	Stopped    bool
	Gait       gait.Type
	Trajectory gait.Trajectory
	Posture    gait.Posture
	Jogging    bool
	Phase      int
	Step       int
	Speed      int
	Period     time.Duration
	Timestamp  time.Time
	Error      error
}

// Config holds configuration for the controller.
type Config struct {
	Variant    robot.Variant
	Driver     servo.Driver
	Clock      Clock
	Speed      int
	Trajectory gait.Trajectory
	Resolution time.Duration
}

// pending holds servo bus work queued by commands or speed changes.
type pending struct {
	filter int
	relay  []servo.Command
}

// Controller owns the gait engine and drives one robot.
type Controller struct {
	driver     servo.Driver
	clock      Clock
	resolution time.Duration

	mu          sync.Mutex
	engine      *gait.Engine
	pacer       *Pacer
	speed       int
	actualSpeed int
	moveFlag    bool
	filter      int
	relay       []servo.Command
	running     bool

	stateCh chan State
	logCh   chan string
}

// New creates a controller standing in the variant's neutral pose.
func New(cfg Config) (*Controller, error) {
	if cfg.Driver == nil {
		return nil, errors.New("no servo driver")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = DefaultResolution
	}
	if cfg.Speed == 0 {
		cfg.Speed = DefaultSpeed
	}
	if cfg.Speed < MinSpeed || cfg.Speed > MaxSpeed {
		return nil, fmt.Errorf("speed %d outside %d..%d", cfg.Speed, MinSpeed, MaxSpeed)
	}

	c := &Controller{
		driver:     cfg.Driver,
		clock:      cfg.Clock,
		resolution: cfg.Resolution,
		engine:     gait.New(cfg.Variant),
		pacer:      NewPacer(cfg.Clock, DefaultPeriod),
		speed:      cfg.Speed,
		stateCh:    make(chan State, 1),
		logCh:      make(chan string, 10),
	}
	c.engine.SetTrajectory(cfg.Trajectory)
	c.changeSpeed(c.speed)
	return c, nil
}

// Close releases the servo driver.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.driver.Close(); err != nil {
		return fmt.Errorf("close driver: %w", err)
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Period returns the current tick period.
func (c *Controller) Period() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pacer.Period()
}

// Variant returns the robot variant being driven.
func (c *Controller) Variant() robot.Variant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Variant()
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", c.clock.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start initialises the servos and runs the control loop until ctx is
// cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.driver.Init(ctx); err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return fmt.Errorf("init servos: %w", err)
	}
	c.log("Servos initialised")
	c.log("Control loop started, tick every %s", c.Period())

	ticker := time.NewTicker(c.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.Poll(ctx)
		}
	}
}

// Poll runs a tick if one is due and reports whether it did.
func (c *Controller) Poll(ctx context.Context) bool {
	c.mu.Lock()
	due := c.pacer.Due()
	c.mu.Unlock()
	if !due {
		return false
	}
	c.Step(ctx)
	return true
}

// Step runs one control tick: it flushes queued servo commands, advances
// the engine when there is anything to do, writes the joint table and
// publishes the new state.
func (c *Controller) Step(ctx context.Context) {
	c.mu.Lock()
	before := c.takePending()

	active := c.moveFlag || !c.engine.Stopped()
	var after pending
	if active {
		wasUp := c.engine.Posture() == gait.Up
		c.engine.Tick()
		isUp := c.engine.Posture() == gait.Up
		switch {
		case wasUp && !isUp:
			c.changeSpeed(SpecialSpeed)
		case !wasUp && isUp:
			c.changeSpeed(StopSpeed)
		}
		c.moveFlag = false
		after = c.takePending()
	}
	state := c.snapshot()
	c.mu.Unlock()

	var errs []error
	errs = append(errs, c.flush(ctx, before))
	if active {
		if err := c.driver.WriteJoints(ctx, state.Joints); err != nil {
			errs = append(errs, fmt.Errorf("write joints: %w", err))
		}
	}
	errs = append(errs, c.flush(ctx, after))

	if err := errors.Join(errs...); err != nil {
		c.log("Servo error: %v", err)
		state.Error = err
	}
	c.sendState(state)
}

// takePending returns and clears queued servo work. Callers hold c.mu.
func (c *Controller) takePending() pending {
	p := pending{filter: c.filter, relay: c.relay}
	c.filter, c.relay = 0, nil
	return p
}

func (c *Controller) flush(ctx context.Context, p pending) error {
	var errs []error
	if p.filter > 0 {
		if err := c.driver.SetFilter(ctx, p.filter); err != nil {
			errs = append(errs, fmt.Errorf("set filter: %w", err))
		}
	}
	if len(p.relay) == 0 {
		return errors.Join(errs...)
	}
	sender, ok := c.driver.(servo.Sender)
	if !ok {
		log.WithField("commands", len(p.relay)).Warn("driver cannot relay servo commands")
		return errors.Join(errs...)
	}
	for _, cmd := range p.relay {
		if err := sender.Send(ctx, cmd); err != nil {
			errs = append(errs, fmt.Errorf("relay %q: %w", cmd.String(), err))
		}
	}
	return errors.Join(errs...)
}

// snapshot captures the current state. Callers hold c.mu.
func (c *Controller) snapshot() State {
	e := c.engine
	return State{
		Joints:     e.Output(),
		Stopped:    e.Stopped(),
		Gait:       e.Gait(),
		Trajectory: e.Trajectory(),
		Posture:    e.Posture(),
		Jogging:    e.Jogging(),
		Phase:      e.Phase(),
		Step:       e.SequenceStep(),
		Speed:      c.speed,
		Period:     c.pacer.Period(),
		Timestamp:  c.clock.Now(),
	}
}

// Snapshot returns the current state without ticking.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.driver.Relax(context.Background()); err != nil {
		c.log("Warning: failed to relax servos: %v", err)
	} else {
		c.log("Servos relaxed")
	}
	c.log("Control loop stopped")
}
