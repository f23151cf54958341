package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/mechdog/pkg/gait"
	"github.com/gwillem/mechdog/pkg/mcu"
	"github.com/gwillem/mechdog/pkg/robot"
	"github.com/gwillem/mechdog/pkg/servo"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func newController(t *testing.T, cfg Config) (*Controller, *servo.Recorder, *manualClock) {
	t.Helper()
	v, err := robot.LookupVariant("mechdog")
	require.NoError(t, err)

	rec := servo.NewRecorder()
	clock := &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cfg.Variant = v
	cfg.Driver = rec
	cfg.Clock = clock

	c, err := New(cfg)
	require.NoError(t, err)
	return c, rec, clock
}

func steps(c *Controller, n int) {
	for range n {
		c.Step(context.Background())
	}
}

func TestNew(t *testing.T) {
	c, rec, _ := newController(t, Config{})

	assert.Equal(t, DefaultSpeed, c.Speed())
	assert.Equal(t, 70*time.Millisecond, c.Period())
	s := c.Snapshot()
	assert.True(t, s.Stopped)
	assert.Equal(t, gait.Up, s.Posture)
	assert.Empty(t, rec.Tables(), "nothing is written before the first tick")

	_, err := New(Config{})
	assert.Error(t, err, "driver is required")

	_, err = New(Config{Driver: rec, Speed: StopSpeed})
	assert.Error(t, err)
}

func TestSpeedLevels(t *testing.T) {
	tests := []struct {
		speed  int
		period time.Duration
		gait   gait.Type
		filter int
	}{
		{1, 70 * time.Millisecond, gait.Static, 4},
		{2, 60 * time.Millisecond, gait.Static, 4},
		{3, 50 * time.Millisecond, gait.Static, 3},
		{4, 55 * time.Millisecond, gait.Dynamic, 3},
	}

	for _, tt := range tests {
		c, rec, _ := newController(t, Config{Speed: tt.speed})
		c.Step(context.Background())

		assert.Equal(t, tt.period, c.Period(), "speed %d", tt.speed)
		assert.Equal(t, tt.gait, c.Snapshot().Gait, "speed %d", tt.speed)
		assert.Equal(t, []int{tt.filter}, rec.Filters(), "speed %d", tt.speed)
	}
}

func TestPollWaitsForPeriod(t *testing.T) {
	c, rec, clock := newController(t, Config{})
	ctx := context.Background()

	assert.False(t, c.Poll(ctx))
	clock.Advance(69 * time.Millisecond)
	assert.False(t, c.Poll(ctx))
	clock.Advance(time.Millisecond)
	assert.True(t, c.Poll(ctx))
	assert.False(t, c.Poll(ctx), "next tick is a full period later")
	assert.Len(t, rec.Tables(), 1)
}

func TestIdleTicksDoNotWrite(t *testing.T) {
	c, rec, _ := newController(t, Config{})

	steps(c, 3)
	assert.Len(t, rec.Tables(), 1, "only the first tick has anything to do")

	select {
	case s := <-c.States():
		assert.True(t, s.Stopped)
		assert.NoError(t, s.Error)
	default:
		t.Fatal("no state published")
	}
}

func TestWalkUsesRequestedSpeed(t *testing.T) {
	c, rec, _ := newController(t, Config{})

	require.True(t, c.SetSpeed(3))
	assert.Equal(t, 70*time.Millisecond, c.Period(), "speed applies with the next walk")

	require.True(t, c.Walk(gait.Forward))
	assert.Equal(t, 50*time.Millisecond, c.Period())

	steps(c, 1)
	assert.Equal(t, []int{3}, rec.Filters())
	assert.False(t, c.Snapshot().Stopped)

	assert.False(t, c.SetSpeed(0))
	assert.False(t, c.SetSpeed(StopSpeed))
	assert.Equal(t, 3, c.Speed())
}

func TestStopWhileStandingUsesStopSpeed(t *testing.T) {
	c, _, _ := newController(t, Config{})
	steps(c, 1)

	require.True(t, c.Walk(gait.Stop))
	assert.Equal(t, 60*time.Millisecond, c.Period())
}

func TestBodyAdjustmentsUseStopSpeed(t *testing.T) {
	c, _, _ := newController(t, Config{})
	steps(c, 1)

	assert.True(t, c.SetHeight(120))
	assert.Equal(t, 60*time.Millisecond, c.Period())

	assert.False(t, c.SetRoll(45), "outside limits")
	assert.True(t, c.SetFrontalOffset(10))
	assert.False(t, c.SetLateralOffset(100))
}

func TestOffsetsNeedStandstill(t *testing.T) {
	c, _, _ := newController(t, Config{Speed: 3})
	c.Walk(gait.Forward)
	steps(c, 2)

	require.False(t, c.Snapshot().Stopped)
	assert.False(t, c.SetFrontalOffset(10))
	assert.Equal(t, 50*time.Millisecond, c.Period(), "walking speed is kept")
}

func TestPostureSpeedTransitions(t *testing.T) {
	c, rec, _ := newController(t, Config{})

	require.True(t, c.SetPosture(gait.Lay))
	steps(c, 2)
	s := c.Snapshot()
	assert.Equal(t, gait.Lay, s.Posture)
	assert.Equal(t, 180*time.Millisecond, c.Period())
	assert.Equal(t, []int{4, 14}, rec.Filters())

	// the lying stage settles on the third tick; later ticks are idle
	steps(c, 2)
	require.True(t, c.Snapshot().Stopped)
	assert.Len(t, rec.Tables(), 3)

	steps(c, 1)
	assert.Len(t, rec.Tables(), 3, "holding a posture writes nothing")

	require.True(t, c.SetPosture(gait.Up))
	steps(c, 3)
	s = c.Snapshot()
	assert.Equal(t, gait.Up, s.Posture)
	assert.True(t, s.Stopped)
	assert.Equal(t, 60*time.Millisecond, c.Period())
	assert.Equal(t, []int{4, 14, 14}, rec.Filters())
}

func TestRelay(t *testing.T) {
	c, rec, _ := newController(t, Config{})

	led := servo.NewCommand(5, servo.CmdLED, 3)
	c.Relay(led)
	assert.Empty(t, rec.Commands(), "relayed on the next tick")

	steps(c, 1)
	assert.Equal(t, []servo.Command{led}, rec.Commands())
}

func TestApply(t *testing.T) {
	t.Run("walk with speed", func(t *testing.T) {
		c, _, _ := newController(t, Config{})
		c.Apply(mcu.Command{Motion: mcu.Walk, Value: gait.Right, HasValue: true, Speed: 3, HasSpeed: true})
		assert.Equal(t, 3, c.Speed())
		assert.Equal(t, 50*time.Millisecond, c.Period())
	})

	t.Run("speed zero is ignored", func(t *testing.T) {
		c, _, _ := newController(t, Config{Speed: 2})
		c.Apply(mcu.Command{Motion: mcu.Rotate, Value: 1, HasValue: true, HasSpeed: true})
		assert.Equal(t, 2, c.Speed())
	})

	t.Run("posture", func(t *testing.T) {
		c, _, _ := newController(t, Config{})
		c.Apply(mcu.Command{Motion: mcu.Sit})
		steps(c, 2)
		assert.Equal(t, gait.Sit, c.Snapshot().Posture)
	})

	t.Run("trajectory", func(t *testing.T) {
		c, _, _ := newController(t, Config{})
		c.Apply(mcu.Command{Motion: mcu.GaitType, Value: int(gait.Square), HasValue: true})
		assert.Equal(t, gait.Square, c.Snapshot().Trajectory)
	})

	t.Run("unknown stops", func(t *testing.T) {
		c, _, _ := newController(t, Config{})
		c.Walk(gait.Forward)
		steps(c, 20)
		require.False(t, c.Snapshot().Stopped)

		c.Apply(mcu.Command{Motion: mcu.Sequence})
		for range 64 {
			c.Step(context.Background())
			if c.Snapshot().Stopped {
				break
			}
		}
		assert.True(t, c.Snapshot().Stopped)
	})

	t.Run("relay", func(t *testing.T) {
		c, rec, _ := newController(t, Config{})
		cmd := servo.Command{ID: robot.Broadcast, Name: servo.CmdLimp}
		c.Apply(mcu.Command{Servo: &cmd})
		steps(c, 1)
		assert.Equal(t, []servo.Command{cmd}, rec.Commands())
	})
}

func TestWriteErrorInState(t *testing.T) {
	c, rec, _ := newController(t, Config{})
	busDown := errors.New("bus down")
	rec.Err = busDown

	steps(c, 1)
	s := <-c.States()
	assert.ErrorIs(t, s.Error, busDown)
	assert.Contains(t, <-c.Logs(), "bus down")
}

func TestStartAndCancel(t *testing.T) {
	v, err := robot.LookupVariant("mechdog")
	require.NoError(t, err)
	rec := servo.NewRecorder()
	c, err := New(Config{Variant: v, Driver: rec, Resolution: time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-c.States():
	case <-time.After(2 * time.Second):
		t.Fatal("no tick")
	}
	assert.Error(t, c.Start(ctx), "already running")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}
	assert.Equal(t, 1, rec.Inits())
	assert.True(t, rec.Relaxed())

	require.NoError(t, c.Close())
	assert.True(t, rec.Closed())
}

func TestLogHook(t *testing.T) {
	c, _, _ := newController(t, Config{})
	h := c.Hook(logrus.InfoLevel)

	assert.Contains(t, h.Levels(), logrus.WarnLevel)
	assert.NotContains(t, h.Levels(), logrus.DebugLevel)

	entry := logrus.WithField("pkg", "gait")
	entry.Message = "hello"
	require.NoError(t, h.Fire(entry))
	assert.Equal(t, "[12:00:00] gait: hello", <-c.Logs())
}
