package mcu

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/mechdog/pkg/servo"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Command
		wantErr error
	}{
		{"walk forward", "#100M0V360\r", Command{Motion: Walk, Value: 360, HasValue: true}, nil},
		{"walk with speed", "#100M0V90S3", Command{Motion: Walk, Value: 90, HasValue: true, Speed: 3, HasSpeed: true}, nil},
		{"stop", "#100M0", Command{Motion: Walk}, nil},
		{"negative roll", "#100M2V-15", Command{Motion: Roll, Value: -15, HasValue: true}, nil},
		{"sit", "#100M11\r", Command{Motion: Sit}, nil},
		{"jog off", "#100M19", Command{Motion: JogOff}, nil},
		{"leading noise", "xx#100M12", Command{Motion: Lay}, nil},
		{"empty speed ignored", "#100M1V1S", Command{Motion: Rotate, Value: 1, HasValue: true}, nil},

		{"command too large", "#100M20", Command{}, ErrInvalidCommand},
		{"no command number", "#100MV3", Command{}, ErrInvalidCommand},
		{"no marker", "100M0", Command{}, ErrMalformed},
		{"no id", "#M0", Command{}, ErrMalformed},
		{"not motion", "#100X0", Command{}, ErrMalformed},
		{"bad value", "#100M0Vabc", Command{}, ErrMalformed},
		{"garbage after command", "#100M0Q", Command{}, ErrMalformed},
		{"other controller", "#101M0V360", Command{}, ErrNotAddressed},
		{"above broadcast", "#255M0", Command{}, ErrNotAddressed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(DefaultID, tt.frame)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.frame, diff)
			}
		})
	}
}

func TestParseRelay(t *testing.T) {
	tests := []struct {
		frame string
		want  servo.Command
	}{
		{"#11D450\r", servo.NewCommand(11, servo.CmdMove, 450)},
		{"#43D-120", servo.NewCommand(43, servo.CmdMove, -120)},
		{"#254LED3", servo.NewCommand(254, servo.CmdLED, 3)},
		{"#21L", servo.Command{ID: 21, Name: servo.CmdLimp}},
		{"#254H", servo.Command{ID: 254, Name: servo.CmdHold}},
	}

	for _, tt := range tests {
		got, err := Parse(DefaultID, tt.frame)
		require.NoError(t, err, tt.frame)
		require.NotNil(t, got.Servo, tt.frame)
		assert.Equal(t, tt.want, *got.Servo, tt.frame)
	}

	_, err := Parse(DefaultID, "#11CG1")
	assert.ErrorIs(t, err, ErrMalformed, "configuration commands are not relayed")
}

func TestParseCustomID(t *testing.T) {
	cmd, err := Parse(120, "#120M10")
	require.NoError(t, err)
	assert.Equal(t, Up, cmd.Motion)

	_, err = Parse(120, "#100M10")
	assert.ErrorIs(t, err, ErrNotAddressed)
}

func TestFormatRoundTrip(t *testing.T) {
	cmds := []Command{
		{Motion: Walk, Value: 270, HasValue: true, Speed: 2, HasSpeed: true},
		{Motion: Height, Value: 120, HasValue: true},
		{Motion: Stretch},
		{Servo: &servo.Command{ID: 31, Name: servo.CmdLimp}},
	}
	for _, c := range cmds {
		frame := Format(DefaultID, c)
		assert.True(t, strings.HasSuffix(frame, "\r"))
		got, err := Parse(DefaultID, frame)
		require.NoError(t, err, frame)
		assert.Equal(t, c, got, frame)
	}
}

func TestMotionNames(t *testing.T) {
	for m := Walk; m < maxMotion; m++ {
		if m > GaitType && m < Up {
			continue
		}
		got, err := ParseMotion(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMotion("backflip")
	assert.ErrorIs(t, err, ErrInvalidCommand)
	assert.Equal(t, "motion(9)", Motion(9).String())
}

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader("#100M0V360\r\r#100M99\r#100M11"), DefaultID)

	cmd, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Walk, cmd.Motion)

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrInvalidCommand)

	cmd, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, Sit, cmd.Motion)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestServe(t *testing.T) {
	in := "#100M10\r#101M11\rjunk\r#100M0V180S2\r#11H\r"
	var got []Command
	err := Serve(context.Background(), strings.NewReader(in), DefaultID, func(c Command) {
		got = append(got, c)
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Up, got[0].Motion)
	assert.Equal(t, 180, got[1].Value)
	assert.Equal(t, 2, got[1].Speed)
	require.NotNil(t, got[2].Servo)
	assert.Equal(t, servo.CmdHold, got[2].Servo.Name)
}

func TestServeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Serve(ctx, strings.NewReader("#100M10\r"), DefaultID, func(Command) {
		t.Fatal("applied after cancel")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
