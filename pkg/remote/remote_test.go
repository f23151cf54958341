package remote

import (
	"net"
	"net/http/httptest"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/gwillem/mechdog/pkg/control"
	"github.com/gwillem/mechdog/pkg/gait"
	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/mcu"
)

var _ Robot = (*control.Controller)(nil)

type fakeRobot struct {
	mu    sync.Mutex
	cmds  []mcu.Command
	state control.State
}

func (f *fakeRobot) Apply(cmd mcu.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
}

func (f *fakeRobot) Snapshot() control.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeRobot) applied() []mcu.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mcu.Command(nil), f.cmds...)
}

func newFakeRobot() *fakeRobot {
	return &fakeRobot{state: control.State{
		Stopped: true,
		Gait:    gait.Static,
		Posture: gait.Sit,
		Speed:   2,
		Joints:  kinematics.JointTable{{1, 2, 3}},
	}}
}

func pipeClient(t *testing.T, robot Robot) *rpc.Client {
	t.Helper()
	srv, err := NewServer(NewService(robot, mcu.DefaultID))
	require.NoError(t, err)

	server, client := net.Pipe()
	go srv.ServeCodec(jsonrpc.NewServerCodec(server))
	c := jsonrpc.NewClient(client)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCommand(t *testing.T) {
	robot := newFakeRobot()
	c := pipeClient(t, robot)

	var st Status
	require.NoError(t, c.Call("Robot.Command", Request{Command: "walk", Value: 90, Speed: 3}, &st))

	assert.Equal(t, []mcu.Command{{Motion: mcu.Walk, Value: 90, HasValue: true, Speed: 3, HasSpeed: true}}, robot.applied())
	assert.True(t, st.Stopped)
	assert.Equal(t, "static", st.Gait)
	assert.Equal(t, "sit", st.Posture)
	assert.Equal(t, 2, st.Speed)
	assert.Equal(t, [3]int{1, 2, 3}, st.Joints[0])
}

func TestCommandFrame(t *testing.T) {
	robot := newFakeRobot()
	c := pipeClient(t, robot)

	var st Status
	require.NoError(t, c.Call("Robot.Command", Request{Frame: "#100M12"}, &st))
	require.Len(t, robot.applied(), 1)
	assert.Equal(t, mcu.Lay, robot.applied()[0].Motion)

	err := c.Call("Robot.Command", Request{Frame: "#100M25"}, &st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid motion command")
}

func TestCommandUnknown(t *testing.T) {
	robot := newFakeRobot()
	c := pipeClient(t, robot)

	var st Status
	err := c.Call("Robot.Command", Request{Command: "fly"}, &st)
	require.Error(t, err)
	assert.Empty(t, robot.applied())
}

func TestStatus(t *testing.T) {
	robot := newFakeRobot()
	c := pipeClient(t, robot)

	var st Status
	require.NoError(t, c.Call("Robot.Status", Empty{}, &st))
	assert.Equal(t, "sit", st.Posture)
	assert.Empty(t, robot.applied())
}

func TestHandlerOverWebsocket(t *testing.T) {
	robot := newFakeRobot()
	srv, err := NewServer(NewService(robot, 0))
	require.NoError(t, err)

	ts := httptest.NewServer(Handler(srv))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, err := websocket.Dial(url, "", ts.URL)
	require.NoError(t, err)
	c := jsonrpc.NewClient(ws)
	defer c.Close()

	var st Status
	require.NoError(t, c.Call("Robot.Command", Request{Command: "jog-on"}, &st))
	require.Len(t, robot.applied(), 1)
	assert.Equal(t, mcu.JogOn, robot.applied()[0].Motion)
}
