// Package remote exposes the controller as a JSON-RPC service over a
// websocket, so browsers and scripts can drive the robot.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"

	"github.com/gwillem/mechdog/pkg/control"
	"github.com/gwillem/mechdog/pkg/mcu"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "remote",
})

// ServiceName is the name methods are called on, as in "Robot.Command".
const ServiceName = "Robot"

// Robot is what the service drives. *control.Controller implements it.
type Robot interface {
	Apply(cmd mcu.Command)
	Snapshot() control.State
}

// Request is one motion command. Either Frame carries a raw MCU frame, or
// Command names the motion ("walk", "sit", ...) with optional Value and
// Speed.
type Request struct {
	Frame   string `json:"frame,omitempty"`
	Command string `json:"command,omitempty"`
	Value   int    `json:"value,omitempty"`
	Speed   int    `json:"speed,omitempty"`
}

// Status reports the robot state after a call.
type Status struct {
	Stopped    bool      `json:"stopped"`
	Gait       string    `json:"gait"`
	Trajectory string    `json:"trajectory"`
	Posture    string    `json:"posture"`
	Jogging    bool      `json:"jogging"`
	Speed      int       `json:"speed"`
	Phase      int       `json:"phase"`
	Step       int       `json:"step"`
	Joints     [4][3]int `json:"joints"`
	Error      string    `json:"error,omitempty"`
}

// Empty is the argument of calls that take none.
type Empty struct{}

// Service is the RPC receiver.
type Service struct {
	robot Robot
	id    int
}

// NewService returns a service that parses frames addressed to id.
func NewService(robot Robot, id int) *Service {
	if id == 0 {
		id = mcu.DefaultID
	}
	return &Service{robot: robot, id: id}
}

// Command applies one command and returns the resulting status.
func (s *Service) Command(req Request, rep *Status) error {
	cmd, err := s.decode(req)
	if err != nil {
		return err
	}
	log.WithField("command", cmd.Motion).Debug("remote command")
	s.robot.Apply(cmd)
	*rep = statusOf(s.robot.Snapshot())
	return nil
}

// Status returns the current status.
func (s *Service) Status(_ Empty, rep *Status) error {
	*rep = statusOf(s.robot.Snapshot())
	return nil
}

func (s *Service) decode(req Request) (mcu.Command, error) {
	if req.Frame != "" {
		cmd, err := mcu.Parse(s.id, req.Frame)
		if err != nil {
			return mcu.Command{}, fmt.Errorf("parse frame: %w", err)
		}
		return cmd, nil
	}
	m, err := mcu.ParseMotion(req.Command)
	if err != nil {
		return mcu.Command{}, err
	}
	return mcu.Command{
		Motion:   m,
		Value:    req.Value,
		HasValue: true,
		Speed:    req.Speed,
		HasSpeed: req.Speed != 0,
	}, nil
}

func statusOf(st control.State) Status {
	s := Status{
		Stopped:    st.Stopped,
		Gait:       st.Gait.String(),
		Trajectory: st.Trajectory.String(),
		Posture:    st.Posture.String(),
		Jogging:    st.Jogging,
		Speed:      st.Speed,
		Phase:      st.Phase,
		Step:       st.Step,
	}
	for i, a := range st.Joints {
		s.Joints[i] = a
	}
	if st.Error != nil {
		s.Error = st.Error.Error()
	}
	return s
}

// NewServer returns an RPC server with the service registered.
func NewServer(svc *Service) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, svc); err != nil {
		return nil, fmt.Errorf("register service: %w", err)
	}
	return srv, nil
}

// Handler serves JSON-RPC on websocket connections.
func Handler(srv *rpc.Server) http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		addr := ws.Request().RemoteAddr
		log.WithField("addr", addr).Info("client connected")
		defer log.WithField("addr", addr).Info("client disconnected")
		srv.ServeCodec(jsonrpc.NewServerCodec(ws))
	})
}

// ListenAndServe serves the service on addr at /ws until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, svc *Service) error {
	srv, err := NewServer(svc)
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", Handler(srv))
	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		hs.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", l.Addr().String()).Info("remote listening")
	if err := hs.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve remote: %w", err)
	}
	return nil
}
