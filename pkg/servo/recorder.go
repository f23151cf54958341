package servo

import (
	"context"
	"sync"

	"github.com/gwillem/mechdog/pkg/kinematics"
)

// Recorder is an in-memory Driver. It keeps every table written to it.
type Recorder struct {
	mu       sync.Mutex
	tables   []kinematics.JointTable
	filters  []int
	commands []Command
	inits    int
	relaxed  bool
	closed   bool

	// Err, when set, is returned by WriteJoints.
	Err error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits++
	r.relaxed = false
	return nil
}

func (r *Recorder) WriteJoints(ctx context.Context, t kinematics.JointTable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.tables = append(r.tables, t)
	return nil
}

func (r *Recorder) SetFilter(ctx context.Context, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, count)
	return nil
}

func (r *Recorder) Relax(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relaxed = true
	return nil
}

func (r *Recorder) Send(ctx context.Context, cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return nil
}

// ReadJoints returns the last table written.
func (r *Recorder) ReadJoints(ctx context.Context) (kinematics.JointTable, error) {
	t, _ := r.Last()
	return t, nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Tables returns every table written so far.
func (r *Recorder) Tables() []kinematics.JointTable {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kinematics.JointTable(nil), r.tables...)
}

// Last returns the most recent table.
func (r *Recorder) Last() (kinematics.JointTable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tables) == 0 {
		return kinematics.JointTable{}, false
	}
	return r.tables[len(r.tables)-1], true
}

// Filters returns every filter count set so far.
func (r *Recorder) Filters() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.filters...)
}

// Commands returns every raw command sent so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Inits returns how often Init was called.
func (r *Recorder) Inits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inits
}

// Relaxed reports whether the servos were relaxed since the last Init.
func (r *Recorder) Relaxed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.relaxed
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
