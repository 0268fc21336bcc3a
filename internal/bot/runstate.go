package bot

import (
	"strings"
	"sync"
	"time"
)

type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
)

// ParseStatus maps a config value to a Status; anything but "running"
// means stopped.
func ParseStatus(v string) Status {
	if strings.EqualFold(strings.TrimSpace(v), string(StatusRunning)) {
		return StatusRunning
	}
	return StatusStopped
}

// RunState is the bot's on/off switch plus the process start time used for
// uptime display.
type RunState struct {
	mu        sync.Mutex
	status    Status
	startedAt time.Time
}

func NewRunState(initial Status, startedAt time.Time) *RunState {
	return &RunState{status: initial, startedAt: startedAt}
}

func (r *RunState) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *RunState) StartedAt() time.Time {
	return r.startedAt
}

// transition moves to the target status and reports whether anything changed.
func (r *RunState) transition(to Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == to {
		return false
	}
	r.status = to
	return true
}
