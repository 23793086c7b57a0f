package dispatch

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State is a Process lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateCompleted
	StateCrashed
	StateTerminatedByRequest
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCrashed:
		return "crashed"
	case StateTerminatedByRequest:
		return "terminated"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCrashed || s == StateTerminatedByRequest
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	grace  time.Duration
	logger *slog.Logger

	state atomic.Int32

	done     chan Exit
	doneOnce sync.Once

	// exited is closed once the OS process has been reaped.
	exited chan struct{}
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) State() State {
	return State(p.state.Load())
}

func (p *execProcess) Done() <-chan Exit {
	return p.done
}

// RequestTermination sends SIGTERM and reports TerminatedByRequest immediately.
// It is a no-op unless the process is Running.
func (p *execProcess) RequestTermination() {
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateTerminatedByRequest)) {
		return
	}

	p.logger.Info("terminating replay process")
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("failed to send SIGTERM", "error", err)
	}

	p.deliver(Exit{State: StateTerminatedByRequest, ExitCode: -1})

	if p.grace > 0 {
		go p.escalate()
	}
}

// escalate sends SIGKILL if the child outlives the grace period.
func (p *execProcess) escalate() {
	grace := time.NewTimer(p.grace)
	defer grace.Stop()

	select {
	case <-p.exited:
		p.logger.Debug("replay process exited after SIGTERM")
	case <-grace.C:
		p.logger.Warn("replay process did not exit after SIGTERM, sending SIGKILL", "grace", p.grace)
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Error("failed to send SIGKILL", "error", err)
		}
	}
}

func (p *execProcess) deliver(exit Exit) {
	p.doneOnce.Do(func() {
		p.done <- exit
		close(p.done)
	})
}
