package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/mattjoyce/retracer/internal/log"
	"github.com/mattjoyce/retracer/internal/replay"
)

//go:generate mockgen -source=launcher.go -destination=mock_dispatch_test.go -package=dispatch

// ErrLaunchFailed means the replay executable could not be started.
var ErrLaunchFailed = errors.New("launch failed")

// DefaultTerminationGrace is the time we wait after SIGTERM before sending SIGKILL.
const DefaultTerminationGrace = 5 * time.Second

// DefaultOutputDrain bounds how long output is still read after the child has
// exited. Descendants that keep stdout or stderr open are cut off after it.
const DefaultOutputDrain = 2 * time.Second

// Exit is the terminal notification of a Process.
type Exit struct {
	State    State
	ExitCode int
	Stdout   []byte
	Stderr   []byte

	// Err reports I/O trouble while draining pipes or waiting. The buffers hold
	// whatever was read.
	Err error
}

// Process is a launched replay child.
type Process interface {
	PID() int
	State() State
	// Done receives exactly one Exit and is then closed.
	Done() <-chan Exit
	// RequestTermination signals the child and reports TerminatedByRequest
	// without waiting for the OS process to exit.
	RequestTermination()
}

// Launcher starts replay processes.
type Launcher interface {
	Launch(ctx context.Context, cmd replay.Command, env Environment) (Process, error)
}

// ExecLauncher launches real OS processes.
type ExecLauncher struct {
	// TerminationGrace is how long a terminated child may linger before SIGKILL.
	// Zero disables escalation.
	TerminationGrace time.Duration

	// OutputDrain is passed to exec.Cmd.WaitDelay.
	OutputDrain time.Duration

	logger *slog.Logger
}

// NewExecLauncher creates an ExecLauncher with the given SIGKILL grace period.
func NewExecLauncher(grace time.Duration) *ExecLauncher {
	return &ExecLauncher{
		TerminationGrace: grace,
		OutputDrain:      DefaultOutputDrain,
		logger:           log.WithComponent("launcher"),
	}
}

// Launch resolves cmd.Executable on env's PATH and starts it. Cancelling ctx
// requests termination of the child.
func (l *ExecLauncher) Launch(ctx context.Context, cmd replay.Command, env Environment) (Process, error) {
	path, err := env.LookPath(cmd.Executable)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrLaunchFailed, cmd.Executable, launchFailureReason(err), err)
	}

	// Termination is driven by RequestTermination, so CommandContext is not used.
	c := exec.Command(path, cmd.Args...)
	c.Env = env
	c.WaitDelay = l.OutputDrain

	p := &execProcess{
		cmd:    c,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		grace:  l.TerminationGrace,
		done:   make(chan Exit, 1),
		exited: make(chan struct{}),
		logger: l.logger.With("executable", cmd.Executable),
	}
	c.Stdout = p.stdout
	c.Stderr = p.stderr
	p.state.Store(int32(StateStarting))

	l.logger.Debug("starting replay process", "path", path, "args", cmd.Args)
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s (%s): %w", ErrLaunchFailed, path, launchFailureReason(err), err)
	}
	p.state.Store(int32(StateRunning))
	p.logger = p.logger.With("pid", c.Process.Pid)

	go p.reap(ctx)
	return p, nil
}

// reap waits for the child and delivers the Exit. Wait returns once the child
// has exited and its output is drained, or OutputDrain after the exit when a
// descendant still holds the pipes.
func (p *execProcess) reap(ctx context.Context) {
	stop := context.AfterFunc(ctx, p.RequestTermination)
	defer stop()

	waitErr := p.cmd.Wait()
	close(p.exited)

	exit := Exit{
		Stdout: p.stdout.Bytes(),
		Stderr: p.stderr.Bytes(),
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		p.logger.Warn("replay output still held open after exit, stopped reading", "drain", p.cmd.WaitDelay)
		waitErr = nil
	}
	exit.State, exit.ExitCode, exit.Err = classifyExit(waitErr)

	if !p.state.CompareAndSwap(int32(StateRunning), int32(exit.State)) {
		p.logger.Debug("replay process exited after termination request", "exit_code", exit.ExitCode)
		return
	}

	p.logger.Debug("replay process exited",
		"state", exit.State.String(),
		"exit_code", exit.ExitCode,
		"stdout_bytes", len(exit.Stdout),
		"stderr_bytes", len(exit.Stderr),
	)
	p.deliver(exit)
}

// classifyExit maps the result of Wait to a terminal state. A child killed by a
// signal has no exit code and counts as crashed.
func classifyExit(waitErr error) (State, int, error) {
	if waitErr == nil {
		return StateCompleted, 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			return StateCrashed, -1, nil
		}
		return StateCompleted, code, nil
	}

	return StateCrashed, -1, fmt.Errorf("wait for process: %w", waitErr)
}

// launchFailureReason gives a short classification for logs and messages.
func launchFailureReason(err error) string {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return "not found"
	case errors.Is(err, os.ErrPermission):
		return "permission denied"
	default:
		return "not runnable"
	}
}
