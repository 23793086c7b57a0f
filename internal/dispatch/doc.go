// Package dispatch runs retrace child processes and republishes their results.
//
// The ExecLauncher starts one child per run with stdin closed and stdout/stderr
// captured in full. A Process moves through
//
//	Idle -> Starting -> Running -> {Completed, Crashed, TerminatedByRequest}
//
// and delivers exactly one Exit on Done(). A launch failure (executable missing
// or not runnable) is returned from Launch wrapping ErrLaunchFailed and never
// reaches Running.
//
// The Controller owns at most one run at a time. It launches in a background
// goroutine, decodes the buffers with protocol.Decode once the child has exited,
// and publishes, in order:
//   - state.captured or snapshots.captured (when the mode produced a payload)
//   - replay.errors (when stderr carried structured error lines)
//   - run.finished (always, exactly once)
//
// Termination handling:
//   - RequestTermination sends SIGTERM and reports TerminatedByRequest at once
//   - the reaper keeps waiting for the OS process in the background
//   - after the grace period SIGKILL is sent if the process is still alive
//
// Launch environments are explicit values. The tool's binary directory is
// prefixed to PATH of the child only; the parent environment is never modified.
package dispatch
