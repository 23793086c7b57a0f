package protocol

import "errors"

// Run-level failure conditions. They end up in Outcome.Err and never abort the caller.
var (
	ErrProcessCrashed   = errors.New("replay process crashed")
	ErrNonZeroExit      = errors.New("replay process exited with non-zero code")
	ErrMalformedHeader  = errors.New("malformed snapshot header")
	ErrStateParseFailed = errors.New("failed to parse captured state")
)

// Fixed summary messages.
const (
	MsgCrashed          = "Process crashed"
	MsgNonZeroExit      = "Process exited with non zero exit code"
	MsgStateFetched     = "State fetched."
	MsgSnapshotsFetched = "Snaps fetched"
	MsgStateParseFailed = "Failed to parse captured state"
	MsgTerminated       = "Process terminated."
)

// ReplayError is one structured error line reported by the replay process.
type ReplayError struct {
	CallIndex int64  `json:"call_index"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// Outcome is the decoded result of one run.
// At most one of State and Snapshots is set.
type Outcome struct {
	Summary   string          `json:"summary"`
	Errors    []ReplayError   `json:"errors,omitempty"`
	State     *CapturedState  `json:"state,omitempty"`
	Snapshots []SnapshotImage `json:"-"`

	// Err is the failure condition for the run, if any. A MalformedHeader error
	// can coexist with partial Snapshots.
	Err error `json:"-"`
}
