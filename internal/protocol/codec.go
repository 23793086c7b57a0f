package protocol

import (
	"strings"

	"github.com/mattjoyce/retracer/internal/replay"
)

// Input is everything the decoder needs from a finished process.
type Input struct {
	Stdout   []byte
	Stderr   []byte
	Mode     replay.Mode
	Crashed  bool
	ExitCode int
}

// Decode turns the captured output of a finished replay process into an Outcome.
// The payload branch is chosen by in.Mode only. Stderr error lines are parsed in
// every branch, including crashes.
func Decode(in Input) Outcome {
	out := Outcome{
		Errors: ParseErrorLines(string(in.Stderr)),
	}

	switch {
	case in.Crashed:
		out.Summary = MsgCrashed
		out.Err = ErrProcessCrashed
	case in.ExitCode != 0:
		out.Summary = MsgNonZeroExit
		out.Err = ErrNonZeroExit
	default:
		decodePayload(in, &out)
	}

	return out
}

func decodePayload(in Input, out *Outcome) {
	switch in.Mode {
	case replay.ModeState:
		st, err := ParseState(in.Stdout)
		if err != nil {
			out.Summary = MsgStateParseFailed
			out.Err = err
			return
		}
		out.State = st
		out.Summary = MsgStateFetched

	case replay.ModeSnapshots:
		snaps, err := DecodeSnapshots(in.Stdout)
		if snaps == nil {
			snaps = []SnapshotImage{}
		}
		out.Snapshots = snaps
		out.Err = err
		out.Summary = MsgSnapshotsFetched

	default:
		out.Summary = strings.ToValidUTF8(string(in.Stdout), "�")
	}
}
