package protocol

import (
	"testing"

	"github.com/mattjoyce/retracer/internal/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	frame := makeSnapshot(2, 2, 3, 5)
	var stream []byte
	for i := 0; i < 2; i++ {
		stream = append(stream, encodeSnapshots(t, frame)...)
	}

	tests := []struct {
		name    string
		in      Input
		checkFn func(t *testing.T, out Outcome)
	}{
		{
			name: "plain replay passes stdout through",
			in:   Input{Stdout: []byte("Replay OK"), Mode: replay.ModePlain},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, "Replay OK", out.Summary)
				assert.Nil(t, out.State)
				assert.Nil(t, out.Snapshots)
				assert.Nil(t, out.Errors)
				assert.NoError(t, out.Err)
			},
		},
		{
			name: "plain replay with invalid utf8",
			in:   Input{Stdout: []byte("ok \xff"), Mode: replay.ModePlain},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, "ok �", out.Summary)
			},
		},
		{
			name: "crash ignores stdout",
			in: Input{
				Stdout:   []byte(`{"parameters":{}}`),
				Stderr:   []byte("7: GL_ERROR: boom\n"),
				Mode:     replay.ModeState,
				Crashed:  true,
				ExitCode: -1,
			},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, MsgCrashed, out.Summary)
				assert.ErrorIs(t, out.Err, ErrProcessCrashed)
				assert.Nil(t, out.State)
				assert.Equal(t, []ReplayError{{CallIndex: 7, Kind: "GL_ERROR", Message: "boom"}}, out.Errors)
			},
		},
		{
			name: "crash in plain mode",
			in:   Input{Stdout: []byte("Replay OK"), Crashed: true},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, MsgCrashed, out.Summary)
			},
		},
		{
			name: "non-zero exit",
			in:   Input{Stdout: stream, Mode: replay.ModeSnapshots, ExitCode: 2},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, MsgNonZeroExit, out.Summary)
				assert.ErrorIs(t, out.Err, ErrNonZeroExit)
				assert.Nil(t, out.Snapshots)
			},
		},
		{
			name: "state capture",
			in:   Input{Stdout: []byte(`{"parameters":{"GL_BLEND":true}}`), Mode: replay.ModeState},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, MsgStateFetched, out.Summary)
				require.NotNil(t, out.State)
				assert.Equal(t, true, out.State.Parameters()["GL_BLEND"])
				assert.NoError(t, out.Err)
			},
		},
		{
			name: "state parse failure",
			in:   Input{Stdout: []byte("not json"), Stderr: []byte("1: error: x\n"), Mode: replay.ModeState},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, MsgStateParseFailed, out.Summary)
				assert.ErrorIs(t, out.Err, ErrStateParseFailed)
				assert.Nil(t, out.State)
				assert.Len(t, out.Errors, 1)
			},
		},
		{
			name: "snapshots",
			in:   Input{Stdout: stream, Mode: replay.ModeSnapshots},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, MsgSnapshotsFetched, out.Summary)
				assert.Equal(t, []SnapshotImage{frame, frame}, out.Snapshots)
				assert.NoError(t, out.Err)
			},
		},
		{
			name: "no snapshots still yields an empty payload",
			in:   Input{Mode: replay.ModeSnapshots},
			checkFn: func(t *testing.T, out Outcome) {
				assert.NotNil(t, out.Snapshots)
				assert.Empty(t, out.Snapshots)
			},
		},
		{
			name: "malformed trailing snapshot",
			in:   Input{Stdout: stream[:len(stream)-2], Mode: replay.ModeSnapshots},
			checkFn: func(t *testing.T, out Outcome) {
				assert.Equal(t, MsgSnapshotsFetched, out.Summary)
				assert.Len(t, out.Snapshots, 1)
				assert.ErrorIs(t, out.Err, ErrMalformedHeader)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checkFn(t, Decode(tt.in))
		})
	}
}
