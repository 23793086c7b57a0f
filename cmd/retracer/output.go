package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattjoyce/retracer/internal/dispatch"
	"github.com/mattjoyce/retracer/internal/lock"
	"github.com/mattjoyce/retracer/internal/protocol"
	"golang.org/x/sync/errgroup"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF"))
)

// jsonOutcome is the -json rendering of a finished run.
type jsonOutcome struct {
	RunID     string                 `json:"run_id"`
	Command   string                 `json:"command"`
	Summary   string                 `json:"summary"`
	Error     string                 `json:"error,omitempty"`
	Errors    []protocol.ReplayError `json:"replay_errors,omitempty"`
	State     json.RawMessage        `json:"state,omitempty"`
	Snapshots []jsonSnapshot         `json:"snapshots,omitempty"`
	Files     []string               `json:"files,omitempty"`
}

type jsonSnapshot struct {
	Width    uint   `json:"width"`
	Height   uint   `json:"height"`
	Channels uint   `json:"channels"`
	Digest   string `json:"blake3"`
}

// report prints the outcome of run and writes any requested output files.
// Payload goes to stdout, diagnostics to stderr.
func report(stdout, stderr io.Writer, run *dispatch.Run, out protocol.Outcome, f *replayFlags) error {
	var files []string
	switch {
	case out.Snapshots != nil && f.out != "":
		written, err := writeSnapshots(f.out, out.Snapshots, f.format)
		if err != nil {
			return err
		}
		files = written
	case out.State != nil && f.out != "":
		if err := os.WriteFile(f.out, indentJSON(out.State.Raw()), 0o644); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
		files = []string{f.out}
	}

	if f.jsonOut {
		return writeJSONOutcome(stdout, run, out, files)
	}

	switch {
	case truncatedStream(out):
		fmt.Fprintln(stderr, okStyle.Render(out.Summary))
		fmt.Fprintln(stderr, warnStyle.Render("  warning: "+out.Err.Error()))
	case out.Err != nil:
		fmt.Fprintln(stderr, failStyle.Render(out.Summary))
		fmt.Fprintln(stderr, dimStyle.Render("  "+out.Err.Error()))
	case out.State != nil || out.Snapshots != nil:
		fmt.Fprintln(stderr, okStyle.Render(out.Summary))
	default:
		// Plain replay output is the payload.
		fmt.Fprint(stdout, out.Summary)
		if out.Summary != "" && !strings.HasSuffix(out.Summary, "\n") {
			fmt.Fprintln(stdout)
		}
	}

	if out.State != nil && f.out == "" {
		stdout.Write(indentJSON(out.State.Raw()))
	}
	if out.Snapshots != nil {
		fmt.Fprintln(stderr, snapshotSummary(out.Snapshots, f.out, len(files)))
	}
	if len(out.Errors) > 0 {
		fmt.Fprint(stderr, formatReplayErrors(out.Errors))
	}
	return nil
}

// truncatedStream reports a snapshot run whose stream ended in a malformed
// record. The frames before it are kept and the run still succeeds.
func truncatedStream(out protocol.Outcome) bool {
	return out.Snapshots != nil && errors.Is(out.Err, protocol.ErrMalformedHeader)
}

func writeJSONOutcome(w io.Writer, run *dispatch.Run, out protocol.Outcome, files []string) error {
	doc := jsonOutcome{
		RunID:   run.ID,
		Command: run.Command.String(),
		Summary: out.Summary,
		Errors:  out.Errors,
		Files:   files,
	}
	if out.Err != nil {
		doc.Error = out.Err.Error()
	}
	if out.State != nil {
		doc.State = json.RawMessage(out.State.Raw())
	}
	for _, s := range out.Snapshots {
		doc.Snapshots = append(doc.Snapshots, jsonSnapshot{
			Width: s.Width, Height: s.Height, Channels: s.Channels, Digest: s.Digest(),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("render JSON outcome: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeSnapshots writes frame-NNNN.<format> files into dir and returns their paths.
func writeSnapshots(dir string, snaps []protocol.SnapshotImage, format string) ([]string, error) {
	l, err := lock.AcquireDir(dir)
	if err != nil {
		return nil, err
	}
	defer l.Release()

	paths := make([]string, len(snaps))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range snaps {
		i, s := i, s
		paths[i] = filepath.Join(dir, fmt.Sprintf("frame-%04d.%s", i, format))
		g.Go(func() error {
			return writeSnapshot(paths[i], s, format)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeSnapshot(path string, s protocol.SnapshotImage, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case "pnm":
		err = s.WritePNM(f)
	default:
		err = png.Encode(f, s.Image())
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func snapshotSummary(snaps []protocol.SnapshotImage, dir string, written int) string {
	var total uint64
	for _, s := range snaps {
		total += uint64(len(s.Pixels))
	}
	line := fmt.Sprintf("%d frame(s), %s of pixels", len(snaps), humanize.Bytes(total))
	if len(snaps) > 0 {
		line += fmt.Sprintf(", %dx%d", snaps[0].Width, snaps[0].Height)
	}
	if dir != "" {
		line += fmt.Sprintf("; wrote %d file(s) to %s", written, dir)
	}
	return dimStyle.Render(line)
}

func formatReplayErrors(errs []protocol.ReplayError) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Replay errors (%d)", len(errs))))
	b.WriteByte('\n')
	for _, e := range errs {
		fmt.Fprintf(&b, "  %8d  %s  %s\n", e.CallIndex, kindStyle.Render(e.Kind), e.Message)
	}
	return b.String()
}

func indentJSON(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
