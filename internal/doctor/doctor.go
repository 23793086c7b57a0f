// Package doctor runs preflight checks before a replay: configuration,
// replay executables on the launch PATH, and the trace file itself.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/retracer/internal/config"
	"github.com/mattjoyce/retracer/internal/dispatch"
	"github.com/mattjoyce/retracer/internal/replay"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid       bool              `json:"valid"`
	Errors      []Issue           `json:"errors,omitempty"`
	Warnings    []Issue           `json:"warnings,omitempty"`
	Executables map[string]string `json:"executables,omitempty"`
	Trace       *TraceInfo        `json:"trace,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// TraceInfo describes the trace file that would be replayed.
type TraceInfo struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"blake3"`
}

// Doctor validates a configuration and launch environment.
type Doctor struct {
	cfg   *config.Config
	env   dispatch.Environment
	trace string
}

// New creates a Doctor. trace may be empty to skip the trace checks.
func New(cfg *config.Config, env dispatch.Environment, trace string) *Doctor {
	return &Doctor{cfg: cfg, env: env, trace: trace}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true, Executables: make(map[string]string)}

	d.validateBinaryDir(r)
	d.validateExecutables(r)
	d.validateTrace(r)
	d.warnTermination(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateBinaryDir(r *Result) {
	dir := d.cfg.BinaryDir
	if dir == "" {
		d.addWarning(r, "config", "binary_dir", "binary_dir not set; replay executables are resolved from PATH only")
		return
	}
	info, err := os.Stat(dir)
	if err != nil {
		d.addError(r, "config", "binary_dir", fmt.Sprintf("binary_dir %s: %v", dir, err))
		return
	}
	if !info.IsDir() {
		d.addError(r, "config", "binary_dir", fmt.Sprintf("binary_dir %s is not a directory", dir))
	}
}

// validateExecutables resolves every replay program against the launch PATH.
// Only the configured API's program is required.
func (d *Doctor) validateExecutables(r *Result) {
	required, _ := replay.Executable(d.cfg.Replay.API)

	for _, name := range replay.Executables() {
		path, err := d.env.LookPath(name)
		if err == nil {
			r.Executables[name] = path
			continue
		}
		msg := fmt.Sprintf("%s not found on launch PATH", name)
		if d.cfg.BinaryDir != "" {
			// LookPath skips non-executable candidates; name the likely cause.
			if _, statErr := os.Stat(filepath.Join(d.cfg.BinaryDir, name)); statErr == nil {
				msg = fmt.Sprintf("%s found in binary_dir but not executable", name)
			}
		}
		if name == required {
			d.addError(r, "executables", "replay.api", msg)
		} else {
			d.addWarning(r, "executables", "", msg)
		}
	}
}

func (d *Doctor) validateTrace(r *Result) {
	if d.trace == "" {
		return
	}

	info, err := os.Stat(d.trace)
	if err != nil {
		d.addError(r, "trace", "", fmt.Sprintf("trace file %s: %v", d.trace, err))
		return
	}
	if info.IsDir() {
		d.addError(r, "trace", "", fmt.Sprintf("trace file %s is a directory", d.trace))
		return
	}

	sum, err := config.ComputeBlake3Hash(d.trace)
	if err != nil {
		d.addError(r, "trace", "", fmt.Sprintf("trace file %s is not readable: %v", d.trace, err))
		return
	}

	abs, err := filepath.Abs(d.trace)
	if err != nil {
		abs = d.trace
	}
	r.Trace = &TraceInfo{Path: abs, Size: info.Size(), Fingerprint: sum}

	if info.Size() == 0 {
		d.addWarning(r, "trace", "", "trace file is empty")
	}
	if !strings.EqualFold(filepath.Ext(d.trace), ".trace") {
		d.addWarning(r, "trace", "", fmt.Sprintf("trace file %s does not have a .trace extension", filepath.Base(d.trace)))
	}
}

func (d *Doctor) warnTermination(r *Result) {
	if d.cfg.TerminationGrace == 0 {
		d.addWarning(r, "config", "termination_grace", "termination_grace is 0; cancelled replays are killed without a grace period")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Ready to replay.\n")
	case r.Valid:
		fmt.Fprintf(&b, "Ready to replay (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Not ready (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, name := range replay.Executables() {
		if path, ok := r.Executables[name]; ok {
			fmt.Fprintf(&b, "  %-11s %s\n", name, path)
		}
	}
	if r.Trace != nil {
		fmt.Fprintf(&b, "  trace       %s (%d bytes, blake3 %s)\n", r.Trace.Path, r.Trace.Size, r.Trace.Fingerprint)
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
