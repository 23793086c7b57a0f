package replay

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration is returned when Options cannot be turned into a command.
var ErrInvalidConfiguration = errors.New("invalid replay configuration")

// API selects the graphics API wrapper used to replay a trace.
type API int

const (
	APIUnknown API = iota
	APIGL
	APIEGL
)

// String returns the lowercase API name.
func (a API) String() string {
	switch a {
	case APIGL:
		return "gl"
	case APIEGL:
		return "egl"
	default:
		return "unknown"
	}
}

// ParseAPI parses "gl" or "egl" (case-insensitive).
func ParseAPI(s string) (API, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gl", "opengl":
		return APIGL, nil
	case "egl":
		return APIEGL, nil
	default:
		return APIUnknown, fmt.Errorf("%w: unknown api %q", ErrInvalidConfiguration, s)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (a API) MarshalYAML() (any, error) {
	return a.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *API) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseAPI(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Mode is the output shape the replay process is asked to produce on stdout.
type Mode int

const (
	ModePlain Mode = iota
	ModeState
	ModeSnapshots
)

func (m Mode) String() string {
	switch m {
	case ModeState:
		return "state"
	case ModeSnapshots:
		return "snapshots"
	default:
		return "plain"
	}
}

// Options describes one replay run. It must not be mutated once a run has started;
// the controller works on a Clone.
type Options struct {
	API            API
	TraceFile      string
	Benchmarking   bool
	DoubleBuffered bool

	// CaptureStateAt requests a JSON state dump at the given call index.
	CaptureStateAt *int64
	// CaptureSnapshots requests a PNM frame stream on stdout.
	CaptureSnapshots bool
}

// Call is a helper for setting CaptureStateAt.
func Call(n int64) *int64 {
	return &n
}

// Clone returns a deep copy of o.
func (o Options) Clone() Options {
	out := o
	if o.CaptureStateAt != nil {
		n := *o.CaptureStateAt
		out.CaptureStateAt = &n
	}
	return out
}

// Capturing reports whether any capture flag is set.
func (o Options) Capturing() bool {
	return o.CaptureStateAt != nil || o.CaptureSnapshots
}

// Mode returns the stdout payload shape for o. State capture takes precedence
// over snapshot capture when both are requested.
func (o Options) Mode() Mode {
	switch {
	case o.CaptureStateAt != nil:
		return ModeState
	case o.CaptureSnapshots:
		return ModeSnapshots
	default:
		return ModePlain
	}
}
