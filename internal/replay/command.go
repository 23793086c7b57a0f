package replay

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	glExecutable  = "glretrace"
	eglExecutable = "eglretrace"
)

// Command is an executable name plus its ordered arguments.
type Command struct {
	Executable string
	Args       []string
}

// String renders the command for logs. Arguments containing spaces are quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Executable)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Executable returns the replay program for api.
func Executable(api API) (string, error) {
	switch api {
	case APIGL:
		return glExecutable, nil
	case APIEGL:
		return eglExecutable, nil
	default:
		return "", fmt.Errorf("%w: unsupported api %d", ErrInvalidConfiguration, int(api))
	}
}

// Executables lists every replay program the tool may launch.
func Executables() []string {
	return []string{glExecutable, eglExecutable}
}

// BuildCommand maps o to the retrace command line:
//
//	<exe> [-db|-sb] [-D <call>] [-s -] [-b] <trace>
func BuildCommand(o Options) (Command, error) {
	exe, err := Executable(o.API)
	if err != nil {
		return Command{}, err
	}
	if strings.TrimSpace(o.TraceFile) == "" {
		return Command{}, fmt.Errorf("%w: trace file is empty", ErrInvalidConfiguration)
	}

	args := make([]string, 0, 6)
	if o.DoubleBuffered {
		args = append(args, "-db")
	} else {
		args = append(args, "-sb")
	}

	if o.Capturing() {
		if o.CaptureStateAt != nil {
			args = append(args, "-D", strconv.FormatInt(*o.CaptureStateAt, 10))
		}
		if o.CaptureSnapshots {
			args = append(args, "-s", "-")
		}
	} else if o.Benchmarking {
		args = append(args, "-b")
	}

	args = append(args, o.TraceFile)
	return Command{Executable: exe, Args: args}, nil
}
