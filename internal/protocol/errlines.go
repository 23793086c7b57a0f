package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// errorLinePattern matches "<call>: <kind>: <message>", e.g. "12:  GL_ERROR: invalid enum".
var errorLinePattern = regexp.MustCompile(`^(\d+): +(\w+): (.+)$`)

// ParseErrorLines extracts ReplayError records from stderr, in line order.
// Non-matching lines are ignored. It returns nil when nothing matches.
func ParseErrorLines(stderr string) []ReplayError {
	var out []ReplayError
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSuffix(line, "\r")
		m := errorLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		call, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, ReplayError{
			CallIndex: call,
			Kind:      m[2],
			Message:   m[3],
		})
	}
	return out
}
