package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorLines(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   []ReplayError
	}{
		{
			name:   "single gl error",
			stderr: "12:  GL_ERROR: invalid enum\n",
			want:   []ReplayError{{CallIndex: 12, Kind: "GL_ERROR", Message: "invalid enum"}},
		},
		{
			name:   "no match",
			stderr: "not a match line\n",
			want:   nil,
		},
		{
			name:   "empty",
			stderr: "",
			want:   nil,
		},
		{
			name: "mixed noise keeps order",
			stderr: "glretrace: loading trace\n" +
				"3: warning: unsupported call\n" +
				"Rendered 10 frames in 0.5 secs\n" +
				"1024: GL_INVALID_OPERATION: glDrawArrays failed: no program\n",
			want: []ReplayError{
				{CallIndex: 3, Kind: "warning", Message: "unsupported call"},
				{CallIndex: 1024, Kind: "GL_INVALID_OPERATION", Message: "glDrawArrays failed: no program"},
			},
		},
		{
			name:   "crlf line endings",
			stderr: "5: error: bad\r\n",
			want:   []ReplayError{{CallIndex: 5, Kind: "error", Message: "bad"}},
		},
		{
			name:   "no space after call colon",
			stderr: "5:error: bad\n",
			want:   nil,
		},
		{
			name:   "kind with punctuation",
			stderr: "5: gl-error: bad\n",
			want:   nil,
		},
		{
			name:   "leading whitespace not anchored",
			stderr: "  5: error: bad\n",
			want:   nil,
		},
		{
			name:   "empty message",
			stderr: "5: error: \n",
			want:   nil,
		},
		{
			name:   "call index overflow",
			stderr: "99999999999999999999: error: huge\n",
			want:   nil,
		},
		{
			name:   "last line without newline",
			stderr: "1: error: a\n2: error: b",
			want: []ReplayError{
				{CallIndex: 1, Kind: "error", Message: "a"},
				{CallIndex: 2, Kind: "error", Message: "b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseErrorLines(tt.stderr))
		})
	}
}
