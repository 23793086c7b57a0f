package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleState = `{
  "parameters": {"GL_VIEWPORT": [0, 0, 640, 480], "GL_BLEND": false},
  "shaders": {"GL_VERTEX_SHADER": "void main() {}"},
  "textures": {},
  "framebuffer": {"GL_BACK": {"__class__": "image"}}
}
`

func TestParseState(t *testing.T) {
	st, err := ParseState([]byte(sampleState))
	require.NoError(t, err)

	assert.Equal(t, []string{"framebuffer", "parameters", "shaders", "textures"}, st.Keys())
	assert.Equal(t, 4, st.Len())

	v, ok := st.Get("shaders")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"GL_VERTEX_SHADER": "void main() {}"}, v)

	assert.Equal(t, false, st.Parameters()["GL_BLEND"])
	assert.NotNil(t, st.Framebuffers()["GL_BACK"])
	assert.Empty(t, st.Textures())
	assert.Nil(t, st.Uniforms())

	r, ok := st.Lookup("parameters.GL_VIEWPORT.2")
	require.True(t, ok)
	assert.Equal(t, int64(640), r.Int())

	_, ok = st.Lookup("parameters.GL_DEPTH_TEST")
	assert.False(t, ok)
}

func TestParseState_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace", input: " \n\t"},
		{name: "null", input: "null"},
		{name: "array", input: "[1,2]"},
		{name: "truncated", input: `{"parameters": {`},
		{name: "trailing garbage", input: `{"a":1} trailing`},
		{name: "plain text", input: "Rendered 10 frames"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := ParseState([]byte(tt.input))
			assert.ErrorIs(t, err, ErrStateParseFailed)
			assert.Nil(t, st)
		})
	}
}

func TestCapturedStateMarshalJSON(t *testing.T) {
	st, err := ParseState([]byte(`{"b":1,"a":2}`))
	require.NoError(t, err)

	out, err := json.Marshal(map[string]any{"state": st})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"a":2,"b":1}}`, string(out))
}
