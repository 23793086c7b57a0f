package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseAPI(t *testing.T) {
	tests := []struct {
		in      string
		want    API
		wantErr bool
	}{
		{in: "gl", want: APIGL},
		{in: "GL", want: APIGL},
		{in: " egl ", want: APIEGL},
		{in: "vulkan", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAPI(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIYAML(t *testing.T) {
	var v struct {
		API API `yaml:"api"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("api: egl\n"), &v))
	assert.Equal(t, APIEGL, v.API)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "api: egl\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("api: d3d9\n"), &v))
}

func TestOptionsMode(t *testing.T) {
	assert.Equal(t, ModePlain, Options{Benchmarking: true}.Mode())
	assert.Equal(t, ModeState, Options{CaptureStateAt: Call(3)}.Mode())
	assert.Equal(t, ModeSnapshots, Options{CaptureSnapshots: true}.Mode())
	assert.Equal(t, ModeState, Options{CaptureStateAt: Call(3), CaptureSnapshots: true}.Mode())
}

func TestOptionsClone(t *testing.T) {
	orig := Options{API: APIGL, TraceFile: "a.trace", CaptureStateAt: Call(7)}
	clone := orig.Clone()
	*orig.CaptureStateAt = 99

	require.NotNil(t, clone.CaptureStateAt)
	assert.Equal(t, int64(7), *clone.CaptureStateAt)
}
