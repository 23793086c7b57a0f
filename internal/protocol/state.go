package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
)

// Well-known top-level sections of a state dump.
const (
	SectionParameters   = "parameters"
	SectionShaders      = "shaders"
	SectionUniforms     = "uniforms"
	SectionTextures     = "textures"
	SectionFramebuffers = "framebuffer"
)

// CapturedState is the JSON object a replay process dumps in state-capture mode.
// Keys are iterated in sorted order.
type CapturedState struct {
	raw    []byte
	values map[string]any
	keys   []string
}

// ParseState parses data as a single JSON object.
func ParseState(data []byte) (*CapturedState, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrStateParseFailed)
	}

	var values map[string]any
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateParseFailed, err)
	}
	if values == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrStateParseFailed)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &CapturedState{raw: trimmed, values: values, keys: keys}, nil
}

// Keys returns the top-level keys in sorted order.
func (s *CapturedState) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of top-level keys.
func (s *CapturedState) Len() int {
	return len(s.keys)
}

// Get returns the top-level value for key.
func (s *CapturedState) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Raw returns the JSON document as received.
func (s *CapturedState) Raw() []byte {
	return s.raw
}

// Lookup resolves a gjson path such as "parameters.GL_VIEWPORT.0".
func (s *CapturedState) Lookup(path string) (gjson.Result, bool) {
	r := gjson.GetBytes(s.raw, path)
	return r, r.Exists()
}

// Section returns a top-level object by name, or nil if absent or not an object.
func (s *CapturedState) Section(name string) map[string]any {
	m, _ := s.values[name].(map[string]any)
	return m
}

func (s *CapturedState) Parameters() map[string]any   { return s.Section(SectionParameters) }
func (s *CapturedState) Shaders() map[string]any      { return s.Section(SectionShaders) }
func (s *CapturedState) Uniforms() map[string]any     { return s.Section(SectionUniforms) }
func (s *CapturedState) Textures() map[string]any     { return s.Section(SectionTextures) }
func (s *CapturedState) Framebuffers() map[string]any { return s.Section(SectionFramebuffers) }

// MarshalJSON returns the original document.
func (s *CapturedState) MarshalJSON() ([]byte, error) {
	return s.raw, nil
}
