package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/knotfield/internal/pipeline"
)

// marshalParams converts Params to JSON TEXT for storage.
func marshalParams(p pipeline.Params) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalParams parses JSON TEXT written by marshalParams.
func unmarshalParams(data string) (pipeline.Params, error) {
	var p pipeline.Params
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return pipeline.Params{}, fmt.Errorf("unmarshal params: %w", err)
	}
	return p, nil
}
