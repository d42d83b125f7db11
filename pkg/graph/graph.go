package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a model to JSON bytes.
func MarshalGraph(m flow.Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(FromModel(m), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraphFile writes a model to a JSON file.
// The file is created with 0644 permissions.
func WriteGraphFile(m flow.Model, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return encode(FromModel(m), f)
}

// WriteGraph writes a model as JSON to an io.Writer.
func WriteGraph(m flow.Model, w io.Writer) error {
	return encode(FromModel(m), w)
}

// WriteModels writes both models as one JSON document.
func WriteModels(m flow.Models, w io.Writer) error {
	return encode(FromModels(m), w)
}

// ReadGraphFile reads a JSON file and returns the decoded model.
func ReadGraphFile(path string) (flow.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return flow.Model{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return flow.Model{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// ReadGraph decodes a JSON graph from an io.Reader into a model.
func ReadGraph(r io.Reader) (flow.Model, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return flow.Model{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode graph")
	}
	return ToModel(g)
}

// UnmarshalGraph deserializes JSON bytes to a Graph without validating it.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// =============================================================================
// Internal Implementation
// =============================================================================

func encode(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
