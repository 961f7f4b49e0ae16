package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// =============================================================================
// Layout - Computed Positions
// =============================================================================

// Layout is the serialization format for a finished layout run.
// It is what the CLI writes, the HTTP service returns, and the cache stores.
//
// Positions maps node ID to a Dimensions-length coordinate slice. Nodes and
// Links echo the input graph so a layout file is self-contained for
// downstream renderers.
type Layout struct {
	Dimensions int                  `json:"dimensions"`
	Steps      int                  `json:"steps"`
	Stable     bool                 `json:"stable"`
	Energy     float64              `json:"energy"`
	Positions  map[string][]float64 `json:"positions"`
	Nodes      []NodeDoc            `json:"nodes,omitempty"`
	Links      []LinkDoc            `json:"links,omitempty"`
}

// Position returns the coordinates of id and whether the layout has it.
func (l Layout) Position(id string) ([]float64, bool) {
	p, ok := l.Positions[id]
	return p, ok
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
// Every position must have exactly Dimensions components.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}

	if l.Dimensions != 2 && l.Dimensions != 3 {
		return Layout{}, fmt.Errorf("layout dimensions must be 2 or 3, got %d", l.Dimensions)
	}
	for id, p := range l.Positions {
		if len(p) != l.Dimensions {
			return Layout{}, fmt.Errorf("position of %q has %d components, want %d", id, len(p), l.Dimensions)
		}
	}
	if l.Positions == nil {
		l.Positions = map[string][]float64{}
	}

	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
