package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// fixtureGraphFile is the on-disk shape LoadFixtureGraph and
// FixtureGraph.WriteJSON read and write: a flat node/edge list, the
// same inputs NewFixtureGraph takes in memory.
type fixtureGraphFile struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// LoadFixtureGraph reads a JSON-encoded node/edge list from path and
// builds a FixtureGraph from it. It does not parse source code: the
// file is expected to already be a graph dump, produced by whatever
// external tool built it. This is the supported way to hand the CLI a
// real GraphView without a parser front-end, per FixtureGraph's own
// purpose as described above.
func LoadFixtureGraph(path string) (*FixtureGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}

	var file fixtureGraphFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse graph file %s: %w", path, err)
	}

	return NewFixtureGraph(file.Nodes, file.Edges), nil
}

// WriteJSON serializes g to path in the format LoadFixtureGraph reads,
// mainly useful for producing fixtures from a FixtureGraph built in
// memory (tests, `codegraph` smoke data).
func (g *FixtureGraph) WriteJSON(path string) error {
	file := fixtureGraphFile{
		Nodes: g.IterNodes(),
		Edges: g.edges,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write graph file %s: %w", path, err)
	}
	return nil
}
