package textindex

import "github.com/codegraph-ai/codegraph-core/internal/graph"

// CallIndex holds forward (callees) and reverse (callers) maps built in
// one pass over the graph's Calls edges.
type CallIndex struct {
	Callees map[graph.NodeID][]graph.NodeID
	Callers map[graph.NodeID][]graph.NodeID
}

// ImportIndex maps an imported module name to every node that imports it.
type ImportIndex struct {
	ByName map[string][]graph.NodeID
}

// BuildRelations walks every node and edge once, producing the
// call-relation and import indexes per §4.3.
func BuildRelations(g graph.GraphView) (*CallIndex, *ImportIndex) {
	calls := &CallIndex{
		Callees: make(map[graph.NodeID][]graph.NodeID),
		Callers: make(map[graph.NodeID][]graph.NodeID),
	}
	imports := &ImportIndex{ByName: make(map[string][]graph.NodeID)}

	for _, n := range g.IterNodes() {
		for _, neighbor := range g.GetNeighbors(n.ID, graph.Outgoing) {
			for _, e := range g.GetEdgesBetween(n.ID, neighbor) {
				switch e.Type {
				case graph.EdgeCalls:
					calls.Callees[n.ID] = append(calls.Callees[n.ID], neighbor)
					calls.Callers[neighbor] = append(calls.Callers[neighbor], n.ID)
				case graph.EdgeImports:
					if target, ok := g.GetNode(neighbor); ok && target.Name != "" {
						imports.ByName[target.Name] = append(imports.ByName[target.Name], n.ID)
					}
				}
			}
		}
	}
	return calls, imports
}
