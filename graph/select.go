package graph

import "github.com/zero-day-ai/graphkit/selection"

// SelectedVertices returns the vertices whose selected attribute is true.
func SelectedVertices(g *MemoryGraph) *selection.VertexSet {
	set := selection.New()
	for v := range g.VertexCount() {
		if sel, ok := g.Value(ElementVertex, AttrSelected, v); ok && sel == true {
			set.Add(v)
		}
	}
	return set
}
