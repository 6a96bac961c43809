package graph

import "context"

// Layout names understood by Arranger implementations.
const (
	LayoutTrees         = "trees"
	LayoutGridComposite = "grid-composite"
	LayoutReset         = "reset"
)

// Arranger applies a named layout or view action to the host graph.
type Arranger interface {
	Arrange(ctx context.Context, layout string) error
}

// ArrangerFunc adapts a function to Arranger.
type ArrangerFunc func(ctx context.Context, layout string) error

// Arrange calls f.
func (f ArrangerFunc) Arrange(ctx context.Context, layout string) error {
	return f(ctx, layout)
}

// NopArranger ignores every layout.
var NopArranger Arranger = ArrangerFunc(func(context.Context, string) error { return nil })
