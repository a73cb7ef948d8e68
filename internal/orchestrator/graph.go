package orchestrator

import "fmt"

// Graph is the static stage dependency graph of a pipeline.
type Graph struct {
	specs []StageSpec
	index map[StageName]int
}

// NewGraph creates a Graph from specs in declaration order. Declaration
// order breaks ties in ResolveOrder.
func NewGraph(specs ...StageSpec) *Graph {
	g := &Graph{index: make(map[StageName]int, len(specs))}
	for _, s := range specs {
		if _, dup := g.index[s.Name]; dup {
			// Keep the first declaration; Validate reports the duplicate.
			g.specs = append(g.specs, s)
			continue
		}
		g.index[s.Name] = len(g.specs)
		g.specs = append(g.specs, s)
	}
	return g
}

// Spec returns the descriptor of name.
func (g *Graph) Spec(name StageName) (StageSpec, bool) {
	i, ok := g.index[name]
	if !ok {
		return StageSpec{}, false
	}
	return g.specs[i], true
}

// Specs returns all stage descriptors in declaration order.
func (g *Graph) Specs() []StageSpec {
	return append([]StageSpec(nil), g.specs...)
}

// Validate checks for duplicate names and undeclared dependencies.
func (g *Graph) Validate() error {
	seen := make(map[StageName]bool, len(g.specs))
	for _, s := range g.specs {
		if seen[s.Name] {
			return fmt.Errorf("orchestrator: stage %s declared twice", s.Name)
		}
		seen[s.Name] = true
	}
	for _, s := range g.specs {
		for _, d := range s.DependsOn {
			if !seen[d] {
				return &UnknownDependencyError{Stage: s.Name, Dependency: d}
			}
		}
	}
	return nil
}

// ResolveOrder returns the stages in a topological order: each stage comes
// after all of its dependencies.
func (g *Graph) ResolveOrder() ([]StageSpec, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	order := make([]StageSpec, 0, len(g.specs))
	for _, l := range levels {
		order = append(order, l...)
	}
	return order, nil
}

// Levels groups stages into waves. Every stage's dependencies sit in
// earlier waves, so stages within one wave are mutually independent.
func (g *Graph) Levels() ([][]StageSpec, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	level := make(map[StageName]int, len(g.specs))
	remaining := len(g.specs)
	for remaining > 0 {
		progressed := false
		for _, s := range g.specs {
			if _, done := level[s.Name]; done {
				continue
			}
			l, ready := 0, true
			for _, d := range s.DependsOn {
				dl, ok := level[d]
				if !ok {
					ready = false
					break
				}
				if dl+1 > l {
					l = dl + 1
				}
			}
			if ready {
				level[s.Name] = l
				remaining--
				progressed = true
			}
		}
		if !progressed {
			var stuck []StageName
			for _, s := range g.specs {
				if _, done := level[s.Name]; !done {
					stuck = append(stuck, s.Name)
				}
			}
			return nil, &CyclicGraphError{Stages: stuck}
		}
	}

	var waves [][]StageSpec
	for _, s := range g.specs {
		l := level[s.Name]
		for len(waves) <= l {
			waves = append(waves, nil)
		}
		waves[l] = append(waves[l], s)
	}
	return waves, nil
}

// Descendants returns every stage that depends on name directly or
// transitively, in declaration order.
func (g *Graph) Descendants(name StageName) []StageName {
	reached := map[StageName]bool{name: true}
	for changed := true; changed; {
		changed = false
		for _, s := range g.specs {
			if reached[s.Name] {
				continue
			}
			for _, d := range s.DependsOn {
				if reached[d] {
					reached[s.Name] = true
					changed = true
					break
				}
			}
		}
	}
	var out []StageName
	for _, s := range g.specs {
		if s.Name != name && reached[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out
}

// Leaves returns the stages nothing depends on, in declaration order.
func (g *Graph) Leaves() []StageName {
	hasDependent := make(map[StageName]bool)
	for _, s := range g.specs {
		for _, d := range s.DependsOn {
			hasDependent[d] = true
		}
	}
	var out []StageName
	for _, s := range g.specs {
		if !hasDependent[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out
}
