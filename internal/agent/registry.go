package agent

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/uiforge/internal/a2a"
)

// Target is a generator endpoint and the skills a run needs from it.
type Target struct {
	Name     string
	Endpoint string
	Skills   []string
}

// Status is the result of probing one Target.
type Status struct {
	Name      string   `json:"name"`
	Endpoint  string   `json:"endpoint"`
	Reachable bool     `json:"reachable"`
	Agent     string   `json:"agent,omitempty"`
	Version   string   `json:"version,omitempty"`
	Missing   []string `json:"missing_skills,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Ready reports whether the endpoint answered and offers every skill.
func (s Status) Ready() bool { return s.Reachable && len(s.Missing) == 0 }

// Registry discovers generator agents through their agent cards.
type Registry struct {
	client a2a.Client
	limit  int
}

// NewRegistry creates a Registry probing at most limit endpoints at once.
// A limit below one means no bound.
func NewRegistry(client a2a.Client, limit int) *Registry {
	return &Registry{client: client, limit: limit}
}

// Probe fetches every target's agent card concurrently. Unreachable
// endpoints are reported in the returned statuses, not as an error; the
// error is only set when ctx ends first. Results are ordered by name.
func (r *Registry) Probe(ctx context.Context, targets []Target) ([]Status, error) {
	out := make([]Status, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, t := range targets {
		g.Go(func() error {
			out[i] = r.probe(gctx, t)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("agent: probe: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Registry) probe(ctx context.Context, t Target) Status {
	st := Status{Name: t.Name, Endpoint: t.Endpoint}
	card, err := r.client.DiscoverAgent(ctx, t.Endpoint)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Reachable = true
	st.Agent = card.Name
	st.Version = card.Version
	for _, s := range t.Skills {
		if !card.HasSkill(s) {
			st.Missing = append(st.Missing, s)
		}
	}
	return st
}
