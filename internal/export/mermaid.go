package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/status"
)

// GenerateMermaid produces a Mermaid graph TD diagram of one run. Every
// pipeline stage is a node; FEEDS edges from the lineage store become
// arrows. Stages without an accepted artifact are styled as missing.
func GenerateMermaid(ctx context.Context, store lineage.Store, rs *status.RunStatus) (string, error) {
	snap, err := store.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("lineage snapshot: %w", err)
	}

	// Mermaid IDs must be alphanumeric.
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(rs.ID+"_run"), runTitle(rs)))

	var missing []string
	for _, si := range rs.Stages {
		id := getID(lineage.NodeID(rs.ID, string(si.Stage)))
		label := si.Name
		if si.Attempts > 1 {
			label += fmt.Sprintf(" (%d attempts)", si.Attempts)
		}
		if si.State != orchestrator.StateAccepted {
			label += " - " + string(si.State)
			missing = append(missing, id)
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, escapeLabel(label)))
	}
	sb.WriteString("  end\n")

	for _, e := range snap.Edges {
		if e.Kind != lineage.EdgeFeeds {
			continue
		}
		src, ok := nodeIDs[e.SourceID]
		if !ok {
			continue
		}
		tgt, ok := nodeIDs[e.TargetID]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", src, tgt))
	}

	if len(missing) > 0 {
		sb.WriteString("  classDef missing stroke-dasharray: 5 5,color:#999\n")
		sb.WriteString(fmt.Sprintf("  class %s missing\n", strings.Join(missing, ",")))
	}
	return sb.String(), nil
}

func runTitle(rs *status.RunStatus) string {
	if rs.Project == "" {
		return rs.ID
	}
	return rs.Project + " " + string(rs.Status)
}

// escapeLabel keeps quotes from ending a Mermaid label early.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
