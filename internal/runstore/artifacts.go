package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/gate"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Artifact file locations inside a run directory.
const (
	WireframeFile = "wireframe.md"
	PrototypeFile = "prototype.html"
	APIDir        = "api"
	OpenAPIFile   = "api/openapi.yaml"
	FrontendDir   = "frontend"
	BackendDir    = "backend"
	SchemaFile    = "backend/schema.sql"
)

// APIFiles returns the paths of the API document parts of project.
func APIFiles(project string) (analysis, plan, doc string) {
	return path.Join(APIDir, project+"_api_analysis.json"),
		path.Join(APIDir, project+"_api_plan.json"),
		path.Join(APIDir, project+"_api_doc.md")
}

// WriteArtifacts writes every accepted artifact of res below dir and
// returns the slash-separated paths written, in write order.
func WriteArtifacts(dir string, res *orchestrator.Result) ([]string, error) {
	if res.Store == nil {
		return nil, nil
	}
	fw := &fileWriter{root: dir}

	if a, err := res.Store.GetAccepted(orchestrator.StageWireframe); err == nil {
		if w, ok := a.(*artifact.WireframeDescription); ok {
			fw.write(WireframeFile, []byte(w.Text))
		}
	}
	if a, err := res.Store.GetAccepted(orchestrator.StagePrototype); err == nil {
		if p, ok := a.(*artifact.HTMLPrototype); ok {
			fw.write(PrototypeFile, []byte(p.Markup))
		}
	}

	b := res.Bundle
	if b == nil {
		b = orchestrator.AssembleBundle(res.Store, nil)
	}
	if doc := b.APIDocument; doc != nil {
		fw.apiDocument(doc, res.Run.Config.ProjectName)
	}
	if fe := b.Frontend; fe != nil {
		for _, f := range fe.Files {
			fw.write(path.Join(FrontendDir, f.Path), []byte(f.Content))
		}
	}
	if be := b.Backend; be != nil {
		for _, f := range be.Files {
			fw.write(path.Join(BackendDir, f.Path), []byte(f.Content))
		}
		fw.write(SchemaFile, []byte(be.Schema))
	}
	return fw.written, fw.err
}

func (fw *fileWriter) apiDocument(doc *artifact.APIDocument, project string) {
	analysisFile, planFile, docFile := APIFiles(project)
	if doc.Analysis != nil {
		fw.writeJSON(analysisFile, doc.Analysis)
	}
	if doc.Plan != nil {
		fw.writeJSON(planFile, doc.Plan)
		fw.openAPI(doc.Plan, project)
	}
	if doc.Rendered != nil {
		fw.write(docFile, []byte(doc.Rendered.Markdown))
	}
}

// openAPI renders the plan as OpenAPI YAML. kin-openapi only marshals
// JSON; decoding that into a yaml.Node keeps its key order on re-encode.
func (fw *fileWriter) openAPI(plan *artifact.InterfacePlan, title string) {
	if fw.err != nil {
		return
	}
	spec, err := gate.OpenAPI(plan, title)
	if err != nil {
		fw.err = fmt.Errorf("runstore: openapi: %w", err)
		return
	}
	data, err := spec.MarshalJSON()
	if err != nil {
		fw.err = fmt.Errorf("runstore: openapi: %w", err)
		return
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		fw.err = fmt.Errorf("runstore: openapi: %w", err)
		return
	}
	out, err := yaml.Marshal(&node)
	if err != nil {
		fw.err = fmt.Errorf("runstore: openapi: %w", err)
		return
	}
	fw.write(OpenAPIFile, out)
}

// fileWriter keeps the first error and skips later writes.
type fileWriter struct {
	root    string
	written []string
	err     error
}

func (fw *fileWriter) write(rel string, data []byte) {
	if fw.err != nil {
		return
	}
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		fw.err = fmt.Errorf("runstore: refusing to write %q outside the run directory", rel)
		return
	}
	p := filepath.Join(fw.root, local)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		fw.err = fmt.Errorf("runstore: write %s: %w", rel, err)
		return
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		fw.err = fmt.Errorf("runstore: write %s: %w", rel, err)
		return
	}
	fw.written = append(fw.written, rel)
}

func (fw *fileWriter) writeJSON(rel string, v any) {
	if fw.err != nil {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fw.err = fmt.Errorf("runstore: encode %s: %w", rel, err)
		return
	}
	fw.write(rel, append(data, '\n'))
}
