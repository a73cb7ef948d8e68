package gate

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

func TestFor_EveryPipelineStageHasAGate(t *testing.T) {
	for stage := range Defaults {
		assert.NotNil(t, For(stage), stage)
	}
	assert.Nil(t, For("unknown"))
}

func TestWithDefaults(t *testing.T) {
	th := WithDefaults(orchestrator.StageFrontend, orchestrator.Thresholds{MinFiles: 8})
	assert.Equal(t, orchestrator.Thresholds{MinFiles: 8, MaxSyntaxErrors: 0}, th)
	assert.Equal(t, orchestrator.Thresholds{Coverage: 1}, WithDefaults(orchestrator.StageAPIDoc, nil))
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name string
		gate orchestrator.ThresholdValidator
		th   orchestrator.Thresholds
		err  string
	}{
		{"ok", Wireframe{}, orchestrator.Thresholds{MinChars: 10}, ""},
		{"unknown", Wireframe{}, orchestrator.Thresholds{MinFiles: 3}, "unknown thresholds [min_files]"},
		{"fractional count", Backend{}, orchestrator.Thresholds{MinFiles: 2.5}, "whole number"},
		{"coverage range", APIDocument{}, orchestrator.Thresholds{Coverage: 1.5}, "between 0 and 1"},
		{"coverage ok", APIDocument{}, orchestrator.Thresholds{Coverage: 0.8}, ""},
		{"prototype", Prototype{}, orchestrator.Thresholds{MinElements: 3, MaxUnclosed: 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gate.ValidateThresholds(tt.th)
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestWireframe(t *testing.T) {
	ctx := context.Background()
	short := &artifact.WireframeDescription{Text: "a login page"}

	v := Wireframe{}.Evaluate(ctx, short, nil)
	assert.False(t, v.Accepted)
	assert.Equal(t, "wireframe description has 12 characters, want at least 40", v.Reason)

	assert.True(t, Wireframe{}.Evaluate(ctx, short, orchestrator.Thresholds{MinChars: 10}).Accepted)

	v = Wireframe{}.Evaluate(ctx, &artifact.HTMLPrototype{Markup: "<p>"}, nil)
	assert.Equal(t, "expected wireframe_description output, got html_prototype", v.Reason)
}

const goodPage = `<!DOCTYPE html>
<html>
<head><title>Shop</title><meta charset="utf-8"></head>
<body>
  <header><h1>Shop</h1></header>
  <main>
    <form><input name="q"><button>Search</button></form>
    <ul><li>One<li>Two</ul>
  </main>
</body>
</html>`

func TestPrototype(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		markup string
		th     orchestrator.Thresholds
		reason string
	}{
		{"accepts balanced page", goodPage, nil, ""},
		{"no document element", `<div><p>fragment</p></div>`, nil, "no <html> document element"},
		{"unclosed div", `<html><body><div><span>x</span><header></header><main></main><footer></footer></body></html>`, nil, "1 unbalanced tags (<div>)"},
		{"stray end tag", `<html><body></section><div></div></body></html>`, nil, "</section>"},
		{"tolerated unclosed", `<html><body><div><span>x</span><header></header><main></main><footer></footer></body></html>`, orchestrator.Thresholds{MaxUnclosed: 1}, ""},
		{"too few elements", `<html><body><div>hi</div></body></html>`, nil, "body has 1 elements, want at least 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Prototype{}.Evaluate(ctx, &artifact.HTMLPrototype{Markup: tt.markup}, tt.th)
			if tt.reason == "" {
				assert.True(t, v.Accepted, v.Reason)
				return
			}
			assert.False(t, v.Accepted)
			assert.Contains(t, v.Reason, tt.reason)
		})
	}
}

func samplePlan() *artifact.InterfacePlan {
	return &artifact.InterfacePlan{
		BasePath: "/api",
		Authentication: artifact.Authentication{Type: "jwt", Endpoints: []artifact.Endpoint{
			{Path: "/api/auth/login", Method: "POST", Description: "Log in", RequestParams: []string{"username", "password"}, ResponseEntities: []string{"token"}},
		}},
		APIs: []artifact.Endpoint{
			{Path: "/api/products", Method: "GET", Feature: "catalog", Description: "List products", RequestParams: []string{"page"}, ResponseEntities: []string{"Product"}},
			{Path: "/api/products/:id", Method: "GET", Feature: "catalog", Description: "Product detail", RequestParams: []string{"id"}, ResponseEntities: []string{"Product"}},
			{Path: "/api/products/{id}", Method: "DELETE", Feature: "catalog", Description: "Delete product"},
		},
	}
}

func sampleDoc(markdown string) *artifact.APIDocument {
	return &artifact.APIDocument{
		Analysis: &artifact.FeatureAnalysis{Features: []artifact.Feature{{Name: "catalog"}}},
		Plan:     samplePlan(),
		Rendered: &artifact.RenderedDocument{Markdown: markdown},
	}
}

const fullMarkdown = "# Shop API\n\n## POST /api/auth/login\n\n## GET /api/products\n\n## GET /api/products/{id}\n\n## DELETE /api/products/{id}\n"

func TestAPIDocument_Coverage(t *testing.T) {
	ctx := context.Background()

	v := APIDocument{}.Evaluate(ctx, sampleDoc(fullMarkdown), nil)
	assert.True(t, v.Accepted, v.Reason)

	partial := "# Shop API\n\n## POST /api/auth/login\n\n## GET /api/products/{id}\n"
	v = APIDocument{}.Evaluate(ctx, sampleDoc(partial), nil)
	assert.False(t, v.Accepted)
	assert.Contains(t, v.Reason, "covers 3 of 4 endpoints")
	assert.Contains(t, v.Reason, "GET /api/products")

	onlyAuth := "# Shop API\n\n## POST /api/auth/login\n"
	v = APIDocument{}.Evaluate(ctx, sampleDoc(onlyAuth), orchestrator.Thresholds{Coverage: 0.25})
	assert.True(t, v.Accepted, v.Reason)
}

func TestAPIDocument_InvalidOpenAPI(t *testing.T) {
	doc := sampleDoc(fullMarkdown + "\n## GET /api/products/{productId}\n")
	// Same template with a different parameter name conflicts in OpenAPI.
	doc.Plan.APIs = append(doc.Plan.APIs, artifact.Endpoint{Path: "/api/products/{productId}", Method: "PUT"})

	v := APIDocument{}.Evaluate(context.Background(), doc, nil)
	assert.False(t, v.Accepted)
	assert.Contains(t, v.Reason, "not a valid OpenAPI document")
}

// fakeChecker reports one error for every script whose source contains
// "@@".
type fakeChecker struct{ checked []string }

func (f *fakeChecker) Check(s Script) ([]SyntaxError, error) {
	f.checked = append(f.checked, s.File)
	if bytes.Contains(s.Source, []byte("@@")) {
		return []SyntaxError{{File: s.File, Line: s.Line, Column: 1}}, nil
	}
	return nil, nil
}

func vue3Project(extra ...artifact.File) *artifact.FrontendProject {
	files := []artifact.File{
		{Path: "index.html", Content: "<div id=app></div>"},
		{Path: "vite.config.ts", Content: "export default {}"},
		{Path: "package.json", Content: "{}"},
		{Path: "src/main.ts", Content: "import App from './App.vue'"},
		{Path: "src/App.vue", Content: "<template><div/></template>\n<script setup lang=\"ts\">\nconst a = 1\n</script>"},
	}
	return &artifact.FrontendProject{Framework: artifact.FrameworkVue3, TypeScript: true, Files: append(files, extra...)}
}

func TestFrontend(t *testing.T) {
	ctx := context.Background()

	fc := &fakeChecker{}
	g := NewFrontend(fc)
	v := g.Evaluate(ctx, vue3Project(), nil)
	assert.True(t, v.Accepted, v.Reason)
	assert.Equal(t, []string{"vite.config.ts", "src/main.ts", "src/App.vue"}, fc.checked)

	v = g.Evaluate(ctx, vue3Project(artifact.File{Path: "src/bad.ts", Content: "let @@"}), nil)
	assert.False(t, v.Accepted)
	assert.Contains(t, v.Reason, "1 syntax errors")
	assert.Contains(t, v.Reason, "src/bad.ts:1:1")

	v = g.Evaluate(ctx, vue3Project(artifact.File{Path: "src/bad.ts", Content: "let @@"}), orchestrator.Thresholds{MaxSyntaxErrors: 1})
	assert.True(t, v.Accepted, v.Reason)

	vue2 := vue3Project()
	vue2.Framework = artifact.FrameworkVue2
	v = g.Evaluate(ctx, vue2, nil)
	assert.Equal(t, "frontend project is missing public/index.html for vue2", v.Reason)

	small := &artifact.FrontendProject{Framework: artifact.FrameworkVue3, Files: vue3Project().Files[:2]}
	v = g.Evaluate(ctx, small, nil)
	assert.Equal(t, "frontend project has 2 files, want at least 5", v.Reason)

	noConfig := vue3Project()
	noConfig.Files[1].Path = "config.ts"
	v = g.Evaluate(ctx, noConfig, nil)
	assert.Contains(t, v.Reason, "no build config (vite.config.ts or vite.config.js)")
}

func vue2Project() *artifact.FrontendProject {
	return &artifact.FrontendProject{Framework: artifact.FrameworkVue2, Files: []artifact.File{
		{Path: "public/index.html", Content: "<div id=app></div>"},
		{Path: "vue.config.js", Content: "module.exports = {}"},
		{Path: "package.json", Content: "{}"},
		{Path: "src/main.js", Content: "import Vue from 'vue'"},
		{Path: "src/App.vue", Content: "<template><div/></template>"},
	}}
}

func TestFrontend_FrameworkMustMatchRun(t *testing.T) {
	spec := orchestrator.StageSpec{
		Name:   orchestrator.StageFrontend,
		Policy: orchestrator.Policy{MaxRetries: 2},
		Gate:   NewFrontend(&fakeChecker{}),
		Stage: orchestrator.StageFunc(func(context.Context, orchestrator.Inputs, orchestrator.RunConfig) (artifact.Artifact, error) {
			return vue2Project(), nil
		}),
	}
	in := orchestrator.NewInputs(orchestrator.ImageRef{}, nil)

	store := orchestrator.NewStore()
	_, err := orchestrator.NewController(store, nil).Run(context.Background(), spec, in,
		orchestrator.RunConfig{Framework: artifact.FrameworkVue3})
	var exhausted *orchestrator.StageExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "frontend framework vue2, run requested vue3", exhausted.LastReason)
	for _, a := range store.ListAttempts(orchestrator.StageFrontend) {
		assert.Equal(t, orchestrator.OutcomeRejected, a.Outcome)
	}

	store = orchestrator.NewStore()
	att, err := orchestrator.NewController(store, nil).Run(context.Background(), spec, in,
		orchestrator.RunConfig{Framework: artifact.FrameworkVue2})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.OutcomeAccepted, att.Outcome)
}

func TestScripts_VueBlocks(t *testing.T) {
	files := []artifact.File{
		{Path: "src/App.vue", Content: "<template>\n  <div/>\n</template>\n<script>\nexport default {}\n</script>\n<script setup lang=\"tsx\">\nconst x = <b/>\n</script>"},
		{Path: "src/style.css", Content: "body{}"},
	}
	scripts := Scripts(files)
	require.Len(t, scripts, 2)
	assert.Equal(t, 4, scripts[0].Line)
	assert.Equal(t, DialectTS, scripts[0].Dialect)
	assert.Equal(t, "\nexport default {}\n", string(scripts[0].Source))
	assert.Equal(t, 7, scripts[1].Line)
	assert.Equal(t, DialectTSX, scripts[1].Dialect)
}

func backendProject() *artifact.BackendProject {
	return &artifact.BackendProject{
		PackagePath: "com.demo.shop",
		Schema:      "CREATE TABLE product (id BIGINT PRIMARY KEY);",
		Files: []artifact.File{
			{Path: "pom.xml", Content: "<project/>"},
			{Path: "src/main/java/com/demo/shop/ShopApplication.java", Content: "class ShopApplication {}"},
			{Path: "src/main/java/com/demo/shop/entity/Product.java", Content: "class Product {}"},
			{Path: "src/main/java/com/demo/shop/controller/ProductController.java", Content: "class ProductController {}"},
			{Path: "src/main/resources/application.yml", Content: "server: {}"},
		},
	}
}

func TestBackend(t *testing.T) {
	ctx := context.Background()

	v := Backend{}.Evaluate(ctx, backendProject(), nil)
	assert.True(t, v.Accepted, v.Reason)

	noPom := backendProject()
	noPom.Files[0].Path = "build.gradle"
	assert.Equal(t, "backend project has no pom.xml", Backend{}.Evaluate(ctx, noPom, nil).Reason)

	misplaced := backendProject()
	misplaced.Files[1].Path = "src/main/java/com/demo/ShopApplication.java"
	assert.Equal(t, "backend project has no *Application.java in src/main/java/com/demo/shop",
		Backend{}.Evaluate(ctx, misplaced, nil).Reason)

	v = Backend{}.Evaluate(ctx, backendProject(), orchestrator.Thresholds{MinFiles: 6})
	assert.Equal(t, "backend project has 5 files, want at least 6", v.Reason)
}
