package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/gate"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

func TestTemplateStages_CoverEverySkill(t *testing.T) {
	for _, stage := range Stages {
		for _, skill := range Skills(stage) {
			kind, ok := SkillKind(skill)
			require.True(t, ok, skill)
			assert.NotNil(t, TemplateStages().Generator(skill, kind), skill)
		}
	}
	assert.Nil(t, TemplateStages().Generator("html_to_react", artifact.KindFrontend))
}

func TestTemplateAPIDoc_PassesGate(t *testing.T) {
	doc := templateAPIDoc(t, testConfig())

	assert.Equal(t, 7, doc.Analysis.TotalAPIs)
	assert.Equal(t, "jwt", doc.Plan.Authentication.Type)
	assert.Len(t, doc.Plan.Authentication.Endpoints, 2)
	assert.Empty(t, doc.MissingEndpoints())
	assert.True(t, strings.HasPrefix(doc.Rendered.Markdown, "# shop_admin API Documentation"))

	v := gate.For(orchestrator.StageAPIDoc).Evaluate(context.Background(), doc, nil)
	assert.True(t, v.Accepted, v.Reason)
}

func TestTemplateFrontend(t *testing.T) {
	tests := []struct {
		framework artifact.Framework
		ts        bool
		want      []string
	}{
		{artifact.FrameworkVue3, true, []string{"index.html", "vite.config.ts", "src/main.ts", "src/api/index.ts", "tsconfig.json"}},
		{artifact.FrameworkVue3, false, []string{"index.html", "vite.config.js", "src/main.js", "src/api/index.js"}},
		{artifact.FrameworkVue2, false, []string{"public/index.html", "vue.config.js", "src/main.js"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.framework), func(t *testing.T) {
			cfg := testConfig()
			cfg.Framework, cfg.TypeScript = tt.framework, tt.ts
			doc := templateAPIDoc(t, cfg)

			in := orchestrator.NewInputs(orchestrator.ImageRef{}, map[orchestrator.StageName]artifact.Artifact{
				orchestrator.StagePrototype: &artifact.HTMLPrototype{Markup: "<html></html>"},
				orchestrator.StageAPIDoc:    doc,
			})
			p := runTemplate(t, string(orchestrator.StageFrontend), in, cfg).(*artifact.FrontendProject)
			for _, f := range tt.want {
				assert.NotNil(t, artifact.FindFile(p.Files, f), f)
			}
			assert.Equal(t, tt.ts, p.TypeScript)

			v := gate.For(orchestrator.StageFrontend).Evaluate(context.Background(), p, nil)
			assert.True(t, v.Accepted, v.Reason)
		})
	}
}

func TestTemplateFrontend_APIModule(t *testing.T) {
	cfg := testConfig()
	in := orchestrator.NewInputs(orchestrator.ImageRef{}, map[orchestrator.StageName]artifact.Artifact{
		orchestrator.StagePrototype: &artifact.HTMLPrototype{Markup: "<html></html>"},
		orchestrator.StageAPIDoc:    templateAPIDoc(t, cfg),
	})
	p := runTemplate(t, string(orchestrator.StageFrontend), in, cfg).(*artifact.FrontendProject)
	api := artifact.FindFile(p.Files, "src/api/index.ts")
	require.NotNil(t, api)

	assert.Contains(t, api.Content, "export function getApiProductsById(id: string) {\n  return request('GET', `/api/products/${id}`)\n}")
	assert.Contains(t, api.Content, "export function postApiProducts(body: Record<string, unknown>) {\n  return request('POST', '/api/products', body)\n}")
	assert.Contains(t, api.Content, "export function postApiAuthLogin(")
}

func TestTemplateBackend(t *testing.T) {
	cfg := testConfig()
	doc := templateAPIDoc(t, cfg)
	outer := map[orchestrator.StageName]artifact.Artifact{
		orchestrator.StagePrototype: &artifact.HTMLPrototype{Markup: "<html></html>"},
		orchestrator.StageAPIDoc:    doc,
	}
	skill := func(step orchestrator.StageName) string { return Skill(orchestrator.StageBackend, step) }

	structure := runTemplate(t, skill(StepStructureAnalysis), orchestrator.NewInputs(orchestrator.ImageRef{}, outer), cfg).(*artifact.BackendStructure)
	assert.Equal(t, []string{"Product", "User"}, structure.Entities)
	assert.Equal(t, []string{"products", "users"}, structure.Tables)
	assert.Equal(t, []string{"auth", "products"}, structure.Modules)

	outer[StepStructureAnalysis] = structure
	basic := runTemplate(t, skill(StepBasicFiles), orchestrator.NewInputs(orchestrator.ImageRef{}, outer), cfg)
	outer[StepBasicFiles] = basic
	complete := runTemplate(t, skill(StepCompleteProject), orchestrator.NewInputs(orchestrator.ImageRef{}, outer), cfg)

	out, err := ComposeBackend(map[orchestrator.StageName]artifact.Artifact{
		StepBasicFiles:      basic,
		StepCompleteProject: complete,
	}, orchestrator.Inputs{}, cfg)
	require.NoError(t, err)
	p := out.(*artifact.BackendProject)

	assert.Equal(t, "com.demo.shop_admin", p.PackagePath)
	assert.Contains(t, p.Schema, "CREATE TABLE IF NOT EXISTS products (")
	assert.NotNil(t, artifact.FindFile(p.Files, "src/main/java/com/demo/shop_admin/ShopAdminApplication.java"))

	ctl := artifact.FindFile(p.Files, "src/main/java/com/demo/shop_admin/controller/ProductsController.java")
	require.NotNil(t, ctl)
	assert.Contains(t, ctl.Content, `@RequestMapping("/api/products")`)
	assert.Contains(t, ctl.Content, `@GetMapping("/{id}")`)
	assert.Contains(t, ctl.Content, `getApiProductsById(@PathVariable("id") String id)`)

	v := gate.For(orchestrator.StageBackend).Evaluate(context.Background(), p, nil)
	assert.True(t, v.Accepted, v.Reason)
}

func TestTemplateWireframeAndPrototype_PassGates(t *testing.T) {
	cfg := testConfig()
	wf := runTemplate(t, string(orchestrator.StageWireframe), orchestrator.NewInputs(orchestrator.ImageRef{Path: "/x/design.png"}, nil), cfg)
	assert.Contains(t, wf.(*artifact.WireframeDescription).Text, "Wireframe of design.png for shop_admin.")
	v := gate.For(orchestrator.StageWireframe).Evaluate(context.Background(), wf, nil)
	assert.True(t, v.Accepted, v.Reason)

	proto := runTemplate(t, string(orchestrator.StagePrototype), orchestrator.NewInputs(orchestrator.ImageRef{}, map[orchestrator.StageName]artifact.Artifact{
		orchestrator.StageWireframe: wf,
	}), cfg)
	v = gate.For(orchestrator.StagePrototype).Evaluate(context.Background(), proto, nil)
	assert.True(t, v.Accepted, v.Reason)
}

func TestTemplatePrototype_NeedsWireframe(t *testing.T) {
	st := TemplateStages().Generator(string(orchestrator.StagePrototype), artifact.KindPrototype)
	_, err := st.Generate(context.Background(), orchestrator.NewInputs(orchestrator.ImageRef{}, nil), testConfig())
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "ShopAdmin", upperCamel("shop_admin"))
	assert.Equal(t, "productId", identifier("product-id"))
	assert.Equal(t, "v2fa", identifier("2fa"))
	assert.Equal(t, "order_item", snake("OrderItem"))
	assert.Equal(t, "categories", plural("category"))
	assert.Equal(t, "boxes", plural("box"))

	prefix, rest := resource("/api/products/{id}")
	assert.Equal(t, "/api/products", prefix)
	assert.Equal(t, "/{id}", rest)
	prefix, rest = resource("/health")
	assert.Equal(t, "/health", prefix)
	assert.Empty(t, rest)
}
