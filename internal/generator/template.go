package generator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// templateFunc is a deterministic generator.
type templateFunc func(ctx context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error)

// templates maps every skill to its template generator.
var templates = map[string]templateFunc{
	string(orchestrator.StageWireframe):                     templateWireframe,
	string(orchestrator.StagePrototype):                     templatePrototype,
	Skill(orchestrator.StageAPIDoc, StepFeatureAnalysis):    templateFeatureAnalysis,
	Skill(orchestrator.StageAPIDoc, StepInterfacePlanning):  templateInterfacePlan,
	Skill(orchestrator.StageAPIDoc, StepDocumentRendering):  templateRenderedDocument,
	string(orchestrator.StageFrontend):                      templateFrontend,
	Skill(orchestrator.StageBackend, StepStructureAnalysis): templateBackendStructure,
	Skill(orchestrator.StageBackend, StepBasicFiles):        templateBasicFiles,
	Skill(orchestrator.StageBackend, StepCompleteProject):   templateCompleteProject,
}

type templateSource struct{}

// TemplateStages returns a Source of deterministic generators whose output
// passes every stage gate for any valid run config. They back dry runs and
// locally served agents.
func TemplateStages() Source { return templateSource{} }

func (templateSource) Generator(skill string, _ artifact.Kind) orchestrator.Stage {
	fn, ok := templates[skill]
	if !ok {
		return nil
	}
	return orchestrator.StageFunc(func(ctx context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn(ctx, in, cfg)
	})
}

const wireframeLayout = `Layout, top to bottom:
- Header with the application title and a navigation bar linking to Products, New product and Sign in.
- Sign-in panel with username and password fields and a primary button.
- Product list with a search field above a table (name, price, stock) and Edit and Delete buttons per row.
- Product form with name, price and stock fields and a Save button.
- Footer with the project name.`

func templateWireframe(_ context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	var b strings.Builder
	source := "the design image"
	if in.Image.Path != "" {
		source = filepath.Base(in.Image.Path)
	}
	fmt.Fprintf(&b, "Wireframe of %s for %s.\n\n", source, cfg.ProjectName)
	if cfg.Description != "" {
		fmt.Fprintf(&b, "Purpose: %s\n\n", cfg.Description)
	}
	b.WriteString(wireframeLayout)
	return &artifact.WireframeDescription{Text: b.String()}, nil
}

const prototypeMarkup = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%[1]s</title>
<style>body{font-family:sans-serif;margin:0}header,footer{padding:12px;background:#f4f4f4}main{padding:16px}</style>
</head>
<body>
<header><h1>%[1]s</h1><nav><a href="#list">Products</a> <a href="#form">New product</a> <a href="#login">Sign in</a></nav></header>
<main>
<section id="login"><h2>Sign in</h2><form><input name="username" placeholder="Username"><input name="password" type="password" placeholder="Password"><button type="submit">Sign in</button></form></section>
<section id="list"><h2>Products</h2><input name="keyword" placeholder="Search"><table><thead><tr><th>Name</th><th>Price</th><th>Stock</th><th>Actions</th></tr></thead><tbody><tr><td>Sample</td><td>9.90</td><td>12</td><td><button>Edit</button> <button>Delete</button></td></tr></tbody></table></section>
<section id="form"><h2>Product</h2><form><input name="name" placeholder="Name"><input name="price" placeholder="Price"><input name="stock" placeholder="Stock"><button type="submit">Save</button></form></section>
</main>
<footer><p>%[2]s</p></footer>
</body>
</html>
`

func templatePrototype(_ context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	if _, err := orchestrator.Input[*artifact.WireframeDescription](in, orchestrator.StageWireframe); err != nil {
		return nil, err
	}
	title := html.EscapeString(cfg.ProjectName)
	footer := title
	if cfg.Description != "" {
		footer = html.EscapeString(cfg.Description)
	}
	return &artifact.HTMLPrototype{Markup: fmt.Sprintf(prototypeMarkup, title, footer)}, nil
}

// catalogEntry is one endpoint the template prototype implies.
type catalogEntry struct {
	Feature  string
	Purpose  string
	Method   string
	Path     string
	Params   []string
	Response string
}

const authFeature = "Authentication"

var catalog = []catalogEntry{
	{authFeature, "Sign in", "POST", "/api/auth/login", []string{"username", "password"}, "Token"},
	{authFeature, "Sign out", "POST", "/api/auth/logout", nil, ""},
	{"Product catalog", "List products", "GET", "/api/products", []string{"keyword", "page", "size"}, "Product"},
	{"Product catalog", "Show a product", "GET", "/api/products/{id}", []string{"id"}, "Product"},
	{"Product management", "Create a product", "POST", "/api/products", []string{"name", "price", "stock"}, "Product"},
	{"Product management", "Update a product", "PUT", "/api/products/{id}", []string{"id", "name", "price", "stock"}, "Product"},
	{"Product management", "Delete a product", "DELETE", "/api/products/{id}", []string{"id"}, ""},
}

func templateFeatureAnalysis(_ context.Context, in orchestrator.Inputs, _ orchestrator.RunConfig) (artifact.Artifact, error) {
	if _, err := orchestrator.Input[*artifact.HTMLPrototype](in, orchestrator.StagePrototype); err != nil {
		return nil, err
	}
	fa := &artifact.FeatureAnalysis{
		TotalAPIs:              len(catalog),
		AuthenticationRequired: true,
		DataEntities:           []string{"Product", "User"},
	}
	index := make(map[string]int)
	for _, c := range catalog {
		i, ok := index[c.Feature]
		if !ok {
			i = len(fa.Features)
			index[c.Feature] = i
			fa.Features = append(fa.Features, artifact.Feature{
				Name:        c.Feature,
				Description: c.Feature + " as shown in the prototype",
			})
		}
		fa.Features[i].APIs = append(fa.Features[i].APIs, artifact.SuggestedAPI{Purpose: c.Purpose, SuggestedPath: c.Path})
	}
	return fa, nil
}

func templateInterfacePlan(_ context.Context, in orchestrator.Inputs, _ orchestrator.RunConfig) (artifact.Artifact, error) {
	fa, err := orchestrator.Input[*artifact.FeatureAnalysis](in, StepFeatureAnalysis)
	if err != nil {
		return nil, err
	}
	plan := &artifact.InterfacePlan{}
	if fa.AuthenticationRequired {
		plan.Authentication.Type = "jwt"
	}
	for _, f := range fa.Features {
		for _, s := range f.APIs {
			ep := artifact.Endpoint{
				Path:        s.SuggestedPath,
				Method:      "GET",
				Feature:     f.Name,
				Description: s.Purpose,
			}
			if c, ok := lookupCatalog(s); ok {
				ep.Method = c.Method
				ep.RequestParams = c.Params
				if c.Response != "" {
					ep.ResponseEntities = []string{c.Response}
				}
			}
			if f.Name == authFeature && fa.AuthenticationRequired {
				plan.Authentication.Endpoints = append(plan.Authentication.Endpoints, ep)
				continue
			}
			plan.APIs = append(plan.APIs, ep)
		}
	}
	return plan, nil
}

func lookupCatalog(s artifact.SuggestedAPI) (catalogEntry, bool) {
	for _, c := range catalog {
		if c.Path == s.SuggestedPath && c.Purpose == s.Purpose {
			return c, true
		}
	}
	return catalogEntry{}, false
}

func templateRenderedDocument(_ context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	fa, err := orchestrator.Input[*artifact.FeatureAnalysis](in, StepFeatureAnalysis)
	if err != nil {
		return nil, err
	}
	plan, err := orchestrator.Input[*artifact.InterfacePlan](in, StepInterfacePlanning)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s API Documentation\n\n", cfg.ProjectName)
	if cfg.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", cfg.Description)
	}
	fmt.Fprintf(&b, "%d endpoints across %d features.\n", plan.TotalAPIs(), len(fa.Features))
	if plan.BasePath != "" {
		fmt.Fprintf(&b, "All paths are relative to `%s`.\n", plan.BasePath)
	}
	if len(fa.DataEntities) > 0 {
		fmt.Fprintf(&b, "Data entities: %s.\n", strings.Join(fa.DataEntities, ", "))
	}

	if len(plan.Authentication.Endpoints) > 0 {
		fmt.Fprintf(&b, "\n## Authentication\n\nScheme: %s\n", plan.Authentication.Type)
		for _, ep := range plan.Authentication.Endpoints {
			renderEndpoint(&b, ep)
		}
	}
	var features []string
	byFeature := make(map[string][]artifact.Endpoint)
	for _, ep := range plan.APIs {
		f := ep.Feature
		if f == "" {
			f = "Other"
		}
		if _, ok := byFeature[f]; !ok {
			features = append(features, f)
		}
		byFeature[f] = append(byFeature[f], ep)
	}
	for _, f := range features {
		fmt.Fprintf(&b, "\n## %s\n", f)
		for _, ep := range byFeature[f] {
			renderEndpoint(&b, ep)
		}
	}
	return &artifact.RenderedDocument{Markdown: b.String()}, nil
}

func renderEndpoint(b *strings.Builder, ep artifact.Endpoint) {
	fmt.Fprintf(b, "\n### %s %s\n\n", strings.ToUpper(ep.Method), ep.Path)
	if ep.Description != "" {
		fmt.Fprintf(b, "%s\n\n", ep.Description)
	}
	if len(ep.RequestParams) > 0 {
		fmt.Fprintf(b, "Parameters: `%s`\n\n", strings.Join(ep.RequestParams, "`, `"))
	}
	if len(ep.ResponseEntities) > 0 {
		fmt.Fprintf(b, "Returns: %s\n", strings.Join(ep.ResponseEntities, ", "))
	}
}
