package artifact

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FeatureAnalysis is the first API-document sub-artifact: the features a
// prototype exposes and the endpoints each one suggests.
type FeatureAnalysis struct {
	Features               []Feature `json:"features"`
	TotalAPIs              int       `json:"total_apis"`
	AuthenticationRequired bool      `json:"authentication_required"`
	DataEntities           []string  `json:"data_entities"`
}

// Feature is a user-visible capability found in the prototype.
type Feature struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	APIs        []SuggestedAPI `json:"apis"`
}

// SuggestedAPI is an endpoint hint produced during feature analysis.
type SuggestedAPI struct {
	Purpose       string `json:"purpose"`
	SuggestedPath string `json:"suggested_path"`
}

func (f *FeatureAnalysis) Kind() Kind  { return KindFeatureAnalysis }
func (f *FeatureAnalysis) Empty() bool { return len(f.Features) == 0 }

func (f *FeatureAnalysis) Validate() error {
	if f.Empty() {
		return errors.New("feature analysis lists no features")
	}
	for i, feat := range f.Features {
		if strings.TrimSpace(feat.Name) == "" {
			return fmt.Errorf("feature %d has no name", i+1)
		}
	}
	return nil
}

// InterfacePlan is the second API-document sub-artifact: every endpoint
// with its method and parameters.
type InterfacePlan struct {
	BasePath       string         `json:"api_base_path"`
	Authentication Authentication `json:"authentication"`
	APIs           []Endpoint     `json:"apis"`
}

// Authentication describes the auth scheme and its own endpoints.
type Authentication struct {
	Type      string     `json:"type"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint is a single planned HTTP operation.
type Endpoint struct {
	Path             string   `json:"path"`
	Method           string   `json:"method"`
	Feature          string   `json:"feature,omitempty"`
	Description      string   `json:"description"`
	RequestParams    []string `json:"request_params,omitempty"`
	ResponseEntities []string `json:"response_entities,omitempty"`
}

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true, "HEAD": true, "OPTIONS": true,
}

func (p *InterfacePlan) Kind() Kind  { return KindInterfacePlan }
func (p *InterfacePlan) Empty() bool { return len(p.APIs) == 0 && len(p.Authentication.Endpoints) == 0 }

func (p *InterfacePlan) Validate() error {
	if p.Empty() {
		return errors.New("interface plan lists no endpoints")
	}
	for _, ep := range p.Endpoints() {
		if !strings.HasPrefix(ep.Path, "/") {
			return fmt.Errorf("endpoint path %q must start with /", ep.Path)
		}
		if !httpMethods[strings.ToUpper(ep.Method)] {
			return fmt.Errorf("endpoint %s has invalid method %q", ep.Path, ep.Method)
		}
	}
	return nil
}

// Endpoints returns authentication endpoints followed by feature endpoints.
func (p *InterfacePlan) Endpoints() []Endpoint {
	out := make([]Endpoint, 0, len(p.Authentication.Endpoints)+len(p.APIs))
	out = append(out, p.Authentication.Endpoints...)
	out = append(out, p.APIs...)
	return out
}

// TotalAPIs counts feature and authentication endpoints together.
func (p *InterfacePlan) TotalAPIs() int {
	return len(p.APIs) + len(p.Authentication.Endpoints)
}

// RenderedDocument is the final Markdown API document.
type RenderedDocument struct {
	Markdown string `json:"markdown"`
}

func (r *RenderedDocument) Kind() Kind  { return KindRenderedDocument }
func (r *RenderedDocument) Empty() bool { return strings.TrimSpace(r.Markdown) == "" }

func (r *RenderedDocument) Validate() error {
	if r.Empty() {
		return errors.New("rendered document is empty")
	}
	if !headingRe.MatchString(r.Markdown) {
		return errors.New("rendered document has no markdown heading")
	}
	return nil
}

var headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)

// APIDocument bundles the three sub-artifacts of API-document generation.
type APIDocument struct {
	Analysis *FeatureAnalysis  `json:"analysis"`
	Plan     *InterfacePlan    `json:"plan"`
	Rendered *RenderedDocument `json:"rendered"`
}

func (d *APIDocument) Kind() Kind { return KindAPIDocument }

func (d *APIDocument) Empty() bool {
	return d.Analysis == nil && d.Plan == nil && d.Rendered == nil
}

// Validate requires all three sub-sections and checks each one's shape.
func (d *APIDocument) Validate() error {
	var missing []string
	if d.Analysis == nil {
		missing = append(missing, "feature analysis")
	}
	if d.Plan == nil {
		missing = append(missing, "interface plan")
	}
	if d.Rendered == nil {
		missing = append(missing, "rendered document")
	}
	if len(missing) > 0 {
		return fmt.Errorf("api document is missing %s", strings.Join(missing, ", "))
	}
	return errors.Join(d.Analysis.Validate(), d.Plan.Validate(), d.Rendered.Validate())
}

// MissingEndpoints returns the plan endpoints whose path does not appear in
// the rendered document. Path parameters match in either {id} or :id form.
func (d *APIDocument) MissingEndpoints() []Endpoint {
	if d.Plan == nil || d.Rendered == nil {
		return nil
	}
	var missing []Endpoint
	for _, ep := range d.Plan.Endpoints() {
		if !mentionsPath(d.Rendered.Markdown, ep.Path) {
			missing = append(missing, ep)
		}
	}
	return missing
}

var colonParamRe = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// mentionsPath matches path only when it is not a prefix of a longer path.
func mentionsPath(doc, path string) bool {
	for _, p := range []string{path, NormalizePath(path)} {
		re := regexp.MustCompile(regexp.QuoteMeta(p) + `(?:$|[^A-Za-z0-9_/{}:.-])`)
		if re.MatchString(doc) {
			return true
		}
	}
	return false
}

// NormalizePath rewrites :param segments to {param} form.
func NormalizePath(path string) string {
	return colonParamRe.ReplaceAllString(path, "{$1}")
}
