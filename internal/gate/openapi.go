package gate

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

var pathParamRe = regexp.MustCompile(`\{([^/{}]+)\}`)

// OpenAPI converts an interface plan into an OpenAPI 3 document. Endpoint
// paths are normalized to {param} form; a repeated method and path keeps
// its first definition.
func OpenAPI(plan *artifact.InterfacePlan, title string) (*openapi3.T, error) {
	if plan == nil {
		return nil, fmt.Errorf("gate: openapi: no interface plan")
	}
	if title == "" {
		title = "Generated API"
	}
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: "1.0.0"},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}
	if plan.BasePath != "" {
		doc.Servers = openapi3.Servers{{URL: plan.BasePath}}
	}
	if plan.Authentication.Type != "" {
		doc.Components.SecuritySchemes = openapi3.SecuritySchemes{
			"auth": &openapi3.SecuritySchemeRef{Value: securityScheme(plan.Authentication.Type)},
		}
	}

	opIDs := make(map[string]int)
	for _, ep := range plan.Endpoints() {
		method := strings.ToUpper(ep.Method)
		p := artifact.NormalizePath(ep.Path)

		item := doc.Paths.Value(p)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(p, item)
		}
		if item.GetOperation(method) != nil {
			continue
		}

		op := &openapi3.Operation{
			OperationID: uniqueID(opIDs, operationID(method, p)),
			Summary:     ep.Description,
			Responses:   openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: response(doc, ep)})),
		}
		if ep.Feature != "" {
			op.Tags = []string{ep.Feature}
		}

		pathParams := make(map[string]bool)
		for _, m := range pathParamRe.FindAllStringSubmatch(p, -1) {
			pathParams[m[1]] = true
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
				Value: openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewStringSchema()),
			})
		}

		var rest []string
		for _, name := range ep.RequestParams {
			if name = strings.TrimSpace(name); name != "" && !pathParams[name] {
				rest = append(rest, name)
			}
		}
		if len(rest) > 0 {
			switch method {
			case http.MethodGet, http.MethodDelete, http.MethodHead, http.MethodOptions:
				for _, name := range rest {
					op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
						Value: openapi3.NewQueryParameter(name).WithSchema(openapi3.NewStringSchema()),
					})
				}
			default:
				body := openapi3.NewObjectSchema()
				for _, name := range rest {
					body.WithProperty(name, openapi3.NewStringSchema())
				}
				op.RequestBody = &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(body),
				}
			}
		}
		item.SetOperation(method, op)
	}
	return doc, nil
}

// ValidateOpenAPI converts plan and validates the resulting document.
func ValidateOpenAPI(ctx context.Context, plan *artifact.InterfacePlan) error {
	doc, err := OpenAPI(plan, "")
	if err != nil {
		return err
	}
	return doc.Validate(ctx)
}

func response(doc *openapi3.T, ep artifact.Endpoint) *openapi3.Response {
	resp := openapi3.NewResponse().WithDescription("OK")
	if len(ep.ResponseEntities) == 0 {
		return resp
	}
	name := schemaName(ep.ResponseEntities[0])
	if name == "" {
		return resp
	}
	if _, ok := doc.Components.Schemas[name]; !ok {
		doc.Components.Schemas[name] = openapi3.NewObjectSchema().NewRef()
	}
	ref := &openapi3.SchemaRef{Ref: "#/components/schemas/" + name, Value: doc.Components.Schemas[name].Value}
	return resp.WithContent(openapi3.NewContentWithJSONSchemaRef(ref))
}

func securityScheme(kind string) *openapi3.SecurityScheme {
	switch strings.ToLower(kind) {
	case "jwt", "bearer", "token":
		return openapi3.NewJWTSecurityScheme()
	case "basic":
		return openapi3.NewSecurityScheme().WithType("http").WithScheme("basic")
	default:
		return openapi3.NewSecurityScheme().WithType("apiKey").WithIn("header").WithName("Authorization")
	}
}

// operationID derives a camelCase id such as getUsersById.
func operationID(method, p string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		if m := pathParamRe.FindStringSubmatch(seg); m != nil {
			b.WriteString("By")
			seg = m[1]
		}
		b.WriteString(upperFirst(schemaName(seg)))
	}
	return b.String()
}

func uniqueID(seen map[string]int, id string) string {
	seen[id]++
	if n := seen[id]; n > 1 {
		return fmt.Sprintf("%s%d", id, n)
	}
	return id
}

// schemaName keeps letters and digits, capitalizing after separators.
func schemaName(s string) string {
	var b strings.Builder
	up := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			up = true
			continue
		}
		if up {
			r = unicode.ToUpper(r)
			up = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
