package orchestrator

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// CoherenceIssue is a non-blocking inconsistency between bundle parts.
type CoherenceIssue struct {
	Source      string `json:"source" yaml:"source"` // file that raised the issue
	Description string `json:"description" yaml:"description"`
}

var (
	// frontendCallRe matches quoted or template-literal API paths.
	frontendCallRe = regexp.MustCompile("['\"`](/api/[A-Za-z0-9_/{}:.${}-]*)['\"`?]")
	templateExprRe = regexp.MustCompile(`\$\{[^}]*\}`)

	// mappingRe matches Spring request mapping annotations with a path.
	mappingRe = regexp.MustCompile(`@(Get|Post|Put|Delete|Patch|Request)Mapping\(\s*(?:(?:value|path)\s*=\s*)?"([^"]*)"`)
	classRe   = regexp.MustCompile(`\bclass\s+\w+`)
)

// CheckCoherence cross-checks the bundle's projects against the API
// document. Frontend calls and backend mappings whose path the document does
// not define are reported. The check never fails a run.
func CheckCoherence(b *Bundle) []CoherenceIssue {
	if b == nil || b.APIDocument == nil || b.APIDocument.Plan == nil {
		return nil
	}
	known := endpointMatchers(b.APIDocument.Plan)

	var issues []CoherenceIssue
	if b.Frontend != nil {
		for _, f := range b.Frontend.Files {
			if !isScript(f.Path) {
				continue
			}
			for _, p := range uniquePaths(frontendCalls(f.Content)) {
				if !matchesAny(known, p) {
					issues = append(issues, CoherenceIssue{
						Source:      "frontend/" + f.Path,
						Description: fmt.Sprintf("calls %s, which the API document does not define", p),
					})
				}
			}
		}
	}
	if b.Backend != nil {
		for _, f := range b.Backend.Files {
			if !strings.HasSuffix(f.Path, ".java") {
				continue
			}
			for _, p := range uniquePaths(backendMappings(f.Content)) {
				if !matchesAny(known, p) {
					issues = append(issues, CoherenceIssue{
						Source:      "backend/" + f.Path,
						Description: fmt.Sprintf("maps %s, which the API document does not define", p),
					})
				}
			}
		}
	}
	return issues
}

func isScript(p string) bool {
	switch path.Ext(p) {
	case ".vue", ".ts", ".js", ".tsx", ".jsx":
		return true
	}
	return false
}

func frontendCalls(src string) []string {
	var out []string
	for _, m := range frontendCallRe.FindAllStringSubmatch(src, -1) {
		p := templateExprRe.ReplaceAllString(m[1], "x")
		out = append(out, strings.TrimSuffix(p, "/"))
	}
	return out
}

// backendMappings joins the class-level @RequestMapping prefix with each
// method-level mapping in one Java source file.
func backendMappings(src string) []string {
	prefix := ""
	body := src
	if loc := classRe.FindStringIndex(src); loc != nil {
		if m := mappingRe.FindStringSubmatch(src[:loc[0]]); m != nil && m[1] == "Request" {
			prefix = m[2]
		}
		body = src[loc[1]:]
	}
	var out []string
	for _, m := range mappingRe.FindAllStringSubmatch(body, -1) {
		out = append(out, strings.TrimSuffix(joinPath(prefix, m[2]), "/"))
	}
	if len(out) == 0 && prefix != "" {
		out = append(out, prefix)
	}
	return out
}

func joinPath(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}

// endpointMatchers compiles each planned endpoint into a regexp where path
// parameters match any single segment. Endpoints are matched both as
// written and under the plan's base path.
func endpointMatchers(plan *artifact.InterfacePlan) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, ep := range plan.Endpoints() {
		for _, p := range []string{ep.Path, joinPath(plan.BasePath, ep.Path)} {
			out = append(out, pathMatcher(artifact.NormalizePath(p)))
		}
	}
	return out
}

var paramSegRe = regexp.MustCompile(`\\\{[^/]*?\\\}`)

func pathMatcher(p string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(strings.TrimSuffix(p, "/"))
	return regexp.MustCompile("^" + paramSegRe.ReplaceAllString(quoted, "[^/]+") + "$")
}

func matchesAny(res []*regexp.Regexp, p string) bool {
	for _, re := range res {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

func uniquePaths(ps []string) []string {
	seen := make(map[string]bool, len(ps))
	var out []string
	for _, p := range ps {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
