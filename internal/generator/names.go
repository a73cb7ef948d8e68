package generator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

var paramRe = regexp.MustCompile(`\{([^/{}]+)\}`)

// words splits s at every character that is not a letter or digit and at
// lower-to-upper case changes.
func words(s string) []string {
	var out []string
	var cur []rune
	prevLower := false
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			out = append(out, string(cur))
			cur = nil
		}
		cur = append(cur, r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func upperCamel(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// identifier returns a lowerCamel identifier safe in Java and TypeScript.
func identifier(s string) string {
	u := upperCamel(s)
	if u == "" {
		return "value"
	}
	r := []rune(u)
	r[0] = unicode.ToLower(r[0])
	if unicode.IsDigit(r[0]) {
		return "v" + string(r)
	}
	return string(r)
}

func snake(s string) string {
	ws := words(s)
	for i := range ws {
		ws[i] = strings.ToLower(ws[i])
	}
	return strings.Join(ws, "_")
}

func plural(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	}
	return s + "s"
}

// operation describes one planned endpoint in the shape the templates use.
type operation struct {
	Name     string   // lowerCamel, unique within the plan
	Method   string   // upper case
	Path     string   // {param} form
	Params   []string // path parameter names, in order
	Body     bool
	Endpoint artifact.Endpoint
}

// operations flattens a plan into uniquely named operations. A repeated
// method and path keeps its first definition.
func operations(plan *artifact.InterfacePlan) []operation {
	seen := make(map[string]bool)
	names := make(map[string]int)
	var out []operation
	for _, ep := range plan.Endpoints() {
		method := strings.ToUpper(ep.Method)
		p := artifact.NormalizePath(ep.Path)
		key := method + " " + p
		if seen[key] {
			continue
		}
		seen[key] = true

		var b strings.Builder
		b.WriteString(strings.ToLower(method))
		var params []string
		for _, seg := range strings.Split(p, "/") {
			if m := paramRe.FindStringSubmatch(seg); m != nil {
				b.WriteString("By")
				b.WriteString(upperCamel(m[1]))
				params = append(params, m[1])
				continue
			}
			b.WriteString(upperCamel(seg))
		}
		name := b.String()
		names[name]++
		if n := names[name]; n > 1 {
			name = fmt.Sprintf("%s%d", name, n)
		}

		out = append(out, operation{
			Name:     name,
			Method:   method,
			Path:     p,
			Params:   params,
			Body:     method == "POST" || method == "PUT" || method == "PATCH",
			Endpoint: ep,
		})
	}
	return out
}

// resource splits a path into its controller prefix (the first two
// segments, e.g. /api/products) and the remainder.
func resource(p string) (prefix, rest string) {
	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	n := 2
	if len(segs) < n || paramRe.MatchString(segs[1]) {
		n = 1
	}
	prefix = "/" + strings.Join(segs[:n], "/")
	rest = strings.TrimPrefix(p, prefix)
	return prefix, rest
}
