package gate

import (
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Prototype checks that the HTML prototype is a real document with enough
// structure and balanced tags.
type Prototype struct{}

func (Prototype) Evaluate(_ context.Context, out artifact.Artifact, th orchestrator.Thresholds) orchestrator.Verdict {
	p, ok := out.(*artifact.HTMLPrototype)
	if !ok {
		return wrongKind(artifact.KindPrototype, out)
	}
	defaults := Defaults[orchestrator.StagePrototype]

	stats, err := scanMarkup(p.Markup)
	if err != nil {
		return orchestrator.Reject("html prototype could not be tokenized: %v", err)
	}
	if !stats.hasDocument {
		return orchestrator.Reject("html prototype has no <html> document element")
	}
	if maxOpen := th.Get(MaxUnclosed, defaults[MaxUnclosed]); float64(len(stats.unbalanced)) > maxOpen {
		return orchestrator.Reject("html prototype has %d unbalanced tags (%s), allowed %.0f",
			len(stats.unbalanced), strings.Join(firstN(stats.unbalanced, 5), ", "), maxOpen)
	}

	doc, err := html.Parse(strings.NewReader(p.Markup))
	if err != nil {
		return orchestrator.Reject("html prototype does not parse: %v", err)
	}
	n := countElements(artifact.FindElement(doc, "body"))
	if want := th.Get(MinElements, defaults[MinElements]); float64(n) < want {
		return orchestrator.Reject("html prototype body has %d elements, want at least %.0f", n, want)
	}
	return orchestrator.Accept()
}

func (Prototype) ValidateThresholds(th orchestrator.Thresholds) error {
	return validateKnown(th, []string{MinElements, MaxUnclosed})
}

type markupStats struct {
	hasDocument bool
	unbalanced  []string
}

// optionalEnd lists elements whose end tag HTML allows to be omitted.
var optionalEnd = map[atom.Atom]bool{
	atom.Html: true, atom.Head: true, atom.Body: true, atom.P: true, atom.Li: true,
	atom.Dt: true, atom.Dd: true, atom.Option: true, atom.Optgroup: true,
	atom.Thead: true, atom.Tbody: true, atom.Tfoot: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.Colgroup: true, atom.Rp: true, atom.Rt: true,
}

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true, atom.Embed: true,
	atom.Hr: true, atom.Img: true, atom.Input: true, atom.Link: true, atom.Meta: true,
	atom.Source: true, atom.Track: true, atom.Wbr: true,
}

// scanMarkup walks the raw token stream, which unlike the tree builder
// keeps unclosed and stray tags visible.
func scanMarkup(markup string) (markupStats, error) {
	var (
		stats markupStats
		stack []string
	)
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return stats, err
			}
			for _, name := range stack {
				if !optionalEnd[atom.Lookup([]byte(name))] {
					stats.unbalanced = append(stats.unbalanced, "<"+name+">")
				}
			}
			return stats, nil
		case html.StartTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Html {
				stats.hasDocument = true
			}
			if voidElements[tok.DataAtom] {
				continue
			}
			stack = append(stack, tok.Data)
		case html.EndTagToken:
			tok := z.Token()
			if voidElements[tok.DataAtom] {
				continue
			}
			i := len(stack) - 1
			for i >= 0 && stack[i] != tok.Data {
				i--
			}
			if i < 0 {
				stats.unbalanced = append(stats.unbalanced, "</"+tok.Data+">")
				continue
			}
			for _, name := range stack[i+1:] {
				if !optionalEnd[atom.Lookup([]byte(name))] {
					stats.unbalanced = append(stats.unbalanced, "<"+name+">")
				}
			}
			stack = stack[:i]
		}
	}
}

func countElements(n *html.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
		count += countElements(c)
	}
	return count
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return append(s[:n:n], "...")
	}
	return s
}
