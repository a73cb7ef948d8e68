// Package artifact defines the typed payloads that flow between pipeline
// stages and the helpers that recover them from raw generator output.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Kind names the payload type carried by an Artifact.
type Kind string

const (
	KindWireframe        Kind = "wireframe_description"
	KindPrototype        Kind = "html_prototype"
	KindFeatureAnalysis  Kind = "feature_analysis"
	KindInterfacePlan    Kind = "interface_plan"
	KindRenderedDocument Kind = "rendered_document"
	KindAPIDocument      Kind = "api_document"
	KindFrontend         Kind = "frontend_project"
	KindBackendStructure Kind = "backend_structure"
	KindFileSet          Kind = "file_set"
	KindBackend          Kind = "backend_project"
)

// Artifact is an immutable stage output. Empty and Validate back the
// universal quality checks applied to every stage.
type Artifact interface {
	Kind() Kind
	// Empty reports whether the artifact carries no usable content.
	Empty() bool
	// Validate checks the structural shape of the artifact.
	Validate() error
}

// ErrUnknownKind is returned by New and Decode for unregistered kinds.
var ErrUnknownKind = errors.New("artifact: unknown kind")

// New returns a zero value pointer for the given kind, suitable for
// json.Unmarshal.
func New(kind Kind) (Artifact, error) {
	switch kind {
	case KindWireframe:
		return &WireframeDescription{}, nil
	case KindPrototype:
		return &HTMLPrototype{}, nil
	case KindFeatureAnalysis:
		return &FeatureAnalysis{}, nil
	case KindInterfacePlan:
		return &InterfacePlan{}, nil
	case KindRenderedDocument:
		return &RenderedDocument{}, nil
	case KindAPIDocument:
		return &APIDocument{}, nil
	case KindFrontend:
		return &FrontendProject{}, nil
	case KindBackendStructure:
		return &BackendStructure{}, nil
	case KindFileSet:
		return &FileSet{}, nil
	case KindBackend:
		return &BackendProject{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Decode unmarshals JSON into the artifact type registered for kind.
func Decode(kind Kind, data []byte) (Artifact, error) {
	a, err := New(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("artifact: decode %s: %w", kind, err)
	}
	return a, nil
}

// WireframeDescription is the textual description of a UI design image.
type WireframeDescription struct {
	Text string `json:"text"`
}

func (w *WireframeDescription) Kind() Kind  { return KindWireframe }
func (w *WireframeDescription) Empty() bool { return strings.TrimSpace(w.Text) == "" }

func (w *WireframeDescription) Validate() error {
	if w.Empty() {
		return errors.New("wireframe description has no text")
	}
	return nil
}

// HTMLPrototype is a single-file HTML rendering of the wireframe.
type HTMLPrototype struct {
	Markup string `json:"markup"`
}

func (p *HTMLPrototype) Kind() Kind  { return KindPrototype }
func (p *HTMLPrototype) Empty() bool { return strings.TrimSpace(p.Markup) == "" }

// Validate parses the markup and requires a body with at least one element.
func (p *HTMLPrototype) Validate() error {
	if p.Empty() {
		return errors.New("html prototype has no markup")
	}
	doc, err := html.Parse(strings.NewReader(p.Markup))
	if err != nil {
		return fmt.Errorf("html prototype does not parse: %w", err)
	}
	body := FindElement(doc, "body")
	if body == nil {
		return errors.New("html prototype has no body element")
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return nil
		}
	}
	return errors.New("html prototype body contains no elements")
}

// FindElement returns the first element named tag in a depth-first walk of n.
func FindElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
