package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/uiforge/internal/a2a"
	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Part roles carried in part metadata.
const (
	roleConfig = "config"
	roleInput  = "input"
	roleOutput = "output"
)

type partMeta struct {
	Role  string        `json:"role"`
	Stage string        `json:"stage,omitempty"`
	Kind  artifact.Kind `json:"kind,omitempty"`
}

type requestHeader struct {
	Config  orchestrator.RunConfig `json:"config"`
	Attempt int                    `json:"attempt"`
}

// Image is the design image attached to a request.
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

// Request is a decoded generator request.
type Request struct {
	Skill     string
	Config    orchestrator.RunConfig
	Attempt   int
	Image     *Image
	Artifacts map[orchestrator.StageName]artifact.Artifact
}

// Inputs rebuilds the stage inputs the request was encoded from.
func (r *Request) Inputs() orchestrator.Inputs {
	ref := orchestrator.ImageRef{}
	if r.Image != nil {
		ref.Path = r.Image.Name
	}
	return orchestrator.NewInputs(ref, r.Artifacts).WithAttempt(r.Attempt)
}

// EncodeRequest builds the A2A message asking a generator to run skill.
// The message starts with the skill name, followed by the run config, one
// JSON part per input artifact and, when image is non-nil, the image.
func EncodeRequest(skill string, in orchestrator.Inputs, cfg orchestrator.RunConfig, image *Image) (a2a.Message, error) {
	msg := a2a.Message{
		MessageID: a2a.NewTaskID(),
		Role:      a2a.RoleUser,
		Parts:     []a2a.Part{a2a.TextPart(skill)},
	}

	header, err := a2a.DataPart(requestHeader{Config: cfg, Attempt: in.Attempt})
	if err != nil {
		return msg, fmt.Errorf("generator: encode config: %w", err)
	}
	if header, err = header.WithMetadata(partMeta{Role: roleConfig}); err != nil {
		return msg, fmt.Errorf("generator: encode config: %w", err)
	}
	msg.Parts = append(msg.Parts, header)

	for _, name := range in.Names() {
		a, _ := in.Get(name)
		p, err := a2a.DataPart(a)
		if err != nil {
			return msg, fmt.Errorf("generator: encode input %s: %w", name, err)
		}
		if p, err = p.WithMetadata(partMeta{Role: roleInput, Stage: string(name), Kind: a.Kind()}); err != nil {
			return msg, fmt.Errorf("generator: encode input %s: %w", name, err)
		}
		msg.Parts = append(msg.Parts, p)
	}

	if image != nil {
		mediaType := image.MediaType
		if mediaType == "" {
			mediaType = http.DetectContentType(image.Data)
		}
		msg.Parts = append(msg.Parts, a2a.FilePart(image.Data, filepath.Base(image.Name), mediaType))
	}
	return msg, nil
}

// DecodeRequest is the inverse of EncodeRequest.
func DecodeRequest(msg a2a.Message) (*Request, error) {
	req := &Request{Artifacts: make(map[orchestrator.StageName]artifact.Artifact)}
	for _, p := range msg.Parts {
		switch {
		case p.IsFile():
			req.Image = &Image{Name: p.Filename, MediaType: p.MediaType, Data: p.Raw}
		case p.IsData():
			var meta partMeta
			if len(p.Metadata) > 0 {
				if err := json.Unmarshal(p.Metadata, &meta); err != nil {
					return nil, fmt.Errorf("generator: decode part metadata: %w", err)
				}
			}
			switch meta.Role {
			case roleConfig:
				var h requestHeader
				if err := json.Unmarshal(p.Data, &h); err != nil {
					return nil, fmt.Errorf("generator: decode config: %w", err)
				}
				req.Config, req.Attempt = h.Config, h.Attempt
			case roleInput:
				a, err := artifact.Decode(meta.Kind, p.Data)
				if err != nil {
					return nil, fmt.Errorf("generator: decode input %s: %w", meta.Stage, err)
				}
				req.Artifacts[orchestrator.StageName(meta.Stage)] = a
			}
		case p.Text != "" && req.Skill == "":
			req.Skill = strings.TrimSpace(p.Text)
		}
	}
	if req.Skill == "" {
		return nil, errors.New("generator: request names no skill")
	}
	return req, nil
}

// EncodeResponse wraps an artifact as a single JSON part.
func EncodeResponse(a artifact.Artifact) ([]a2a.Part, error) {
	p, err := a2a.DataPart(a)
	if err != nil {
		return nil, fmt.Errorf("generator: encode %s: %w", a.Kind(), err)
	}
	if p, err = p.WithMetadata(partMeta{Role: roleOutput, Kind: a.Kind()}); err != nil {
		return nil, fmt.Errorf("generator: encode %s: %w", a.Kind(), err)
	}
	return []a2a.Part{p}, nil
}

// DecodeResponse recovers an artifact of kind from a generator's response
// parts. A JSON part is decoded directly. Otherwise the text parts are
// joined and the artifact is extracted from free-form output. Fields the
// generator may omit are filled from cfg.
func DecodeResponse(kind artifact.Kind, parts []a2a.Part, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	a, err := decodeParts(kind, parts)
	if err != nil {
		return nil, err
	}
	switch v := a.(type) {
	case *artifact.FrontendProject:
		if v.Framework == "" {
			v.Framework = cfg.Framework
		}
		v.TypeScript = v.TypeScript || cfg.TypeScript
	case *artifact.BackendProject:
		if v.PackagePath == "" {
			v.PackagePath = cfg.JavaPackage()
		}
	}
	return a, nil
}

func decodeParts(kind artifact.Kind, parts []a2a.Part) (artifact.Artifact, error) {
	var texts []string
	for _, p := range parts {
		if p.IsData() {
			return artifact.Decode(kind, p.Data)
		}
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return nil, errors.New("response carries no content")
	}
	raw := strings.Join(texts, "\n")

	switch kind {
	case artifact.KindWireframe:
		return &artifact.WireframeDescription{Text: strings.TrimSpace(raw)}, nil
	case artifact.KindPrototype:
		markup, err := artifact.ExtractHTML(raw)
		if err != nil {
			return nil, fmt.Errorf("extract html: %w", err)
		}
		return &artifact.HTMLPrototype{Markup: markup}, nil
	case artifact.KindRenderedDocument:
		md, err := artifact.ExtractMarkdown(raw)
		if err != nil {
			return nil, fmt.Errorf("extract markdown: %w", err)
		}
		return &artifact.RenderedDocument{Markdown: md}, nil
	}

	a, err := artifact.New(kind)
	if err != nil {
		return nil, err
	}
	if err := artifact.ExtractJSON(raw, a); err != nil {
		return nil, fmt.Errorf("extract %s json: %w", kind, err)
	}
	return a, nil
}
