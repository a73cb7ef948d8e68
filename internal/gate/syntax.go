package gate

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// SyntaxError locates one parse error in a generated script.
type SyntaxError struct {
	File   string
	Line   int // 1-based
	Column int // 1-based
}

func (e SyntaxError) String() string {
	return fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
}

// Dialect selects the grammar used for a script.
type Dialect int

const (
	DialectTS Dialect = iota
	DialectTSX
)

// Script is a unit of source handed to a SyntaxChecker. Vue single-file
// components contribute their <script> blocks, with Line pointing at the
// block's first line in the .vue file.
type Script struct {
	File    string
	Source  []byte
	Dialect Dialect
	Line    int
}

// SyntaxChecker reports parse errors in scripts.
// Implementations: treeSitterChecker (cgo builds).
type SyntaxChecker interface {
	Check(s Script) ([]SyntaxError, error)
}

var scriptBlockRe = regexp.MustCompile(`(?s)<script\b([^>]*)>(.*?)</script>`)

// Scripts collects the checkable sources of a frontend project.
func Scripts(files []artifact.File) []Script {
	var out []Script
	for _, f := range files {
		switch path.Ext(f.Path) {
		case ".ts", ".js", ".mjs":
			out = append(out, Script{File: f.Path, Source: []byte(f.Content), Line: 1})
		case ".tsx", ".jsx":
			out = append(out, Script{File: f.Path, Source: []byte(f.Content), Dialect: DialectTSX, Line: 1})
		case ".vue":
			for _, m := range scriptBlockRe.FindAllStringSubmatchIndex(f.Content, -1) {
				attrs := f.Content[m[2]:m[3]]
				d := DialectTS
				if strings.Contains(attrs, `lang="tsx"`) || strings.Contains(attrs, `lang="jsx"`) {
					d = DialectTSX
				}
				out = append(out, Script{
					File:    f.Path,
					Source:  []byte(f.Content[m[4]:m[5]]),
					Dialect: d,
					Line:    1 + strings.Count(f.Content[:m[4]], "\n"),
				})
			}
		}
	}
	return out
}
