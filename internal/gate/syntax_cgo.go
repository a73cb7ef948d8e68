//go:build cgo

package gate

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// treeSitterChecker parses scripts with the TypeScript grammars. JavaScript
// is checked with the TypeScript grammar, which accepts it. A new parser is
// created per call, so the checker is safe for concurrent use.
type treeSitterChecker struct {
	languages map[Dialect]*tree_sitter.Language
}

func newSyntaxChecker() SyntaxChecker {
	return &treeSitterChecker{
		languages: map[Dialect]*tree_sitter.Language{
			DialectTS:  tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			DialectTSX: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		},
	}
}

func (c *treeSitterChecker) Check(s Script) ([]SyntaxError, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(c.languages[s.Dialect]); err != nil {
		return nil, fmt.Errorf("gate: set language: %w", err)
	}
	tree := parser.Parse(s.Source, nil)
	if tree == nil {
		return nil, fmt.Errorf("gate: tree-sitter returned nil tree for %s", s.File)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	var errs []SyntaxError
	cursor := root.Walk()
	defer cursor.Close()
	collectErrors(cursor, s, &errs)
	return errs, nil
}

// collectErrors records ERROR and MISSING nodes without descending into
// them, so one malformed region counts once.
func collectErrors(cursor *tree_sitter.TreeCursor, s Script, errs *[]SyntaxError) {
	node := cursor.Node()
	if node.IsError() || node.IsMissing() {
		pos := node.StartPosition()
		*errs = append(*errs, SyntaxError{
			File:   s.File,
			Line:   s.Line + int(pos.Row),
			Column: int(pos.Column) + 1,
		})
		return
	}
	if !node.HasError() {
		return
	}
	if cursor.GotoFirstChild() {
		for {
			collectErrors(cursor, s, errs)
			if !cursor.GotoNextSibling() {
				break
			}
		}
		cursor.GotoParent()
	}
}
