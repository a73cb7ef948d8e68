//go:build !cgo

package gate

// Without cgo there is no tree-sitter; the frontend gate skips syntax checks.
func newSyntaxChecker() SyntaxChecker { return nil }
