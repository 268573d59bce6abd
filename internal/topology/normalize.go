package topology

import (
	"regexp"
	"strings"
)

// Parameter segment shapes across the supported routing conventions:
// {id}, {id:int}, {*rest}, {**catchAll} (brace style) and :id (colon style).
var (
	braceParamRe = regexp.MustCompile(`\{[^{}]*\}`)
	colonParamRe = regexp.MustCompile(`:[a-zA-Z_][a-zA-Z0-9_]*`)
)

// paramToken is the fixed placeholder every parameter segment normalizes to.
// Two routes differing only in parameter name or constraint dispatch
// identically, so they must compare equal.
const paramToken = "*"

// NormalizePath canonicalizes a raw route pattern for ambiguity comparison:
// parameter segments collapse to a fixed token, case is folded, and leading
// and trailing separators are trimmed. Idempotent.
func NormalizePath(path string) string {
	// The brace pattern matches innermost pairs only, so nested or doubled
	// braces ({{literal}}, {b{c}}) need repeated passes to collapse fully.
	// Running to a fixpoint keeps the function idempotent on such inputs.
	for {
		next := braceParamRe.ReplaceAllString(path, paramToken)
		if next == path {
			break
		}
		path = next
	}
	path = colonParamRe.ReplaceAllString(path, paramToken)
	path = strings.ToLower(path)
	return strings.Trim(path, "/")
}
