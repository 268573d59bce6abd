package extract

import (
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/routelab/routemap/internal/fqn"
	"github.com/routelab/routemap/internal/lang"
	"github.com/routelab/routemap/internal/parser"
	"github.com/routelab/routemap/internal/topology"
)

// Go has no decorators, so route declarations ride on comment directives in
// the doc comment of the handler or group declaration:
//
//	//route:GET /users/{id} group=Users
//	//routegroup:Users /users parent=Api
//	func GetUser(w http.ResponseWriter, r *http.Request) { ... }
//
// The method field accepts a comma-separated list (GET,POST). A declaration
// carrying both directives is extracted with both role markers and left for
// resolution to reject.
var (
	routeDirectiveRe = regexp.MustCompile(`^//\s*route:\s*([A-Za-z,]+)\s+(\S+)(?:\s+group=(\S+))?\s*$`)
	groupDirectiveRe = regexp.MustCompile(`^//\s*routegroup:\s*(\S+)\s+(\S+)(?:\s+parent=(\S+))?\s*$`)
)

func (e *Extractor) extractDirectives(spec *lang.LanguageSpec, relPath string, src []byte, root *tree_sitter.Node, batch *topology.Batch) int {
	n := 0
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		kind := node.Kind()
		if !kindIn(spec.FunctionNodeTypes, kind) && !kindIn(spec.ClassNodeTypes, kind) {
			return true
		}
		n += e.directiveDecl(relPath, src, node, batch)
		return false
	})
	return n
}

// directiveDecl parses the comment block directly above a declaration and
// emits one Declaration covering every directive found in it.
func (e *Extractor) directiveDecl(relPath string, src []byte, node *tree_sitter.Node, batch *topology.Batch) int {
	var markers []topology.RoleMarker
	var rawPath, groupName string
	var methods []string
	parent := topology.None

	for _, line := range precedingComments(node, src) {
		if m := groupDirectiveRe.FindStringSubmatch(line); m != nil {
			markers = append(markers, topology.MarkerGroup)
			groupName = m[1]
			if rawPath == "" {
				rawPath = m[2]
			}
			if m[3] != "" {
				parent = groupIdentity(m[3])
			}
			continue
		}
		if m := routeDirectiveRe.FindStringSubmatch(line); m != nil {
			markers = append(markers, topology.MarkerEndpoint)
			methods = append(methods, strings.Split(m[1], ",")...)
			rawPath = m[2]
			if m[3] != "" {
				parent = groupIdentity(m[3])
			}
		}
	}
	if len(markers) == 0 {
		return 0
	}

	name := declName(node, src)
	loc := nodeLoc(relPath, node)
	qn := fqn.Compute(e.project, relPath, name)

	// Group directives name the group explicitly so references from other
	// files resolve without knowing the declaration site.
	id := endpointIdentity(qn, loc.Line)
	if groupName != "" {
		id = groupIdentity(groupName)
	}

	batch.Add(topology.Declaration{
		Identity: id,
		Name:     qn,
		Markers:  markers,
		RawPath:  rawPath,
		Parent:   parent,
		Methods:  methods,
		Loc:      loc,
	})
	return 1
}

// precedingComments collects the contiguous comment lines directly above a
// declaration, topmost first.
func precedingComments(node *tree_sitter.Node, src []byte) []string {
	var lines []string
	for s := node.PrevNamedSibling(); s != nil && s.Kind() == "comment"; s = s.PrevNamedSibling() {
		lines = append(lines, strings.TrimSpace(parser.NodeText(s, src)))
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines
}

// declName handles Go's type_declaration wrapping the named type_spec.
func declName(node *tree_sitter.Node, src []byte) string {
	if name := nodeName(node, src); name != "" {
		return name
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c != nil && c.Kind() == "type_spec" {
			return nodeName(c, src)
		}
	}
	return ""
}
