package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/routelab/routemap/internal/fqn"
	"github.com/routelab/routemap/internal/parser"
	"github.com/routelab/routemap/internal/topology"
)

// Express and Koa declare routes with registration calls instead of
// decorators:
//
//	router.get("/users/:id", handler)
//	app.use("/api", router)
//
// A use() mount with a string prefix and a router identifier declares a
// group named after the router variable; verb calls on that variable become
// the group's endpoints. Router variables are file-scoped, so the group
// identity is derived from the variable name and the file path together.
var registrationVerbs = map[string]string{
	"get":     "GET",
	"post":    "POST",
	"put":     "PUT",
	"delete":  "DELETE",
	"patch":   "PATCH",
	"head":    "HEAD",
	"options": "OPTIONS",
	"all":     "",
}

func (e *Extractor) extractRegistrations(relPath string, src []byte, root *tree_sitter.Node, batch *topology.Batch) int {
	n := 0

	// First pass: use() mounts declare the groups, so registrations on a
	// mounted router resolve regardless of statement order in the file.
	groups := map[string]topology.Identity{}
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		recv, method, args := callParts(node, src)
		if method != "use" || len(args) < 2 {
			return true
		}
		prefix, ok := stringLiteral(args[0], src)
		if !ok || args[1].Kind() != "identifier" {
			return true
		}
		routerVar := parser.NodeText(args[1], src)
		id := routerGroupIdentity(relPath, routerVar)
		groups[routerVar] = id
		// The parent reference is derived from the receiver variable, not
		// looked up in the still-filling map, so nested mounts resolve no
		// matter which statement order the file declares them in. An
		// unmounted receiver leaves a dangling reference, which hierarchy
		// resolution treats as a root.
		batch.Add(topology.Declaration{
			Identity: id,
			Name:     fqn.Compute(e.project, relPath, routerVar),
			Markers:  []topology.RoleMarker{topology.MarkerGroup},
			RawPath:  prefix,
			Parent:   routerGroupIdentity(relPath, recv),
			Loc:      nodeLoc(relPath, node),
		})
		n++
		return true
	})

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		recv, method, args := callParts(node, src)
		verb, ok := registrationVerbs[method]
		if !ok || len(args) == 0 {
			return true
		}
		path, ok := stringLiteral(args[0], src)
		if !ok {
			return true
		}
		var methods []string
		if verb != "" {
			methods = []string{verb}
		}
		loc := nodeLoc(relPath, node)
		qn := fqn.Compute(e.project, relPath, recv+"."+method)
		batch.Add(topology.Declaration{
			Identity: endpointIdentity(qn, loc.Line),
			Name:     qn,
			Markers:  []topology.RoleMarker{topology.MarkerEndpoint},
			RawPath:  path,
			Parent:   groups[recv],
			Methods:  methods,
			Loc:      loc,
		})
		n++
		return true
	})

	return n
}

func routerGroupIdentity(relPath, routerVar string) topology.Identity {
	return topology.IdentityOf("group:" + relPath + ":" + routerVar)
}

// callParts decomposes a call on a plain identifier receiver, e.g.
// app.get(...), into receiver, method, and argument nodes.
func callParts(node *tree_sitter.Node, src []byte) (string, string, []*tree_sitter.Node) {
	if node.Kind() != "call_expression" {
		return "", "", nil
	}
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "member_expression" {
		return "", "", nil
	}
	obj := fn.ChildByFieldName("object")
	prop := fn.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Kind() != "identifier" {
		return "", "", nil
	}
	argList := node.ChildByFieldName("arguments")
	if argList == nil {
		return "", "", nil
	}
	var args []*tree_sitter.Node
	for i := uint(0); i < argList.NamedChildCount(); i++ {
		if a := argList.NamedChild(i); a != nil {
			args = append(args, a)
		}
	}
	return parser.NodeText(obj, src), parser.NodeText(prop, src), args
}

// stringLiteral returns the unquoted value of a string or template literal
// argument node.
func stringLiteral(node *tree_sitter.Node, src []byte) (string, bool) {
	switch node.Kind() {
	case "string", "template_string":
		return strings.Trim(parser.NodeText(node, src), "\"'`"), true
	}
	return "", false
}
