package extract

import (
	"regexp"
	"strings"

	"github.com/routelab/routemap/internal/lang"
)

// Route declaration conventions, matched against the text of the
// decorator/attribute/annotation nodes attached to a declaration.
var (
	// C# ASP.NET Core: [Route("api/users")] on controllers,
	// [HttpGet], [HttpPost("new")] on actions.
	csharpRouteRe   = regexp.MustCompile(`\[Route\(\s*"([^"]*)"`)
	csharpVerbRe    = regexp.MustCompile(`\[Http(Get|Post|Put|Delete|Patch|Head|Options)(?:\(\s*"([^"]*)")?`)
	csharpAPICtrlRe = regexp.MustCompile(`\[ApiController\]`)

	// Python: FastAPI @app.get("/users"), Flask @app.route("/users",
	// methods=["GET", "POST"]).
	pyVerbRouteRe    = regexp.MustCompile(`@\w+(?:\.\w+)*\.(get|post|put|delete|patch|head|options)\(\s*["']([^"']+)["']`)
	pyGenericRouteRe = regexp.MustCompile(`@\w+(?:\.\w+)*\.(?:route|api_route|add_url_rule)\(\s*["']([^"']+)["']`)
	pyMethodsListRe  = regexp.MustCompile(`methods\s*=\s*[\[(]([^\])]*)[\])]`)
	pyMethodNameRe   = regexp.MustCompile(`["'](\w+)["']`)

	// NestJS: @Controller('users') on classes, @Get(), @Post('new') on
	// handler methods.
	nestControllerRe = regexp.MustCompile(`@Controller\(\s*(?:["']([^"']*)["'])?\s*\)`)
	nestVerbRe       = regexp.MustCompile(`@(Get|Post|Put|Delete|Patch|Head|Options|All)\(\s*(?:["']([^"']*)["'])?\s*\)`)

	// Java Spring: @RequestMapping("/api") on controllers,
	// @GetMapping("/{id}") on handler methods.
	springMappingRe  = regexp.MustCompile(`@(Get|Post|Put|Delete|Patch|Request)Mapping(?:\(\s*(?:(?:value|path)\s*=\s*)?["']([^"]*)["'])?`)
	springRestCtrlRe = regexp.MustCompile(`@(Rest)?Controller\b`)
)

// classGroup reports whether class-level annotation text declares a route
// group, and the declared prefix. The prefix may be empty: a bare
// [ApiController] or @RestController still groups its handler methods.
func classGroup(l lang.Language, text string) (string, bool) {
	switch l {
	case lang.CSharp:
		if m := csharpRouteRe.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
		if csharpAPICtrlRe.MatchString(text) {
			return "", true
		}
	case lang.TypeScript, lang.TSX:
		if m := nestControllerRe.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	case lang.Java:
		if m := springMappingRe.FindStringSubmatch(text); m != nil {
			return m[2], true
		}
		if springRestCtrlRe.MatchString(text) {
			return "", true
		}
	}
	return "", false
}

// endpointRoute reports whether function-level annotation text declares an
// endpoint, with the declared path and HTTP methods. An empty method list
// means the convention matched but did not constrain the method.
func endpointRoute(l lang.Language, text string) (string, []string, bool) {
	switch l {
	case lang.CSharp:
		return csharpEndpoint(text)
	case lang.Python:
		return pythonEndpoint(text)
	case lang.TypeScript, lang.TSX:
		return nestEndpoint(text)
	case lang.Java:
		return springEndpoint(text)
	}
	return "", nil, false
}

func csharpEndpoint(text string) (string, []string, bool) {
	verbs := csharpVerbRe.FindAllStringSubmatch(text, -1)
	if len(verbs) == 0 {
		return "", nil, false
	}
	var path string
	var methods []string
	for _, m := range verbs {
		methods = append(methods, strings.ToUpper(m[1]))
		if path == "" {
			path = m[2]
		}
	}
	// [Route("...")] alongside a verb attribute supplies the template.
	if path == "" {
		if m := csharpRouteRe.FindStringSubmatch(text); m != nil {
			path = m[1]
		}
	}
	return path, methods, true
}

func pythonEndpoint(text string) (string, []string, bool) {
	if verbs := pyVerbRouteRe.FindAllStringSubmatch(text, -1); len(verbs) > 0 {
		path := verbs[0][2]
		var methods []string
		for _, m := range verbs {
			methods = append(methods, strings.ToUpper(m[1]))
		}
		return path, methods, true
	}
	if m := pyGenericRouteRe.FindStringSubmatch(text); m != nil {
		var methods []string
		if ml := pyMethodsListRe.FindStringSubmatch(text); ml != nil {
			for _, name := range pyMethodNameRe.FindAllStringSubmatch(ml[1], -1) {
				methods = append(methods, strings.ToUpper(name[1]))
			}
		}
		return m[1], methods, true
	}
	return "", nil, false
}

func nestEndpoint(text string) (string, []string, bool) {
	verbs := nestVerbRe.FindAllStringSubmatch(text, -1)
	if len(verbs) == 0 {
		return "", nil, false
	}
	var path string
	var methods []string
	for _, m := range verbs {
		if m[1] != "All" {
			methods = append(methods, strings.ToUpper(m[1]))
		}
		if path == "" {
			path = m[2]
		}
	}
	return path, methods, true
}

func springEndpoint(text string) (string, []string, bool) {
	mappings := springMappingRe.FindAllStringSubmatch(text, -1)
	if len(mappings) == 0 {
		return "", nil, false
	}
	var path string
	var methods []string
	for _, m := range mappings {
		// @RequestMapping carries no method on its own.
		if m[1] != "Request" {
			methods = append(methods, strings.ToUpper(m[1]))
		}
		if path == "" {
			path = m[2]
		}
	}
	return path, methods, true
}
