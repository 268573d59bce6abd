// Package tools exposes routemap's scan results over MCP so coding agents
// can query a repository's route topology without re-running the CLI.
package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/routelab/routemap/internal/store"
)

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp   *mcp.Server
	store *store.Store
	// scanMu serializes scan_routes calls; the pipeline is not designed for
	// concurrent runs against one store.
	scanMu sync.Mutex
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(s *store.Store, version string) *Server {
	srv := &Server{
		store: s,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "routemap",
				Version: version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	// 1. scan_routes
	s.mcp.AddTool(&mcp.Tool{
		Name:        "scan_routes",
		Description: "Scan a repository for route declarations and resolve its routing topology. Extracts endpoints and route groups from framework conventions (ASP.NET attributes, FastAPI/Flask and NestJS decorators, Spring annotations, Express registrations, Go comment directives), flattens group prefixes, and reports structural defects. Rescans are incremental via content hashing.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repo_path": {
					"type": "string",
					"description": "Absolute path to the repository to scan"
				}
			},
			"required": ["repo_path"]
		}`),
	}, s.handleScanRoutes)

	// 2. get_route_topology
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_route_topology",
		Description: "Return the stored route topology for a scanned project: route groups with resolved prefixes and depths, and endpoints with effective and normalized paths. Run scan_routes first.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name as reported by scan_routes or list_projects"
				}
			},
			"required": ["project"]
		}`),
	}, s.handleGetRouteTopology)

	// 3. get_route_diagnostics
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_route_diagnostics",
		Description: "Return the structural defects found in a project's route topology: dual-classified declarations, cyclic group hierarchies, and ambiguous routes. Filterable by kind and severity.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name as reported by scan_routes or list_projects"
				},
				"kind": {
					"type": "string",
					"description": "Diagnostic kind filter",
					"enum": ["classification_conflict", "cyclic_group_hierarchy", "ambiguous_route"]
				},
				"severity": {
					"type": "string",
					"description": "Severity filter",
					"enum": ["error", "warning"]
				}
			},
			"required": ["project"]
		}`),
	}, s.handleGetRouteDiagnostics)

	// 4. list_projects
	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_projects",
		Description: "List all scanned projects with their scanned_at timestamp, root path, and route/diagnostic counts.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleListProjects)

	// 5. delete_project
	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_project",
		Description: "Delete a scanned project and all its stored data (routes, groups, diagnostics, file hashes). This action is irreversible.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project_name": {
					"type": "string",
					"description": "Name of the project to delete"
				}
			},
			"required": ["project_name"]
		}`),
	}, s.handleDeleteProject)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params.Arguments == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
