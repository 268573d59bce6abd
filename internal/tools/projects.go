package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleListProjects(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.ListProjects()
	if err != nil {
		return errResult(fmt.Sprintf("list projects: %v", err)), nil
	}

	result := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		routes, _ := s.store.CountRoutes(p.Name)
		diags, _ := s.store.CountDiagnostics(p.Name)
		result = append(result, map[string]any{
			"name":        p.Name,
			"scanned_at":  p.ScannedAt,
			"root_path":   p.RootPath,
			"routes":      routes,
			"diagnostics": diags,
		})
	}
	return jsonResult(result), nil
}

func (s *Server) handleDeleteProject(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	name := getStringArg(args, "project_name")
	if name == "" {
		return errResult("project_name is required"), nil
	}
	if _, err := s.store.GetProject(name); err != nil {
		return errResult(fmt.Sprintf("unknown project %q", name)), nil
	}
	if err := s.store.DeleteProject(name); err != nil {
		return errResult(fmt.Sprintf("delete project: %v", err)), nil
	}
	return jsonResult(map[string]any{"deleted": name}), nil
}
