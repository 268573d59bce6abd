package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/routelab/routemap/internal/topology"
)

func (s *Server) handleGetRouteTopology(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	project := getStringArg(args, "project")
	if project == "" {
		return errResult("project is required"), nil
	}
	if _, err := s.store.GetProject(project); err != nil {
		return errResult(fmt.Sprintf("unknown project %q, run scan_routes first", project)), nil
	}

	topo, err := s.store.GetTopology(project)
	if err != nil {
		return errResult(fmt.Sprintf("load topology: %v", err)), nil
	}
	return jsonResult(topo), nil
}

func (s *Server) handleGetRouteDiagnostics(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	project := getStringArg(args, "project")
	if project == "" {
		return errResult("project is required"), nil
	}
	if _, err := s.store.GetProject(project); err != nil {
		return errResult(fmt.Sprintf("unknown project %q, run scan_routes first", project)), nil
	}

	diags, err := s.store.GetDiagnostics(project, topology.DiagKind(getStringArg(args, "kind")))
	if err != nil {
		return errResult(fmt.Sprintf("load diagnostics: %v", err)), nil
	}
	diags = filterBySeverity(diags, topology.Severity(getStringArg(args, "severity")))

	return jsonResult(map[string]any{
		"project":     project,
		"count":       len(diags),
		"diagnostics": diags,
	}), nil
}

// filterBySeverity keeps diagnostics of one severity; an empty severity
// keeps everything.
func filterBySeverity(diags []topology.Diagnostic, sev topology.Severity) []topology.Diagnostic {
	if sev == "" {
		return diags
	}
	var out []topology.Diagnostic
	for _, d := range diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}
