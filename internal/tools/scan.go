package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/routelab/routemap/internal/pipeline"
	"github.com/routelab/routemap/internal/topology"
)

func (s *Server) handleScanRoutes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repoPath := getStringArg(args, "repo_path")
	if repoPath == "" {
		return errResult("repo_path is required"), nil
	}
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}

	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	p, err := pipeline.New(ctx, s.store, absPath)
	if err != nil {
		return errResult(fmt.Sprintf("scan setup failed: %v", err)), nil
	}
	defer p.Close()

	topo, err := p.Run()
	if err != nil {
		return errResult(fmt.Sprintf("scan failed: %v", err)), nil
	}

	errors, warnings := 0, 0
	for _, d := range topo.Diagnostics {
		switch d.Severity {
		case topology.SeverityError:
			errors++
		case topology.SeverityWarning:
			warnings++
		}
	}

	return jsonResult(map[string]any{
		"project":     p.ProjectName,
		"groups":      len(topo.Groups),
		"routes":      len(topo.Endpoints),
		"diagnostics": len(topo.Diagnostics),
		"errors":      errors,
		"warnings":    warnings,
	}), nil
}
