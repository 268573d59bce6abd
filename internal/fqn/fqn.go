// Package fqn builds the qualified names routemap reports declarations
// under.
package fqn

import (
	"path/filepath"
	"strings"
)

// Compute returns the canonical qualified name for a declaration.
// Format: <project>.<rel_path_parts_dotted>.<name>
// Examples:
//   - shop.api.controllers.users.UsersController.List
//   - shop.cmd.server.main.registerRoutes
func Compute(project, relPath, name string) string {
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	parts := strings.Split(filepath.ToSlash(relPath), "/")

	// Python packages and JS/TS barrel files name the directory, not the file.
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "index" {
		parts = parts[:len(parts)-1]
	}

	all := append([]string{project}, parts...)
	if name != "" {
		all = append(all, name)
	}
	return strings.Join(all, ".")
}

// FileQN returns the qualified name for a file without a declaration name.
func FileQN(project, relPath string) string {
	return Compute(project, relPath, "")
}
