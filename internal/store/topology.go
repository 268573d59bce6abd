package store

import (
	"encoding/json"
	"fmt"

	"github.com/routelab/routemap/internal/topology"
)

// SaveTopology replaces the stored topology for a project with the result of
// a fresh scan. Runs in a single transaction so readers never observe a
// half-written topology.
func (s *Store) SaveTopology(project string, topo *topology.Topology) error {
	return s.WithTransaction(func(tx *Store) error {
		for _, table := range []string{"groups", "routes", "diagnostics"} {
			if _, err := tx.q.Exec("DELETE FROM "+table+" WHERE project=?", project); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, g := range topo.Groups {
			if _, err := tx.q.Exec(`
				INSERT INTO groups (project, identity, name, raw_prefix, parent, depth, full_prefix, file_path, line)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				project, identityKey(g.Identity), g.Name, g.RawPrefix, identityKey(g.Parent),
				g.Depth, g.FullPrefix, g.Loc.File, g.Loc.Line); err != nil {
				return fmt.Errorf("insert group %s: %w", g.Name, err)
			}
		}
		for _, ep := range topo.Endpoints {
			methods, err := json.Marshal(ep.Methods)
			if err != nil {
				return fmt.Errorf("marshal methods: %w", err)
			}
			if _, err := tx.q.Exec(`
				INSERT INTO routes (project, identity, name, methods, group_identity, effective_path, normalized_path, file_path, line)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				project, identityKey(ep.Identity), ep.Name, string(methods), identityKey(ep.Group),
				ep.EffectivePath, ep.NormalizedPath, ep.Loc.File, ep.Loc.Line); err != nil {
				return fmt.Errorf("insert route %s: %w", ep.Name, err)
			}
		}
		for _, d := range topo.Diagnostics {
			detail, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("marshal diagnostic: %w", err)
			}
			if _, err := tx.q.Exec(`
				INSERT INTO diagnostics (project, kind, severity, message, detail, file_path, line)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				project, string(d.Kind), string(d.Severity), d.Message, string(detail),
				d.Loc.File, d.Loc.Line); err != nil {
				return fmt.Errorf("insert diagnostic: %w", err)
			}
		}
		return nil
	})
}

// GetTopology reassembles the stored topology for a project.
func (s *Store) GetTopology(project string) (*topology.Topology, error) {
	topo := &topology.Topology{}

	rows, err := s.q.Query(`
		SELECT identity, name, raw_prefix, parent, depth, full_prefix, file_path, line
		FROM groups WHERE project=? ORDER BY full_prefix, name`, project)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g topology.ResolvedGroup
		var identity, parent string
		if err := rows.Scan(&identity, &g.Name, &g.RawPrefix, &parent, &g.Depth, &g.FullPrefix, &g.Loc.File, &g.Loc.Line); err != nil {
			return nil, err
		}
		g.Identity = parseIdentity(identity)
		g.Parent = parseIdentity(parent)
		topo.Groups = append(topo.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	topo.Endpoints, err = s.GetRoutes(project)
	if err != nil {
		return nil, err
	}
	topo.Diagnostics, err = s.GetDiagnostics(project, "")
	if err != nil {
		return nil, err
	}
	return topo, nil
}

// GetRoutes returns all stored routes for a project, ordered by normalized
// path then name.
func (s *Store) GetRoutes(project string) ([]topology.ResolvedEndpoint, error) {
	rows, err := s.q.Query(`
		SELECT identity, name, methods, group_identity, effective_path, normalized_path, file_path, line
		FROM routes WHERE project=? ORDER BY normalized_path, name`, project)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()
	var result []topology.ResolvedEndpoint
	for rows.Next() {
		var ep topology.ResolvedEndpoint
		var identity, group, methods string
		if err := rows.Scan(&identity, &ep.Name, &methods, &group, &ep.EffectivePath, &ep.NormalizedPath, &ep.Loc.File, &ep.Loc.Line); err != nil {
			return nil, err
		}
		ep.Identity = parseIdentity(identity)
		ep.Group = parseIdentity(group)
		if err := json.Unmarshal([]byte(methods), &ep.Methods); err != nil {
			return nil, fmt.Errorf("unmarshal methods for %s: %w", ep.Name, err)
		}
		result = append(result, ep)
	}
	return result, rows.Err()
}

// GetDiagnostics returns stored diagnostics for a project, optionally
// filtered by kind. Insertion order is preserved.
func (s *Store) GetDiagnostics(project string, kind topology.DiagKind) ([]topology.Diagnostic, error) {
	query := "SELECT detail FROM diagnostics WHERE project=?"
	args := []any{project}
	if kind != "" {
		query += " AND kind=?"
		args = append(args, string(kind))
	}
	query += " ORDER BY id"

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()
	var result []topology.Diagnostic
	for rows.Next() {
		var detail string
		if err := rows.Scan(&detail); err != nil {
			return nil, err
		}
		var d topology.Diagnostic
		if err := json.Unmarshal([]byte(detail), &d); err != nil {
			return nil, fmt.Errorf("unmarshal diagnostic: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// CountRoutes returns the number of stored routes for a project.
func (s *Store) CountRoutes(project string) (int, error) {
	var n int
	err := s.q.QueryRow("SELECT COUNT(*) FROM routes WHERE project=?", project).Scan(&n)
	return n, err
}

// CountDiagnostics returns the number of stored diagnostics for a project.
func (s *Store) CountDiagnostics(project string) (int, error) {
	var n int
	err := s.q.QueryRow("SELECT COUNT(*) FROM diagnostics WHERE project=?", project).Scan(&n)
	return n, err
}
