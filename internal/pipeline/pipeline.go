// Package pipeline orchestrates one scan of a repository: discover source
// files, extract route declarations in parallel, resolve the topology, and
// persist the result for the CLI and MCP tools to query.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/routelab/routemap/internal/config"
	"github.com/routelab/routemap/internal/discover"
	"github.com/routelab/routemap/internal/extract"
	"github.com/routelab/routemap/internal/store"
	"github.com/routelab/routemap/internal/topology"
)

// Pipeline runs scans of one repository. It may be reused across scans; the
// extractor's tree cache carries over so rescans of unchanged files skip the
// parse.
type Pipeline struct {
	ctx         context.Context
	Store       *store.Store
	RepoPath    string
	ProjectName string
	Config      *config.Config
	extractor   *extract.Extractor
}

// New creates a Pipeline for a repository. Configuration is read from the
// repository's .routemap.yml, if present.
func New(ctx context.Context, s *store.Store, repoPath string) (*Pipeline, error) {
	projectName := ProjectNameFromPath(repoPath)
	ex, err := extract.New(projectName, 0)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	return &Pipeline{
		ctx:         ctx,
		Store:       s,
		RepoPath:    repoPath,
		ProjectName: projectName,
		Config:      config.Load(repoPath),
		extractor:   ex,
	}, nil
}

// Close releases the extractor's cached trees.
func (p *Pipeline) Close() {
	p.extractor.Close()
}

// ProjectNameFromPath derives a unique project name from an absolute path
// by replacing path separators with dashes and trimming the leading dash.
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.ReplaceAll(cleaned, "/", "-")
	name = strings.TrimLeft(name, "-")
	if name == "" {
		return "root"
	}
	return name
}

func (p *Pipeline) checkCancel() error {
	return p.ctx.Err()
}

// Run executes one full scan and returns the resolved topology. When no file
// changed since the last persisted scan, the stored topology is returned
// without re-extracting.
func (p *Pipeline) Run() (*topology.Topology, error) {
	slog.Info("pipeline.start", "project", p.ProjectName, "path", p.RepoPath)

	if err := p.checkCancel(); err != nil {
		return nil, err
	}

	files, err := discover.Discover(p.ctx, p.RepoPath, nil)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	files = p.filterLanguages(files)
	slog.Info("pipeline.discovered", "files", len(files))

	t := time.Now()
	contents, hashes := p.readFiles(files)
	slog.Info("pass.timing", "pass", "read", "elapsed", time.Since(t))
	if err := p.checkCancel(); err != nil {
		return nil, err
	}

	if topo, ok := p.unchangedFastPath(files, hashes); ok {
		return topo, nil
	}

	t = time.Now()
	batch := p.extractAll(files, contents)
	slog.Info("pass.timing", "pass", "extract", "elapsed", time.Since(t), "declarations", batch.Len())
	if err := p.checkCancel(); err != nil {
		return nil, err
	}

	t = time.Now()
	topo, err := topology.Resolve(p.ctx, batch, topology.Options{ExcludePaths: p.Config.ExcludePaths})
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	slog.Info("pass.timing", "pass", "resolve", "elapsed", time.Since(t))

	if err := p.persist(files, hashes, topo); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}

	slog.Info("pipeline.done",
		"routes", len(topo.Endpoints), "groups", len(topo.Groups), "diagnostics", len(topo.Diagnostics))
	return topo, nil
}

// filterLanguages drops files in languages the config disabled.
func (p *Pipeline) filterLanguages(files []discover.FileInfo) []discover.FileInfo {
	if len(p.Config.Languages) == 0 {
		return files
	}
	kept := files[:0]
	for _, f := range files {
		if p.Config.LanguageEnabled(f.Language) {
			kept = append(kept, f)
		}
	}
	return kept
}

func workerCount(n int) int {
	w := runtime.NumCPU()
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// readFiles loads and hashes all files in parallel. Results align with the
// input slice; an unreadable file leaves a nil content and is skipped later.
func (p *Pipeline) readFiles(files []discover.FileInfo) ([][]byte, []string) {
	contents := make([][]byte, len(files))
	hashes := make([]string, len(files))

	g := new(errgroup.Group)
	g.SetLimit(workerCount(len(files)))
	for i, f := range files {
		g.Go(func() error {
			data, err := os.ReadFile(f.Path)
			if err != nil {
				slog.Warn("pipeline.read.skip", "file", f.RelPath, "err", err)
				return nil
			}
			contents[i] = data
			hashes[i] = fmt.Sprintf("%016x", xxh3.Hash(data))
			return nil
		})
	}
	_ = g.Wait()
	return contents, hashes
}

// unchangedFastPath returns the stored topology when the discovered file set
// hashes exactly as it did on the last persisted scan.
func (p *Pipeline) unchangedFastPath(files []discover.FileInfo, hashes []string) (*topology.Topology, bool) {
	stored, err := p.Store.GetFileHashes(p.ProjectName)
	if err != nil || len(stored) == 0 || len(stored) != len(files) {
		return nil, false
	}
	for i, f := range files {
		if stored[f.RelPath] != hashes[i] {
			return nil, false
		}
	}
	topo, err := p.Store.GetTopology(p.ProjectName)
	if err != nil {
		return nil, false
	}
	slog.Info("pipeline.unchanged", "files", len(files))
	return topo, true
}

// extractAll fans file extraction out across CPU cores. Workers extract into
// per-file batches that are merged in discovery order, so declaration order
// and the diagnostics derived from it are stable across runs.
func (p *Pipeline) extractAll(files []discover.FileInfo, contents [][]byte) *topology.Batch {
	perFile := make([][]topology.Declaration, len(files))

	g := new(errgroup.Group)
	g.SetLimit(workerCount(len(files)))
	for i, f := range files {
		if contents[i] == nil {
			continue
		}
		g.Go(func() error {
			fb := topology.NewBatch()
			if _, err := p.extractor.File(f.RelPath, contents[i], fb); err != nil {
				slog.Warn("pipeline.extract.skip", "file", f.RelPath, "err", err)
				return nil
			}
			perFile[i] = fb.Finalize()
			return nil
		})
	}
	_ = g.Wait()

	batch := topology.NewBatch()
	for _, decls := range perFile {
		for _, d := range decls {
			batch.Add(d)
		}
	}
	return batch
}

// persist writes the topology and the file hashes that produced it.
func (p *Pipeline) persist(files []discover.FileInfo, hashes []string, topo *topology.Topology) error {
	if err := p.Store.UpsertProject(p.ProjectName, p.RepoPath); err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	if err := p.Store.SaveTopology(p.ProjectName, topo); err != nil {
		return fmt.Errorf("save topology: %w", err)
	}
	if err := p.Store.DeleteFileHashes(p.ProjectName); err != nil {
		return fmt.Errorf("clear file hashes: %w", err)
	}
	for i, f := range files {
		if hashes[i] == "" {
			continue
		}
		if err := p.Store.UpsertFileHash(p.ProjectName, f.RelPath, hashes[i]); err != nil {
			return fmt.Errorf("upsert file hash: %w", err)
		}
	}
	return nil
}
