// Command routemap scans a repository for route declarations, resolves the
// routing topology, and reports structural defects.
//
// Usage:
//
//	routemap check [-json] [-v] [-db path] [repo]   scan and report diagnostics
//	routemap routes [-json] [-v] [-db path] [repo]  scan and print the route table
//	routemap watch [-v] [-db path] [repo]           rescan on file changes
//	routemap serve [-db path]                       serve scan results over MCP (stdio)
//	routemap --version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/routelab/routemap/internal/config"
	"github.com/routelab/routemap/internal/pipeline"
	"github.com/routelab/routemap/internal/store"
	"github.com/routelab/routemap/internal/tools"
	"github.com/routelab/routemap/internal/topology"
	"github.com/routelab/routemap/internal/watcher"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	switch args[0] {
	case "--version", "version":
		fmt.Println("routemap", version)
		return 0
	case "check":
		return runCheck(args[1:])
	case "routes":
		return runRoutes(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  routemap check [-json] [-v] [-db path] [repo]
  routemap routes [-json] [-v] [-db path] [repo]
  routemap watch [-v] [-db path] [repo]
  routemap serve [-db path]
  routemap --version`)
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// scanFlags are the flags shared by check and routes.
type scanFlags struct {
	jsonOut bool
	verbose bool
	dbPath  string
	repo    string
}

func parseScanFlags(name string, args []string) (*scanFlags, error) {
	var f scanFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.BoolVar(&f.jsonOut, "json", false, "emit JSON instead of the table format")
	fs.BoolVar(&f.verbose, "v", false, "log scan progress")
	fs.StringVar(&f.dbPath, "db", "", "SQLite database path (defaults to ~/.cache/routemap/<project>.db)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.repo = fs.Arg(0)
	if f.repo == "" {
		f.repo = "."
	}
	return &f, nil
}

// scan opens the store and runs one pipeline scan of the repository.
func scan(ctx context.Context, f *scanFlags) (*pipeline.Pipeline, *topology.Topology, func(), error) {
	absPath, err := filepath.Abs(f.repo)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid path: %w", err)
	}

	var s *store.Store
	if f.dbPath != "" {
		s, err = store.OpenPath(f.dbPath)
	} else {
		s, err = store.Open(pipeline.ProjectNameFromPath(absPath))
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	p, err := pipeline.New(ctx, s, absPath)
	if err != nil {
		s.Close()
		return nil, nil, nil, err
	}
	topo, err := p.Run()
	if err != nil {
		p.Close()
		s.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		p.Close()
		s.Close()
	}
	return p, topo, cleanup, nil
}

func runCheck(args []string) int {
	f, err := parseScanFlags("check", args)
	if err != nil {
		return 2
	}
	setupLogging(f.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, topo, cleanup, err := scan(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "routemap: %v\n", err)
		return 1
	}
	defer cleanup()

	if f.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(topo.Diagnostics); err != nil {
			fmt.Fprintf(os.Stderr, "routemap: %v\n", err)
			return 1
		}
	} else {
		printDiagnostics(topo.Diagnostics)
		fmt.Printf("%d routes, %d groups, %d diagnostics\n",
			len(topo.Endpoints), len(topo.Groups), len(topo.Diagnostics))
	}
	return checkExitCode(p.Config, topo.Diagnostics)
}

func runRoutes(args []string) int {
	f, err := parseScanFlags("routes", args)
	if err != nil {
		return 2
	}
	setupLogging(f.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, topo, cleanup, err := scan(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "routemap: %v\n", err)
		return 1
	}
	defer cleanup()

	if f.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(topo.Endpoints); err != nil {
			fmt.Fprintf(os.Stderr, "routemap: %v\n", err)
			return 1
		}
		return 0
	}
	printRoutes(topo.Endpoints)
	return 0
}

func runWatch(args []string) int {
	f, err := parseScanFlags("watch", args)
	if err != nil {
		return 2
	}
	setupLogging(f.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, topo, cleanup, err := scan(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "routemap: %v\n", err)
		return 1
	}
	defer cleanup()
	printSummary(topo)

	absPath, err := filepath.Abs(f.repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "routemap: invalid path: %v\n", err)
		return 1
	}
	w := watcher.New(absPath, func(ctx context.Context) error {
		topo, err := p.Run()
		if err != nil {
			return err
		}
		printSummary(topo)
		return nil
	})
	w.Run(ctx)
	return 0
}

func printSummary(topo *topology.Topology) {
	fmt.Printf("%d routes, %d groups, %d diagnostics\n",
		len(topo.Endpoints), len(topo.Groups), len(topo.Diagnostics))
	printDiagnostics(topo.Diagnostics)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	dbPath := fs.String("db", "", "SQLite database path (defaults to ~/.cache/routemap/routemap.db)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	setupLogging(true)

	var s *store.Store
	var err error
	if *dbPath != "" {
		s, err = store.OpenPath(*dbPath)
	} else {
		s, err = store.Open("routemap")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "routemap: open store: %v\n", err)
		return 1
	}
	defer s.Close()

	srv := tools.NewServer(s, version)
	if err := srv.MCPServer().Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		fmt.Fprintf(os.Stderr, "routemap: server: %v\n", err)
		return 1
	}
	return 0
}

func printDiagnostics(diags []topology.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, d := range diags {
		loc := ""
		if d.Loc.File != "" {
			loc = fmt.Sprintf("%s:%d", d.Loc.File, d.Loc.Line)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Severity, d.Kind, loc, d.Message)
	}
	w.Flush()
}

func printRoutes(endpoints []topology.ResolvedEndpoint) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METHODS\tPATH\tHANDLER\tLOCATION")
	for _, ep := range endpoints {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s:%d\n",
			strings.Join(ep.Methods, ","), ep.EffectivePath, ep.Name, ep.Loc.File, ep.Loc.Line)
	}
	w.Flush()
}

// checkExitCode maps diagnostics to the process exit code per the
// repository's fail_on setting.
func checkExitCode(cfg *config.Config, diags []topology.Diagnostic) int {
	for _, d := range diags {
		if cfg.FailsOn(d.Severity) {
			return 1
		}
	}
	return 0
}
