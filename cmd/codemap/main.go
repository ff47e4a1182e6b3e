package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codemap-mcp/internal/index"
	"github.com/dshills/codemap-mcp/internal/mcp"
	"github.com/dshills/codemap-mcp/internal/session"
	"github.com/dshills/codemap-mcp/internal/source"
	"github.com/dshills/codemap-mcp/internal/storage"
	"github.com/dshills/codemap-mcp/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// stdout carries command output (and the MCP protocol under serve);
	// logs always go to stderr.
	log.SetOutput(os.Stderr)

	app := &cli.App{
		Name:    "codemap",
		Usage:   "Symbol and dependency analysis for multi-language repositories",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Repository root to analyze",
				Value:   ".",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Glob patterns for files to include",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Glob patterns for files to exclude",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent extraction workers (default: CPU count)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, or yaml",
				Value:   "text",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			analyzeCommand(),
			searchCommand(),
			symbolsCommand(),
			depsCommand(),
			statusCommand(),
		},
	}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("codemap %s\n", c.App.Version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			dbPath := os.Getenv("CODEMAP_DB_PATH")
			if dbPath == "" {
				dbPath = mcp.DefaultDBPath
			}

			log.Printf("CodeMap MCP Server v%s starting...", version)
			log.Printf("Build Mode: %s, Driver: %s", storage.BuildMode, storage.DriverName)

			srv, err := mcp.NewServer(dbPath)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			errChan := make(chan error, 1)
			go func() {
				log.Println("MCP server ready, listening on stdio...")
				errChan <- srv.Serve(ctx)
			}()

			select {
			case sig := <-sigChan:
				log.Printf("Received signal %v, shutting down...", sig)
				cancel()
				return nil
			case err := <-errChan:
				return err
			}
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze a repository and report statistics",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Persist the analysis snapshot to the database",
			},
		},
		Action: func(c *cli.Context) error {
			root, sess, err := runAnalysis(c)
			if err != nil {
				return err
			}

			if c.Bool("save") {
				store, err := openStorage()
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				snap := &storage.Snapshot{
					RootPath:   root,
					Files:      sess.Files(),
					Edges:      sess.Graph().Edges(),
					AnalyzedAt: sess.CreatedAt,
					Duration:   sess.Stats.Duration,
				}
				if err := store.SaveSnapshot(c.Context, snap); err != nil {
					return fmt.Errorf("failed to save snapshot: %w", err)
				}
				log.Printf("Snapshot saved for %s", root)
			}

			return emit(c, sess.Stats, func() {
				fmt.Printf("Root:       %s\n", root)
				fmt.Printf("Files:      %d discovered, %d analyzed, %d failed\n",
					sess.Stats.FilesDiscovered, sess.Stats.FilesAnalyzed, sess.Stats.FilesFailed)
				fmt.Printf("Symbols:    %d\n", sess.Stats.TotalSymbols)
				fmt.Printf("Warnings:   %d\n", sess.Stats.TotalWarnings)
				fmt.Printf("Edges:      %d resolved, %d external\n",
					sess.Stats.ResolvedEdges, sess.Stats.ExternalEdges)
				fmt.Printf("Duration:   %s\n", sess.Stats.Duration.Round(time.Millisecond))
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search symbols by name, or list them with --kind/--lang alone",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Match mode: exact, prefix, or fuzzy",
				Value: "exact",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results",
				Value:   20,
			},
			&cli.StringSliceFlag{
				Name:  "kind",
				Usage: "Filter by symbol kind",
			},
			&cli.StringSliceFlag{
				Name:  "lang",
				Usage: "Filter by language",
			},
		},
		Action: func(c *cli.Context) error {
			var kinds []types.SymbolKind
			for _, k := range c.StringSlice("kind") {
				kinds = append(kinds, types.SymbolKind(k))
			}
			var langs []types.Language
			for _, l := range c.StringSlice("lang") {
				langs = append(langs, types.Language(l))
			}
			if c.NArg() < 1 && len(kinds) == 0 && len(langs) == 0 {
				return cli.Exit("search requires a symbol name or --kind/--lang filters", 1)
			}
			_, sess, err := runAnalysis(c)
			if err != nil {
				return err
			}

			if c.NArg() < 1 {
				symbols := sess.Index().Filter(kinds, langs)
				return emit(c, symbols, func() {
					if len(symbols) == 0 {
						fmt.Println("No symbols found.")
						return
					}
					for _, sym := range symbols {
						fmt.Printf("%-10s %-40s %s:%d-%d\n", sym.Kind, sym.QualifiedName,
							sym.FilePath, sym.StartLine, sym.EndLine)
					}
				})
			}

			q := index.Query{
				Name:      c.Args().First(),
				Mode:      index.MatchMode(c.String("mode")),
				Limit:     c.Int("limit"),
				Kinds:     kinds,
				Languages: langs,
			}

			results, err := sess.Index().FindByName(q)
			if err != nil {
				return err
			}
			return emit(c, results, func() {
				if len(results) == 0 {
					fmt.Println("No symbols found.")
					return
				}
				for _, r := range results {
					sym := r.Symbol
					fmt.Printf("%-10s %-40s %s:%d-%d", sym.Kind, sym.QualifiedName,
						sym.FilePath, sym.StartLine, sym.EndLine)
					if q.Mode == index.MatchFuzzy {
						fmt.Printf("  (%.2f)", r.Score)
					}
					fmt.Println()
				}
			})
		},
	}
}

func symbolsCommand() *cli.Command {
	return &cli.Command{
		Name:      "symbols",
		Usage:     "List the symbols of one file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("symbols requires a file path argument", 1)
			}
			_, sess, err := runAnalysis(c)
			if err != nil {
				return err
			}
			file := c.Args().First()
			symbols, err := sess.Index().SymbolsInFile(file)
			if err != nil {
				return err
			}
			return emit(c, symbols, func() {
				for _, sym := range symbols {
					indent := ""
					if sym.ParentID != "" {
						indent = "  "
					}
					fmt.Printf("%s%-10s %-36s lines %d-%d\n",
						indent, sym.Kind, sym.QualifiedName, sym.StartLine, sym.EndLine)
				}
			})
		},
	}
}

func depsCommand() *cli.Command {
	return &cli.Command{
		Name:  "deps",
		Usage: "Show the file dependency graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Scope the graph to one file",
			},
		},
		Action: func(c *cli.Context) error {
			_, sess, err := runAnalysis(c)
			if err != nil {
				return err
			}
			graph := sess.Graph()

			if file := c.String("file"); file != "" {
				if _, err := sess.File(file); err != nil {
					return err
				}
				out := map[string]interface{}{
					"file":         file,
					"dependencies": graph.Dependencies(file),
					"dependents":   graph.Dependents(file),
				}
				return emit(c, out, func() {
					fmt.Printf("%s\n", file)
					for _, e := range graph.Dependencies(file) {
						marker := "->"
						if !e.Resolved {
							marker = "-> (external)"
						}
						fmt.Printf("  %s %s\n", marker, e.ToTarget)
					}
					for _, d := range graph.Dependents(file) {
						fmt.Printf("  <- %s\n", d)
					}
				})
			}

			edges := graph.Edges()
			return emit(c, edges, func() {
				for _, e := range edges {
					if e.Resolved {
						fmt.Printf("%s -> %s\n", e.FromFile, e.ToTarget)
					} else {
						fmt.Printf("%s -> %s (external)\n", e.FromFile, e.ToTarget)
					}
				}
			})
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show stored analysis status for a repository",
		Action: func(c *cli.Context) error {
			root, err := filepath.Abs(c.String("root"))
			if err != nil {
				return err
			}
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			project, err := store.GetProject(c.Context, root)
			if err != nil {
				return fmt.Errorf("no stored analysis for %s (run 'codemap analyze --save'): %w", root, err)
			}
			status, err := store.GetStatus(c.Context, project.ID)
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"root":        project.RootPath,
				"analyzed_at": project.AnalyzedAt.Format(time.RFC3339),
				"files":       status.FilesCount,
				"symbols":     status.SymbolsCount,
				"edges":       status.EdgesCount,
				"warnings":    status.WarningsCount,
				"db_size_mb":  status.DBSizeMB,
			}
			return emit(c, out, func() {
				fmt.Printf("Root:        %s\n", project.RootPath)
				fmt.Printf("Analyzed:    %s\n", project.AnalyzedAt.Format(time.RFC3339))
				fmt.Printf("Files:       %d\n", status.FilesCount)
				fmt.Printf("Symbols:     %d\n", status.SymbolsCount)
				fmt.Printf("Edges:       %d\n", status.EdgesCount)
				fmt.Printf("Warnings:    %d\n", status.WarningsCount)
				fmt.Printf("DB Size:     %.2f MB\n", status.DBSizeMB)
			})
		},
	}
}

// runAnalysis resolves the root flag and runs a fresh in-process session.
func runAnalysis(c *cli.Context) (string, *session.Session, error) {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	cfg := session.Config{
		Workers: c.Int("workers"),
		Filters: source.Filters{
			Include: c.StringSlice("include"),
			Exclude: c.StringSlice("exclude"),
		},
	}
	sess, err := session.New().Analyze(c.Context, root, cfg)
	if err != nil {
		return "", nil, err
	}
	return root, sess, nil
}

// openStorage opens the snapshot database at the configured path.
func openStorage() (storage.Storage, error) {
	dbPath := os.Getenv("CODEMAP_DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".codemap", "snapshots")
	}
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return storage.NewSQLiteStorage(filepath.Join(dbPath, "codemap.db"))
}

// emit renders v in the requested format, or calls text for the default.
func emit(c *cli.Context, v interface{}, text func()) error {
	switch c.String("format") {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	case "text", "":
		text()
		return nil
	default:
		return fmt.Errorf("unknown format %q: %w", c.String("format"), types.ErrInvalidInput)
	}
}
