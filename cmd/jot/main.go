package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/classify"
	"github.com/juneyoungl/jot/internal/config"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/engine"
	"github.com/juneyoungl/jot/internal/mcp"
	"github.com/juneyoungl/jot/internal/outbox"
	"github.com/juneyoungl/jot/internal/remote"
	"github.com/juneyoungl/jot/internal/syncer"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"capture": true, "show": true, "list": true, "review": true,
	"reclassify": true, "confirm": true, "confirm-all": true,
	"save-review": true, "delete": true, "undo": true,
	"trash": true, "restore": true, "purge-trash": true,
	"todos": true, "schedules": true, "log": true,
	"queue": true, "dispatch": true, "sync": true, "serve": true,
	"help": true,
}

// appEnv bundles everything the commands need.
type appEnv struct {
	db         *sql.DB
	cfg        *config.Config
	engine     *engine.Engine
	dispatcher *outbox.Dispatcher
	sync       *syncer.Coordinator
}

// newAppEnv wires the engine, classifier, queue dispatcher, and sync
// coordinator. With no OPENAI_API_KEY the keyword fallback classifier
// is used; with no sync endpoint the queue drains against the local
// no-op remote and sync commands are unavailable.
func newAppEnv(database *sql.DB, cfg *config.Config) (*appEnv, error) {
	emitter := &analytics.OutboxEmitter{DB: database, MaxRetries: cfg.QueueMaxRetries}
	e := engine.New(database, cfg, emitter)

	var classifier classify.Classifier
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c, err := classify.NewOpenAIClassifier(classify.ClientConfig{
			APIKey: key,
			Model:  cfg.ClassifierModel,
		})
		if err != nil {
			return nil, err
		}
		classifier = c
	} else {
		classifier = classify.NewHeuristic()
	}

	env := &appEnv{db: database, cfg: cfg, engine: e}
	env.dispatcher = outbox.NewDispatcher(database, cfg)

	if cfg.SyncEndpoint != "" {
		client := remote.NewClient(cfg.SyncEndpoint)
		env.sync = syncer.NewCoordinator(database, cfg, client)
		outbox.RegisterAll(env.dispatcher, classifier, e, client)
	} else {
		outbox.RegisterAll(env.dispatcher, classifier, e, remote.Local{})
	}
	return env, nil
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
     _       _
    (_) ___ | |_
    | |/ _ \| __|
    | | (_) | |_
   _/ |\___/ \__|
  |__/

  Capture anything, file it later

  Usage: jot <command> [options]
         jot --help

  MCP server mode requires piped input.`)
}

func main() {
	// Best effort; a missing .env file is fine.
	_ = godotenv.Load()

	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".jot")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	env, err := newAppEnv(database, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer env.engine.Shutdown()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'jot --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	h := mcp.NewHandlers(database, env.engine, env.dispatcher, env.sync)
	if err := mcp.Run(h, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
