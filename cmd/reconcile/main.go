package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/reconcile-backend/internal/cli"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/config"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/logging"
)

// CLI represents the main CLI application
type CLI struct {
	configFile string
	verbose    bool
}

func main() {
	app := &CLI{}

	// Global flags
	flag.StringVar(&app.configFile, "config", "", "Configuration file path")
	flag.BoolVar(&app.verbose, "verbose", false, "Enable verbose logging")
	flag.Usage = printUsage
	flag.Parse()

	// Get subcommand
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	subArgs := args[1:]

	cfg, err := loadConfig(app.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	loggingCfg := cfg.Observability.Logging
	if app.verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithComponent(loggingCfg, subcommand)

	if err := run(subcommand, subArgs, cfg, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Error("command failed", slog.String("command", subcommand), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(subcommand string, args []string, cfg *config.Config, logger *slog.Logger) error {
	if subcommand == "serve" {
		flags, err := cli.ParseServeFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		return cli.RunServe(cfg, flags, logger)
	}

	// One-shot commands stop at the first interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var command func(env *cli.Env) error
	switch subcommand {
	case "import":
		flags, err := cli.ParseImportFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		command = func(env *cli.Env) error { return cli.RunImport(ctx, env, flags) }
	case "match":
		flags, err := cli.ParseMatchFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		command = func(env *cli.Env) error { return cli.RunMatch(ctx, env, flags) }
	case "unmatch":
		flags, err := cli.ParseUnmatchFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		command = func(env *cli.Env) error { return cli.RunUnmatch(ctx, env, flags) }
	case "rules":
		flags, err := cli.ParseRulesFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		command = func(env *cli.Env) error { return cli.RunRules(ctx, env, flags) }
	case "report":
		flags, err := cli.ParseReportFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		command = func(env *cli.Env) error { return cli.RunReport(ctx, env, flags) }
	case "clear":
		flags, err := cli.ParseClearFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		command = func(env *cli.Env) error { return cli.RunClear(ctx, env, flags) }
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	env, err := cli.OpenEnv(cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	return command(env)
}

func printUsage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Bank reconciliation CLI")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  reconcile [global options] <command> [options]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  serve     Run the HTTP API")
	fmt.Fprintln(out, "  import    Import a bank statement and/or internal ledger file")
	fmt.Fprintln(out, "  match     Run automatic matching, or a manual match with -bank/-internal ids")
	fmt.Fprintln(out, "  unmatch   Remove match records by id")
	fmt.Fprintln(out, "  rules     Show or update matching tolerances")
	fmt.Fprintln(out, "  report    Print the summary, or export with -format csv|xlsx")
	fmt.Fprintln(out, "  clear     Delete all entries and matches for an owner")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Global Options:")
	flag.PrintDefaults()
}

// loadConfig uses the named file, then config.yaml/config.yml, then the
// environment.
func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	for _, candidate := range []string{"config.yaml", "config.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return config.LoadOrEnvWithPath(candidate), nil
		}
	}
	return config.LoadOrEnv(), nil
}
