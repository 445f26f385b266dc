package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/spf13/cobra"
)

var cfg = cli.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "stepgraph",
	Short: "stepgraph runs state-passing workflow graphs",
	Long: `stepgraph executes directed graphs of named tools over a shared state.
Graphs may loop on conditions; every run is bounded and recorded step by step.

It ships with a code review workflow and can call allow-listed external
commands declared in tools.yaml.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flags.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "Write logs as JSON")
	flags.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "Safety bound on node executions per run (0 uses the default)")
	flags.StringVar(&cfg.ToolsFile, "tools", cfg.ToolsFile, "Path to the external tools file")
	flags.StringVar(&cfg.GraphsDir, "graphs", cfg.GraphsDir, "Directory of graph files to load at startup")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "Graph, run and session store: memory or redis")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address when --store=redis")
	flags.StringVar(&cfg.RedisPrefix, "redis-prefix", cfg.RedisPrefix, "Key prefix when --store=redis")
	flags.DurationVar(&cfg.RunTTL, "run-ttl", cfg.RunTTL, "How long redis keeps run records (0 keeps them)")
	flags.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "How long redis keeps review sessions (0 keeps them)")
	flags.StringSliceVar(&cfg.Redact, "redact", cfg.Redact, "Mask state keys matching these patterns in stored runs")
	flags.StringVar(&cfg.RunsDir, "runs-dir", cfg.RunsDir, "Keep run records as JSON files in this directory")
}

// newApp builds the logger and the wired application for a command.
func newApp(ctx context.Context) (*cli.App, error) {
	logger, err := cli.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(ctx, cfg, logger)
}
