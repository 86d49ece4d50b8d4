// Package main provides the mentorspace CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/mentorspace/cli"
)

var (
	// Global flags
	provider   string
	configPath string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "mentorspace",
		Short: "Coding workspace with an AI mentor",
		Long: `A coding workspace where an AI mentor proposes file changes that you
preview, apply and undo, with static analysis and a sandboxed runner.

Commands:
- serve: HTTP API for the browser workspace plus the collaborator backends
- chat: interactive session over a local directory
- analyze: score a directory and list its issues`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(providersCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:   provider,
		ConfigPath: configPath,
		Verbose:    verbose,
	}
}

func serveCmd() *cobra.Command {
	var so cli.ServeOptions
	var remoteURL, dbPath string
	var noLLM bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workspace API and collaborator backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.RemoteURL = remoteURL
			opts.CachePath = dbPath
			opts.NoLLM = noLLM
			return cli.Serve(cmd.Context(), so, opts, os.Stderr)
		},
	}

	cmd.Flags().StringVar(&so.Addr, "addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().StringVar(&so.Dir, "dir", "", "Seed the workspace from this directory")
	cmd.Flags().StringVar(&remoteURL, "remote", "", "Backend URL for chat, analysis and sandbox calls")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite path for the analysis cache (default in-memory)")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Disable the LLM: static analysis only, chat unavailable")

	return cmd
}

func chatCmd() *cobra.Command {
	var remoteURL string
	var noLLM bool

	cmd := &cobra.Command{
		Use:   "chat [dir]",
		Short: "Start an interactive mentor session over a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			opts := options()
			opts.RemoteURL = remoteURL
			opts.NoLLM = noLLM
			return cli.Chat(cmd.Context(), dir, opts, os.Stdin, os.Stdout, os.Stderr)
		},
	}

	cmd.Flags().StringVar(&remoteURL, "remote", "", "Backend URL for chat, analysis and sandbox calls")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Disable the LLM")

	return cmd
}

func analyzeCmd() *cobra.Command {
	var intent, dbPath, remoteURL string
	var asJSON, noLLM bool

	cmd := &cobra.Command{
		Use:   "analyze DIR",
		Short: "Score a directory and list its issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.CachePath = dbPath
			opts.RemoteURL = remoteURL
			opts.NoLLM = noLLM
			return cli.Analyze(cmd.Context(), args[0], intent, asJSON, opts, os.Stdout, os.Stderr)
		},
	}

	cmd.Flags().StringVar(&intent, "intent", "review", "Analysis intent (review, security)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite path for the analysis cache")
	cmd.Flags().StringVar(&remoteURL, "remote", "", "Backend URL to analyze with")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Static analysis only")

	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			cli.ListProviders(os.Stdout)
		},
	}
}
