package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/modeldriven/crm-e2e/test/framework"
	"github.com/modeldriven/crm-e2e/test/framework/config"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	envFileFlag string
	verboseFlag bool
	debugFlag   bool
	outputFlag  string
	timeoutFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "crmctl",
	Short: "Inspect and seed the organization used by the end-to-end suite",
	Long: `crmctl talks to the Dataverse Web API of the organization the end-to-end
suite runs against, using the same environment file and saved browser session.

Sign in once with "crmctl login", then read, write and seed records.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env", "environment.yaml", "Environment file (YAML or JSON); CRM_E2E_* variables are used when it does not exist")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log debug messages")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug-http", false, "Dump Web API requests and responses")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "yaml", "Record output format: yaml or json")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Overall deadline for the command (0 means none)")
}

func main() {
	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, stopping...")
		cancel()
		// Second interrupt force-exits
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nForce exit requested, terminating immediately...")
		os.Exit(130) // 128 + SIGINT(2)
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// commandContext applies --timeout to the command context
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if timeoutFlag > 0 {
		return context.WithTimeout(cmd.Context(), timeoutFlag)
	}
	return context.WithCancel(cmd.Context())
}

// newFramework loads the environment and builds a framework bound to ctx.
// The environment may be adjusted by edit before the framework is created.
func newFramework(ctx context.Context, edit func(*config.Environment)) (*framework.Framework, error) {
	logger := newLogger()
	slog.SetDefault(logger)

	env, err := config.LoadEnvironment(envFileFlag)
	if err != nil {
		return nil, err
	}
	if edit != nil {
		edit(env)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}

	return framework.New(ctx, env,
		framework.WithLogger(logger),
		framework.WithGatewayOptions(webapi.WithDebug(debugFlag)),
	)
}
