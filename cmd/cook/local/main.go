// Command cook runs pantry tools against local or S3 artifacts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pantrycook"
	"pantrycook/setup"
	"pantrycook/tools"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		logLevel string
		logRun   bool
	)

	cmd := &cobra.Command{
		Use:   "cook",
		Short: "Reconcile recipes against the pantry",
		Long: `cook checks and completes recipes against the pantry, converting between
the units recipes ask for and the units pantry lots are stored in.

Configuration is read from the environment (STORE_DRIVER, ARTIFACTS_PANTRY_PATH,
ESTIMATOR_PROVIDER, ...).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&logRun, "log-run", false, "Write a consumption log under ./logs")

	cmd.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), "tools", false, func(ctx context.Context, app *setup.App) error {
				for _, t := range app.Registry.GetTools() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", t.Name(), t.Description())
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run <tool> [input-json]",
		Short: "Run one tool with a JSON input object",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
					return fmt.Errorf("invalid input json: %w", err)
				}
			}
			return call(cmd, logRun, tools.Call{Name: args[0], Input: input})
		},
	})

	var servings int
	var strict bool
	check := &cobra.Command{
		Use:   "check <recipe-id>",
		Short: "Report whether a recipe can be cooked, without changing the pantry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, logRun, tools.Call{Name: "recipe_check", Input: map[string]any{
				"recipe_id": args[0], "servings": servings,
			}})
		},
	}
	check.Flags().IntVarP(&servings, "servings", "s", 0, "Servings to cook (default: the recipe's own)")
	cmd.AddCommand(check)

	complete := &cobra.Command{
		Use:   "complete <recipe-id>",
		Short: "Consume a cooked recipe's ingredients from the pantry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, logRun, tools.Call{Name: "recipe_complete", Input: map[string]any{
				"recipe_id": args[0], "servings": servings, "strict": strict,
			}})
		},
	}
	complete.Flags().IntVarP(&servings, "servings", "s", 0, "Servings cooked (default: the recipe's own)")
	complete.Flags().BoolVar(&strict, "strict", false, "Consume nothing unless every required ingredient is available")
	cmd.AddCommand(complete)

	return cmd
}

func configureLogging(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func call(cmd *cobra.Command, logRun bool, c tools.Call) error {
	name := c.Name
	if id, ok := c.Input["recipe_id"].(string); ok {
		name = id
	}
	return withApp(cmd.Context(), name, logRun, func(ctx context.Context, app *setup.App) error {
		out, err := app.Registry.Call(ctx, c)
		if err != nil {
			slog.Error("RESULT: Error handling tool call", "tool", c.Name, "error", err)
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	})
}

func withApp(ctx context.Context, runName string, logRun bool, fn func(context.Context, *setup.App) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := setup.LoadConfig()
	if err != nil {
		return err
	}

	var logger pantrycook.ConsumptionLogger = pantrycook.NewNoOpConsumptionLogger()
	if logRun {
		fileLogger, cleanup, err := newConsumptionLogger(runName)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := cleanup(); cerr != nil {
				slog.Error("Failed to flush consumption log", "error", cerr)
			}
		}()
		logger = fileLogger
	}

	app, err := setup.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, app.Close(ctx)) }()

	return fn(ctx, app)
}

func newConsumptionLogger(runName string) (*pantrycook.FileConsumptionLogger, func() error, error) {
	logFilePath := pantrycook.NewConsumptionLogFilePath(runName)
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := pantrycook.NewFileConsumptionLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
