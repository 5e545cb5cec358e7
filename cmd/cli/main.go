package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/ledgerimport/internal/adapter/export"
	"github.com/iho/ledgerimport/internal/adapter/http/dto"
	"github.com/iho/ledgerimport/internal/adapter/repository/filesystem"
	postgresRepo "github.com/iho/ledgerimport/internal/adapter/repository/postgres"
	"github.com/iho/ledgerimport/internal/adapter/spreadsheet"
	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/infrastructure/logger"
	"github.com/iho/ledgerimport/internal/infrastructure/postgres"
	"github.com/iho/ledgerimport/internal/infrastructure/rulecatalog"
	"github.com/iho/ledgerimport/internal/usecase"
)

var errAllModulesFailed = errors.New("every rule module failed")

// options are the persistent flags shared by every command.
type options struct {
	rulesDir string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "ledgerimport",
		Short:         "Ledger import generator",
		Long:          `Turns financial spreadsheets into ledger import files, fiscal exports and unmatched-invoice reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.rulesDir, "rules", os.Getenv("RULES_DIR"), "Directory of enterprise rule files (embedded catalog when empty)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(rulesCmd(opts))
	rootCmd.AddCommand(pruneCmd(opts))
	rootCmd.AddCommand(migrateCmd())

	return rootCmd
}

func (o *options) logger(cmd *cobra.Command) zerolog.Logger {
	return logger.NewWithWriter(logger.Config{Level: o.logLevel, Format: "console"}, cmd.ErrOrStderr())
}

func (o *options) orchestrator(cmd *cobra.Command, outDir string) (*usecase.Orchestrator, error) {
	catalog, err := rulecatalog.Load(o.rulesDir)
	if err != nil {
		return nil, err
	}

	idGen := postgresRepo.NewULIDGenerator()
	store, err := filesystem.NewArtifactStore(outDir, idGen)
	if err != nil {
		return nil, err
	}

	log := o.logger(cmd)
	runner := usecase.NewRuleRunner(export.NewSerializer(), spreadsheet.NewExceptionWriter(), store, log, nil)
	return usecase.NewOrchestrator(catalog, spreadsheet.NewReader(), runner, idGen, log), nil
}

func runCmd(opts *options) *cobra.Command {
	var (
		input  usecase.RunInput
		outDir string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one batch for an enterprise",
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestrator, err := opts.orchestrator(cmd, outDir)
			if err != nil {
				return err
			}

			result, err := orchestrator.Run(cmd.Context(), input)
			if err != nil {
				return err
			}

			if asJSON {
				printJSON(cmd.OutOrStdout(), dto.RunFromDomain(result))
			} else {
				printRun(cmd.OutOrStdout(), result)
			}

			if len(result.Outcomes) > 0 && result.Failed() == len(result.Outcomes) {
				return errAllModulesFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Enterprise, "enterprise", "", "Enterprise id")
	cmd.Flags().StringVar(&input.TransactionsPath, "transactions", "", "Financial transactions spreadsheet")
	cmd.Flags().StringVar(&input.InvoicesPath, "invoices", "", "Open-invoice registry spreadsheet")
	cmd.Flags().StringVar(&outDir, "out", "./output", "Output directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run as JSON")
	cmd.MarkFlagRequired("enterprise")
	cmd.MarkFlagRequired("transactions")

	return cmd
}

func printRun(w io.Writer, result *domain.RunResult) {
	fmt.Fprintf(w, "Run %s (%s)\n", result.ID, result.Enterprise)
	for _, o := range result.Outcomes {
		fmt.Fprintf(w, "  %-16s %-9s rows=%d ledger=%d fiscal=%d unmatched=%d\n",
			truncate(o.Rule, 16), o.Status, o.Stats.Rows, o.Stats.LedgerLines, o.Stats.FiscalLines, o.Stats.Unmatched)
		if o.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", o.Error)
		}
		for _, a := range o.Artifacts {
			fmt.Fprintf(w, "    %s\n", a.Location)
		}
	}
}

func rulesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rule catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List enterprises and their rule modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := rulecatalog.Load(opts.rulesDir)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Catalog %s\n", catalog.Version)
			for _, e := range catalog.Enterprises() {
				fmt.Fprintf(w, "%s  %s\n", e.ID, e.Name)
				for _, r := range e.Rules {
					fmt.Fprintf(w, "  %-16s %-6s %s\n", truncate(r.ID, 16), r.ReportCode, r.Title)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <enterprise>",
		Short: "Show one enterprise as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := rulecatalog.Load(opts.rulesDir)
			if err != nil {
				return err
			}

			enterprise, err := catalog.Enterprise(args[0])
			if err != nil {
				return err
			}

			printJSON(cmd.OutOrStdout(), dto.EnterpriseFromDomain(enterprise))
			return nil
		},
	})

	return cmd
}

func pruneCmd(opts *options) *cobra.Command {
	var (
		outDir    string
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete output artifacts older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			orchestrator, err := opts.orchestrator(cmd, outDir)
			if err != nil {
				return err
			}

			return orchestrator.Prune(cmd.Context(), time.Now().Add(-olderThan))
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "./output", "Output directory")
	cmd.Flags().DurationVar(&olderThan, "older-than", 720*time.Hour, "Age of artifacts to delete")

	return cmd
}

func migrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run history schema",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrations(databaseURL)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrationsDown(databaseURL)
		},
	})

	return cmd
}

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "failed to encode output: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
