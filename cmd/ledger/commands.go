package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-balance/internal/app"
	"github.com/dvloznov/ledger-balance/internal/balance"
	"github.com/dvloznov/ledger-balance/internal/config"
	"github.com/dvloznov/ledger-balance/internal/domain"
	"github.com/dvloznov/ledger-balance/internal/pipeline"
	"github.com/dvloznov/ledger-balance/internal/repository"
)

// env is what every subcommand needs once configuration is loaded.
type env struct {
	cfg *config.Config
	log zerolog.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Logs go to stderr so command output stays pipeable.
	return &env{cfg: cfg, log: app.Logger(cfg, cmd.ErrOrStderr())}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Record spending from chat messages and report balances",
		Long: `ledger turns free-text spending messages into ledger entries and
reports period balances. Configuration comes from LEDGER_CONFIG_FILE, .env and
the environment, the same as the API and worker.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newProcessCmd(),
		newBalanceCmd(),
		newMigrateCmd(),
		newSyncNotionCmd(),
		newExportCmd(),
	)
	return root
}

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process TEXT",
		Short: "Extract and store the transactions in a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			repo, err := repository.Open(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			proc, err := app.NewProcessor(ctx, e.cfg, repo, nil, e.log)
			if err != nil {
				return err
			}
			return printResult(cmd, proc.Process(ctx, args[0]))
		},
	}
}

func printResult(cmd *cobra.Command, res pipeline.Result) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Outcome: %s (%s persisted)\n", res.Outcome, res.Ratio())
	for _, entry := range res.Entries {
		fmt.Fprintf(out, "  %s  %-24s %10s  %s\n",
			entry.Date, entry.Item, domain.FormatAmount(entry.Amount), entry.Category)
	}
	if !res.Success() {
		return res.Err
	}
	return nil
}

// periodFlags binds --start and --end to a command.
type periodFlags struct {
	start, end string
}

func (p *periodFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.start, "start", "", "First day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.end, "end", "", "Last day of the period (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func (p *periodFlags) parse() (civil.Date, civil.Date, error) {
	start, err := domain.ParseDate(p.start)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("--start: %w", err)
	}
	end, err := domain.ParseDate(p.end)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("--end: %w", err)
	}
	if end.Before(start) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("%w: --end %s is before --start %s", domain.ErrInvalidInput, end, start)
	}
	return start, end, nil
}

func newBalanceCmd() *cobra.Command {
	var period periodFlags
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the signed balance of a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := period.parse()
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			repo, err := repository.Open(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			stmt, err := balance.NewService(repo).Period(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stmt.Summary())
			return nil
		},
	}
	period.bind(cmd)
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|version",
		Short:     "Apply or inspect schema migrations for the configured store",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{app.MigrateUp, app.MigrateDown, app.MigrateVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), e.cfg, args[0], e.log)
		},
	}
}

func newSyncNotionCmd() *cobra.Command {
	var (
		period periodFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "sync-notion",
		Short: "Mirror the entries of a period into the Notion database",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := period.parse()
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			repo, err := repository.Open(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			syncer, err := app.NewNotionSyncer(e.cfg, repo, e.log)
			if err != nil {
				return err
			}
			report, err := syncer.SyncPeriod(ctx, start, end, dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"entries=%d created=%d updated=%d unchanged=%d archived=%d failed=%d dry_run=%t\n",
				report.Entries, report.Created, report.Updated, report.Unchanged,
				report.Archived, report.Failed, report.DryRun)
			if report.Failed > 0 {
				return fmt.Errorf("%d pages failed to sync", report.Failed)
			}
			return nil
		},
	}
	period.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview changes without writing to Notion")
	return cmd
}

func newExportCmd() *cobra.Command {
	var period periodFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a period statement as CSV to the export bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := period.parse()
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			repo, err := repository.Open(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			exporter, closeWriter, err := app.NewExporter(cmd.Context(), e.cfg, repo, e.log)
			if err != nil {
				if errors.Is(err, app.ErrExportDisabled) {
					return fmt.Errorf("%w: set EXPORT_BUCKET", err)
				}
				return err
			}
			defer closeWriter()

			uri, err := exporter.Export(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}
	period.bind(cmd)
	return cmd
}

