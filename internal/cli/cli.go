// Package cli wires configuration, storage, the pipeline engine and the
// API server into the salesdw command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"salesdw/internal/config"
	"salesdw/internal/etl"
	"salesdw/internal/logging"
	"salesdw/internal/metrics"
	"salesdw/internal/metrics/datadog"
	"salesdw/internal/parser/csv"
	"salesdw/internal/server"
	"salesdw/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type app struct {
	cfgFile  string
	logLevel string

	cfg *config.Config
}

// New returns the salesdw root command.
func New() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "salesdw",
		Short:         "Sales analytics warehouse and API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			logging.Init(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./salesdw.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		a.serveCmd(),
		a.loadCmd(),
		a.migrateCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := New().Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sales analytics API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			repo, backend, err := a.setup(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()
			defer func() { _ = backend.Close(context.Background()) }()

			engine := a.engine(repo, backend)
			return server.New(repo, engine).Run(ctx, a.cfg.HTTP.Addr)
		},
	}
	return cmd
}

func (a *app) loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Run the conforming load pipeline on a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			repo, backend, err := a.setup(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()
			defer func() { _ = backend.Close(context.Background()) }()

			engine := a.engine(repo, backend)
			result, err := engine.LoadFile(ctx, args[0])
			if err != nil {
				return err
			}

			logging.Info().
				Int("rows_processed", result.RowsProcessed).
				Int("rows_inserted", result.RowsInserted).
				Msg(result.Message)
			return nil
		},
	}
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create warehouse tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := a.cfg.Validate(); err != nil {
				return err
			}
			repo, err := storage.New(ctx, storage.Config{
				Kind: a.cfg.Storage.Kind,
				DSN:  a.cfg.Storage.DSN,
			})
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.EnsureSchema(ctx); err != nil {
				return err
			}
			logging.Info().Str("kind", a.cfg.Storage.Kind).Msg("schema ready")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the salesdw version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "salesdw", Version)
		},
	}
}

// setup validates config, opens the repository, ensures the schema, and
// builds the metrics backend.
func (a *app) setup(ctx context.Context) (storage.Repository, metrics.Backend, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}

	repo, err := storage.New(ctx, storage.Config{
		Kind: a.cfg.Storage.Kind,
		DSN:  a.cfg.Storage.DSN,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, nil, err
	}
	logging.Debug().Str("kind", a.cfg.Storage.Kind).Msg("storage ready")

	var backend metrics.Backend = metrics.Noop{}
	if a.cfg.Datadog.Enabled {
		dd, err := datadog.New(datadog.Options{
			JobName: a.cfg.Datadog.JobName,
			Tags:    a.cfg.Datadog.Tags,
		})
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
		backend = dd
	}
	return repo, backend, nil
}

func (a *app) engine(repo storage.Repository, backend metrics.Backend) *etl.Engine {
	var comma rune
	if a.cfg.ETL.CSVComma != "" {
		comma = []rune(a.cfg.ETL.CSVComma)[0]
	}
	return &etl.Engine{
		Repo:    repo,
		Logger:  &logging.Logger,
		Metrics: backend,
		CSV: csv.Options{
			Comma:    comma,
			Encoding: a.cfg.ETL.CSVEncoding,
		},
	}
}
