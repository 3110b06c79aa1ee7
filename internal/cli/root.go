// Package cli provides the pgcatalog command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgcatalog/internal/config"
	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/database/postgres"
	"github.com/koustreak/pgcatalog/internal/database/stdsql"
	"github.com/koustreak/pgcatalog/internal/dialect"
	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/koustreak/pgcatalog/internal/filestore"
	"github.com/koustreak/pgcatalog/internal/filestore/minio"
	"github.com/koustreak/pgcatalog/internal/logger"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// Opener connects a session for cfg. The returned func releases it.
type Opener func(ctx context.Context, cfg *database.Config) (database.Session, func(), error)

// StoreOpener connects the object store snapshots are kept in.
type StoreOpener func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error)

type app struct {
	open      Opener
	openStore StoreOpener

	cfgFile string
	dsn     string
	driver  string
	output  string

	cfg *config.Config
}

// NewRootCmd creates the root command connecting through the configured
// driver.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{open: OpenSession, openStore: openMinIO})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgcatalog",
		Short: "pgcatalog - PostgreSQL catalog introspection",
		Long: `pgcatalog reads tables, columns, indexes and primary key sequences
from a PostgreSQL catalog, and serves or snapshots what it finds.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return a.loadConfig(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./pgcatalog.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.dsn, "dsn", "", "connection string, overrides database.dsn")
	rootCmd.PersistentFlags().StringVar(&a.driver, "driver", "", "session driver (pgx|postgres)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		a.newVersionCommand(),
		a.newInfoCommand(),
		a.newTablesCommand(),
		a.newColumnsCommand(),
		a.newIndexesCommand(),
		a.newPrimaryKeyCommand(),
		a.newDescribeCommand(),
		a.newInsertCommand(),
		a.newResetSequenceCommand(),
		a.newServeCommand(),
		a.newSnapshotCommand(),
	)
	return rootCmd
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.dsn != "" {
		cfg.Database.DSN = a.dsn
	}
	if a.driver != "" {
		cfg.Database.Driver = database.Driver(a.driver)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if a.output != "text" && a.output != "json" {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown output format %q", a.output)
	}

	cfg.Log.Output = cmd.ErrOrStderr()
	a.cfg = cfg
	cmd.SetContext(logger.New(&cfg.Log).WithContext(cmd.Context()))
	return nil
}

// adapter opens a session and binds a dialect Adapter to it.
func (a *app) adapter(ctx context.Context) (*dialect.Adapter, func(), error) {
	s, release, err := a.open(ctx, &a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if a.cfg.Database.QueryCache {
		s = database.NewCachingSession(s)
	}
	return dialect.New(s, dialect.WithConfig(a.cfg.Dialect), dialect.WithLogger(logger.FromContext(ctx))), release, nil
}

// OpenSession connects with the driver cfg names.
func OpenSession(ctx context.Context, cfg *database.Config) (database.Session, func(), error) {
	switch cfg.Driver {
	case database.DriverPq:
		s, err := stdsql.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case database.DriverPgx, "":
		s, err := postgres.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, errs.Newf(errs.ErrKindInvalidInput, "unknown database driver %q", cfg.Driver)
	}
}

func openMinIO(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	if cfg.Provider != "" && cfg.Provider != filestore.ProviderMinIO {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown storage provider %q", cfg.Provider)
	}
	return minio.New(ctx, cfg)
}
