package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/koustreak/pgcatalog/internal/logger"
	"github.com/koustreak/pgcatalog/internal/schema"
	"github.com/koustreak/pgcatalog/internal/snapshot"
)

func (a *app) newSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and read catalog snapshots in object storage",
	}
	cmd.AddCommand(a.newSnapshotSaveCommand(), a.newSnapshotShowCommand(), a.newSnapshotListCommand())
	return cmd
}

func (a *app) snapshots(ctx context.Context) (*snapshot.Store, func(), error) {
	files, err := a.openStore(ctx, &a.cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return snapshot.New(files, a.cfg.Snapshot, logger.FromContext(ctx)), func() { _ = files.Close() }, nil
}

func (a *app) newSnapshotSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Inspect the database and store the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			s, err := schema.NewInspector(ad, logger.FromContext(ctx)).InspectSchema(ctx)
			if err != nil {
				return err
			}

			store, closeStore, err := a.snapshots(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			info, err := store.Save(ctx, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d tables of %s to %s/%s\n", len(s.Tables), s.Database, a.cfg.Snapshot.Bucket, info.Key)
			return nil
		},
	}
}

func (a *app) newSnapshotShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <database>",
		Short: "Print a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.snapshots(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			doc, err := store.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), doc)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s, server %d, taken %s\n", doc.Database, doc.ServerVersion, doc.TakenAt.Format("2006-01-02 15:04:05Z07:00"))
			rows := make([]table.Row, len(doc.Tables))
			for i, t := range doc.Tables {
				pk := ""
				if t.PrimaryKey != nil {
					pk = t.PrimaryKey.Column
				}
				rows[i] = table.Row{t.Name, len(t.Columns), len(t.Indexes), pk}
			}
			renderTable(cmd.OutOrStdout(), table.Row{"Table", "Columns", "Indexes", "Primary Key"}, rows)
			return nil
		},
	}
}

func (a *app) newSnapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List databases with a stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.snapshots(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			names, err := store.List(ctx)
			if err != nil {
				return err
			}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), names)
			}
			rows := make([]table.Row, len(names))
			for i, n := range names {
				rows[i] = table.Row{n}
			}
			renderTable(cmd.OutOrStdout(), table.Row{"Database"}, rows)
			return nil
		},
	}
}
