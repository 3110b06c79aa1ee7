package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/koustreak/pgcatalog/internal/dialect"
	"github.com/koustreak/pgcatalog/internal/logger"
	"github.com/koustreak/pgcatalog/internal/schema"
	"github.com/koustreak/pgcatalog/internal/server"
)

func (a *app) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pgcatalog %s (%s)\n", Version, GitCommit)
		},
	}
}

type serverInfo struct {
	Version                   int  `json:"version"`
	InsertReturning           bool `json:"insert_returning"`
	StandardConformingStrings bool `json:"standard_conforming_strings"`
	TableAliasLength          int  `json:"table_alias_length"`
	IndexKeyLimit             int  `json:"index_key_limit"`
}

func (a *app) newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server version and dialect capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			version, err := ad.ServerVersion(ctx)
			if err != nil {
				return err
			}
			aliasLength, err := ad.TableAliasLength(ctx)
			if err != nil {
				return err
			}
			info := serverInfo{
				Version:                   version,
				InsertReturning:           ad.SupportsInsertWithReturning(ctx),
				StandardConformingStrings: ad.SupportsStandardConformingStrings(ctx),
				TableAliasLength:          aliasLength,
				IndexKeyLimit:             ad.IndexKeyLimit(ctx),
			}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), info)
			}
			renderTable(cmd.OutOrStdout(), table.Row{"Setting", "Value"}, []table.Row{
				{"server_version", info.Version},
				{"insert_returning", info.InsertReturning},
				{"standard_conforming_strings", info.StandardConformingStrings},
				{"table_alias_length", info.TableAliasLength},
				{"index_key_limit", info.IndexKeyLimit},
			})
			return nil
		},
	}
}

func (a *app) newTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables on the search path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			tables, err := ad.Tables(ctx)
			if err != nil {
				return err
			}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), tables)
			}
			rows := make([]table.Row, len(tables))
			for i, t := range tables {
				rows[i] = table.Row{t}
			}
			renderTable(cmd.OutOrStdout(), table.Row{"Table"}, rows)
			return nil
		},
	}
}

func (a *app) newColumnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			cols, err := ad.Columns(ctx, args[0])
			if err != nil {
				return err
			}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), cols)
			}
			renderColumns(cmd, cols)
			return nil
		},
	}
}

func renderColumns(cmd *cobra.Command, cols []dialect.Column) {
	rows := make([]table.Row, len(cols))
	for i, c := range cols {
		rows[i] = table.Row{c.Name, c.SQLType, c.Type, c.Null, nullable(c.Default), nullable(c.Limit), nullable(c.Precision), nullable(c.Scale)}
	}
	renderTable(cmd.OutOrStdout(), table.Row{"Name", "SQL Type", "Type", "Null", "Default", "Limit", "Precision", "Scale"}, rows)
}

func (a *app) newIndexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes <table>",
		Short: "List the non-primary indexes of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			idx, err := ad.Indexes(ctx, args[0])
			if err != nil {
				return err
			}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), idx)
			}
			renderIndexes(cmd, idx)
			return nil
		},
	}
}

func renderIndexes(cmd *cobra.Command, idx []dialect.Index) {
	rows := make([]table.Row, len(idx))
	for i, ix := range idx {
		rows[i] = table.Row{ix.Name, ix.Unique, strings.Join(ix.Columns, ", ")}
	}
	renderTable(cmd.OutOrStdout(), table.Row{"Index", "Unique", "Columns"}, rows)
}

type primaryKeyResult struct {
	Status   string  `json:"status"`
	Column   string  `json:"column,omitempty"`
	Sequence *string `json:"sequence"`
}

func (a *app) newPrimaryKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "pk <table>",
		Aliases: []string{"primary-key"},
		Short:   "Show a table's primary key and its sequence",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			res := ad.ResolvePrimaryKeyAndSequence(ctx, args[0])
			if res.Err != nil {
				return res.Err
			}
			out := primaryKeyResult{Status: res.Status.String(), Column: res.PrimaryKey.Column, Sequence: res.PrimaryKey.Sequence}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), out)
			}
			renderTable(cmd.OutOrStdout(), table.Row{"Status", "Column", "Sequence"},
				[]table.Row{{out.Status, out.Column, nullable(out.Sequence)}})
			return nil
		},
	}
}

func (a *app) newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show columns, indexes and primary key of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			t, err := schema.NewInspector(ad, logger.FromContext(ctx)).InspectTable(ctx, args[0])
			if err != nil {
				return err
			}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), t)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Table %s\n", t.Name)
			renderColumns(cmd, t.Columns)
			fmt.Fprintln(out, "Indexes")
			renderIndexes(cmd, t.Indexes)
			if t.PrimaryKey == nil {
				fmt.Fprintln(out, "Primary key: none")
			} else {
				fmt.Fprintf(out, "Primary key: %s (sequence %s)\n", t.PrimaryKey.Column, nullable(t.PrimaryKey.Sequence))
			}
			return nil
		},
	}
}

func (a *app) newInsertCommand() *cobra.Command {
	var req dialect.InsertRequest
	var explicit int64

	cmd := &cobra.Command{
		Use:   "insert <statement>",
		Short: "Run an INSERT and print the generated primary key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			req.SQL = args[0]
			if cmd.Flags().Changed("id") {
				req.ExplicitKey = &explicit
			}
			id, err := ad.PerformInsert(ctx, req)
			if err != nil {
				return err
			}
			if a.output == "json" {
				return renderJSON(cmd.OutOrStdout(), map[string]*int64{"id": id})
			}
			if id == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "inserted (no generated key)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted id %d\n", *id)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Table, "table", "", "target table (default: parsed from the statement)")
	cmd.Flags().StringVar(&req.PrimaryKey, "pk", "", "primary key column, skips discovery")
	cmd.Flags().StringVar(&req.Sequence, "sequence", "", "key sequence, skips discovery")
	cmd.Flags().Int64Var(&explicit, "id", 0, "key value the statement sets explicitly")
	return cmd
}

func (a *app) newResetSequenceCommand() *cobra.Command {
	var pk, sequence string

	cmd := &cobra.Command{
		Use:   "reset-sequence <table>",
		Short: "Move a table's key sequence past its largest key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			if err := ad.ResetPKSequence(ctx, args[0], pk, sequence); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sequence of %s reset\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&pk, "pk", "", "primary key column, skips discovery")
	cmd.Flags().StringVar(&sequence, "sequence", "", "key sequence, skips discovery")
	return cmd
}

func (a *app) newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ad, release, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			defer release()

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			return server.New(cfg, ad, logger.FromContext(ctx)).Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
