package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"livecatalog/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Maintain the local store",
	}
	dbCmd.AddCommand(newDBInitCommand(ctx))
	dbCmd.AddCommand(newDBStatsCommand(ctx))
	dbCmd.AddCommand(newDBExportCommand(ctx))
	dbCmd.AddCommand(newDBImportCommand(ctx))
	dbCmd.AddCommand(newDBClearCommand(ctx))
	dbCmd.AddCommand(newDBReconcileCommand(ctx))
	return dbCmd
}

func newDBInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Store ready at %s\n", st.Path())
				return nil
			})
		},
	}
}

type collectionCount struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
}

func sortedCounts(counts map[store.Collection]int) []collectionCount {
	out := make([]collectionCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, collectionCount{Collection: string(c), Records: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out
}

func countsTable(counts []collectionCount) string {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Collection, strconv.Itoa(c.Records)})
	}
	return renderTable([]string{"Collection", "Records"}, rows, []columnAlignment{alignLeft, alignRight})
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts per collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				counts := sortedCounts(stats)
				return ctx.emit(cmd, counts, func() string { return countsTable(counts) })
			})
		},
	}
}

func newDBExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every collection as one JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				var w io.Writer = cmd.OutOrStdout()
				if outPath != "" && outPath != "-" {
					f, err := os.Create(outPath)
					if err != nil {
						return fmt.Errorf("create export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				counts, err := st.Export(cmd.Context(), w)
				if err != nil {
					return err
				}
				if outPath != "" && outPath != "-" {
					total := 0
					for _, n := range counts {
						total += n
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", total, outPath)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "file", "f", "", "Write to this file instead of stdout")
	return cmd
}

func newDBImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace collections with the contents of an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				imported, err := st.Import(cmd.Context(), f)
				counts := sortedCounts(imported)
				if err != nil {
					if len(counts) > 0 {
						fmt.Fprintln(cmd.ErrOrStderr(), "Collections replaced before the failure:")
						fmt.Fprintln(cmd.ErrOrStderr(), countsTable(counts))
					}
					return err
				}
				return ctx.emit(cmd, counts, func() string { return countsTable(counts) })
			})
		},
	}
}

func newDBClearCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [collection...]",
		Short: "Delete every record of the named collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			var targets []store.Collection
			switch {
			case all && len(args) > 0:
				return errors.New("pass collection names or --all, not both")
			case all:
				targets = store.Collections()
			case len(args) == 0:
				return errors.New("name at least one collection or pass --all")
			default:
				for _, name := range args {
					c, err := store.ParseCollection(name)
					if err != nil {
						return err
					}
					targets = append(targets, c)
				}
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				for _, c := range targets {
					if err := st.Clear(cmd.Context(), c); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", c)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear every collection")
	return cmd
}

func newDBReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair frames whose product link was lost",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				repaired, err := st.ReconcileProductLinks(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Repaired %d frame links\n", repaired)
				return nil
			})
		},
	}
}
