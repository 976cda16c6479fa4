package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"pagebin/app/internal/domain/pages"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var (
		query string
		sort  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), appSettings{}, func(ctx context.Context, app *application) error {
				list, err := app.result.PageService.List(ctx, pages.ListOptions{
					Query: query,
					Sort:  pages.ParseSortKey(sort),
				})
				if err != nil {
					return eris.Wrap(err, "listing pages")
				}

				out := cmd.OutOrStdout()
				if root.jsonOutput {
					return writeJSON(out, list)
				}
				return writePageTable(out, list)
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name or slug")
	cmd.Flags().StringVarP(&sort, "sort", "s", string(pages.SortTimeDesc), "ordering: "+sortKeyList())
	return cmd
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate page statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), appSettings{}, func(ctx context.Context, app *application) error {
				stats, err := app.result.PageService.Stats(ctx)
				if err != nil {
					return eris.Wrap(err, "computing stats")
				}

				out := cmd.OutOrStdout()
				if root.jsonOutput {
					return writeJSON(out, stats)
				}
				return writeStats(out, stats)
			})
		},
	}
}

func newExportCmd(_ *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of the page index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), appSettings{}, func(ctx context.Context, app *application) error {
				payload, err := app.result.PageService.Export(ctx)
				if err != nil {
					return eris.Wrap(err, "exporting pages")
				}

				if output == "" || output == "-" {
					return writeJSON(cmd.OutOrStdout(), payload)
				}

				if dir := filepath.Dir(output); dir != "" {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return eris.Wrapf(err, "creating export directory %s", dir)
					}
				}
				file, err := os.Create(output)
				if err != nil {
					return eris.Wrapf(err, "creating export file %s", output)
				}
				if err := writeJSON(file, payload); err != nil {
					file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return eris.Wrapf(err, "closing export file %s", output)
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d pages to %s\n", payload.TotalPages, output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default stdout)")
	return cmd
}

func newDeleteCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>...",
		Short: "Delete pages and their content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appSettings{}, func(ctx context.Context, app *application) error {
				var failed []string
				for _, slug := range args {
					if err := app.result.PageService.Delete(ctx, slug); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s: %v\n", slug, err)
						failed = append(failed, slug)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", slug)
				}
				if len(failed) > 0 {
					return eris.Errorf("could not delete %s", strings.Join(failed, ", "))
				}
				return nil
			})
		},
	}
}

func sortKeyList() string {
	keys := make([]string, 0, len(pages.SortKeys))
	for _, key := range pages.SortKeys {
		keys = append(keys, string(key))
	}
	return strings.Join(keys, ", ")
}
