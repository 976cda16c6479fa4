package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"pagebin/app/internal/domain/pages"
)

const tableDateLayout = "2006-01-02 15:04"

func writeJSON(out io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encoding JSON output")
	}
	data = append(data, '\n')
	if _, err := out.Write(data); err != nil {
		return eris.Wrap(err, "writing JSON output")
	}
	return nil
}

func writePageTable(out io.Writer, list []pages.Page) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "No pages.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tVIEWS\tCREATED")
	for _, page := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", page.Slug, page.Name, page.Views, page.CreatedAt.Local().Format(tableDateLayout))
	}
	fmt.Fprintf(w, "\n%d pages\n", len(list))
	return w.Flush()
}

func writeStats(out io.Writer, stats *pages.Stats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total pages:\t%d\n", stats.TotalPages)
	fmt.Fprintf(w, "Total views:\t%d\n", stats.TotalViews)
	fmt.Fprintf(w, "Average views:\t%.2f\n", stats.AverageViews)
	fmt.Fprintf(w, "Created this week:\t%d\n", stats.RecentPages)
	fmt.Fprintf(w, "Views this week:\t%d\n", stats.RecentViews)

	if len(stats.TopPages) > 0 {
		fmt.Fprintln(w, "\nTop pages:")
		for i, page := range stats.TopPages {
			fmt.Fprintf(w, "%d.\t%s\t%d views\n", i+1, page.Slug, page.Views)
		}
	}
	return w.Flush()
}
