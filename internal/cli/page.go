package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/Sternrassler/artic-grid/internal/tui"
	"github.com/Sternrassler/artic-grid/pkg/artwork"
	"github.com/Sternrassler/artic-grid/pkg/grid"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newPageCmd(opts *options) *cobra.Command {
	var (
		first  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Print one display page of artworks",
		Long: `Loads the display page starting at row --first the same way the
interactive grid does and prints it.`,
		Example: `  # Rows 0-11
  artic-grid page

  # Rows 24-35 as JSON
  artic-grid page --first 24 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if first < 0 {
				return fmt.Errorf("--first must be >= 0 (got %d)", first)
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if first == 0 {
				if err := a.grid.Mount(ctx); err != nil {
					return err
				}
			} else {
				a.grid.OnPageChange(ctx, first, cfg.Grid.RowsPerPage)
			}

			view := a.grid.Snapshot()
			if view.Err != nil {
				return view.Err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view.Records)
			}
			return writeTable(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().IntVar(&first, "first", 0, "Offset of the first row")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")

	return cmd
}

func writeJSON(w io.Writer, records []artwork.Record) error {
	if records == nil {
		records = []artwork.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeTable(w io.Writer, view grid.View) error {
	headers := []string{"ID"}
	for _, col := range tui.Columns()[1:] {
		headers = append(headers, col.Title)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for i, row := range tui.Rows(view.Records, nil) {
		t.Row(append([]string{strconv.Itoa(view.Records[i].ID)}, row[1:]...)...)
	}

	_, err := fmt.Fprintf(w, "%s\n%s · %d artworks\n", t.Render(), tui.PageLabel(view), view.Total)
	return err
}
