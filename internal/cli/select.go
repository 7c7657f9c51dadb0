package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSelectCmd(opts *options) *cobra.Command {
	var idsOnly bool

	cmd := &cobra.Command{
		Use:   "select N",
		Short: "Print the first N artworks of the collection",
		Long: `Runs the "select first N rows" action of the grid without the UI:
remote pages are fetched from page 1 until N artworks are collected or the
collection ends, and the selected artworks are printed as JSON.`,
		Example: `  # The first 20 artworks
  artic-grid select 20

  # Only their ids
  artic-grid select 20 --ids`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("N must be a positive integer (got %q)", args[0])
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

			a.grid.OpenOverlay()
			a.grid.SetBulkInput(args[0])
			if err := a.grid.SubmitBulk(ctx); err != nil {
				return err
			}

			selected := a.grid.Snapshot().Selected
			if idsOnly {
				for _, r := range selected {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), r.ID); err != nil {
						return err
					}
				}
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), selected)
		},
	}

	cmd.Flags().BoolVar(&idsOnly, "ids", false, "Print one artwork id per line")

	return cmd
}
