package cli

import (
	"context"
	"errors"

	"github.com/Sternrassler/artic-grid/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// runBrowse starts the interactive grid.
func runBrowse(cmd *cobra.Command, opts *options) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, true, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	err = tui.Run(ctx, a.grid, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
	if errors.Is(err, tea.ErrProgramKilled) && errors.Is(ctx.Err(), context.Canceled) {
		// Interrupted by a signal.
		return nil
	}
	return err
}
