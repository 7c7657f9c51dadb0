// Package cli wires configuration, the API client and the grid component
// into the artic-grid commands.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// options holds the persistent flags. Flags override the config file and
// the environment only when set explicitly.
type options struct {
	configPath   string
	userAgent    string
	baseURL      string
	rows         int
	continuation string
	redisAddr    string
	logLevel     string
	logFile      string
	metricsAddr  string
}

// NewRootCmd returns the artic-grid command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "artic-grid",
		Short: "Browse Art Institute of Chicago artworks in a paginated grid",
		Long: `artic-grid shows the artworks collection of the Art Institute of Chicago
as a lazily paginated table in the terminal.

Pages are fetched on demand. Press "b" to select the first N artworks of the
collection; the grid crawls as many remote pages as that takes.`,
		Example: `  # Browse with the default settings
  artic-grid --user-agent "my-app/1.0 (me@example.com)"

  # Continue lazy loads per display page instead of per received rows
  artic-grid --continuation display-page

  # Share a page cache and request budget through Redis
  artic-grid --redis-addr localhost:6379`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&opts.userAgent, "user-agent", "", "User-Agent sent to the API, e.g. \"app/1.0 (you@example.com)\"")
	flags.StringVar(&opts.baseURL, "base-url", "", "API base URL")
	flags.IntVar(&opts.rows, "rows", 0, "Rows per display page")
	flags.StringVar(&opts.continuation, "continuation", "", "Lazy load continuation policy: received, or display-page when --rows equals the API page size")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for the page cache and shared rate limit")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "Log file used by the interactive grid")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")

	cmd.AddCommand(newPageCmd(opts))
	cmd.AddCommand(newSelectCmd(opts))

	return cmd
}
