package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Daethyra/ExecEye/internal/config"
	"github.com/Daethyra/ExecEye/internal/engine"
	"github.com/Daethyra/ExecEye/internal/logging"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// RootOption customizes NewRootCmd, mainly for tests.
type RootOption func(*rootOptions)

type rootOptions struct {
	provider   engine.Provider
	dotEnvPath string
}

// WithProvider replaces the SerpAPI client with p.
func WithProvider(p engine.Provider) RootOption {
	return func(o *rootOptions) {
		o.provider = p
	}
}

// WithDotEnvPath reads path instead of ./.env.
func WithDotEnvPath(path string) RootOption {
	return func(o *rootOptions) {
		o.dotEnvPath = path
	}
}

// session carries state shared by the root command and its subcommands for
// one invocation.
type session struct {
	opts rootOptions
	cfg  *config.Config
}

// loadConfig resolves configuration and applies the persistent flag overrides.
func (s *session) loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{ConfigPath: path, DotEnvPath: s.opts.dotEnvPath})
	if err != nil {
		return err
	}

	// CLI flags override environment variables and config file
	if cmd.Flags().Changed("cache-size") {
		cfg.Cache.Capacity, _ = cmd.Flags().GetInt("cache-size")
	}
	if cmd.Flags().Changed("db") {
		cfg.Storage.Path, _ = cmd.Flags().GetString("db")
	}
	if cmd.Flags().Changed("pool-size") {
		cfg.Storage.PoolSize, _ = cmd.Flags().GetInt("pool-size")
	}

	s.cfg = cfg
	return nil
}

// NewRootCmd creates the root Cobra command for the execeye CLI. Without a
// subcommand it starts the interactive lookup loop.
func NewRootCmd(ver string, opts ...RootOption) *cobra.Command {
	sess := &session{}
	for _, opt := range opts {
		opt(&sess.opts)
	}
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:   "execeye",
		Short: "Find out who leads a company",
		Long: `ExecEye looks up the executives and board of a company through SerpAPI.

Results are cached in memory for the session and appended to a local SQLite
database. Run without a subcommand for the interactive prompt.`,
		Version:       ver,
		Example:       rootCmdExample,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := sess.loadConfig(cmd); err != nil {
				return err
			}
			result := setupLogging(cmd, sess.cfg)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, sess)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file (default $EXECEYE_HOME/config.yaml or ~/.execeye/config.yaml)")
	cmd.PersistentFlags().Int("cache-size", 0, "maximum number of cached lookups (overrides CACHE_SIZE)")
	cmd.PersistentFlags().String("db", "", "SQLite database file for stored results")
	cmd.PersistentFlags().Int("pool-size", 0, "maximum number of pooled database connections")

	cmd.AddCommand(
		newREPLCmd(sess),
		newSearchCmd(sess),
		newHistoryCmd(sess),
		newConfigCmd(sess),
		newVersionCmd(),
	)

	return cmd
}

const rootCmdExample = `  # Start the interactive prompt
  execeye

  # Look up several companies at once
  execeye search "Acme Corp" Globex Initech

  # Recent company news as JSON
  execeye search Acme --intent news --output json

  # Show what has been stored for a company
  execeye history Acme --limit 10

  # Check configuration
  execeye config validate`
