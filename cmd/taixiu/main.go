package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/sawpanic/taixiu/internal/config"
)

const appName = "taixiu"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "v0.4.0"

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Tài/Xỉu next-round predictor",
		Version: version,
		Long: `taixiu learns a running Tài/Xỉu session and predicts the next round by
fusing an adaptive model ensemble, a heuristic rule cascade and a table of
known total patterns.

Run 'taixiu serve' for the HTTP API and live feed, or 'taixiu replay' to
measure the predictor against a recorded history.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.logLevel)
		},
	}
	bindRootFlags(rootCmd.PersistentFlags(), opts)

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newPredictCmd(opts))
	rootCmd.AddCommand(newReplayCmd(opts))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	})
	return rootCmd
}

func bindRootFlags(fs *pflag.FlagSet, opts *rootOptions) {
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config (defaults apply when empty)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level override (debug|info|warn|error)")
}

// setupLogging writes human-readable logs to a terminal and JSON otherwise.
func setupLogging(level string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if level == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// loadConfig reads the config and applies its log level unless --log-level was given.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel == "" {
		zerolog.SetGlobalLevel(cfg.Level())
	}
	return cfg, nil
}
