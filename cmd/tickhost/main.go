// Command tickhost runs firmware scenarios in the simulator and monitors
// boards over a serial link.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	verbose bool

	rootCmd = &cobra.Command{
		Use:           "tickhost",
		Short:         "Host tools for the tickcore firmware",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log protocol traffic and firmware debug output")
	rootCmd.AddCommand(simulateCmd, monitorCmd)
}

// newLogger writes human readable logs to stderr
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log := newLogger()
		log.Error().Err(err).Msg("tickhost")
		os.Exit(1)
	}
}
