package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/URMC/urHL7/internal/config"
	"github.com/URMC/urHL7/internal/platform/spool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "urhl7",
		Short:        "HL7 v2 message engine, API server and spool tools",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("terminator", "", `Message terminator in spool files, escapes allowed (default MESSAGE_TERMINATOR)`)

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(parseCmd())
	root.AddCommand(getCmd())
	root.AddCommand(rewriteCmd())
	root.AddCommand(compressCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(splitCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(tokenCmd())
	return root
}

// newLogger matches the server's format: JSON with timestamps, or a
// console writer in development.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// spoolReader honours --terminator before MESSAGE_TERMINATOR.
func spoolReader(cmd *cobra.Command, cfg *config.Config) spool.Reader {
	term := cfg.Terminator()
	if t, _ := cmd.Flags().GetString("terminator"); t != "" {
		term = config.UnescapeTerminator(t)
	}
	return spool.Reader{Terminator: term}
}
