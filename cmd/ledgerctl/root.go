package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/obras-ledger/internal/logging"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type options struct {
	format   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Contract ledger, weekly expense and overhead allocation calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatTable && opts.format != formatJSON {
				return fmt.Errorf("unsupported format %q (want table or json)", opts.format)
			}
			logger := logging.New(cmd.ErrOrStderr(), "ledgerctl", opts.logLevel, "development")
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.format, "format", "f", formatTable, "output format: table or json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")

	root.AddCommand(replayCmd(opts))
	root.AddCommand(weeklyCmd(opts))
	root.AddCommand(allocateCmd(opts))
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func logger(cmd *cobra.Command) *slog.Logger {
	return logging.FromContext(cmd.Context())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
