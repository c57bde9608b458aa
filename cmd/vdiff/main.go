package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	verrors "github.com/vango-dev/vdiff/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		verrors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vdiff",
		Short: "Diff document trees into binary patch batches",
		Long: `vdiff computes the minimal patches that turn one document tree into
another and encodes them as compact binary batches for a host to apply.

Trees are JSON documents, either a bare node or {"root": node, "head": [...]}.

  • diff, encode and decode work on files
  • apply checks a diff against the reference host
  • serve streams batches to hosts over WebSocket`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		diffCmd(),
		encodeCmd(),
		decodeCmd(),
		applyCmd(),
		renderCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
