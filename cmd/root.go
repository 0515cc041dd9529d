// Package cmd implements the specado CLI: translate, validate, and serve
// subcommands sharing the same api package the HTTP server calls through.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"specado/internal/apperr"
	"specado/internal/logging"
)

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "specado",
		Short:         "Spec-driven LLM request translation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupDefault()
		},
	}

	root.AddCommand(newTranslateCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newServeCmd())

	return root
}

// printCLIError renders err the way the teacher's server dispatches an
// apperr.Error: kind, message, and path when present.
func printCLIError(err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if appErr.Path != "" {
		fmt.Fprintf(os.Stderr, "error: %s: %s (path %s)\n", appErr.Kind, appErr.Message, appErr.Path)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %s: %s\n", appErr.Kind, appErr.Message)
}
