// Package cli implements the contactctl command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/contactimport/internal/logging"
	"github.com/spf13/cobra"
)

// errImportFailed signals a failure outcome after its report was printed.
var errImportFailed = errors.New("import failed")

type rootOptions struct {
	logLevel  string
	logFormat string
}

// NewRootCommand builds the contactctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "contactctl",
		Short:         "Validate and import customer contact lists",
		Long:          "contactctl reads an .xlsx workbook or a comma-separated text file of customer contacts\nand reports the accepted records and every rejected row.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	cmd.AddCommand(newImportCommand())
	cmd.AddCommand(newSchemaCommand())

	return cmd
}

// Execute runs contactctl with os.Args and returns the process exit code:
// 0 on success or partial success, 1 when the import failed, 2 on usage or
// I/O errors.
func Execute(ctx context.Context) int {
	return run(ctx, NewRootCommand(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errImportFailed):
		return 1
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}
}
