package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/contactimport/internal/config"
	"github.com/JonMunkholm/contactimport/internal/core"
	"github.com/spf13/cobra"
)

type importOptions struct {
	output  string
	maxSize int64
	errors  int
	timeout time.Duration
}

// Report is the import summary printed by "contactctl import".
type Report struct {
	File          string                 `json:"file" yaml:"file"`
	Size          int64                  `json:"size" yaml:"size"`
	Kind          core.OutcomeKind       `json:"kind" yaml:"kind"`
	SourceFormat  core.SourceFormat      `json:"source_format_used,omitempty" yaml:"source_format_used,omitempty"`
	Summary       string                 `json:"summary" yaml:"summary"`
	Reasons       []string               `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	DataRows      int                    `json:"data_rows" yaml:"data_rows"`
	Records       []core.ValidatedRecord `json:"records,omitempty" yaml:"records,omitempty"`
	Errors        []string               `json:"errors,omitempty" yaml:"errors,omitempty"`
	ErrorsOmitted int                    `json:"errors_omitted,omitempty" yaml:"errors_omitted,omitempty"`
	Warnings      []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func newImportCommand() *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a contact list and print the outcome",
		Example: `  contactctl import customers.xlsx
  contactctl import customers.csv --output yaml --errors 5`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return validateFormat(opts.output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", formatJSON, "output format: json or yaml")
	flags.Int64Var(&opts.maxSize, "max-size", core.DefaultMaxFileSize, "maximum file size in bytes")
	flags.IntVar(&opts.errors, "errors", 20, "number of row errors to print (0 prints all)")
	flags.DurationVar(&opts.timeout, "timeout", time.Minute, "maximum duration of the import")

	return cmd
}

func runImport(cmd *cobra.Command, opts *importOptions, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	req := core.ImportRequest{FileName: filepath.Base(path), Size: info.Size()}
	// Oversized files are reported by the service without being read.
	if info.Size() <= opts.maxSize {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		req.Data = data
	}

	service := core.NewService(config.ImportConfig{
		MaxFileSize:   opts.maxSize,
		MaxConcurrent: 1,
		Timeout:       opts.timeout,
	})

	result, err := service.ImportCustomers(cmd.Context(), req)
	if err != nil {
		return err
	}

	report := newReport(path, result, opts.errors)
	if err := writeOutput(cmd.OutOrStdout(), opts.output, report); err != nil {
		return err
	}

	if result.Outcome.IsFailure() {
		return errImportFailed
	}
	return nil
}

func newReport(path string, result *core.ImportResult, maxErrors int) Report {
	outcome := result.Outcome
	errs := outcome.ErrorPreview(maxErrors)

	return Report{
		File:          path,
		Size:          result.Size,
		Kind:          outcome.Kind,
		SourceFormat:  outcome.SourceFormat,
		Summary:       outcome.Summary(),
		Reasons:       outcome.Reasons,
		DataRows:      result.DataRows,
		Records:       outcome.Records,
		Errors:        errs,
		ErrorsOmitted: len(outcome.Errors) - len(errs),
		Warnings:      outcome.Warnings,
	}
}
