package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/contactimport/internal/schema"
	"github.com/spf13/cobra"
)

// fieldInfo is one row of "contactctl schema" structured output.
type fieldInfo struct {
	Key      string   `json:"key" yaml:"key"`
	Label    string   `json:"label" yaml:"label"`
	Required bool     `json:"required" yaml:"required"`
	Synonyms []string `json:"synonyms" yaml:"synonyms"`
}

func newSchemaCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List the columns a contact file must or may contain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields := schema.CustomerSchema().Fields()

			if output == "" {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tREQUIRED\tACCEPTED HEADERS")
				for _, f := range fields {
					fmt.Fprintf(tw, "%s\t%t\t%s\n", f.Key, f.Required, strings.Join(f.Synonyms, " | "))
				}
				return tw.Flush()
			}

			if err := validateFormat(output); err != nil {
				return err
			}
			infos := make([]fieldInfo, len(fields))
			for i, f := range fields {
				infos[i] = fieldInfo{Key: f.Key, Label: f.Label, Required: f.Required, Synonyms: f.Synonyms}
			}
			return writeOutput(cmd.OutOrStdout(), output, infos)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: json or yaml (default: table)")

	return cmd
}
