package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
)

// taxonomyDump is the YAML shape of `callqa taxonomy`. Its categories, keywords and
// profiles sections are a valid taxonomy_file.
type taxonomyDump struct {
	taxonomy.Document `yaml:",inline"`
	Thresholds        taxonomy.Thresholds `yaml:"thresholds"`
}

func newTaxonomyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Print the effective scoring taxonomy and thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			tax, err := cfg.LoadTaxonomy(ctx.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			dump := taxonomyDump{Document: tax.Document(), Thresholds: cfg.Thresholds()}
			if asJSON {
				return writeJSON(cmd, struct {
					taxonomy.Document
					Thresholds taxonomy.Thresholds `json:"thresholds"`
				}{dump.Document, dump.Thresholds})
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(dump); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of YAML")
	return cmd
}
