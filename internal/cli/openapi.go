package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MoeraOrg/moera-tools/internal/apispec"
	"github.com/MoeraOrg/moera-tools/internal/openapiexport"
)

func newOpenAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openapi <node_api.yml> [output file]",
		Short: "Export the API description as an OpenAPI 3 document",
		Long: "Export the node API description as an OpenAPI 3 document, " +
			"printed to stdout unless an output file is given.",
		Args:          cobra.MaximumNArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
				return newUsageError(fmt.Sprintf("the API description file is required\n\n%s", cmd.UsageString()))
			}

			title, err := cmd.Flags().GetString("title")
			if err != nil {
				return err
			}
			version, err := cmd.Flags().GetString("api-version")
			if err != nil {
				return err
			}

			spec, err := apispec.Load(strings.TrimSpace(args[0]))
			if err != nil {
				return mapSpecError(err)
			}
			doc, err := openapiexport.Export(cmd.Context(), spec, title, version)
			if err != nil {
				return mapSpecError(err)
			}

			if len(args) > 1 && strings.TrimSpace(args[1]) != "" {
				if err := os.WriteFile(strings.TrimSpace(args[1]), doc, 0o644); err != nil {
					return fmt.Errorf("write OpenAPI document: %w", err)
				}
				return nil
			}
			_, err = cmd.OutOrStdout().Write(doc)
			return err
		},
	}

	cmd.Flags().String("title", "Moera Node API", "Title for the exported document")
	cmd.Flags().String("api-version", "0.0.0", "API version for the exported document")

	return cmd
}
