package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the moera-api-gen CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moera-api-gen <node_api.yml> [output directory]",
		Short: "Generate Go bindings for the Moera node API",
		Long: "moera-api-gen reads the node API description and emits typed " +
			"definitions, response schemas, and client call stubs.",
		Args:          cobra.MaximumNArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd, args)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
	cmd.Flags().String("package", "", "Package name for the generated sources (defaults to node)")
	cmd.Flags().Bool("dry-run", false, "Preview planned outputs without writing files")

	o := newOpenAPICmd()
	o.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})
	cmd.AddCommand(o)

	return cmd
}
