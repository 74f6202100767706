package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MoeraOrg/moera-tools/internal/apispec"
	"github.com/MoeraOrg/moera-tools/internal/gen"
)

// GenerateConfig captures all inputs that influence generation after merging
// defaults and CLI overrides.
type GenerateConfig struct {
	Input       string
	Out         string
	PackageName string
	DryRun      bool
	Verbose     bool
}

var generateRunner = runGenerate

func resolveGenerateConfig(cmd *cobra.Command, args []string) (*GenerateConfig, error) {
	cfg := GenerateConfig{Out: "."}

	if len(args) == 0 {
		return nil, newUsageError(fmt.Sprintf("the API description file is required\n\n%s", cmd.UsageString()))
	}
	cfg.Input = strings.TrimSpace(args[0])
	if cfg.Input == "" {
		return nil, newUsageError(fmt.Sprintf("the API description file is required\n\n%s", cmd.UsageString()))
	}
	if len(args) > 1 && strings.TrimSpace(args[1]) != "" {
		cfg.Out = strings.TrimSpace(args[1])
	}

	pkg, err := cmd.Flags().GetString("package")
	if err != nil {
		return nil, err
	}
	cfg.PackageName = strings.TrimSpace(pkg)

	if cfg.DryRun, err = cmd.Flags().GetBool("dry-run"); err != nil {
		return nil, err
	}
	if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	spec, err := apispec.Load(cfg.Input)
	if err != nil {
		return mapSpecError(err)
	}

	res, err := gen.Emit(spec, gen.Options{
		OutDir:      cfg.Out,
		PackageName: cfg.PackageName,
		DryRun:      cfg.DryRun,
		Verbose:     cfg.Verbose,
	})
	if err != nil {
		return mapSpecError(err)
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	if cfg.DryRun {
		printPlan(absOut, res.Planned)
	} else if cfg.Verbose {
		fmt.Fprintf(os.Stdout, "Wrote %d files to %s\n", len(res.Planned), absOut)
	}
	return nil
}

// mapSpecError turns structured description errors into friendly usage
// messages; anything else passes through unchanged.
func mapSpecError(err error) error {
	var se *apispec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("%s: %s", se.Code, se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	return newUsageError(msg)
}

func printPlan(outDir string, planned []gen.PlannedFile) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, len(planned))
	for _, p := range planned {
		fmt.Fprintf(os.Stdout, "- %s\n", p.RelPath)
	}
}
