package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rulesmith/rulesmith/pkg/pipeline"
)

// generateCommand creates the generate command, the main entry point of the
// tool.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		source  string
		output  string
		refresh bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "generate <package> <version>",
		Short: "Generate a plugin from an analyzer package",
		Long: `Generate an installable code-quality plugin from a published analyzer package.

The generate command materializes the package (and its dependency closure)
from the feed, scans it for analyzer components, derives one platform rule
per declared diagnostic, and assembles the plugin jar.

A package that exists but carries no analyzers is not an error: the command
reports what it found and exits successfully. Only a package or version
missing from the feed fails the command.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{
				PackageID:   args[0],
				Version:     args[1],
				Source:      source,
				Refresh:     refresh,
				ArtifactDir: output,
				Logger:      loggerFromContext(cmd.Context()),
			}
			if opts.Source == "" && c.Config != nil {
				opts.Source = c.Config.Source
			}
			runner := c.newRunner(cmd.Context(), noCache)
			return runGenerate(cmd.Context(), runner, opts)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "package feed URL (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "artifact output directory (default current directory)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the feed metadata cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runGenerate executes the pipeline and maps the outcome to terminal output
// and exit status.
func runGenerate(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) error {
	prog := newProgress(opts.Logger)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Generating plugin for %s %s...", opts.PackageID, opts.Version))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()

	if !result.Found() {
		printError("Package %s %s not found on the feed", opts.PackageID, opts.Version)
		return fmt.Errorf("package not found: %s %s", opts.PackageID, opts.Version)
	}

	switch result.Outcome {
	case pipeline.OutcomeNoAnalyzers:
		printWarning("Package %s %s contains no analyzer components", opts.PackageID, opts.Version)
		printDetail("Nothing to package; no artifact was produced")
	case pipeline.OutcomeRulesWritten:
		printWarning("Rules were derived but the artifact could not be assembled")
		printKeyValue("rules", fmt.Sprintf("%d", result.RuleCount))
		printFile(result.RulesPath)
	case pipeline.OutcomePackaged:
		printSuccess("Generated plugin for %s %s", opts.PackageID, opts.Version)
		printStats(result.Stats.ComponentCount, result.RuleCount)
		printFile(result.ArtifactPath)
		printNewline()
		printNextStep("Install it", fmt.Sprintf("cp %s $PLATFORM_HOME/extensions/plugins/", result.ArtifactPath))
	}

	prog.done(fmt.Sprintf("Processed %s %s", opts.PackageID, opts.Version))
	return nil
}
