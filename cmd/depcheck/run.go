package main

import (
	"fmt"

	"github.com/flanksource/clicky"
	"github.com/flanksource/depcheck/config"
	"github.com/flanksource/depcheck/fixtures"
	"github.com/flanksource/depcheck/shutdown"
	"github.com/spf13/cobra"
)

type suiteFlags struct {
	tool       string
	pattern    string
	toolArgs   []string
	resultsDir string
	timeout    string
	filter     []string
	report     string
}

var runFlags suiteFlags

var runCmd = &cobra.Command{
	Use:   "run [root]",
	Short: "Run every fixture under root against the tool under test",
	Long: `Runs <tool> --json <results> -- <command> for every fixture, in the fixture's directory,
and verifies the reported inputs and outputs. Exits with status 1 if any fixture fails.`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runSuite,
	SilenceUsage: true,
}

// loadConfig layers flags and the positional root over the .depcheck.yaml files.
func loadConfig(cmd *cobra.Command, args []string, flags suiteFlags) (config.Config, error) {
	wd, err := getWorkingDir()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return cfg, err
	}

	override := config.Config{
		Pattern:  flags.pattern,
		ToolArgs: flags.toolArgs,
		Timeout:  flags.timeout,
		Filter:   flags.filter,
	}
	if cmd.Flags().Changed("tool") {
		override.Tool = flags.tool
		if fixtures.IsPath(flags.tool) {
			override.Tool = resolvePath(wd, flags.tool)
		}
	}
	if cmd.Flags().Changed("results-dir") {
		override.ResultsDir = resolvePath(wd, flags.resultsDir)
	}
	if cmd.Flags().Changed("report") {
		override.Report = resolvePath(wd, flags.report)
	}
	if len(args) > 0 {
		override.Root = resolvePath(wd, args[0])
	} else if cfg.Root == "." {
		cfg.Root = wd
	}
	return config.Merge(cfg, override), nil
}

func runSuite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args, runFlags)
	if err != nil {
		return err
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}

	ctx, stop := shutdown.NotifyContext(cmd.Context())
	defer stop()

	runner, err := fixtures.NewRunner(fixtures.RunnerOptions{
		Root:       cfg.Root,
		Pattern:    cfg.Pattern,
		Filter:     cfg.Filter,
		Tool:       cfg.Tool,
		ToolArgs:   cfg.ToolArgs,
		ResultsDir: cfg.ResultsDir,
		Timeout:    timeout,
		ReportPath: cfg.Report,
		NoColor:    clicky.Flags.NoColor,
	})
	if err != nil {
		return fmt.Errorf("failed to create fixture runner: %w", err)
	}

	suite, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if !suite.Stats.IsOK() {
		exitCode = 1
	}
	return nil
}

func bindSuiteFlags(cmd *cobra.Command, flags *suiteFlags) {
	cmd.Flags().StringVar(&flags.pattern, "pattern", "", "Fixture file name pattern (default \"test.*.json\")")
	cmd.Flags().StringSliceVar(&flags.filter, "filter", nil, "Only run fixtures whose name matches, prefix with ! to exclude")
}

func init() {
	bindSuiteFlags(runCmd, &runFlags)
	runCmd.Flags().StringVar(&runFlags.tool, "tool", "", "Path to the dependency-tracking tool under test")
	runCmd.Flags().StringSliceVar(&runFlags.toolArgs, "tool-args", nil, "Arguments between the tool and the fixture command (default \"--json,{{.results}},--\")")
	runCmd.Flags().StringVar(&runFlags.resultsDir, "results-dir", "", "Directory for per-fixture results artifacts (default: system temp dir)")
	runCmd.Flags().StringVar(&runFlags.timeout, "timeout", "", "Kill any subprocess running longer than this, e.g. 2m")
	runCmd.Flags().StringVar(&runFlags.report, "report", "", "Write the suite result to this .json or .yaml file")
	rootCmd.AddCommand(runCmd)
}
