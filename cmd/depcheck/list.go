package main

import (
	"fmt"

	"github.com/flanksource/clicky"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/depcheck/fixtures"
	"github.com/spf13/cobra"
)

var listFlags suiteFlags

var listCmd = &cobra.Command{
	Use:          "list [root]",
	Short:        "List and validate the fixtures under root without running them",
	Args:         cobra.MaximumNArgs(1),
	RunE:         listFixtures,
	SilenceUsage: true,
}

func listFixtures(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args, listFlags)
	if err != nil {
		return err
	}

	paths, err := fixtures.Discover(cfg.Root, cfg.Pattern)
	if err != nil {
		return err
	}

	total, invalid := 0, 0
	for path := range paths {
		name := fixtures.NameOf(cfg.Root, path)
		if !fixtures.MatchesFilter(name, cfg.Filter) {
			continue
		}
		total++

		fixture, err := fixtures.LoadFixture(path)
		if err != nil {
			invalid++
			text := clicky.Text(name, "italic text-orange-500").Space().Append(err.Error(), "text-red-600")
			fmt.Println(fixtures.Render(text, clicky.Flags.NoColor))
			continue
		}
		fixture.Name = name
		fmt.Println(fixtures.Render(fixture.Pretty().Space().Append(fixture.Command.String(), "text-cyan-600"), clicky.Flags.NoColor))
	}

	logger.Infof("%d fixtures, %d invalid", total, invalid)
	if invalid > 0 {
		exitCode = 1
	}
	return nil
}

func init() {
	bindSuiteFlags(listCmd, &listFlags)
	rootCmd.AddCommand(listCmd)
}
