package cli

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/platinummonkey/harbor-usertools/pkg/fixtures"
)

func newGenerateCSVCommand() *Command {
	cmd := &Command{
		Name:        "generate-csv",
		Description: "Write a sample CSV for create-users",
		Flags:       flag.NewFlagSet("generate-csv", flag.ContinueOnError),
		Run:         runGenerateCSV,
	}

	cmd.Flags.String("out", fixtures.DefaultOutput, "Output CSV file")
	cmd.Flags.Int("rows", -1, "Number of rows to generate, repeating the sample set (default: the set once)")

	return cmd
}

func newGenerateCSV3ColCommand() *Command {
	cmd := &Command{
		Name:        "generate-csv-3col",
		Description: "Write a sample Username,Password,Role CSV",
		Flags:       flag.NewFlagSet("generate-csv-3col", flag.ContinueOnError),
		Run:         runGenerateCSV3Col,
	}

	cmd.Flags.String("out", fixtures.DefaultOutputThreeCols, "Output CSV file")
	cmd.Flags.Int("rows", -1, "Number of rows to generate, repeating the sample set (default: the set once)")

	return cmd
}

func runGenerateCSV(args []string) error {
	return generate(newGenerateCSVCommand(), fixtures.Users(), args)
}

func runGenerateCSV3Col(args []string) error {
	return generate(newGenerateCSV3ColCommand(), fixtures.ThreeColumnUsers(), args)
}

func generate(cmd *Command, set fixtures.Set, args []string) error {
	if ok, err := parseFlags(cmd.Flags, args); !ok {
		return err
	}

	out := cmd.Flags.Lookup("out").Value.String()
	rows, err := strconv.Atoi(cmd.Flags.Lookup("rows").Value.String())
	if err != nil {
		return usageErrorf("invalid --rows: %v", err)
	}
	if out == "" {
		return usageErrorf("--out must not be empty")
	}

	n, err := fixtures.WriteFile(out, set, rows)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote sample CSV with %d users to %s\n", n, out)
	return nil
}
