package main

import (
	"os"

	"github.com/platinummonkey/harbor-usertools/pkg/cli"
)

func main() {
	// Create root command
	rootCmd := cli.NewRootCommand()

	// Execute command
	os.Exit(cli.Report(rootCmd.Execute()))
}
