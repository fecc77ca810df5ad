package main

import (
	"os"

	"github.com/platinummonkey/harbor-usertools/pkg/cli"
)

func main() {
	os.Exit(cli.Main("generate-csv", os.Args[1:]))
}
