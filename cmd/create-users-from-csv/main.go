package main

import (
	"os"

	"github.com/platinummonkey/harbor-usertools/pkg/cli"
)

func main() {
	os.Exit(cli.Main("create-users", os.Args[1:]))
}
