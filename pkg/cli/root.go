package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/platinummonkey/harbor-usertools/pkg/password"
)

// Output streams and the password prompter, replaced in tests
var (
	stdout      io.Writer = os.Stdout
	stderr      io.Writer = os.Stderr
	newPrompter           = func() password.Prompter { return password.NewTerminalPrompter() }
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "harbor-admin",
		Description: "Harbor user administration tools",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("harbor-admin", flag.ContinueOnError),
	}

	// Add subcommands
	root.Subcommands["change-password"] = newChangePasswordCommand()
	root.Subcommands["create-users"] = newCreateUsersCommand()
	root.Subcommands["generate-csv"] = newGenerateCSVCommand()
	root.Subcommands["generate-csv-3col"] = newGenerateCSV3ColCommand()

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the subcommand named by args[0]
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	switch strings.ToLower(args[0]) {
	case "-h", "--help", "help":
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	_ = c.usage()
	return usageErrorf("unknown command: %s", args[0])
}

// Main runs the subcommand named name as a standalone program and returns
// the process exit code. Errors are printed to stderr.
func Main(name string, args []string) int {
	cmd, ok := NewRootCommand().Subcommands[name]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command: %s\n", name)
		return 2
	}
	return Report(cmd.Run(args))
}

// Report prints err, if any, and returns the matching exit code
func Report(err error) int {
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

// usage prints the command usage
func (c *Command) usage() error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(stdout, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(stdout, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(stdout, "  %-20s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// parseFlags parses args into fs. -h is not an error; any other parse
// failure is a usage error.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, &ExitError{Code: ExitUsage, Err: err}
	}
	if fs.NArg() > 0 {
		return false, usageErrorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return true, nil
}
