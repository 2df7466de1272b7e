// Package cli implements the chronoctl operator commands.
package cli

import (
	"errors"
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Import   *ImportCommand
	Query    *QueryCommand
	Tiers    *TiersCommand
	Generate *GenerateCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser() (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "chronoctl"
	parser.LongDescription = "Import, inspect and query chronoverse timeline datasets."

	cmds := &commands{
		Import:   &ImportCommand{globals: &globals},
		Query:    &QueryCommand{globals: &globals},
		Tiers:    &TiersCommand{globals: &globals},
		Generate: &GenerateCommand{globals: &globals},
	}

	mustAdd(parser, "import", "Load a dataset into SQLite", "Load a CSV or YAML dataset into a SQLite database and print the import report.", cmds.Import)
	mustAdd(parser, "query", "Run a timeline query", "Resolve the tier, cluster and lay out one window and print a summary or the JSON timeline.", cmds.Query)
	mustAdd(parser, "tiers", "Print the zoom tier table", "Print the zoom tier table with range thresholds, bucket sizes and category filters.", cmds.Tiers)
	mustAdd(parser, "generate", "Write a synthetic dataset", "Write a reproducible synthetic CSV dataset.", cmds.Generate)

	return parser, &globals, cmds
}

func mustAdd(p *goflags.Parser, name, short, long string, data any) {
	if _, err := p.AddCommand(name, short, long, data); err != nil {
		panic(err)
	}
}

// Run is the main entry point for chronoctl using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("chronoctl %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser()

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	var flagsErr *goflags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
		return nil
	}
	return err
}
