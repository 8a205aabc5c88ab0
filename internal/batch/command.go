package batch

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// CommandArgs are the arguments shared by the batch commands:
// <command> <file.csv> [--execute].
type CommandArgs struct {
	Path    string
	Execute bool
}

// ParseArgs parses args for the named command. It returns pflag.ErrHelp when
// help was requested; usage has then already been written to out.
func ParseArgs(name string, args []string, out io.Writer) (CommandArgs, error) {
	var parsed CommandArgs

	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.BoolVar(&parsed.Execute, "execute", false, "commit the changes (default is a dry run that rolls back)")
	flagSet.Usage = func() {
		fmt.Fprintf(out, "Usage: %s <file.csv> [--execute]\n\n", name)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return CommandArgs{}, err
	}

	switch flagSet.NArg() {
	case 0:
		flagSet.Usage()
		return CommandArgs{}, errors.New("csv file argument is required")
	case 1:
		parsed.Path = flagSet.Arg(0)
	default:
		return CommandArgs{}, fmt.Errorf("unexpected argument: %s", flagSet.Arg(1))
	}
	return parsed, nil
}
