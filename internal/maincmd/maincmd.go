package maincmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mna/mainer"

	"github.com/shlocko/fvm/lang/asm"
	"github.com/shlocko/fvm/lang/vm"
)

const binName = "fvm"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] run <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] run <path>
       %[1]s -h|--help
       %[1]s -v|--version

Assembler and virtual machine for the fvm stack-based bytecode format.

The <command> is:
       run <path>                Assemble and execute <path>, printing every
                                 Print'ed value to stdout and a status
                                 report to stderr.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --json                    Force the JSON tuple-form assembler
                                 regardless of <path>'s extension.
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	JSON    bool `flag:"json"`

	args  []string
	flags map[string]bool
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}
	if c.args[0] != "run" {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}
	if len(c.args[1:]) != 1 {
		return errors.New("run: exactly one <path> must be provided")
	}
	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio, c.args[1]); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) run(_ context.Context, stdio mainer.Stdio, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return printError(stdio, fmt.Errorf("loading config: %w", err))
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, fmt.Errorf("reading %s: %w", path, err))
	}

	useJSON := c.JSON || strings.EqualFold(filepath.Ext(path), ".json")

	assemble := asm.Asm
	if useJSON {
		assemble = asm.AsmJSON
	}
	prog, err := assemble(src)
	if err != nil {
		return printError(stdio, fmt.Errorf("assembling %s: %w", path, err))
	}

	var out bytes.Buffer
	m := vm.New(prog, vm.Options{
		Stdout:       &out,
		MaxSteps:     cfg.MaxSteps,
		MaxCallDepth: cfg.MaxCallDepth,
	})

	start := time.Now()
	runErr := m.Run()
	elapsed := time.Since(start)

	stdio.Stdout.Write(out.Bytes())

	if runErr != nil {
		fmt.Fprintf(stdio.Stderr, "vm returned error: %s\n", runErr)
		fmt.Fprintf(stdio.Stderr, "runtime: %s\n", elapsed)
		return runErr
	}

	fmt.Fprintln(stdio.Stderr, "vm returned ok.")
	fmt.Fprintf(stdio.Stderr, "runtime: %s\n", elapsed)
	return nil
}
