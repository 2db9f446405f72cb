//go:build !windows

package stub

import (
	"fmt"
	"os"
	"os/exec"
)

// configureCommand sets the child's arguments: the template split into
// words with the placeholder expanded, then the stub's own arguments.
func configureCommand(cmd *exec.Cmd, template, dir string, args []string) error {
	argv, err := splitCommandLine(template)
	if err != nil {
		return err
	}
	for i, a := range argv {
		argv[i] = expandArg(a, dir, os.PathSeparator)
	}
	if len(argv) == 0 {
		argv = []string{cmd.Path}
	}
	cmd.Args = append(argv, args...)
	return nil
}

// interrupt asks the child to stop.
func interrupt(p *os.Process) error {
	if err := p.Signal(os.Interrupt); err != nil {
		return fmt.Errorf("interrupt child: %w", err)
	}
	return nil
}
