//go:build windows

package stub

import (
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/meigma/stubpack/internal/directive"
)

// configureCommand passes the expanded template to CreateProcess verbatim,
// followed by the stub's own arguments quoted for the C runtime parser.
func configureCommand(cmd *exec.Cmd, template, dir string, args []string) error {
	var line strings.Builder
	line.WriteString(strings.ReplaceAll(template, directive.InstallDirPlaceholder, dir))
	if line.Len() == 0 {
		line.WriteString(windows.EscapeArg(cmd.Path))
	}
	for _, a := range args {
		line.WriteByte(' ')
		line.WriteString(windows.EscapeArg(a))
	}
	cmd.Args = append([]string{cmd.Path}, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{CmdLine: line.String()}
	return nil
}

// interrupt stops the child. Windows has no interrupt signal for other
// processes, so the child is killed.
func interrupt(p *os.Process) error {
	return p.Kill()
}
