package stub

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/meigma/stubpack/internal/directive"
	"github.com/meigma/stubpack/internal/packtype"
)

// launchSpec is a recorded CreateProcess directive.
type launchSpec struct {
	image       string
	commandLine string
}

// resolveImage returns the path of the program to start. An image under
// the placeholder is resolved inside the extraction directory and cannot
// leave it; other images are used as given.
func resolveImage(image, dir string) (string, error) {
	rest, ok := strings.CutPrefix(image, directive.InstallDirPlaceholder)
	if !ok {
		return strings.ReplaceAll(image, directive.InstallDirPlaceholder, dir), nil
	}
	rel := strings.TrimLeft(strings.ReplaceAll(rest, string(directive.Separator), "/"), "/")
	path, err := securejoin.SecureJoin(dir, filepath.FromSlash(rel))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", rel, err)
	}
	return path, nil
}

// start launches the recorded program and waits for it.
func (r *runner) start(ctx context.Context, args []string) (int, error) {
	image, err := resolveImage(r.launch.image, r.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", packtype.ErrChildLaunch, err)
	}
	if strings.HasPrefix(image, r.dir) && runtime.GOOS != "windows" {
		if err := makeExecutable(image); err != nil {
			return 0, fmt.Errorf("%w: %w", packtype.ErrChildLaunch, err)
		}
	}

	cmd := exec.CommandContext(ctx, image)
	if err := configureCommand(cmd, r.launch.commandLine, r.dir, args); err != nil {
		return 0, fmt.Errorf("%w: %w", packtype.ErrChildLaunch, err)
	}
	cmd.Env = r.env
	cmd.Stdin = r.cfg.stdin
	cmd.Stdout = r.cfg.stdout
	cmd.Stderr = r.cfg.stderr
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = r.cfg.waitDelay

	r.reportProgress(packtype.StageLaunching, image)
	r.log().Debug("launching", "image", image, "args", cmd.Args)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", packtype.ErrChildLaunch, image, err)
	}

	err = cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = signalExitCode(exitErr.ProcessState)
			r.log().Warn("child terminated by signal", "state", exitErr.String(), "code", code)
		}
		r.log().Debug("child exited", "code", code)
		return code, nil
	}
	if err != nil {
		return 0, fmt.Errorf("wait for child: %w", err)
	}
	r.log().Debug("child exited", "code", 0)
	return 0, nil
}

// makeExecutable adds execute permission to an extracted program.
func makeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm()|0o111)
}
