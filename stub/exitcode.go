package stub

import (
	"errors"
	"os"
	"syscall"

	"github.com/meigma/stubpack/internal/packtype"
)

// Exit codes of the stub for failures before or while starting the child.
// A child that runs exits the stub with its own status.
const (
	ExitCorrupt    = 65
	ExitExtraction = 74
	ExitLaunch     = 127
	ExitFailure    = 1

	// ExitSignal is added to the signal number when the child is killed
	// by a signal, as shells report it.
	ExitSignal = 128
)

// ExitCode maps an error returned by Run to the stub's exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, packtype.ErrCorruptArchive):
		return ExitCorrupt
	case errors.Is(err, packtype.ErrExtraction):
		return ExitExtraction
	case errors.Is(err, packtype.ErrChildLaunch):
		return ExitLaunch
	default:
		return ExitFailure
	}
}

// signalExitCode returns 128+signal for a child killed by a signal and
// ExitFailure when the state does not say which signal it was.
func signalExitCode(state *os.ProcessState) int {
	if state == nil {
		return ExitFailure
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ExitFailure
	}
	return ExitSignal + int(ws.Signal())
}
