// Command stub is the runtime prepended to packaged executables. It
// extracts the tree appended to its own image and runs the packaged
// program, exiting with that program's status.
//
// STUBPACK_DEBUG=1 logs every directive and keeps the extraction directory.
// STUBPACK_KEEP=1 keeps the directory without extra logging.
// STUBPACK_TMPDIR overrides the parent of the extraction directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/meigma/stubpack/stub"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stub: locate executable: %v\n", err)
		return stub.ExitFailure
	}

	opts := []stub.Option{
		stub.WithDebug(envBool("STUBPACK_DEBUG")),
		stub.WithKeep(envBool("STUBPACK_KEEP")),
	}
	if dir := os.Getenv("STUBPACK_TMPDIR"); dir != "" {
		opts = append(opts, stub.WithTempDir(dir))
	}

	code, err := stub.Run(ctx, exe, os.Args[1:], opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stub: %v\n", err)
		return stub.ExitCode(err)
	}
	return code
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
