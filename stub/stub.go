// Package stub is the runtime half of a packaged executable.
//
// Run reads the executable it was started from, finds the footer (stepping
// over an Authenticode signature if present), extracts the directive
// section into a fresh temporary directory and starts the packaged program
// there. The stub exits with the program's status; failures before the
// program starts map to distinct exit codes, see ExitCode.
package stub

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/meigma/stubpack/internal/directive"
	"github.com/meigma/stubpack/internal/packtype"
	"github.com/meigma/stubpack/internal/section"
	"github.com/meigma/stubpack/internal/trailer"
)

// Run extracts and launches the program packaged in the executable at
// exePath. args are the stub's own arguments; they are appended to the
// packaged command line.
//
// It returns the child's exit status. A non-nil error means the child was
// never started or could not be waited for; pass it to ExitCode.
//
// Canceling ctx interrupts the child and, after the configured wait delay,
// kills it.
func Run(ctx context.Context, exePath string, args []string, opts ...Option) (int, error) {
	cfg := newConfig(opts)
	r := &runner{cfg: cfg, logger: cfg.logger, exePath: exePath, env: cfg.environ}
	if cfg.debug {
		r.enableDebug()
	}
	return r.run(ctx, args)
}

// runner holds state for a single run.
type runner struct {
	cfg     config
	logger  *slog.Logger
	exePath string
	debug   bool

	dir    string
	env    []string
	launch *launchSpec
	files  int
	bytes  uint64
}

// log returns the logger, falling back to a discard logger if nil.
func (r *runner) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// enableDebug switches on debug mode: debug logging to stderr unless a
// logger was configured, and the extraction directory is kept.
func (r *runner) enableDebug() {
	if r.debug {
		return
	}
	r.debug = true
	if r.cfg.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(r.cfg.stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	r.log().Debug("debug mode enabled")
}

// reportProgress sends a progress event if a callback is configured.
func (r *runner) reportProgress(stage packtype.ProgressStage, path string) {
	if r.cfg.progress == nil {
		return
	}
	r.cfg.progress(packtype.ProgressEvent{
		Stage:     stage,
		Path:      path,
		BytesDone: r.bytes,
		FilesDone: r.files,
	})
}

func (r *runner) run(ctx context.Context, args []string) (int, error) {
	image, err := os.ReadFile(r.exePath)
	if err != nil {
		return 0, fmt.Errorf("read executable: %w", err)
	}
	loc, err := trailer.Locate(image)
	if err != nil {
		return 0, err
	}
	r.log().Debug("located footer",
		"stub_size", loc.Footer.StubSize,
		"signature_size", loc.SignatureSize,
		"section_size", len(loc.Section))

	if err := r.createDir(); err != nil {
		return 0, err
	}
	defer r.cleanup()

	root, err := os.OpenRoot(r.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", packtype.ErrExtraction, r.dir, err)
	}
	x := &extractor{r: r, root: root}
	_, err = section.Walk(loc.Section, func(d directive.Directive) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return x.apply(d)
	})
	if closeErr := root.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %w", packtype.ErrExtraction, closeErr)
	}
	if err != nil {
		return 0, err
	}
	r.log().Debug("extraction complete", "dir", r.dir, "files", r.files, "bytes", r.bytes)

	if r.launch == nil {
		r.log().Info("no program to launch", "dir", r.dir)
		return 0, nil
	}
	r.env = setEnv(r.env, ExecutableEnv, r.exePath)
	return r.start(ctx, args)
}

func (r *runner) createDir() error {
	dir, err := os.MkdirTemp(r.cfg.tempDir, "stubpack-")
	if err != nil {
		return fmt.Errorf("%w: create extraction directory: %w", packtype.ErrExtraction, err)
	}
	r.dir = dir
	r.log().Debug("created extraction directory", "dir", dir)
	return nil
}

// cleanup removes the extraction directory unless it is to be kept.
func (r *runner) cleanup() {
	if r.cfg.keep || r.debug {
		r.log().Info("keeping extraction directory", "dir", r.dir)
		return
	}
	if err := os.RemoveAll(r.dir); err != nil {
		r.log().Warn("failed to remove extraction directory", "dir", r.dir, "error", err)
	}
}
