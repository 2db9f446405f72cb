package stub

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/meigma/stubpack/internal/packtype"
)

// DefaultWaitDelay is how long a canceled child is given to exit after it
// is interrupted before it is killed.
const DefaultWaitDelay = 5 * time.Second

// config holds configuration for Run.
type config struct {
	logger    *slog.Logger
	progress  packtype.ProgressFunc
	tempDir   string
	keep      bool
	debug     bool
	environ   []string
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	waitDelay time.Duration
}

func newConfig(opts []Option) config {
	cfg := config{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		waitDelay: DefaultWaitDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.environ == nil {
		cfg.environ = os.Environ()
	}
	return cfg
}

// Option configures Run.
type Option func(*config)

// WithLogger sets the logger. If not set, logging is disabled until an
// EnableDebug directive switches on debug output to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithProgress sets a callback to receive extraction progress.
func WithProgress(fn packtype.ProgressFunc) Option {
	return func(cfg *config) {
		cfg.progress = fn
	}
}

// WithTempDir sets the parent of the extraction directory. The default is
// os.TempDir.
func WithTempDir(dir string) Option {
	return func(cfg *config) {
		cfg.tempDir = dir
	}
}

// WithKeep leaves the extraction directory in place after the child exits.
func WithKeep(keep bool) Option {
	return func(cfg *config) {
		cfg.keep = keep
	}
}

// WithDebug enables debug mode as if the section began with EnableDebug.
func WithDebug(debug bool) Option {
	return func(cfg *config) {
		cfg.debug = debug
	}
}

// WithEnviron sets the environment the child inherits. The default is
// os.Environ.
func WithEnviron(env []string) Option {
	return func(cfg *config) {
		cfg.environ = env
	}
}

// WithStdio sets the standard streams of the child. Nil values are left at
// their defaults.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(cfg *config) {
		if stdin != nil {
			cfg.stdin = stdin
		}
		if stdout != nil {
			cfg.stdout = stdout
		}
		if stderr != nil {
			cfg.stderr = stderr
		}
	}
}

// WithWaitDelay sets how long a canceled child may run after being
// interrupted. Zero waits indefinitely.
func WithWaitDelay(d time.Duration) Option {
	return func(cfg *config) {
		cfg.waitDelay = d
	}
}
