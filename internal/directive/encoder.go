package directive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/meigma/stubpack/internal/packtype"
	"github.com/meigma/stubpack/internal/wire"
)

// Encoder serializes directives into an in-memory stream.
//
// The encoder tracks which directories and files it has emitted. Creating a
// file or directory first emits any missing ancestors, root to leaf, exactly
// once, so a decoded stream never references a directory before creating
// it. A path is either a file or a directory, never both.
type Encoder struct {
	w       wire.Writer
	dirs    map[string]struct{}
	files   map[string]struct{}
	logger  *slog.Logger
	observe func(Directive)
	ended   bool
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithLogger sets the logger used to trace emitted directives.
func WithLogger(logger *slog.Logger) EncoderOption {
	return func(e *Encoder) {
		e.logger = logger
	}
}

// WithObserver registers fn to be called after each directive is written.
func WithObserver(fn func(Directive)) EncoderOption {
	return func(e *Encoder) {
		e.observe = fn
	}
}

// NewEncoder returns an empty Encoder.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{dirs: make(map[string]struct{}), files: make(map[string]struct{})}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// log returns the logger, falling back to a discard logger if nil.
func (e *Encoder) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

// Bytes returns the encoded stream. The slice is valid until the next write.
func (e *Encoder) Bytes() []byte {
	return e.w.Bytes()
}

// Len returns the size of the encoded stream.
func (e *Encoder) Len() int {
	return e.w.Len()
}

// Ended reports whether OpEnd has been written.
func (e *Encoder) Ended() bool {
	return e.ended
}

// Emit appends d to the stream.
//
// OpCreateDirectory is idempotent, and OpCreateFile ensures the parent
// directory; both normalize d.Path first.
func (e *Encoder) Emit(d Directive) error {
	switch d.Op {
	case OpCreateDirectory:
		return e.EnsureDirectory(d.Path)
	case OpCreateFile:
		return e.CreateFile(d.Path, d.Content)
	case OpEnd, OpEnableDebug:
		return e.write(d, nil)
	case OpCreateProcess:
		return e.write(d, func(w *wire.Writer) error {
			if err := w.CString(d.Image); err != nil {
				return invalidString("image", err)
			}
			if err := w.CString(d.CommandLine); err != nil {
				return invalidString("command line", err)
			}
			return nil
		})
	case OpSetEnv:
		if d.Name == "" || strings.ContainsRune(d.Name, '=') {
			return fmt.Errorf("%w: environment name %q", packtype.ErrInvalidString, d.Name)
		}
		return e.write(d, func(w *wire.Writer) error {
			if err := w.CString(d.Name); err != nil {
				return invalidString("environment name", err)
			}
			if err := w.CString(d.Value); err != nil {
				return invalidString("environment value", err)
			}
			return nil
		})
	case OpDecompress:
		return e.write(d, func(w *wire.Writer) error {
			return w.Block(d.Content)
		})
	default:
		return fmt.Errorf("directive: cannot encode %s", d.Op)
	}
}

// EnsureDirectory emits CreateDirectory for path and any missing ancestors.
// Repeated calls, and calls for the root, are no-ops.
func (e *Encoder) EnsureDirectory(path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	return e.ensure(p)
}

func (e *Encoder) ensure(p string) error {
	if p == RootPath {
		return nil
	}
	if _, ok := e.dirs[p]; ok {
		return nil
	}
	if _, ok := e.files[p]; ok {
		return fmt.Errorf("%w: %q is a file", packtype.ErrInvalidPath, p)
	}
	if err := e.ensure(Dir(p)); err != nil {
		return err
	}
	d := CreateDirectory(p)
	if err := e.write(d, func(w *wire.Writer) error {
		return w.CString(p)
	}); err != nil {
		return err
	}
	e.dirs[p] = struct{}{}
	return nil
}

// CreateFile emits CreateFile for path with content, after its ancestors.
func (e *Encoder) CreateFile(path string, content []byte) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	if p == RootPath {
		return fmt.Errorf("%w: empty file path", packtype.ErrInvalidPath)
	}
	if _, ok := e.dirs[p]; ok {
		return fmt.Errorf("%w: %q is a directory", packtype.ErrInvalidPath, p)
	}
	if err := e.ensure(Dir(p)); err != nil {
		return err
	}
	if err := e.write(CreateFile(p, content), func(w *wire.Writer) error {
		if err := w.CString(p); err != nil {
			return err
		}
		return w.Block(content)
	}); err != nil {
		return err
	}
	e.files[p] = struct{}{}
	return nil
}

// CreateFileFrom reads src from disk and emits it as path.
func (e *Encoder) CreateFileFrom(src, path string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", packtype.ErrSourceNotFound, src)
		}
		return fmt.Errorf("read %s: %w", src, err)
	}
	return e.CreateFile(path, content)
}

// CreateProcess emits the launch directive.
func (e *Encoder) CreateProcess(image, cmdline string) error {
	return e.Emit(CreateProcess(image, cmdline))
}

// SetEnv emits an environment directive.
func (e *Encoder) SetEnv(name, value string) error {
	return e.Emit(SetEnv(name, value))
}

// End emits the stream terminator.
func (e *Encoder) End() error {
	return e.Emit(End())
}

// write encodes one record into a scratch buffer so a failed field leaves
// the stream untouched.
func (e *Encoder) write(d Directive, fields func(*wire.Writer) error) error {
	if e.ended {
		return fmt.Errorf("directive: %s after End", d.Op)
	}
	var rec wire.Writer
	rec.Uint32(uint32(d.Op))
	if fields != nil {
		if err := fields(&rec); err != nil {
			return err
		}
	}
	e.w.Raw(rec.Bytes())
	e.ended = d.Op == OpEnd
	e.log().Debug("emit", "directive", d.String())
	if e.observe != nil {
		e.observe(d)
	}
	return nil
}

func invalidString(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", packtype.ErrInvalidString, field, err)
}
