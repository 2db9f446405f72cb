package stubpack

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/stubpack/internal/codec"
	"github.com/meigma/stubpack/internal/directive"
	"github.com/meigma/stubpack/internal/trailer"
	"github.com/meigma/stubpack/manifest"
)

// Encoder appends installation directives to the stream being built.
type Encoder = directive.Encoder

// EncodeFunc describes the packaged tree by driving an Encoder. It must not
// call End; Build terminates the stream.
type EncodeFunc func(enc *Encoder) error

// Result describes a packaged executable written to disk.
type Result struct {
	// Path is the output file.
	Path string

	// Size is the file size in bytes.
	Size int64

	// Digest is the sha256 digest of the file.
	Digest digest.Digest
}

// Build returns stub followed by the directive section produced by fn and
// the footer.
//
// The stream written by fn is terminated and, unless CompressionNone is
// configured, compressed as a unit and wrapped in a single Decompress
// directive followed by the outer terminator. The section is zero padded so
// the finished file is 8-byte aligned; a signer then appends the
// certificate table directly after the footer.
//
// The context bounds the compressor, including an external xz process.
func Build(ctx context.Context, stub []byte, fn EncodeFunc, opts ...BuildOption) ([]byte, error) {
	cfg := newBuildConfig(opts)
	b := &builder{cfg: cfg, logger: cfg.logger}
	return b.build(ctx, stub, fn)
}

// BuildFile builds like Build and writes the result to path.
//
// The file is written to a temporary name in the destination directory and
// renamed into place, so a failed build leaves no file behind. The output is
// executable.
func BuildFile(ctx context.Context, path string, stub []byte, fn EncodeFunc, opts ...BuildOption) (*Result, error) {
	cfg := newBuildConfig(opts)
	b := &builder{cfg: cfg, logger: cfg.logger}

	out, err := b.build(ctx, stub, fn)
	if err != nil {
		return nil, err
	}

	b.reportProgress(StageWriting, path, 0, uint64(len(out)), 0)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := writeFileAtomic(path, out, 0o755); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	b.reportProgress(StageWriting, path, uint64(len(out)), uint64(len(out)), 0)

	res := &Result{
		Path:   path,
		Size:   int64(len(out)),
		Digest: digest.FromBytes(out),
	}
	b.log().Info("wrote executable", "path", path, "size", res.Size, "digest", res.Digest.String())
	return res, nil
}

// BuildManifest validates m and builds the tree it describes into path.
func BuildManifest(ctx context.Context, path string, stub []byte, m *manifest.Manifest, opts ...BuildOption) (*Result, error) {
	if err := m.Validate(ctx); err != nil {
		return nil, err
	}
	return BuildFile(ctx, path, stub, m.Emit, opts...)
}

// builder holds state for a single build.
type builder struct {
	cfg    buildConfig
	logger *slog.Logger
	files  int
	bytes  uint64
}

// log returns the logger, falling back to a discard logger if nil.
func (b *builder) log() *slog.Logger {
	if b.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.logger
}

// reportProgress sends a progress event if a callback is configured.
func (b *builder) reportProgress(stage ProgressStage, path string, bytesDone, bytesTotal uint64, filesDone int) {
	if b.cfg.progress == nil {
		return
	}
	b.cfg.progress(ProgressEvent{
		Stage:      stage,
		Path:       path,
		BytesDone:  bytesDone,
		BytesTotal: bytesTotal,
		FilesDone:  filesDone,
	})
}

// observe tracks encoded files for progress reporting.
func (b *builder) observe(d directive.Directive) {
	if d.Op != directive.OpCreateFile {
		return
	}
	b.files++
	b.bytes += uint64(len(d.Content))
	b.reportProgress(StageEncoding, d.Path, b.bytes, 0, b.files)
}

func (b *builder) codec() (Codec, error) {
	if b.cfg.compression == CompressionNone {
		return nil, nil
	}
	if b.cfg.codec != nil {
		return b.cfg.codec, nil
	}
	return codec.For(b.cfg.compression)
}

func (b *builder) build(ctx context.Context, stub []byte, fn EncodeFunc) ([]byte, error) {
	c, err := b.codec()
	if err != nil {
		return nil, err
	}
	footer, err := trailer.NewFooter(len(stub))
	if err != nil {
		return nil, err
	}
	b.log().Info("building executable", "stub_size", len(stub), "compression", b.cfg.compression.String())

	enc := directive.NewEncoder(directive.WithLogger(b.logger), directive.WithObserver(b.observe))
	if b.cfg.debug {
		if err := enc.Emit(directive.EnableDebug()); err != nil {
			return nil, err
		}
	}
	if err := fn(enc); err != nil {
		return nil, err
	}
	if !enc.Ended() {
		if err := enc.End(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.log().Debug("directives encoded", "file_count", b.files, "content_size", b.bytes, "stream_size", enc.Len())

	section := enc.Bytes()
	if c != nil {
		b.reportProgress(StageCompressing, "", 0, uint64(len(section)), b.files)
		payload, err := c.Compress(ctx, section)
		if err != nil {
			return nil, err
		}
		outer := directive.NewEncoder(directive.WithLogger(b.logger))
		if err := outer.Emit(directive.Decompress(payload)); err != nil {
			return nil, err
		}
		if err := outer.End(); err != nil {
			return nil, err
		}
		b.reportProgress(StageCompressing, "", uint64(len(section)), uint64(len(section)), b.files)
		b.log().Debug("section compressed", "codec", c.Name(), "in", len(section), "out", len(payload))
		section = outer.Bytes()
	}

	pad := trailer.PadLen(len(stub) + len(section))
	out := make([]byte, 0, len(stub)+len(section)+pad+trailer.Size)
	out = append(out, stub...)
	out = append(out, section...)
	out = append(out, make([]byte, pad)...)
	out = append(out, footer.Encode()...)
	return out, nil
}
