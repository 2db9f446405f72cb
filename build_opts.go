package stubpack

import (
	"log/slog"

	"github.com/meigma/stubpack/internal/codec"
	"github.com/meigma/stubpack/internal/packtype"
)

// Compression selects how the directive section is stored.
type Compression = packtype.Compression

// Compression algorithms.
const (
	CompressionNone = packtype.CompressionNone
	CompressionLZMA = packtype.CompressionLZMA
	CompressionZstd = packtype.CompressionZstd
)

// ParseCompression maps "none", "lzma" or "zstd" to a Compression.
var ParseCompression = packtype.ParseCompression

// Codec compresses the directive section. The stub recognises LZMA
// ("LZMA alone" layout with the size in the header) and zstd payloads.
type Codec = codec.Codec

// SystemLZMA returns a Codec that compresses by running the xz executable
// at path. An empty path looks xz up on PATH.
func SystemLZMA(path string) (Codec, error) {
	if path == "" {
		return codec.LookSystemLZMA()
	}
	return &codec.SystemLZMA{Path: path}, nil
}

// buildConfig holds configuration for Build.
type buildConfig struct {
	compression Compression
	codec       Codec
	logger      *slog.Logger
	progress    ProgressFunc
	debug       bool
}

func newBuildConfig(opts []BuildOption) buildConfig {
	cfg := buildConfig{compression: CompressionLZMA}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithCompression sets the compression algorithm. The default is
// CompressionLZMA. Use CompressionNone to store the section as is.
func WithCompression(c Compression) BuildOption {
	return func(cfg *buildConfig) {
		cfg.compression = c
	}
}

// WithCodec compresses with c instead of the built-in codec for the
// configured Compression. It has no effect with CompressionNone.
func WithCodec(c Codec) BuildOption {
	return func(cfg *buildConfig) {
		cfg.codec = c
	}
}

// WithLogger sets the logger for build operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(cfg *buildConfig) {
		cfg.logger = logger
	}
}

// WithProgress sets a callback to receive progress updates.
func WithProgress(fn ProgressFunc) BuildOption {
	return func(cfg *buildConfig) {
		cfg.progress = fn
	}
}

// WithDebug makes the packaged executable run in debug mode: the stub logs
// each directive and keeps the extraction directory.
func WithDebug(enabled bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.debug = enabled
	}
}
