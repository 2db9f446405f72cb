package packtype

import "errors"

// Sentinel errors shared by the builder, the codecs and the stub runtime.
var (
	// ErrSourceNotFound is returned when a file to be packed does not exist.
	ErrSourceNotFound = errors.New("stubpack: source not found")

	// ErrCompressionFailed is returned when the compressor fails during a build.
	ErrCompressionFailed = errors.New("stubpack: compression failed")

	// ErrDecompression is returned when a compressed payload cannot be inflated.
	ErrDecompression = errors.New("stubpack: decompression failed")

	// ErrCorruptArchive is returned when the footer or directive stream is invalid.
	ErrCorruptArchive = errors.New("stubpack: corrupt archive")

	// ErrExtraction is returned when writing the extracted tree fails.
	ErrExtraction = errors.New("stubpack: extraction failed")

	// ErrChildLaunch is returned when the packaged program cannot be started.
	ErrChildLaunch = errors.New("stubpack: child launch failed")

	// ErrInvalidPath is returned for archive paths that are absolute or escape the root.
	ErrInvalidPath = errors.New("stubpack: invalid archive path")

	// ErrInvalidString is returned for string fields that cannot be encoded.
	ErrInvalidString = errors.New("stubpack: invalid string")
)
