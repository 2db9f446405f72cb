package stubpack

import (
	"github.com/meigma/stubpack/internal/packtype"
	"github.com/meigma/stubpack/pe"
)

// Errors re-exported from internal packages.
var (
	// ErrSourceNotFound is returned when a file to be packed does not exist.
	ErrSourceNotFound = packtype.ErrSourceNotFound

	// ErrCompressionFailed is returned when the compressor fails. No output is written.
	ErrCompressionFailed = packtype.ErrCompressionFailed

	// ErrDecompression is returned when a compressed payload cannot be inflated.
	ErrDecompression = packtype.ErrDecompression

	// ErrCorruptArchive is returned when the footer or directive stream is invalid.
	ErrCorruptArchive = packtype.ErrCorruptArchive

	// ErrExtraction is returned when the stub cannot write the extracted tree.
	ErrExtraction = packtype.ErrExtraction

	// ErrChildLaunch is returned when the packaged program cannot be started.
	ErrChildLaunch = packtype.ErrChildLaunch

	// ErrInvalidPath is returned for archive paths that are absolute or escape the root.
	ErrInvalidPath = packtype.ErrInvalidPath

	// ErrInvalidString is returned for strings that cannot be encoded.
	ErrInvalidString = packtype.ErrInvalidString
)

// ErrNotPE is returned when an image lacks PE headers.
var ErrNotPE = pe.ErrNotPE
