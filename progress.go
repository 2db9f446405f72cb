package stubpack

import "github.com/meigma/stubpack/internal/packtype"

// Re-export progress types from packtype.
type (
	// ProgressEvent represents a progress update during a build or extraction.
	ProgressEvent = packtype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = packtype.ProgressStage

	// ProgressFunc receives progress updates. Calls are made from the
	// goroutine running the operation.
	ProgressFunc = packtype.ProgressFunc
)

// Re-export progress stage constants.
const (
	// StageEncoding indicates directives are being encoded.
	StageEncoding = packtype.StageEncoding

	// StageCompressing indicates the directive stream is being compressed.
	StageCompressing = packtype.StageCompressing

	// StageWriting indicates the finished executable is being written.
	StageWriting = packtype.StageWriting

	// StageExtracting indicates the stub is extracting files.
	StageExtracting = packtype.StageExtracting

	// StageLaunching indicates the stub is starting the packaged program.
	StageLaunching = packtype.StageLaunching
)
