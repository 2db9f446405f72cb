package packtype

// ProgressEvent represents a progress update during a build or an extraction.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the archive path currently being processed, if applicable.
	Path string

	// BytesDone is the number of bytes completed in the current stage.
	BytesDone uint64

	// BytesTotal is the total bytes for the current stage.
	// Zero indicates the total is unknown.
	BytesTotal uint64

	// FilesDone is the number of files completed.
	FilesDone int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for builds and extraction.
const (
	// StageEncoding indicates directives are being encoded.
	StageEncoding ProgressStage = iota

	// StageCompressing indicates the directive stream is being compressed.
	StageCompressing

	// StageWriting indicates the finished executable is being written.
	StageWriting

	// StageExtracting indicates files are being extracted.
	StageExtracting

	// StageLaunching indicates the packaged program is being started.
	StageLaunching
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageEncoding:
		return "encoding"
	case StageCompressing:
		return "compressing"
	case StageWriting:
		return "writing"
	case StageExtracting:
		return "extracting"
	case StageLaunching:
		return "launching"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates.
type ProgressFunc func(ProgressEvent)
