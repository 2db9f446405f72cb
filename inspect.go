package stubpack

import (
	"fmt"

	"github.com/meigma/stubpack/internal/directive"
	"github.com/meigma/stubpack/internal/section"
	"github.com/meigma/stubpack/internal/trailer"
)

// Directive is a decoded installation directive.
type Directive = directive.Directive

// Op is a directive opcode.
type Op = directive.Op

// Directive opcodes.
const (
	OpEnd             = directive.OpEnd
	OpCreateDirectory = directive.OpCreateDirectory
	OpCreateFile      = directive.OpCreateFile
	OpCreateProcess   = directive.OpCreateProcess
	OpDecompress      = directive.OpDecompress
	OpSetEnv          = directive.OpSetEnv
	OpEnableDebug     = directive.OpEnableDebug
)

// InstallDirPlaceholder is replaced by the extraction directory at run time
// in image paths, command lines and environment values.
const InstallDirPlaceholder = directive.InstallDirPlaceholder

// Info describes a packaged executable.
type Info struct {
	// StubSize is the size of the runtime stub image.
	StubSize uint32

	// SignatureSize is the size of an appended signature, zero if unsigned.
	SignatureSize uint32

	// SectionSize is the size of the directive section including padding.
	SectionSize int

	// Compressed reports whether the section wraps a compressed stream.
	Compressed bool

	// Codec names the codec of the compressed stream.
	Codec string

	// PayloadBytes is the size of the compressed payload.
	PayloadBytes int

	// InflatedBytes is the size of the stream it inflates to.
	InflatedBytes int

	// Directives is the flattened directive sequence, without End and
	// Decompress markers.
	Directives []Directive
}

// Files returns the number of CreateFile directives.
func (i *Info) Files() int {
	n := 0
	for _, d := range i.Directives {
		if d.Op == OpCreateFile {
			n++
		}
	}
	return n
}

// Launch returns the CreateProcess directive the stub would act on: the
// last one in the section.
func (i *Info) Launch() (Directive, bool) {
	for j := len(i.Directives) - 1; j >= 0; j-- {
		if i.Directives[j].Op == OpCreateProcess {
			return i.Directives[j], true
		}
	}
	return Directive{}, false
}

// Inspect locates and decodes the directive section of a packaged
// executable the way the stub does, without touching the file system.
// Content slices in the result alias image or an inflated buffer.
func Inspect(image []byte) (*Info, error) {
	loc, err := trailer.Locate(image)
	if err != nil {
		return nil, err
	}
	info := &Info{
		StubSize:      loc.Footer.StubSize,
		SignatureSize: loc.SignatureSize,
		SectionSize:   len(loc.Section),
	}
	s, err := section.Walk(loc.Section, func(d directive.Directive) error {
		info.Directives = append(info.Directives, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode section: %w", err)
	}
	info.Compressed = s.Compressed
	info.Codec = s.Codec
	info.PayloadBytes = s.PayloadBytes
	info.InflatedBytes = s.InflatedBytes
	return info, nil
}
