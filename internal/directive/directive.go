// Package directive encodes and decodes the installation directive stream
// appended to a stub executable.
//
// A stream is a sequence of opcode-tagged records terminated by OpEnd. Every
// record starts with a little-endian u32 opcode followed by its fields in a
// fixed order. Strings are NUL-terminated; byte content is prefixed with a
// little-endian u32 length.
package directive

import "fmt"

// Op is the opcode tag of a directive.
type Op uint32

// Opcodes. 6, 8 and 9 are reserved and rejected by the decoder.
const (
	OpEnd             Op = 0
	OpCreateDirectory Op = 1
	OpCreateFile      Op = 2
	OpCreateProcess   Op = 3
	OpDecompress      Op = 4
	OpSetEnv          Op = 5
	OpEnableDebug     Op = 7
)

// String returns the opcode name.
func (o Op) String() string {
	switch o {
	case OpEnd:
		return "End"
	case OpCreateDirectory:
		return "CreateDirectory"
	case OpCreateFile:
		return "CreateFile"
	case OpCreateProcess:
		return "CreateProcess"
	case OpDecompress:
		return "Decompress"
	case OpSetEnv:
		return "SetEnv"
	case OpEnableDebug:
		return "EnableDebug"
	default:
		return fmt.Sprintf("Op(%d)", uint32(o))
	}
}

// InstallDirPlaceholder is replaced by the extraction root at run time when
// it appears in an image path, a command line or an environment value.
const InstallDirPlaceholder = "\xff"

// Directive is one installation instruction. Only the fields relevant to Op
// are meaningful.
type Directive struct {
	Op Op

	// Path is the archive path for OpCreateDirectory and OpCreateFile.
	// Archive paths are relative and use '\' as the separator.
	Path string

	// Content is the file body for OpCreateFile and the compressed payload
	// for OpDecompress.
	Content []byte

	// Image and CommandLine describe the program for OpCreateProcess.
	Image       string
	CommandLine string

	// Name and Value describe the variable for OpSetEnv.
	Name  string
	Value string
}

// End returns the stream terminator.
func End() Directive { return Directive{Op: OpEnd} }

// CreateDirectory returns a directive that creates path.
func CreateDirectory(path string) Directive {
	return Directive{Op: OpCreateDirectory, Path: path}
}

// CreateFile returns a directive that writes content to path.
func CreateFile(path string, content []byte) Directive {
	return Directive{Op: OpCreateFile, Path: path, Content: content}
}

// CreateProcess returns a directive that launches image with cmdline.
func CreateProcess(image, cmdline string) Directive {
	return Directive{Op: OpCreateProcess, Image: image, CommandLine: cmdline}
}

// SetEnv returns a directive that sets name=value in the child environment.
func SetEnv(name, value string) Directive {
	return Directive{Op: OpSetEnv, Name: name, Value: value}
}

// Decompress returns a directive wrapping a compressed nested stream.
func Decompress(payload []byte) Directive {
	return Directive{Op: OpDecompress, Content: payload}
}

// EnableDebug returns a directive that switches the runtime to debug mode.
func EnableDebug() Directive { return Directive{Op: OpEnableDebug} }

// String renders d for logs and the inspect command.
func (d Directive) String() string {
	switch d.Op {
	case OpCreateDirectory:
		return fmt.Sprintf("CreateDirectory(%q)", d.Path)
	case OpCreateFile:
		return fmt.Sprintf("CreateFile(%q, %d bytes)", d.Path, len(d.Content))
	case OpCreateProcess:
		return fmt.Sprintf("CreateProcess(%q, %q)", d.Image, d.CommandLine)
	case OpDecompress:
		return fmt.Sprintf("Decompress(%d bytes)", len(d.Content))
	case OpSetEnv:
		return fmt.Sprintf("SetEnv(%q, %q)", d.Name, d.Value)
	default:
		return d.Op.String()
	}
}
