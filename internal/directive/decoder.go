package directive

import (
	"fmt"

	"github.com/meigma/stubpack/internal/packtype"
	"github.com/meigma/stubpack/internal/wire"
)

// Decoder reads directives from an encoded stream.
//
// Decoded strings are copies; Content slices alias the input.
type Decoder struct {
	r    *wire.Reader
	done bool
}

// NewDecoder returns a Decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: wire.NewReader(data)}
}

// Next decodes the next directive. After OpEnd has been returned, further
// calls return OpEnd again without reading.
//
// Malformed records, unknown opcodes and a stream that ends without OpEnd
// are reported as ErrCorruptArchive.
func (d *Decoder) Next() (Directive, error) {
	if d.done {
		return End(), nil
	}
	off := d.r.Offset()
	raw, err := d.r.Uint32()
	if err != nil {
		return Directive{}, corrupt(off, "missing End directive: %v", err)
	}

	op := Op(raw)
	dir := Directive{Op: op}
	switch op {
	case OpEnd:
		d.done = true
	case OpEnableDebug:
	case OpCreateDirectory:
		dir.Path, err = d.r.CString()
	case OpCreateFile:
		if dir.Path, err = d.r.CString(); err == nil {
			dir.Content, err = d.r.Block()
		}
	case OpCreateProcess:
		if dir.Image, err = d.r.CString(); err == nil {
			dir.CommandLine, err = d.r.CString()
		}
	case OpSetEnv:
		if dir.Name, err = d.r.CString(); err == nil {
			dir.Value, err = d.r.CString()
		}
	case OpDecompress:
		dir.Content, err = d.r.Block()
	default:
		return Directive{}, corrupt(off, "unknown opcode %d", raw)
	}
	if err != nil {
		return Directive{}, corrupt(off, "%s: %v", op, err)
	}
	return dir, nil
}

// Rest returns the bytes following the last decoded directive.
func (d *Decoder) Rest() []byte {
	return d.r.Remaining()
}

// Decode reads every directive of data up to and including OpEnd.
// Trailing bytes after OpEnd are ignored; use a Decoder to inspect them.
func Decode(data []byte) ([]Directive, error) {
	dec := NewDecoder(data)
	var out []Directive
	for {
		d, err := dec.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		if d.Op == OpEnd {
			return out, nil
		}
	}
}

func corrupt(off int, format string, args ...any) error {
	return fmt.Errorf("%w: offset %d: %s", packtype.ErrCorruptArchive, off, fmt.Sprintf(format, args...))
}
