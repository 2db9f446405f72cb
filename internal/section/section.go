// Package section walks the directive section of a packaged executable,
// inflating compressed sub-streams so callers see one flat sequence.
package section

import (
	"fmt"

	"github.com/meigma/stubpack/internal/codec"
	"github.com/meigma/stubpack/internal/directive"
	"github.com/meigma/stubpack/internal/packtype"
)

// maxDepth bounds Decompress nesting.
const maxDepth = 4

// Summary describes a walked section.
type Summary struct {
	// Compressed reports whether any Decompress directive was found.
	Compressed bool

	// Codec names the codec of the first compressed sub-stream.
	Codec string

	// PayloadBytes is the total size of compressed payloads.
	PayloadBytes int

	// InflatedBytes is the total size of the streams they inflated to.
	InflatedBytes int

	// Padding is the number of zero bytes after the outer End.
	Padding int
}

// Walk decodes data and calls visit for every directive other than End and
// Decompress. A Decompress directive is inflated and its stream walked in
// place; its End terminates only that stream.
//
// Bytes after the outer End must be zero padding. Any malformed input,
// including a payload that fails to inflate, is reported as
// packtype.ErrCorruptArchive. Errors returned by visit stop the walk and
// are returned unchanged.
func Walk(data []byte, visit func(directive.Directive) error) (Summary, error) {
	var s Summary
	dec := directive.NewDecoder(data)
	if err := walk(dec, visit, &s, 0); err != nil {
		return s, err
	}
	rest := dec.Rest()
	for i, b := range rest {
		if b != 0 {
			return s, fmt.Errorf("%w: non-zero byte 0x%02x after End at padding offset %d",
				packtype.ErrCorruptArchive, b, i)
		}
	}
	s.Padding = len(rest)
	return s, nil
}

func walk(dec *directive.Decoder, visit func(directive.Directive) error, s *Summary, depth int) error {
	for {
		d, err := dec.Next()
		if err != nil {
			return err
		}
		switch d.Op {
		case directive.OpEnd:
			return nil
		case directive.OpDecompress:
			if depth+1 >= maxDepth {
				return fmt.Errorf("%w: compressed streams nested deeper than %d",
					packtype.ErrCorruptArchive, maxDepth)
			}
			c := codec.Detect(d.Content)
			inner, err := c.Decompress(d.Content)
			if err != nil {
				return fmt.Errorf("%w: %w", packtype.ErrCorruptArchive, err)
			}
			if !s.Compressed {
				s.Compressed = true
				s.Codec = c.Name()
			}
			s.PayloadBytes += len(d.Content)
			s.InflatedBytes += len(inner)

			sub := directive.NewDecoder(inner)
			if err := walk(sub, visit, s, depth+1); err != nil {
				return err
			}
			if len(sub.Rest()) != 0 {
				return fmt.Errorf("%w: %d bytes after End of compressed stream",
					packtype.ErrCorruptArchive, len(sub.Rest()))
			}
		default:
			if err := visit(d); err != nil {
				return err
			}
		}
	}
}
