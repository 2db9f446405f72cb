// Package trailer writes and locates the footer that ends every packaged
// executable.
//
// A packaged file is laid out as
//
//	[stub image][directive section][footer][signature?]
//
// where the footer is the little-endian u32 size of the stub image followed
// by Magic. A code signer may append a signature after the footer; Locate
// consults the PE security entry to step over it.
package trailer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/meigma/stubpack/internal/packtype"
	"github.com/meigma/stubpack/pe"
)

// Size is the encoded size of a footer.
const Size = 8

// Align is the alignment of a finished file.
const Align = 8

// Magic ends every footer.
var Magic = [4]byte{0x41, 0xB6, 0xBA, 0x4E}

// Footer records where the directive section starts.
type Footer struct {
	StubSize uint32
}

// Encode returns the 8-byte footer.
func (f Footer) Encode() []byte {
	b := make([]byte, Size)
	binary.LittleEndian.PutUint32(b, f.StubSize)
	copy(b[4:], Magic[:])
	return b
}

// NewFooter returns the footer for a stub of n bytes.
func NewFooter(n int) (Footer, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return Footer{}, fmt.Errorf("stub image of %d bytes does not fit the footer", n)
	}
	return Footer{StubSize: uint32(n)}, nil //nolint:gosec // checked above
}

// Parse decodes an 8-byte footer and checks its magic.
func Parse(b []byte) (Footer, error) {
	if len(b) != Size {
		return Footer{}, fmt.Errorf("%w: footer is %d bytes", packtype.ErrCorruptArchive, len(b))
	}
	if !bytes.Equal(b[4:], Magic[:]) {
		return Footer{}, fmt.Errorf("%w: bad footer magic % x", packtype.ErrCorruptArchive, b[4:])
	}
	return Footer{StubSize: binary.LittleEndian.Uint32(b)}, nil
}

// PadLen returns how many zero bytes must follow n bytes of stub and
// section so that the file, footer included, is a multiple of Align.
func PadLen(n int) int {
	return (Align - (n+Size)%Align) % Align
}

// Location describes where the parts of a packaged file lie.
type Location struct {
	Footer Footer

	// SignatureSize is the size of the appended signature, zero if unsigned
	// or if the stub is not a PE image.
	SignatureSize uint32

	// End is the offset just past the footer.
	End int

	// Section is the directive section. It aliases the image.
	Section []byte
}

// Locate finds the footer and directive section of image.
func Locate(image []byte) (*Location, error) {
	sig, err := pe.SecuritySize(image)
	if err != nil {
		if !errors.Is(err, pe.ErrNotPE) {
			return nil, err
		}
		sig = 0
	}
	if uint64(sig) > uint64(len(image)) {
		return nil, fmt.Errorf("%w: signature of %d bytes exceeds file of %d bytes",
			packtype.ErrCorruptArchive, sig, len(image))
	}
	end := len(image) - int(sig)
	if end < Size {
		return nil, fmt.Errorf("%w: file of %d bytes has no footer", packtype.ErrCorruptArchive, end)
	}
	f, err := Parse(image[end-Size : end])
	if err != nil {
		return nil, err
	}
	if int64(f.StubSize) > int64(end-Size) {
		return nil, fmt.Errorf("%w: stub size %d past footer at %d",
			packtype.ErrCorruptArchive, f.StubSize, end-Size)
	}
	return &Location{
		Footer:        f,
		SignatureSize: sig,
		End:           end,
		Section:       image[f.StubSize : end-Size],
	}, nil
}
