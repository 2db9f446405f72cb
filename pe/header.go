// Package pe reads and writes the security data directory entry of a
// Windows PE image held in memory.
//
// The security entry records an Authenticode signature appended to the file
// after it was linked. The runtime reads it to find where the packaged
// payload ends; tests write it to fabricate signed executables.
//
// This is a narrow view of the header chain, not a general PE parser: it
// follows e_lfanew to the optional header and indexes the data directory
// array from its fixed position.
package pe

import (
	dpe "debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotPE is returned when the image lacks the headers needed to reach the
// security entry. The runtime treats such images as unsigned.
var ErrNotPE = errors.New("pe: not a PE image")

const (
	dosHeaderSize      = 64
	offsetELfanew      = 0x3C
	peSignatureSize    = 4
	fileHeaderSize     = 20
	optionalHeader32   = 224
	optionalHeader64   = 240
	dataDirectorySize  = 16 * 8
	dataDirectoryEntry = 8

	magicPE32Plus = 0x20B
)

var (
	mzSignature = [2]byte{'M', 'Z'}
	peSignature = [4]byte{'P', 'E', 0, 0}
)

// Header is a view of the security entry of an image. Setters modify the
// image in place.
type Header struct {
	image    []byte
	security int
	plus     bool
}

// NewHeader locates the security entry of image.
func NewHeader(image []byte) (*Header, error) {
	if len(image) < dosHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than a DOS header", ErrNotPE, len(image))
	}
	if [2]byte(image[:2]) != mzSignature {
		return nil, fmt.Errorf("%w: missing MZ signature", ErrNotPE)
	}
	lfanew := int64(binary.LittleEndian.Uint32(image[offsetELfanew:]))
	if lfanew+peSignatureSize+fileHeaderSize+2 > int64(len(image)) {
		return nil, fmt.Errorf("%w: e_lfanew 0x%x outside image", ErrNotPE, lfanew)
	}
	if [4]byte(image[lfanew:lfanew+peSignatureSize]) != peSignature {
		return nil, fmt.Errorf("%w: missing PE signature at 0x%x", ErrNotPE, lfanew)
	}

	opt := lfanew + peSignatureSize + fileHeaderSize
	size := int64(optionalHeader32)
	plus := binary.LittleEndian.Uint16(image[opt:]) == magicPE32Plus
	if plus {
		size = optionalHeader64
	}
	security := opt + size - dataDirectorySize + dpe.IMAGE_DIRECTORY_ENTRY_SECURITY*dataDirectoryEntry
	if security+dataDirectoryEntry > int64(len(image)) {
		return nil, fmt.Errorf("%w: security entry at 0x%x outside image", ErrNotPE, security)
	}
	return &Header{image: image, security: int(security), plus: plus}, nil
}

// PE32Plus reports whether the image has a 64-bit optional header.
func (h *Header) PE32Plus() bool {
	return h.plus
}

// SecurityOffset returns the file offset of the security entry.
func (h *Header) SecurityOffset() int {
	return h.security
}

// SecurityAddress returns the file offset of the signature.
func (h *Header) SecurityAddress() uint32 {
	return binary.LittleEndian.Uint32(h.image[h.security:])
}

// SecuritySize returns the size of the signature. Zero means unsigned.
func (h *Header) SecuritySize() uint32 {
	return binary.LittleEndian.Uint32(h.image[h.security+4:])
}

// SetSecurityAddress sets the file offset of the signature.
func (h *Header) SetSecurityAddress(addr uint32) {
	binary.LittleEndian.PutUint32(h.image[h.security:], addr)
}

// SetSecuritySize sets the size of the signature.
func (h *Header) SetSecuritySize(size uint32) {
	binary.LittleEndian.PutUint32(h.image[h.security+4:], size)
}

// Append adds p to the end of the image.
func (h *Header) Append(p []byte) {
	h.image = append(h.image, p...)
}

// Bytes returns the image.
func (h *Header) Bytes() []byte {
	return h.image
}

// SecuritySize returns the signature size recorded in image. Images that are
// not PE return ErrNotPE.
func SecuritySize(image []byte) (uint32, error) {
	h, err := NewHeader(image)
	if err != nil {
		return 0, err
	}
	return h.SecuritySize(), nil
}
