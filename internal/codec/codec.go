// Package codec compresses and decompresses the nested directive stream
// carried by a Decompress directive.
//
// Two payload formats are understood. LZMA payloads use the classic
// "LZMA alone" layout: 5 property bytes, an 8-byte little-endian
// uncompressed size and the compressed data. Zstandard payloads are plain
// zstd frames. The runtime tells them apart by the zstd frame magic, so the
// directive stream itself carries no codec tag.
package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/meigma/stubpack/internal/packtype"
)

// Codec compresses and decompresses whole payloads.
type Codec interface {
	// Name returns a short identifier used in logs.
	Name() string

	// Compress returns the compressed form of src. Failures wrap
	// packtype.ErrCompressionFailed.
	Compress(ctx context.Context, src []byte) ([]byte, error)

	// Decompress inflates payload and checks the result against the size
	// declared in the payload header. Failures wrap packtype.ErrDecompression.
	Decompress(payload []byte) ([]byte, error)
}

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// lzmaHeaderSize is the size of the "LZMA alone" header.
const lzmaHeaderSize = 13

// unknownSize marks an LZMA header without a declared size.
const unknownSize = ^uint64(0)

// maxDecodedSize bounds a single inflated payload. Stream lengths are u32,
// so nothing larger could have been encoded.
const maxDecodedSize = 1<<32 - 1

// For returns the built-in codec for c. CompressionNone has no codec.
func For(c packtype.Compression) (Codec, error) {
	switch c {
	case packtype.CompressionLZMA:
		return LZMA{}, nil
	case packtype.CompressionZstd:
		return Zstd{}, nil
	default:
		return nil, fmt.Errorf("codec: no codec for compression %s", c)
	}
}

// Detect returns the codec able to decompress payload.
func Detect(payload []byte) Codec {
	if bytes.HasPrefix(payload, zstdMagic) {
		return Zstd{}
	}
	return LZMA{}
}

// Decompress inflates payload with the detected codec.
func Decompress(payload []byte) ([]byte, error) {
	return Detect(payload).Decompress(payload)
}

// DeclaredSize reports the uncompressed size recorded in the payload header.
// ok is false when the header does not carry one.
func DeclaredSize(payload []byte) (size uint64, ok bool) {
	if bytes.HasPrefix(payload, zstdMagic) {
		var h zstd.Header
		if err := h.Decode(payload); err != nil || !h.HasFCS {
			return 0, false
		}
		return h.FrameContentSize, true
	}
	if len(payload) < lzmaHeaderSize {
		return 0, false
	}
	size = binary.LittleEndian.Uint64(payload[5:lzmaHeaderSize])
	if size == unknownSize {
		return 0, false
	}
	return size, true
}

// checkSize verifies out against the declared size of payload.
func checkSize(payload, out []byte) error {
	want, ok := DeclaredSize(payload)
	if !ok {
		return nil
	}
	if uint64(len(out)) != want {
		return fmt.Errorf("%w: inflated %d bytes, header declares %d",
			packtype.ErrDecompression, len(out), want)
	}
	return nil
}
