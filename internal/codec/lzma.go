package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/meigma/stubpack/internal/packtype"
)

// lzmaDictCap matches the dictionary size of xz preset 6.
const lzmaDictCap = 8 << 20

// compressChunk is how much input is fed to the encoder between
// cancellation checks.
const compressChunk = 1 << 20

// LZMA is the pure Go LZMA codec. It writes the uncompressed size into the
// header and omits the end-of-stream marker, except for empty input, which
// is encoded as a bare marker.
type LZMA struct{}

// Name implements Codec.
func (LZMA) Name() string { return "lzma" }

// Compress implements Codec.
func (LZMA) Compress(ctx context.Context, src []byte) ([]byte, error) {
	var out bytes.Buffer
	cfg := lzma.WriterConfig{
		DictCap:      lzmaDictCap,
		SizeInHeader: true,
		Size:         int64(len(src)),
	}
	if len(src) == 0 {
		// A zero size reads as unknown to the writer.
		cfg.SizeInHeader = false
		cfg.EOSMarker = true
	}
	w, err := cfg.NewWriter(&out)
	if err != nil {
		return nil, fmt.Errorf("%w: create lzma writer: %w", packtype.ErrCompressionFailed, err)
	}
	for len(src) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(len(src), compressChunk)
		if _, err := w.Write(src[:n]); err != nil {
			return nil, fmt.Errorf("%w: lzma: %w", packtype.ErrCompressionFailed, err)
		}
		src = src[n:]
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: lzma: %w", packtype.ErrCompressionFailed, err)
	}
	payload := out.Bytes()
	if !cfg.SizeInHeader {
		binary.LittleEndian.PutUint64(payload[5:lzmaHeaderSize], 0)
	}
	return payload, nil
}

// Decompress implements Codec. Payloads produced by xz, which carry an
// end-of-stream marker, are accepted too.
func (LZMA) Decompress(payload []byte) ([]byte, error) {
	if len(payload) < lzmaHeaderSize {
		return nil, fmt.Errorf("%w: lzma payload of %d bytes has no header",
			packtype.ErrDecompression, len(payload))
	}
	r, err := lzma.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma header: %w", packtype.ErrDecompression, err)
	}
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma: %w", packtype.ErrDecompression, err)
	}
	if int64(len(out)) > maxDecodedSize {
		return nil, fmt.Errorf("%w: lzma payload inflates past 4GiB", packtype.ErrDecompression)
	}
	if err := checkSize(payload, out); err != nil {
		return nil, err
	}
	return out, nil
}
