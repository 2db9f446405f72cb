package codec

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/meigma/stubpack/internal/packtype"
)

// Zstd is the Zstandard codec. Frames always carry the content size.
type Zstd struct {
	// Level is the encoder level. The zero value selects
	// zstd.SpeedBestCompression.
	Level zstd.EncoderLevel
}

// Name implements Codec.
func (Zstd) Name() string { return "zstd" }

// Compress implements Codec.
func (z Zstd) Compress(ctx context.Context, src []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	level := z.Level
	if level == 0 {
		level = zstd.SpeedBestCompression
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true),
		zstd.WithZeroFrames(true),
		zstd.WithSingleSegment(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create zstd encoder: %w", packtype.ErrCompressionFailed, err)
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}

// Decompress implements Codec.
func (Zstd) Decompress(payload []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create zstd decoder: %w", packtype.ErrDecompression, err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", packtype.ErrDecompression, err)
	}
	if err := checkSize(payload, out); err != nil {
		return nil, err
	}
	return out, nil
}
