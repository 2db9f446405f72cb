package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/meigma/stubpack/internal/packtype"
)

// SystemLZMA compresses with the xz command and decompresses with the pure
// Go decoder. xz is usually faster and produces smaller output than the Go
// encoder.
type SystemLZMA struct {
	// Path is the xz executable.
	Path string

	// Preset is the xz compression preset, 0 through 9. Zero selects 7.
	Preset int
}

// LookSystemLZMA finds xz on PATH.
func LookSystemLZMA() (*SystemLZMA, error) {
	path, err := exec.LookPath("xz")
	if err != nil {
		return nil, fmt.Errorf("find xz: %w", err)
	}
	return &SystemLZMA{Path: path}, nil
}

// Name implements Codec.
func (c *SystemLZMA) Name() string { return "xz" }

// Compress implements Codec.
//
// xz writes an end-of-stream marker and an unknown size. The size is
// patched into the header so the payload declares its length like the
// output of the Go encoder.
func (c *SystemLZMA) Compress(ctx context.Context, src []byte) ([]byte, error) {
	preset := c.Preset
	if preset == 0 {
		preset = 7
	}
	cmd := exec.CommandContext(ctx, c.Path, "--format=lzma", fmt.Sprintf("-%d", preset), "--stdout")
	cmd.Stdin = bytes.NewReader(src)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s exited with %d: %s", packtype.ErrCompressionFailed,
				c.Path, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: run %s: %w", packtype.ErrCompressionFailed, c.Path, err)
	}
	if len(out) < lzmaHeaderSize {
		return nil, fmt.Errorf("%w: %s produced %d bytes", packtype.ErrCompressionFailed, c.Path, len(out))
	}
	binary.LittleEndian.PutUint64(out[5:lzmaHeaderSize], uint64(len(src)))
	return out, nil
}

// Decompress implements Codec.
func (c *SystemLZMA) Decompress(payload []byte) ([]byte, error) {
	return LZMA{}.Decompress(payload)
}
