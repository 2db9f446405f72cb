// Package testutil fabricates PE images and source trees for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Machine and optional header magic values written by PEImage.
const (
	MachineI386  = 0x14C
	MachineAMD64 = 0x8664

	MagicPE32     = 0x10B
	MagicPE32Plus = 0x20B
)

// LfanewOffset is where PEImage places the NT headers.
const LfanewOffset = 0x80

// PEOptions describes a fabricated image.
type PEOptions struct {
	// PE32Plus selects a 64-bit optional header.
	PE32Plus bool

	// Size is the total image size. Images are never smaller than their
	// headers; the space after them is filled with 0xCC.
	Size int
}

// PEImage returns a minimal image with a DOS header, NT signature, file
// header and an empty optional header. It has no sections and cannot run;
// it carries exactly what the security entry lookup reads.
func PEImage(tb testing.TB, opts PEOptions) []byte {
	tb.Helper()

	var buf bytes.Buffer
	writeU16 := func(v uint16) {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	writeU32 := func(v uint32) {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}

	// DOS header
	writeU16(0x5A4D)
	buf.Write(make([]byte, 0x3C-2))
	writeU32(LfanewOffset)
	buf.WriteString("This program cannot be run in DOS mode.\r\n$")
	buf.Write(make([]byte, LfanewOffset-buf.Len()))

	// NT signature and file header
	machine, optSize, magic := uint16(MachineI386), uint16(224), uint16(MagicPE32)
	if opts.PE32Plus {
		machine, optSize, magic = MachineAMD64, 240, MagicPE32Plus
	}
	buf.WriteString("PE\x00\x00")
	writeU16(machine)
	writeU16(0)
	writeU32(0)
	writeU32(0)
	writeU32(0)
	writeU16(optSize)
	writeU16(0x0022)

	// Optional header, data directories zeroed
	writeU16(magic)
	buf.Write(make([]byte, int(optSize)-2))

	if fill := opts.Size - buf.Len(); fill > 0 {
		buf.Write(bytes.Repeat([]byte{0xCC}, fill))
	}
	return buf.Bytes()
}

// HeaderSize returns the length of an image produced by PEImage without
// filler.
func HeaderSize(plus bool) int {
	if plus {
		return LfanewOffset + 24 + 240
	}
	return LfanewOffset + 24 + 224
}

// WriteTree creates files under a fresh temporary directory and returns it.
// Keys are slash-separated relative paths.
func WriteTree(tb testing.TB, files map[string]string) string {
	tb.Helper()

	dir := tb.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
