package trailer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/stubpack/internal/packtype"
	"github.com/meigma/stubpack/internal/testutil"
	"github.com/meigma/stubpack/pe"
)

func pack(t *testing.T, stub, section []byte) []byte {
	t.Helper()
	f, err := NewFooter(len(stub))
	require.NoError(t, err)

	out := append([]byte(nil), stub...)
	out = append(out, section...)
	out = append(out, make([]byte, PadLen(len(out)))...)
	return append(out, f.Encode()...)
}

func TestFooterEncoding(t *testing.T) {
	t.Parallel()

	f := Footer{StubSize: 0x01020304}
	b := f.Encode()
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01, 0x41, 0xB6, 0xBA, 0x4E}, b)

	got, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestPadLen(t *testing.T) {
	t.Parallel()

	for n := range 32 {
		assert.Zero(t, (n+PadLen(n)+Size)%Align, "n=%d", n)
		assert.Less(t, PadLen(n), Align)
	}
}

func TestLocateUnsigned(t *testing.T) {
	t.Parallel()

	stub := testutil.PEImage(t, testutil.PEOptions{Size: 1000})
	section := []byte{0, 0, 0, 0}
	img := pack(t, stub, section)

	loc, err := Locate(img)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(stub)), loc.Footer.StubSize)
	assert.Zero(t, loc.SignatureSize)
	assert.Equal(t, len(img), loc.End)
	assert.Equal(t, section, loc.Section[:len(section)])
	for _, b := range loc.Section[len(section):] {
		assert.Zero(t, b)
	}
}

func TestLocateSurvivesSigning(t *testing.T) {
	t.Parallel()

	for _, plus := range []bool{false, true} {
		stub := testutil.PEImage(t, testutil.PEOptions{PE32Plus: plus, Size: 777})
		img := pack(t, stub, []byte("directive bytes\x00\x00\x00\x00"))

		before, err := Locate(img)
		require.NoError(t, err)

		signed, err := pe.Sign(img, []byte("fake signature of some length"))
		require.NoError(t, err)
		require.Len(t, signed, len(img)+len("fake signature of some length"), "aligned file gets no padding")

		after, err := Locate(signed)
		require.NoError(t, err)
		assert.Equal(t, before.Footer, after.Footer)
		assert.Equal(t, before.Section, after.Section)
		assert.Equal(t, before.End, after.End)
		assert.Equal(t, uint32(len("fake signature of some length")), after.SignatureSize)
	}
}

func TestLocateNonPEStub(t *testing.T) {
	t.Parallel()

	stub := []byte("\x7fELF not a windows image")
	img := pack(t, stub, []byte{0, 0, 0, 0})

	loc, err := Locate(img)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(stub)), loc.Footer.StubSize)
	assert.Zero(t, loc.SignatureSize)
}

func TestLocateCorrupt(t *testing.T) {
	t.Parallel()

	stub := testutil.PEImage(t, testutil.PEOptions{})
	good := pack(t, stub, []byte{0, 0, 0, 0})

	tests := []struct {
		name  string
		image func() []byte
	}{
		{name: "too short", image: func() []byte { return []byte{0x41, 0xB6} }},
		{name: "stub size past footer", image: func() []byte {
			img := append([]byte(nil), good...)
			copy(img[len(img)-Size:], Footer{StubSize: uint32(len(img))}.Encode())
			return img
		}},
		{name: "signature larger than file", image: func() []byte {
			img := append([]byte(nil), good...)
			h, err := pe.NewHeader(img)
			require.NoError(t, err)
			h.SetSecuritySize(uint32(len(img) + 1))
			return img
		}},
		{name: "signature size points into section", image: func() []byte {
			img := append([]byte(nil), good...)
			h, err := pe.NewHeader(img)
			require.NoError(t, err)
			h.SetSecuritySize(3)
			return img
		}},
	}
	for i := range len(Magic) {
		tests = append(tests, struct {
			name  string
			image func() []byte
		}{name: fmt.Sprintf("flipped magic byte %d", i), image: func() []byte {
			img := append([]byte(nil), good...)
			img[len(img)-len(Magic)+i] ^= 0xFF
			return img
		}})
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Locate(tt.image())
			require.ErrorIs(t, err, packtype.ErrCorruptArchive)
		})
	}
}
