package pe

import (
	"errors"
	"fmt"
	"math"
)

// ErrAlreadySigned is returned by Sign for images with a signature.
var ErrAlreadySigned = errors.New("pe: image already signed")

// signatureAlign is the alignment of the certificate table.
const signatureAlign = 8

// Sign returns a copy of image with signature appended the way Authenticode
// signers do: the image is zero padded to an 8-byte boundary, the signature
// follows, and the security entry points at it.
//
// It exists to fabricate signed executables in tests; it does not produce a
// valid certificate table.
func Sign(image, signature []byte) ([]byte, error) {
	out := make([]byte, len(image), len(image)+signatureAlign+len(signature))
	copy(out, image)

	h, err := NewHeader(out)
	if err != nil {
		return nil, err
	}
	if h.SecuritySize() != 0 {
		return nil, ErrAlreadySigned
	}
	pad := (signatureAlign - len(out)%signatureAlign) % signatureAlign
	addr := len(out) + pad
	if uint64(addr)+uint64(len(signature)) > math.MaxUint32 {
		return nil, fmt.Errorf("pe: signed image exceeds 4GiB")
	}

	h.SetSecurityAddress(uint32(addr))        //nolint:gosec // checked above
	h.SetSecuritySize(uint32(len(signature))) //nolint:gosec // checked above
	h.Append(make([]byte, pad))
	h.Append(signature)
	return h.Bytes(), nil
}
