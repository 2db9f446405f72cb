package directive

import (
	"fmt"
	"strings"

	"github.com/meigma/stubpack/internal/packtype"
)

// Separator is the path separator used inside the archive.
const Separator = '\\'

// RootPath is the extraction root. It is never emitted as a directive.
const RootPath = "."

// NormalizePath converts a user-provided archive path to stream form.
//
// It performs the following transformations:
//   - Converts '/' to '\': "lib/ruby" → "lib\ruby"
//   - Collapses consecutive separators: "lib\\ruby" → "lib\ruby"
//   - Drops trailing separators and "." elements: "lib\.\ruby\" → "lib\ruby"
//   - Converts an empty result to the root: "" → "."
//
// Absolute paths, drive letters, ".." elements and NUL bytes are rejected
// with ErrInvalidPath.
func NormalizePath(p string) (string, error) {
	if strings.IndexByte(p, 0) >= 0 {
		return "", fmt.Errorf("%w: %q contains NUL", packtype.ErrInvalidPath, p)
	}
	p = strings.ReplaceAll(p, "/", `\`)
	if strings.HasPrefix(p, `\`) {
		return "", fmt.Errorf("%w: %q is absolute", packtype.ErrInvalidPath, p)
	}
	if len(p) >= 2 && p[1] == ':' {
		return "", fmt.Errorf("%w: %q has a drive letter", packtype.ErrInvalidPath, p)
	}

	parts := strings.Split(p, `\`)
	result := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: %q escapes the root", packtype.ErrInvalidPath, p)
		}
		result = append(result, part)
	}
	if len(result) == 0 {
		return RootPath, nil
	}
	return strings.Join(result, `\`), nil
}

// Dir returns all but the last element of a normalized archive path.
// The parent of a top-level entry is RootPath.
func Dir(p string) string {
	i := strings.LastIndexByte(p, Separator)
	if i < 0 {
		return RootPath
	}
	return p[:i]
}
