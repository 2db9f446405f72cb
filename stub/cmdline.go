package stub

import (
	"fmt"
	"strings"

	"github.com/meigma/stubpack/internal/directive"
)

// splitCommandLine splits a command line template into arguments.
//
// Arguments are separated by spaces or tabs. Double quotes group text that
// contains spaces and \" is a literal quote. Any other backslash is kept,
// since templates carry Windows paths.
func splitCommandLine(s string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && s[i+1] == '"':
			cur.WriteByte('"')
			inArg = true
			i++
		case c == '"':
			inQuote = !inQuote
			inArg = true
		case (c == ' ' || c == '\t') && !inQuote:
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteByte(c)
			inArg = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in command line %q", s)
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}

// expandArg replaces the install directory placeholder in an argument.
// Arguments that name a path under the placeholder have their '\'
// separators converted to sep.
func expandArg(arg, dir string, sep byte) string {
	if !strings.Contains(arg, directive.InstallDirPlaceholder) {
		return arg
	}
	if sep != directive.Separator {
		arg = strings.ReplaceAll(arg, string(directive.Separator), string(sep))
	}
	return strings.ReplaceAll(arg, directive.InstallDirPlaceholder, dir)
}
