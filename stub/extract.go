package stub

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/stubpack/internal/directive"
	"github.com/meigma/stubpack/internal/packtype"
)

// extractor applies directives to the extraction directory.
type extractor struct {
	r    *runner
	root *os.Root
}

// apply executes one directive. CreateProcess is only recorded; the child
// starts after the whole section has been written.
func (x *extractor) apply(d directive.Directive) error {
	r := x.r
	r.log().Debug("directive", "op", d.Op.String(), "detail", d.String())

	switch d.Op {
	case directive.OpEnableDebug:
		r.enableDebug()
	case directive.OpCreateDirectory:
		name, err := localPath(d.Path)
		if err != nil {
			return err
		}
		if err := x.root.MkdirAll(name, 0o755); err != nil {
			return fmt.Errorf("%w: create directory %s: %w", packtype.ErrExtraction, d.Path, err)
		}
	case directive.OpCreateFile:
		name, err := localPath(d.Path)
		if err != nil {
			return err
		}
		if err := x.root.WriteFile(name, d.Content, 0o644); err != nil {
			return fmt.Errorf("%w: create file %s: %w", packtype.ErrExtraction, d.Path, err)
		}
		r.files++
		r.bytes += uint64(len(d.Content))
		r.reportProgress(packtype.StageExtracting, d.Path)
	case directive.OpSetEnv:
		r.env = setEnv(r.env, d.Name, expandArg(d.Value, r.dir, os.PathSeparator))
	case directive.OpCreateProcess:
		if r.launch != nil {
			r.log().Warn("replacing earlier launch directive", "image", r.launch.image)
		}
		r.launch = &launchSpec{image: d.Image, commandLine: d.CommandLine}
	default:
		return fmt.Errorf("%w: unexpected %s directive", packtype.ErrCorruptArchive, d.Op)
	}
	return nil
}

// localPath converts an archive path to an OS path relative to the
// extraction root. Paths that escape the root make the archive corrupt.
func localPath(p string) (string, error) {
	n, err := directive.NormalizePath(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", packtype.ErrCorruptArchive, err)
	}
	return filepath.FromSlash(strings.ReplaceAll(n, string(directive.Separator), "/")), nil
}
