package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/meigma/stubpack/internal/directive"
)

// Emit writes the manifest to enc: directories, files, environment, then
// the launch directive. Call Validate first.
func (m *Manifest) Emit(enc *directive.Encoder) error {
	for _, d := range m.Directories {
		if err := enc.EnsureDirectory(d); err != nil {
			return err
		}
	}
	for _, f := range m.Files {
		if err := m.emitFile(enc, f); err != nil {
			return err
		}
	}
	for _, e := range m.Env {
		if err := enc.SetEnv(e.Name, expand(e.Value)); err != nil {
			return err
		}
	}
	if m.Launch == nil {
		return fmt.Errorf("%w: launch.image is required", ErrInvalidManifest)
	}
	return enc.CreateProcess(expand(m.Launch.Image), expand(m.Launch.CommandLine))
}

// expand replaces InstallDirToken with the placeholder byte.
func expand(s string) string {
	return strings.ReplaceAll(s, InstallDirToken, directive.InstallDirPlaceholder)
}

func (m *Manifest) emitFile(enc *directive.Encoder, f File) error {
	src := m.SourcePath(f)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		// CreateFileFrom reports a missing source.
		return enc.CreateFileFrom(src, f.Target)
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := path.Join(filepath.ToSlash(f.Target), filepath.ToSlash(rel))
		if d.IsDir() {
			return enc.EnsureDirectory(target)
		}
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return enc.CreateFileFrom(p, target)
	})
}
