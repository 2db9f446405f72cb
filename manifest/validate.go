package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/stubpack/internal/directive"
	"github.com/meigma/stubpack/internal/packtype"
)

// statWorkers bounds concurrent source stats.
const statWorkers = 8

// Validate checks the manifest without reading file contents.
//
// Every source is stat'ed concurrently; a missing one is reported as
// packtype.ErrSourceNotFound naming the path. Structural problems are
// reported as ErrInvalidManifest.
func (m *Manifest) Validate(ctx context.Context) error {
	if m.APIVersion != APIVersion {
		return fmt.Errorf("%w: apiVersion %q, want %q", ErrInvalidManifest, m.APIVersion, APIVersion)
	}
	if m.Launch == nil || m.Launch.Image == "" {
		return fmt.Errorf("%w: launch.image is required", ErrInvalidManifest)
	}
	for _, s := range []string{m.Launch.Image, m.Launch.CommandLine} {
		if strings.IndexByte(s, 0) >= 0 {
			return fmt.Errorf("%w: launch contains NUL", ErrInvalidManifest)
		}
	}

	targets := make(map[string]struct{}, len(m.Files))
	for i, f := range m.Files {
		if f.Source == "" {
			return fmt.Errorf("%w: files[%d]: source is required", ErrInvalidManifest, i)
		}
		t, err := directive.NormalizePath(f.Target)
		if err != nil {
			return fmt.Errorf("%w: files[%d]: %w", ErrInvalidManifest, i, err)
		}
		if _, dup := targets[t]; dup {
			return fmt.Errorf("%w: files[%d]: duplicate target %q", ErrInvalidManifest, i, f.Target)
		}
		targets[t] = struct{}{}
	}
	for i, d := range m.Directories {
		if _, err := directive.NormalizePath(d); err != nil {
			return fmt.Errorf("%w: directories[%d]: %w", ErrInvalidManifest, i, err)
		}
	}
	for i, e := range m.Env {
		if e.Name == "" || strings.ContainsAny(e.Name, "=\x00") || strings.IndexByte(e.Value, 0) >= 0 {
			return fmt.Errorf("%w: env[%d]: invalid variable %q", ErrInvalidManifest, i, e.Name)
		}
	}

	return m.statSources(ctx)
}

func (m *Manifest) statSources(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(statWorkers)
	for _, f := range m.Files {
		src := m.SourcePath(f)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := os.Stat(src); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("%w: %s", packtype.ErrSourceNotFound, src)
				}
				return fmt.Errorf("stat %s: %w", src, err)
			}
			return nil
		})
	}
	return eg.Wait()
}
