// Package manifest loads the YAML description of a tree to package.
//
// A manifest lists source files and the archive paths they are installed
// to, extra directories to create, environment variables for the packaged
// program and the program to launch:
//
//	apiVersion: stubpack/v1
//	files:
//	  - source: app.rb
//	    target: src/app.rb
//	  - source: ruby/lib
//	    target: lib
//	directories: [tmp]
//	env:
//	  - name: RUBYOPT
//	    value: ""
//	launch:
//	  image: ${INSTALL_DIR}\bin\ruby.exe
//	  commandLine: ruby.exe ${INSTALL_DIR}\src\app.rb
//
// Relative sources are resolved against the directory holding the manifest.
// A source naming a directory adds every regular file below it.
//
// YAML text cannot carry the raw 0xFF placeholder byte, so manifests spell
// it InstallDirToken in launch fields and environment values.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// APIVersion is the only manifest version understood.
const APIVersion = "stubpack/v1"

// InstallDirToken stands for the extraction directory in launch fields and
// environment values.
const InstallDirToken = "${INSTALL_DIR}"

// ErrInvalidManifest is returned for manifests that cannot be built.
var ErrInvalidManifest = errors.New("manifest: invalid")

// Manifest describes a packaged tree. It is not modified by the builder.
type Manifest struct {
	APIVersion  string   `yaml:"apiVersion"`
	Files       []File   `yaml:"files"`
	Directories []string `yaml:"directories"`
	Env         []EnvVar `yaml:"env"`
	Launch      *Launch  `yaml:"launch"`

	baseDir string
}

// File maps a source on disk to an archive path.
type File struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// EnvVar is set in the environment of the packaged program. An empty value
// removes the variable.
type EnvVar struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Launch names the program started after extraction.
type Launch struct {
	Image       string `yaml:"image"`
	CommandLine string `yaml:"commandLine"`
}

// Load reads and parses the manifest at path. Relative sources resolve
// against the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // manifest path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}
	return parse(data, filepath.Dir(abs))
}

// Parse parses a manifest. Relative sources resolve against the working
// directory.
func Parse(data []byte) (*Manifest, error) {
	return parse(data, "")
}

func parse(data []byte, baseDir string) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidManifest)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	m.baseDir = baseDir
	return &m, nil
}

// BaseDir returns the directory relative sources resolve against.
func (m *Manifest) BaseDir() string {
	return m.baseDir
}

// SourcePath returns the on-disk path of f.
func (m *Manifest) SourcePath(f File) string {
	if filepath.IsAbs(f.Source) || m.baseDir == "" {
		return filepath.Clean(f.Source)
	}
	return filepath.Join(m.baseDir, f.Source)
}
