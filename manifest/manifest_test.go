package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/stubpack/internal/directive"
	"github.com/meigma/stubpack/internal/packtype"
	"github.com/meigma/stubpack/internal/testutil"
)

const sampleManifest = `apiVersion: stubpack/v1
files:
  - source: app.rb
    target: src/app.rb
  - source: lib
    target: lib/ruby
directories: [tmp]
env:
  - name: RUBYOPT
    value: ""
  - name: RUBYLIB
    value: ${INSTALL_DIR}\lib\ruby
launch:
  image: ${INSTALL_DIR}\bin\ruby.exe
  commandLine: ruby.exe ${INSTALL_DIR}\src\app.rb
`

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "stubpack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{
		"app.rb":          "puts 1",
		"lib/set.rb":      "class Set; end",
		"lib/sub/a.rb":    "A = 1",
		"lib/sub/b.rb":    "B = 2",
		"lib/empty/.keep": "",
	})
	m, err := Load(writeManifest(t, dir, sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, APIVersion, m.APIVersion)
	require.Len(t, m.Files, 2)
	assert.Equal(t, filepath.Join(dir, "app.rb"), m.SourcePath(m.Files[0]))
	assert.Equal(t, []string{"tmp"}, m.Directories)
	require.NotNil(t, m.Launch)
	assert.Equal(t, `${INSTALL_DIR}\bin\ruby.exe`, m.Launch.Image)
	assert.Equal(t, `${INSTALL_DIR}\lib\ruby`, m.Env[1].Value)
	assert.Empty(t, m.Env[0].Value)

	require.NoError(t, m.Validate(context.Background()))
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("apiVersion: stubpack/v1\nfiels: []\n"))
	require.ErrorIs(t, err, ErrInvalidManifest)

	_, err = Parse(nil)
	require.ErrorIs(t, err, ErrInvalidManifest)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{"app.rb": "puts 1"})
	src := filepath.Join(dir, "app.rb")
	launch := &Launch{Image: "bin\\ruby.exe", CommandLine: "ruby.exe"}

	tests := []struct {
		name string
		m    Manifest
		want error
	}{
		{
			name: "valid",
			m:    Manifest{APIVersion: APIVersion, Files: []File{{Source: src, Target: "app.rb"}}, Launch: launch},
		},
		{
			name: "wrong version",
			m:    Manifest{APIVersion: "v0", Launch: launch},
			want: ErrInvalidManifest,
		},
		{
			name: "no launch",
			m:    Manifest{APIVersion: APIVersion},
			want: ErrInvalidManifest,
		},
		{
			name: "escaping target",
			m:    Manifest{APIVersion: APIVersion, Files: []File{{Source: src, Target: "../x"}}, Launch: launch},
			want: packtype.ErrInvalidPath,
		},
		{
			name: "duplicate target",
			m: Manifest{APIVersion: APIVersion, Files: []File{
				{Source: src, Target: "a/b"},
				{Source: src, Target: `a\b`},
			}, Launch: launch},
			want: ErrInvalidManifest,
		},
		{
			name: "bad env name",
			m:    Manifest{APIVersion: APIVersion, Env: []EnvVar{{Name: "A=B"}}, Launch: launch},
			want: ErrInvalidManifest,
		},
		{
			name: "missing source",
			m: Manifest{APIVersion: APIVersion, Files: []File{
				{Source: src, Target: "app.rb"},
				{Source: filepath.Join(dir, "missing.rb"), Target: "missing.rb"},
			}, Launch: launch},
			want: packtype.ErrSourceNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.m.Validate(context.Background())
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateManySources(t *testing.T) {
	t.Parallel()

	files := make(map[string]string)
	for i := range 50 {
		files[filepath.ToSlash(filepath.Join("src", string(rune('a'+i%26))+string(rune('a'+i/26))+".rb"))] = "x"
	}
	dir := testutil.WriteTree(t, files)

	m := Manifest{APIVersion: APIVersion, Launch: &Launch{Image: "a.exe"}}
	for name := range files {
		m.Files = append(m.Files, File{Source: filepath.Join(dir, filepath.FromSlash(name)), Target: name})
	}
	require.NoError(t, m.Validate(context.Background()))

	m.Files = append(m.Files, File{Source: filepath.Join(dir, "nope"), Target: "nope"})
	require.ErrorIs(t, m.Validate(context.Background()), packtype.ErrSourceNotFound)
}

func TestEmit(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{
		"app.rb":       "puts 1",
		"lib/set.rb":   "class Set; end",
		"lib/sub/a.rb": "A = 1",
	})
	m, err := Load(writeManifest(t, dir, sampleManifest))
	require.NoError(t, err)

	enc := directive.NewEncoder()
	require.NoError(t, m.Emit(enc))
	require.NoError(t, enc.End())

	got, err := directive.Decode(enc.Bytes())
	require.NoError(t, err)

	var ops []string
	for _, d := range got {
		ops = append(ops, d.String())
	}
	assert.Equal(t, []string{
		`CreateDirectory("tmp")`,
		`CreateDirectory("src")`,
		`CreateFile("src\\app.rb", 6 bytes)`,
		`CreateDirectory("lib")`,
		`CreateDirectory("lib\\ruby")`,
		`CreateFile("lib\\ruby\\set.rb", 14 bytes)`,
		`CreateDirectory("lib\\ruby\\sub")`,
		`CreateFile("lib\\ruby\\sub\\a.rb", 5 bytes)`,
		`SetEnv("RUBYOPT", "")`,
		`SetEnv("RUBYLIB", "\xff\\lib\\ruby")`,
		`CreateProcess("\xff\\bin\\ruby.exe", "ruby.exe \xff\\src\\app.rb")`,
		"End",
	}, ops)
}

func TestEmitMissingSource(t *testing.T) {
	t.Parallel()

	m := Manifest{
		APIVersion: APIVersion,
		Files:      []File{{Source: filepath.Join(t.TempDir(), "gone.rb"), Target: "gone.rb"}},
		Launch:     &Launch{Image: "a.exe"},
	}
	err := m.Emit(directive.NewEncoder())
	require.ErrorIs(t, err, packtype.ErrSourceNotFound)
}
