package directive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/stubpack/internal/packtype"
	"github.com/meigma/stubpack/internal/wire"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "."},
		{in: ".", want: "."},
		{in: "bin", want: "bin"},
		{in: "lib/ruby/1.8", want: `lib\ruby\1.8`},
		{in: `lib\\ruby\`, want: `lib\ruby`},
		{in: `a\.\b`, want: `a\b`},
		{in: "my dir/file name.txt", want: `my dir\file name.txt`},
		{in: "/etc", wantErr: true},
		{in: `\etc`, wantErr: true},
		{in: `C:\Windows`, wantErr: true},
		{in: "a/../b", wantErr: true},
		{in: "a\x00b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizePath(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, packtype.ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDir(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".", Dir("bin"))
	assert.Equal(t, "lib", Dir(`lib\ruby`))
	assert.Equal(t, `lib\ruby`, Dir(`lib\ruby\1.8`))
}

func TestEncoderWireFormat(t *testing.T) {
	t.Parallel()

	enc := NewEncoder()
	require.NoError(t, enc.CreateFile("a", []byte("xy")))
	require.NoError(t, enc.End())

	want := []byte{
		2, 0, 0, 0, 'a', 0, 2, 0, 0, 0, 'x', 'y',
		0, 0, 0, 0,
	}
	assert.Equal(t, want, enc.Bytes())
}

func TestEncoderAncestorOrdering(t *testing.T) {
	t.Parallel()

	enc := NewEncoder()
	require.NoError(t, enc.CreateFile("lib/ruby/1.8/abbrev.rb", []byte("module Abbrev; end")))
	require.NoError(t, enc.CreateFile("lib/ruby/1.8/set.rb", []byte("class Set; end")))
	require.NoError(t, enc.EnsureDirectory("lib/ruby"))
	require.NoError(t, enc.Emit(CreateDirectory("lib/ruby/site_ruby")))
	require.NoError(t, enc.End())

	got, err := Decode(enc.Bytes())
	require.NoError(t, err)

	var ops []string
	for _, d := range got {
		ops = append(ops, d.String())
	}
	assert.Equal(t, []string{
		`CreateDirectory("lib")`,
		`CreateDirectory("lib\\ruby")`,
		`CreateDirectory("lib\\ruby\\1.8")`,
		`CreateFile("lib\\ruby\\1.8\\abbrev.rb", 18 bytes)`,
		`CreateFile("lib\\ruby\\1.8\\set.rb", 14 bytes)`,
		`CreateDirectory("lib\\ruby\\site_ruby")`,
		"End",
	}, ops)
}

func TestEncoderNeverRepeatsDirectories(t *testing.T) {
	t.Parallel()

	enc := NewEncoder()
	for range 3 {
		require.NoError(t, enc.EnsureDirectory(`a\b\c`))
		require.NoError(t, enc.EnsureDirectory("a/b"))
		require.NoError(t, enc.EnsureDirectory("."))
	}
	require.NoError(t, enc.End())

	got, err := Decode(enc.Bytes())
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, d := range got {
		if d.Op == OpCreateDirectory {
			seen[d.Path]++
		}
	}
	assert.Equal(t, map[string]int{"a": 1, `a\b`: 1, `a\b\c`: 1}, seen)
}

func TestEncoderRoundTrip(t *testing.T) {
	t.Parallel()

	inner := NewEncoder()
	require.NoError(t, inner.CreateFile("x", nil))
	require.NoError(t, inner.End())

	enc := NewEncoder()
	require.NoError(t, enc.Emit(EnableDebug()))
	require.NoError(t, enc.CreateFile("empty.txt", []byte{}))
	require.NoError(t, enc.CreateFile("dir with space/file name.txt", []byte("hello")))
	require.NoError(t, enc.SetEnv("RUBYLIB", "\xff\\lib"))
	require.NoError(t, enc.SetEnv("REMOVED", ""))
	require.NoError(t, enc.CreateProcess("\xff\\bin\\ruby.exe", "\xff\\bin\\ruby.exe \xff\\app.rb"))
	require.NoError(t, enc.Emit(Decompress(inner.Bytes())))
	require.NoError(t, enc.End())

	got, err := Decode(enc.Bytes())
	require.NoError(t, err)
	require.Len(t, got, 9)

	assert.Equal(t, OpEnableDebug, got[0].Op)
	assert.Equal(t, "empty.txt", got[1].Path)
	assert.Empty(t, got[1].Content)
	assert.Equal(t, CreateDirectory("dir with space"), got[2])
	assert.Equal(t, `dir with space\file name.txt`, got[3].Path)
	assert.Equal(t, []byte("hello"), got[3].Content)
	assert.Equal(t, SetEnv("RUBYLIB", "\xff\\lib"), got[4])
	assert.Equal(t, SetEnv("REMOVED", ""), got[5])
	assert.Equal(t, CreateProcess("\xff\\bin\\ruby.exe", "\xff\\bin\\ruby.exe \xff\\app.rb"), got[6])
	assert.Equal(t, OpDecompress, got[7].Op)
	assert.Equal(t, inner.Bytes(), got[7].Content)
	assert.Equal(t, OpEnd, got[8].Op)
}

func TestEncoderRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		emit func(*Encoder) error
		want error
	}{
		{
			name: "absolute path",
			emit: func(e *Encoder) error { return e.CreateFile("/etc/passwd", nil) },
			want: packtype.ErrInvalidPath,
		},
		{
			name: "parent escape",
			emit: func(e *Encoder) error { return e.EnsureDirectory("../up") },
			want: packtype.ErrInvalidPath,
		},
		{
			name: "root as file",
			emit: func(e *Encoder) error { return e.CreateFile(".", nil) },
			want: packtype.ErrInvalidPath,
		},
		{
			name: "NUL in command line",
			emit: func(e *Encoder) error { return e.CreateProcess("a.exe", "a\x00b") },
			want: packtype.ErrInvalidString,
		},
		{
			name: "NUL in env value",
			emit: func(e *Encoder) error { return e.SetEnv("A", "x\x00") },
			want: packtype.ErrInvalidString,
		},
		{
			name: "empty env name",
			emit: func(e *Encoder) error { return e.SetEnv("", "x") },
			want: packtype.ErrInvalidString,
		},
		{
			name: "equals in env name",
			emit: func(e *Encoder) error { return e.SetEnv("A=B", "x") },
			want: packtype.ErrInvalidString,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			enc := NewEncoder()
			err := tt.emit(enc)
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, enc.Len(), "failed emit must not write")
		})
	}
}

func TestEncoderFileOverDirectory(t *testing.T) {
	t.Parallel()

	enc := NewEncoder()
	require.NoError(t, enc.EnsureDirectory("lib"))
	err := enc.CreateFile("lib", []byte("x"))
	require.ErrorIs(t, err, packtype.ErrInvalidPath)
}

func TestEncoderDirectoryOverFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		emit func(*Encoder) error
	}{
		{name: "same path", emit: func(e *Encoder) error { return e.EnsureDirectory("bin") }},
		{name: "nested directory", emit: func(e *Encoder) error { return e.EnsureDirectory(`bin\sub`) }},
		{name: "nested file", emit: func(e *Encoder) error { return e.CreateFile(`bin\x.rb`, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			enc := NewEncoder()
			require.NoError(t, enc.CreateFile("bin", []byte("x")))
			n := enc.Len()

			require.ErrorIs(t, tt.emit(enc), packtype.ErrInvalidPath)
			assert.Equal(t, n, enc.Len(), "rejected emit must not write")
		})
	}

	enc := NewEncoder()
	require.NoError(t, enc.CreateFile("bin", []byte("x")))
	require.NoError(t, enc.CreateFile("bin", []byte("y")), "a file may be rewritten")
}

func TestEncoderCreateFileFrom(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app.rb")
	require.NoError(t, os.WriteFile(src, []byte("puts 1"), 0o644))

	enc := NewEncoder()
	require.NoError(t, enc.CreateFileFrom(src, "app.rb"))
	require.NoError(t, enc.End())

	got, err := Decode(enc.Bytes())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("puts 1"), got[0].Content)

	err = enc.CreateFileFrom(filepath.Join(dir, "missing.rb"), "missing.rb")
	require.ErrorIs(t, err, packtype.ErrSourceNotFound)
}

func TestEncoderObserver(t *testing.T) {
	t.Parallel()

	var seen []Op
	enc := NewEncoder(WithObserver(func(d Directive) { seen = append(seen, d.Op) }))
	require.NoError(t, enc.CreateFile("a/b", nil))
	require.NoError(t, enc.End())

	assert.Equal(t, []Op{OpCreateDirectory, OpCreateFile, OpEnd}, seen)
}

func TestDecoderCorruptStreams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "missing end", data: []byte{1, 0, 0, 0, 'a', 0}},
		{name: "truncated opcode", data: []byte{1, 0}},
		{name: "unknown opcode", data: []byte{42, 0, 0, 0}},
		{name: "reserved opcode 6", data: []byte{6, 0, 0, 0, 0, 0, 0, 0}},
		{name: "reserved opcode 8", data: []byte{8, 0, 0, 0, 0, 0, 0, 0}},
		{name: "unterminated path", data: []byte{1, 0, 0, 0, 'a', 'b'}},
		{name: "content past end", data: []byte{2, 0, 0, 0, 'a', 0, 9, 0, 0, 0, 'x'}},
		{name: "missing command line", data: []byte{3, 0, 0, 0, 'a', 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.data)
			require.ErrorIs(t, err, packtype.ErrCorruptArchive)
		})
	}
}

func TestDecoderRest(t *testing.T) {
	t.Parallel()

	var w wire.Writer
	w.Uint32(uint32(OpEnd))
	w.Raw([]byte{0, 0, 0, 0})

	dec := NewDecoder(w.Bytes())
	d, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, OpEnd, d.Op)
	assert.True(t, bytes.Equal([]byte{0, 0, 0, 0}, dec.Rest()))

	d, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, OpEnd, d.Op, "decoder stays at End")
}

func TestEncoderRejectsWritesAfterEnd(t *testing.T) {
	t.Parallel()

	enc := NewEncoder()
	require.NoError(t, enc.End())
	assert.True(t, enc.Ended())
	n := enc.Len()

	require.Error(t, enc.CreateFile("late.txt", nil))
	require.Error(t, enc.End())
	assert.Equal(t, n, enc.Len())
}
