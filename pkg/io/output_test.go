package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOutputTo(t *testing.T) {
	assert := assert.New(t)
	dest := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dest, "template.json"), []byte("a much longer previous body"), 0o644))

	files := []File{
		&RawFile{FPath: "template.json", Content: []byte(`{}`)},
		&RawFile{FPath: "nested/dir/storage.yaml", Content: []byte("a: b\n")},
	}
	require.NoError(t, OutputTo(files, dest))

	got, err := os.ReadFile(filepath.Join(dest, "template.json"))
	require.NoError(t, err)
	assert.Equal(`{}`, string(got))

	got, err = os.ReadFile(filepath.Join(dest, "nested", "dir", "storage.yaml"))
	require.NoError(t, err)
	assert.Equal("a: b\n", string(got))
}

func TestOutputTo_Error(t *testing.T) {
	dest := t.TempDir()
	blocker := filepath.Join(dest, "blocked")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := OutputTo([]File{&RawFile{FPath: "blocked/template.json"}}, dest)
	assert.Error(t, err)
}

func TestOutputTo_LogsBytesWritten(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	dest := t.TempDir()
	content := []byte(`{"Resources":{}}`)
	require.NoError(t, OutputTo([]File{&RawFile{FPath: "template.json", Content: content}}, dest))

	entries := logs.FilterMessage(fmt.Sprintf("Wrote %s (%d bytes)", filepath.Join(dest, "template.json"), len(content))).All()
	assert.Len(t, entries, 1)
}

type failingWriter struct {
	accept int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.accept {
		return w.accept, errors.New("disk full")
	}
	return len(p), nil
}

func TestCountingWriter(t *testing.T) {
	tests := []struct {
		name    string
		writes  []string
		accept  int
		want    int64
		wantErr bool
	}{
		{name: "all accepted", writes: []string{"ab", "c"}, accept: 10, want: 3},
		{name: "short write", writes: []string{"abcdef"}, accept: 4, want: 4, wantErr: true},
		{name: "nothing", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			w := &CountingWriter{Delegate: &failingWriter{accept: tt.accept}}
			var err error
			for _, s := range tt.writes {
				if _, err = w.Write([]byte(s)); err != nil {
					break
				}
			}
			assert.Equal(tt.want, w.BytesWritten)
			if tt.wantErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}
