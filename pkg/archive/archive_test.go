package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/clawstrap/pkg/archive/archivetest"
	"github.com/glorpus-work/clawstrap/pkg/errors"
)

func TestManager_InspectListsMembers(t *testing.T) {
	tempDir := t.TempDir()
	testFiles := map[string]string{
		"package/package.json":   `{"name":"openclaw","version":"1.0.0"}`,
		"package/bin/openclaw":   "#!/usr/bin/env node",
		"package/lib/gateway.js": "module.exports = {}",
	}

	sourceDir := filepath.Join(tempDir, "source")
	for path, content := range testFiles {
		fullPath := filepath.Join(sourceDir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}

	archivePath := filepath.Join(tempDir, "openclaw-1.0.0.tar.gz")
	archivetest.WriteTarGz(t, sourceDir, archivePath)

	entries, err := NewManager().Inspect(context.Background(), archivePath)
	require.NoError(t, err)

	files := map[string]int64{}
	for _, e := range entries {
		if !e.Dir {
			files[e.Name] = e.Size
		}
	}
	for path, content := range testFiles {
		assert.Equal(t, int64(len(content)), files[path], path)
	}
}

func writeTarGz(t *testing.T, path string, headers ...*tar.Header) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, h := range headers {
		require.NoError(t, tw.WriteHeader(h))
		if h.Typeflag == tar.TypeReg {
			_, err := tw.Write(make([]byte, h.Size))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func TestManager_InspectRejectsUnsafeEntries(t *testing.T) {
	tests := []struct {
		name   string
		header *tar.Header
	}{
		{name: "parent traversal", header: &tar.Header{Name: "../evil.sh", Typeflag: tar.TypeReg, Size: 1, Mode: 0o644}},
		{name: "nested traversal", header: &tar.Header{Name: "package/../../evil.sh", Typeflag: tar.TypeReg, Size: 1, Mode: 0o644}},
		{name: "absolute path", header: &tar.Header{Name: "/etc/evil", Typeflag: tar.TypeReg, Size: 1, Mode: 0o644}},
		{name: "escaping symlink", header: &tar.Header{Name: "package/link", Typeflag: tar.TypeSymlink, Linkname: "../../etc/passwd", Mode: 0o777}},
		{name: "absolute symlink", header: &tar.Header{Name: "package/link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd", Mode: 0o777}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.tar.gz")
			writeTarGz(t, path, tt.header)

			_, err := NewManager().Inspect(context.Background(), path)
			require.ErrorIs(t, err, errors.ErrUnsafeArchivePath)
		})
	}
}

func TestManager_InspectAcceptsInternalSymlink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.tar.gz")
	writeTarGz(t, path,
		&tar.Header{Name: "package/bin/run.js", Typeflag: tar.TypeReg, Size: 3, Mode: 0o755},
		&tar.Header{Name: "package/bin/openclaw", Typeflag: tar.TypeSymlink, Linkname: "run.js", Mode: 0o777},
	)
	entries, err := NewManager().Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestManager_InspectMissingFile(t *testing.T) {
	_, err := NewManager().Inspect(context.Background(), filepath.Join(t.TempDir(), "missing.tar.gz"))
	require.Error(t, err)
}
