// Package archivetest builds bundle tarballs for tests.
package archivetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mholt/archives"
	"github.com/stretchr/testify/require"
)

// WriteTarGz packs the contents of srcDir into a gzip tarball at dst. Member
// names are relative to srcDir.
func WriteTarGz(t testing.TB, srcDir, dst string) {
	t.Helper()
	ctx := context.Background()

	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		filepath.Clean(srcDir) + string(os.PathSeparator): "",
	})
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	out, err := os.Create(dst)
	require.NoError(t, err)
	defer out.Close()

	format := archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}
	require.NoError(t, format.Archive(ctx, out, files))
}
