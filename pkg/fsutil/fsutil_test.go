package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWithin(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "direct child", path: filepath.Join(root, "a.msi"), want: true},
		{name: "nested child", path: filepath.Join(root, "x", "y", "a.msi"), want: true},
		{name: "root itself", path: root, want: false},
		{name: "sibling dir", path: filepath.Join(other, "a.msi"), want: false},
		{name: "dot dot escape", path: filepath.Join(root, "..", "a.msi"), want: false},
		{name: "prefix trick", path: root + "-evil" + string(os.PathSeparator) + "a.msi", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithin(root, tt.path))
		})
	}
}

func TestIsWithin_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(outside, link))

	assert.False(t, IsWithin(root, filepath.Join(link, "a.msi")))
}

func TestWriteIfAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openclaw.json")

	written, err := WriteIfAbsent(path, []byte("first"), FileModeDefault)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = WriteIfAbsent(path, []byte("second"), FileModeDefault)
	require.NoError(t, err)
	assert.False(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestWriteAtomic_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	require.NoError(t, WriteAtomic(path, []byte("one"), FileModeSecure))
	require.NoError(t, WriteAtomic(path, []byte("two"), FileModeSecure))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestBackupIfDiffers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docker-compose.yml")

	backed, err := BackupIfDiffers(path, []byte("new"))
	require.NoError(t, err)
	assert.False(t, backed, "missing file needs no backup")

	require.NoError(t, os.WriteFile(path, []byte("new"), FileModeDefault))
	backed, err = BackupIfDiffers(path, []byte("new"))
	require.NoError(t, err)
	assert.False(t, backed, "identical content needs no backup")

	require.NoError(t, os.WriteFile(path, []byte("custom"), FileModeDefault))
	backed, err = BackupIfDiffers(path, []byte("new"))
	require.NoError(t, err)
	assert.True(t, backed)

	data, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "nssm.exe")
	dst := filepath.Join(dir, "tools", "nssm.exe")
	require.NoError(t, os.WriteFile(src, []byte("binary"), FileModeExec))

	require.NoError(t, Copy(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
	assert.True(t, Exists(dst))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
}
