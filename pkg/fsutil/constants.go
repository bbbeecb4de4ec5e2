// Package fsutil provides file system helpers shared by the installer components.
package fsutil

// File and directory permission constants.
const (
	FileModeDefault = 0o644 // -rw-r--r--: Default for regular files
	FileModeSecure  = 0o640 // -rw-r-----: config files holding API keys
	FileModeExec    = 0o755 // -rwxr-xr-x: For executable files

	DirModeDefault = 0o755 // drwxr-xr-x: Default for directories
	DirModeSecure  = 0o750 // drwxr-x---: For sensitive directories
)
