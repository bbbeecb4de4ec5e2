// Package archive inspects the gzip tarballs that ship the bundled OpenClaw
// runtime.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// Entry is one member of an archive.
type Entry struct {
	Name string
	Size int64
	Dir  bool
}

// Manager inspects archives before they are extracted.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// Inspect lists every member of the archive at archivePath. It fails with
// ErrUnsafeArchivePath when a member would land outside the extraction root.
func (am *Manager) Inspect(ctx context.Context, archivePath string) ([]Entry, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	defer func() { _ = file.Close() }()

	format, stream, err := archives.Identify(ctx, filepath.Base(archivePath), file)
	if err != nil {
		return nil, fmt.Errorf("failed to identify archive %s: %w", archivePath, err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return nil, fmt.Errorf("format %s cannot be read", format.Extension())
	}

	var entries []Entry
	err = extractor.Extract(ctx, stream, func(_ context.Context, f archives.FileInfo) error {
		if err := checkName(f.NameInArchive); err != nil {
			return err
		}
		if f.LinkTarget != "" {
			if err := checkLink(f.NameInArchive, f.LinkTarget); err != nil {
				return err
			}
		}
		entries = append(entries, Entry{Name: f.NameInArchive, Size: f.Size(), Dir: f.IsDir()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func checkName(name string) error {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || filepath.IsAbs(name) || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.Detail(errors.ErrUnsafeArchivePath, "%s", name)
	}
	return nil
}

// checkLink rejects links whose target resolves above the archive root.
func checkLink(name, target string) error {
	target = strings.ReplaceAll(target, `\`, "/")
	if path.IsAbs(target) {
		return errors.Detail(errors.ErrUnsafeArchivePath, "%s -> %s", name, target)
	}
	resolved := path.Clean(path.Join(path.Dir(path.Clean(name)), target))
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return errors.Detail(errors.ErrUnsafeArchivePath, "%s -> %s", name, target)
	}
	return nil
}
