// Package download streams installer artifacts to scratch files with throttled
// progress events and SHA-256 verification against the catalog.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/catalog"
	pkgerrors "github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/events"
	"github.com/glorpus-work/clawstrap/pkg/fsutil"
	"github.com/glorpus-work/clawstrap/pkg/platform"
)

// Defaults for the download manager.
const (
	DefaultTimeout          = 600 * time.Second
	DefaultProgressInterval = 200 * time.Millisecond
	DefaultUserAgent        = "clawstrap/1.0"
	ScratchPrefix           = "openclaw-installer-"

	chunkSize = 32 * 1024
)

var installerExts = map[string]bool{"msi": true, "exe": true, "pkg": true, "dmg": true}

// InstallerExtensions reports whether ext (without dot) is an accepted installer type.
func InstallerExtensions(ext string) bool {
	return installerExts[strings.ToLower(ext)]
}

// Options configure a ManagerImpl. Zero values select the defaults.
type Options struct {
	TempDir          string
	Timeout          time.Duration
	UserAgent        string
	ProgressInterval time.Duration
	Sink             events.Sink
	Now              func() time.Time
}

// ManagerImpl is the HTTP download manager.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
	catalog   *catalog.Catalog
	platform  platform.Platform
	tempDir   string
	interval  time.Duration
	sink      events.Sink
	now       func() time.Time
}

// NewManager creates a download manager resolving entries from cat for p.
func NewManager(cat *catalog.Catalog, p platform.Platform, opts Options) *ManagerImpl {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.Sink == nil {
		opts.Sink = events.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		catalog:   cat,
		platform:  p,
		tempDir:   opts.TempDir,
		interval:  opts.ProgressInterval,
		sink:      opts.Sink,
		now:       opts.Now,
	}
}

// ScratchPath returns where depID is downloaded to for the given extension.
func ScratchPath(tempDir, depID, ext string) string {
	return filepath.Join(tempDir, ScratchPrefix+depID+"."+ext)
}

// Download implements Manager.
func (m *ManagerImpl) Download(ctx context.Context, depID string, useMirror bool) (string, error) {
	entry, err := m.catalog.Lookup(depID, m.platform.Key(), useMirror)
	if err != nil {
		m.fail(depID, 0, 0, err.Error())
		return "", err
	}
	fields := logger.Fields{"dep_id": depID, "url": entry.URL, "mirror": useMirror}
	logger.Debug("Starting download", fields)

	start := m.now()
	resp, err := m.doRequest(ctx, entry.URL)
	if err != nil {
		m.fail(depID, 0, 0, err.Error())
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	scratch := ScratchPath(m.tempDir, depID, installerExt(depID, entry.URL))

	downloaded, err := m.writeBody(depID, resp.Body, scratch, total, start)
	if err != nil {
		_ = os.Remove(scratch)
		m.fail(depID, downloaded, total, err.Error())
		return "", err
	}

	events.Progress(m.sink, events.DownloadProgress{ID: depID, Downloaded: downloaded, Total: total, Phase: events.PhaseVerifying})
	got, err := sha256File(scratch)
	if err != nil {
		_ = os.Remove(scratch)
		m.fail(depID, downloaded, total, err.Error())
		return "", err
	}
	if want := normalizeHex(entry.SHA256); got != want {
		_ = os.Remove(scratch)
		err := pkgerrors.Detail(pkgerrors.ErrChecksumMismatch, "expected %s, got %s", want, got)
		m.fail(depID, downloaded, total, err.Error())
		logger.Warn("Checksum mismatch, scratch file removed", fields)
		return "", err
	}

	events.Progress(m.sink, events.DownloadProgress{ID: depID, Downloaded: downloaded, Total: total, Phase: events.PhaseDone})
	logger.Info("Download verified", logger.Fields{"dep_id": depID, "path": scratch, "bytes": downloaded})
	return scratch, nil
}

func (m *ManagerImpl) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrDownloadFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, pkgerrors.Detail(pkgerrors.ErrDownloadFailed, "HTTP error: %s", resp.Status)
	}
	return resp, nil
}

// writeBody streams body into scratch. The file is closed before returning so
// the checksum pass reads a complete file.
func (m *ManagerImpl) writeBody(depID string, body io.Reader, scratch string, total int64, start time.Time) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(scratch), fsutil.DirModeDefault); err != nil {
		return 0, pkgerrors.Wrap(err, "failed to create download dir")
	}
	f, err := os.OpenFile(scratch, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to create temp file")
	}

	var (
		downloaded int64
		lastEmit   time.Time
		emitted    bool
		buf        = make([]byte, chunkSize)
	)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				_ = f.Close()
				return downloaded, pkgerrors.Wrap(err, "failed to write file")
			}
			downloaded += int64(n)

			now := m.now()
			if !emitted || now.Sub(lastEmit) >= m.interval {
				events.Progress(m.sink, events.DownloadProgress{
					ID:         depID,
					Downloaded: downloaded,
					Total:      total,
					Speed:      speed(downloaded, now.Sub(start)),
					Phase:      events.PhaseDownloading,
				})
				lastEmit, emitted = now, true
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = f.Close()
			return downloaded, pkgerrors.Wrap(readErr, "failed to read download stream")
		}
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return downloaded, pkgerrors.Wrap(err, "failed to sync file")
	}
	if err := f.Close(); err != nil {
		return downloaded, pkgerrors.Wrap(err, "failed to close file")
	}
	return downloaded, nil
}

func (m *ManagerImpl) fail(depID string, downloaded, total int64, msg string) {
	events.Progress(m.sink, events.DownloadProgress{
		ID:         depID,
		Downloaded: downloaded,
		Total:      total,
		Phase:      events.PhaseError,
		Error:      &msg,
	})
}

func speed(downloaded int64, elapsed time.Duration) int64 {
	if elapsed <= 0 {
		return 0
	}
	return int64(float64(downloaded) / elapsed.Seconds())
}

// installerExt keeps the URL's extension when it is an installer type, otherwise
// msi for nodejs and exe for everything else.
func installerExt(depID, rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), "."); installerExts[ext] {
			return ext
		}
	}
	if depID == catalog.DepNodeJS {
		return "msi"
	}
	return "exe"
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to open file for checksum")
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", pkgerrors.Wrap(err, "failed to hash file")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
