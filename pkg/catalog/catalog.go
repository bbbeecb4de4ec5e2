// Package catalog maps {dependency, platform} to a download URL and its SHA-256.
// The document is embedded at build time; release tooling regenerates the hashes.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sync"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// Dependency ids.
const (
	DepNodeJS   = "nodejs"
	DepDocker   = "docker"
	DepOpenClaw = "openclaw" // aggregate target, installed by the pipeline rather than downloaded
)

// Catalog sides.
const (
	SourceOfficial = "official"
	SourceMirrors  = "mirrors"
)

//go:embed catalog.json
var embedded []byte

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Entry is one downloadable artifact.
type Entry struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

type rawEntry struct {
	URL    *string `json:"url"`
	SHA256 *string `json:"sha256"`
}

type side map[string]map[string]rawEntry

// Catalog is immutable once parsed.
type Catalog struct {
	sides map[string]side
}

// Parse decodes a catalog document with shape {official: {...}, mirrors: {...}}.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Official side `json:"official"`
		Mirrors  side `json:"mirrors"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog")
	}
	return &Catalog{sides: map[string]side{
		SourceOfficial: doc.Official,
		SourceMirrors:  doc.Mirrors,
	}}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. A malformed embedded document is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// SourceName maps the use_mirror flag to a side name.
func SourceName(useMirror bool) string {
	if useMirror {
		return SourceMirrors
	}
	return SourceOfficial
}

// Lookup resolves dep on platformKey. Errors name the missing path, e.g.
// "mirrors.nodejs.windows_x64.sha256".
func (c *Catalog) Lookup(depID, platformKey string, useMirror bool) (Entry, error) {
	src := SourceName(useMirror)
	deps, ok := c.sides[src][depID]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s (%s.%s)", errors.ErrUnknownDependency, depID, src, depID)
	}
	path := src + "." + depID + "." + platformKey
	raw, ok := deps[platformKey]
	if !ok {
		return Entry{}, errors.Detail(errors.ErrCatalogEntry, "%s", path)
	}
	if raw.URL == nil || *raw.URL == "" {
		return Entry{}, errors.Detail(errors.ErrCatalogEntry, "%s.url", path)
	}
	if raw.SHA256 == nil || *raw.SHA256 == "" {
		return Entry{}, errors.Detail(errors.ErrCatalogEntry, "%s.sha256", path)
	}
	e := Entry{URL: *raw.URL, SHA256: *raw.SHA256}
	if err := e.validate(); err != nil {
		return Entry{}, errors.Wrapf(err, "%s", path)
	}
	return e, nil
}

func (e Entry) validate() error {
	u, err := url.Parse(e.URL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("url %q is not an absolute http url", e.URL)
	}
	if !sha256Hex.MatchString(e.SHA256) {
		return fmt.Errorf("sha256 %q is not 64 lowercase hex digits", e.SHA256)
	}
	return nil
}

// Dependencies lists the dependency ids present on a side.
func (c *Catalog) Dependencies(useMirror bool) []string {
	s := c.sides[SourceName(useMirror)]
	out := make([]string, 0, len(s))
	for dep := range s {
		out = append(out, dep)
	}
	return out
}
