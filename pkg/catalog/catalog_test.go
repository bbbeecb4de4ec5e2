package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

const testHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestDefault_ParsesEmbedded(t *testing.T) {
	c := Default()
	for _, mirror := range []bool{false, true} {
		for _, dep := range []string{DepNodeJS, DepDocker} {
			for _, key := range []string{"windows_x64", "macos_x64", "macos_arm64"} {
				e, err := c.Lookup(dep, key, mirror)
				require.NoError(t, err, "%s %s mirror=%v", dep, key, mirror)
				assert.NotEmpty(t, e.URL)
				assert.Len(t, e.SHA256, 64)
			}
		}
	}
	assert.ElementsMatch(t, []string{DepNodeJS, DepDocker}, c.Dependencies(false))
}

func TestLookup_SelectsSide(t *testing.T) {
	c, err := Parse([]byte(`{
		"official": {"nodejs": {"windows_x64": {"url": "https://nodejs.org/node.msi", "sha256": "` + testHash + `"}}},
		"mirrors":  {"nodejs": {"windows_x64": {"url": "http://test/node.msi", "sha256": "` + testHash + `"}}}
	}`))
	require.NoError(t, err)

	e, err := c.Lookup(DepNodeJS, "windows_x64", true)
	require.NoError(t, err)
	assert.Equal(t, "http://test/node.msi", e.URL)

	e, err = c.Lookup(DepNodeJS, "windows_x64", false)
	require.NoError(t, err)
	assert.Equal(t, "https://nodejs.org/node.msi", e.URL)
}

func TestLookup_Errors(t *testing.T) {
	c, err := Parse([]byte(`{
		"official": {
			"nodejs": {
				"windows_x64": {"sha256": "` + testHash + `"},
				"macos_x64": {"url": "https://x/node.pkg"},
				"macos_arm64": {"url": "ftp://x/node.pkg", "sha256": "` + testHash + `"},
				"windows_arm64": {"url": "https://x/node.msi", "sha256": "ABC"}
			}
		},
		"mirrors": {}
	}`))
	require.NoError(t, err)

	tests := []struct {
		name     string
		dep      string
		key      string
		mirror   bool
		sentinel error
		contains string
	}{
		{name: "unknown dependency", dep: "python", key: "windows_x64", sentinel: errors.ErrUnknownDependency, contains: "official.python"},
		{name: "missing side entry", dep: DepNodeJS, key: "windows_x64", mirror: true, sentinel: errors.ErrUnknownDependency, contains: "mirrors.nodejs"},
		{name: "missing platform", dep: DepNodeJS, key: "linux_x64", sentinel: errors.ErrCatalogEntry, contains: "official.nodejs.linux_x64"},
		{name: "missing url", dep: DepNodeJS, key: "windows_x64", sentinel: errors.ErrCatalogEntry, contains: "official.nodejs.windows_x64.url"},
		{name: "missing sha", dep: DepNodeJS, key: "macos_x64", sentinel: errors.ErrCatalogEntry, contains: "official.nodejs.macos_x64.sha256"},
		{name: "bad scheme", dep: DepNodeJS, key: "macos_arm64", contains: "absolute http url"},
		{name: "bad hash", dep: DepNodeJS, key: "windows_arm64", contains: "64 lowercase hex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Lookup(tt.dep, tt.key, tt.mirror)
			require.Error(t, err)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"official": [`))
	assert.Error(t, err)
}
