package clawconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

func strPtr(s string) *string { return &s }

func newStore(t *testing.T) (*Store, Layout) {
	t.Helper()
	layout, err := NewLayout(t.TempDir())
	require.NoError(t, err)
	return NewStore(layout), layout
}

func TestLayout(t *testing.T) {
	_, err := NewLayout("")
	require.ErrorIs(t, err, errors.ErrNoHomeDir)

	l, err := NewLayout("/home/u")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/u", ".openclaw", "openclaw.json"), l.ConfigPath())
	assert.Equal(t, filepath.Join("/home/u", ".openclaw", "openclaw.json.bak"), l.BackupPath())
	assert.Equal(t, filepath.Join("/home/u", ".openclaw", "logs"), l.LogsDir())
	assert.Equal(t, filepath.Join("/home/u", ".openclaw", "hooks"), l.HooksDir())
	assert.Equal(t, filepath.Join("/home/u", "openclaw", "docker-compose.yml"), l.ComposePath())
}

func TestStore_ReadMissingReturnsDefaults(t *testing.T) {
	store, _ := newStore(t)
	cfg, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, DefaultGatewayPort, cfg.GatewayPort)
	assert.NotNil(t, cfg.Platforms)
	assert.Empty(t, cfg.Platforms)
	assert.Nil(t, cfg.ModelProvider)
}

func TestStore_WriteReadWrite(t *testing.T) {
	store, _ := newStore(t)
	cfg := OpenClawConfig{
		ModelProvider: strPtr("deepseek"),
		ModelName:     strPtr("deepseek-chat"),
		APIKey:        strPtr("sk-<test>&"),
		GatewayPort:   18790,
		Platforms:     []PlatformEntry{{Platform: "telegram", Token: "abc"}},
	}
	require.NoError(t, store.Write(cfg))
	first, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	read, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, cfg, read)

	require.NoError(t, store.Write(read))
	second, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), "\n  \"gateway_port\": 18790")
	assert.Contains(t, string(first), "sk-<test>&")
}

func TestStore_WriteNilPlatforms(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Write(OpenClawConfig{GatewayPort: DefaultGatewayPort}))
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"platforms": []`)
	assert.NotContains(t, string(data), "model_provider")
}

func TestStore_ReadSeeds(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "npm seed", data: NPMSeed},
		{name: "bundled seed", data: BundledSeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.data)
			require.NoError(t, err)
			assert.Equal(t, DefaultGatewayPort, cfg.GatewayPort)
			assert.Empty(t, cfg.Platforms)
		})
	}

	cfg, err := Parse(ResetDocument)
	require.NoError(t, err)
	require.NotNil(t, cfg.ModelProvider)
	assert.Equal(t, "alibaba", *cfg.ModelProvider)
	require.NotNil(t, cfg.APIKey)
	assert.Equal(t, "", *cfg.APIKey)
}

func TestStore_ReadInvalid(t *testing.T) {
	store, layout := newStore(t)
	require.NoError(t, os.MkdirAll(layout.ConfigDir(), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err := store.Read()
	require.ErrorIs(t, err, errors.ErrConfigParse)
	assert.Error(t, store.Valid())
}

func TestStore_Reset(t *testing.T) {
	store, layout := newStore(t)

	require.Error(t, store.Valid())
	require.NoError(t, store.Reset())
	require.NoError(t, store.Valid())
	_, err := os.Stat(layout.BackupPath())
	assert.True(t, os.IsNotExist(err), "no backup without a previous file")

	require.NoError(t, os.WriteFile(store.Path(), []byte("broken"), 0o644))
	require.NoError(t, store.Reset())
	backup, err := os.ReadFile(layout.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, "broken", string(backup))

	current, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, string(ResetDocument), string(current))
}
