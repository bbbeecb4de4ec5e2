package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/clawstrap/internal/logger"
	pkgerrors "github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/events"
)

type cliEnv struct {
	configPath string
}

// newCLIEnv points the CLI at a private config file and home directory and
// captures stdout.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{configPath: filepath.Join(t.TempDir(), "config.yaml")}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	var logs bytes.Buffer
	logger.SetTestOutput(&logs)
	t.Cleanup(logger.UnsetTestOutput)

	prevPath, prevFormat, prevVerbose := ConfigPath, OutputFormat, Verbose
	t.Cleanup(func() { ConfigPath, OutputFormat, Verbose = prevPath, prevFormat, prevVerbose })
	OutputFormat, Verbose = nil, nil
	ConfigPath = &env.configPath
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	defer SetOutput(&buf)()

	root := &cobra.Command{Use: "clawstrap", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewConfigCmd(),
		NewDownloadCmd(),
		NewHooksCmd(),
		NewInvokeCmd(),
		NewOpenClawConfigCmd(),
		NewResourcesCmd(),
		NewServiceCmd(),
		NewVersionCmd(),
	)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "clawstrap version "+Version)
	assert.Contains(t, out, "Git commit: ")

	format := "json"
	OutputFormat = &format
	out, err = env.run(t, "version")
	require.NoError(t, err)
	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, info.Runtime, runtime.GOOS)
}

func TestConfigPath(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, env.configPath+"\n", out)
}

func TestConfigLifecycle(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, env.configPath)

	_, err = env.run(t, "config", "init")
	require.ErrorIs(t, err, pkgerrors.ErrConfigFileExists)

	_, err = env.run(t, "config", "init", "--force")
	require.NoError(t, err)

	_, err = env.run(t, "config", "set", "gateway_port", "18790")
	require.NoError(t, err)
	out, err := env.run(t, "config", "get", "gateway_port")
	require.NoError(t, err)
	assert.Equal(t, "18790\n", out)

	_, err = env.run(t, "config", "set", "download_timeout", "90")
	require.NoError(t, err)
	out, err = env.run(t, "config", "get", "download_timeout")
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", out)

	_, err = env.run(t, "config", "set", "repositories", "x")
	require.ErrorIs(t, err, pkgerrors.ErrUnknownConfigKey)

	_, err = env.run(t, "config", "set", "listen_addr", "0.0.0.0:18800")
	require.ErrorIs(t, err, pkgerrors.ErrConfigValidation)

	out, err = env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "gateway_port")
	assert.Contains(t, out, "18790")
	assert.Contains(t, out, env.configPath)
}

func TestConfigShow_JSON(t *testing.T) {
	env := newCLIEnv(t)
	format := "json"
	OutputFormat = &format

	out, err := env.run(t, "config", "show")
	require.NoError(t, err)
	var settings map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Equal(t, "127.0.0.1:18800", settings["listen_addr"])
	assert.Equal(t, "json", settings["output_format"])
}

func TestInvoke(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "config", "set", "resource_dir", t.TempDir())
	require.NoError(t, err)

	out, err := env.run(t, "invoke", "--list")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(strings.TrimSpace(out), "\n"), "install_openclaw")

	out, err = env.run(t, "invoke", "get_mirrors")
	require.NoError(t, err)
	assert.JSONEq(t, `{"npm":"https://registry.npmjs.org","github":"https://github.com"}`, out)

	out, err = env.run(t, "invoke", "validate_model_parameters", `{"params":{"temperature":1,"max_tokens":10,"top_p":0.5}}`)
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)

	_, err = env.run(t, "invoke", "format_disk")
	require.ErrorIs(t, err, pkgerrors.ErrUnknownCommand)

	_, err = env.run(t, "invoke", "fix_issue", `{"issue_id":`)
	require.ErrorIs(t, err, pkgerrors.ErrInvalidArguments)
}

func TestHooksInit(t *testing.T) {
	env := newCLIEnv(t)
	dir := filepath.Join(t.TempDir(), "hooks")
	_, err := env.run(t, "config", "set", "hooks_dir", dir)
	require.NoError(t, err)

	out, err := env.run(t, "hooks", "path")
	require.NoError(t, err)
	script := filepath.Join(dir, "post-install.tengo")
	assert.Equal(t, script+"\n", out)

	_, err = env.run(t, "hooks", "init")
	require.NoError(t, err)
	data, err := os.ReadFile(script)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gatewayPort")

	_, err = env.run(t, "hooks", "init")
	require.ErrorIs(t, err, pkgerrors.ErrHookExists)

	require.NoError(t, os.WriteFile(script, []byte("// edited"), 0o644))
	_, err = env.run(t, "hooks", "init", "--force")
	require.NoError(t, err)
	data, err = os.ReadFile(script)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "edited")
}

func TestHooksPath_DefaultsUnderHome(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "hooks", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".openclaw", "hooks", "post-install.tengo")+"\n", out)
}

func TestDownloadList(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "download", "--list")
	require.NoError(t, err)
	assert.Equal(t, "docker\nnodejs\n", out)

	_, err = env.run(t, "download", "--list", "nodejs")
	require.Error(t, err)

	format := "json"
	OutputFormat = &format
	out, err = env.run(t, "download", "--list", "--mirror")
	require.NoError(t, err)
	var deps []string
	require.NoError(t, json.Unmarshal([]byte(out), &deps))
	assert.Equal(t, []string{"docker", "nodejs"}, deps)
}

func TestOpenClawConfig_WriteRead(t *testing.T) {
	env := newCLIEnv(t)
	doc := filepath.Join(t.TempDir(), "openclaw.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"model_provider":"openai","model_name":"gpt-4o"}`), 0o644))

	_, err := env.run(t, "openclaw-config", "write", doc)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(os.Getenv("HOME"), ".openclaw", "openclaw.json"))

	out, err := env.run(t, "openclaw-config", "read")
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"model_provider":"openai","model_name":"gpt-4o","gateway_port":18789,"platforms":[]}`, out)

	prevStdin := stdin
	stdin = strings.NewReader("{not json")
	defer func() { stdin = prevStdin }()
	_, err = env.run(t, "openclaw-config", "write", StdinArg)
	require.ErrorIs(t, err, pkgerrors.ErrConfigParse)
}

func TestResourcesMirrors(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mirrors.json"),
		[]byte(`{"npm":"https://registry.npmmirror.com","github":"https://ghproxy.example"}`), 0o644))
	_, err := env.run(t, "config", "set", "resource_dir", dir)
	require.NoError(t, err)

	out, err := env.run(t, "resources", "mirrors")
	require.NoError(t, err)
	assert.Contains(t, out, "https://registry.npmmirror.com")
	assert.Contains(t, out, "https://ghproxy.example")

	_, err = env.run(t, "resources", "extract", t.TempDir())
	require.ErrorIs(t, err, pkgerrors.ErrNoTarball)
}

func TestProgressPrinter(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		p := newProgressPrinter(&buf, false)

		events.Step(p, "npm_install", events.StatusRunning, "Installing OpenClaw via npm...", "")
		events.Step(p, "npm_install", events.StatusError, "npm install failed", "EACCES")
		for _, n := range []int64{10, 20, 30} {
			events.Progress(p, events.DownloadProgress{ID: "nodejs", Downloaded: n, Total: 30, Phase: events.PhaseDownloading})
		}
		events.Progress(p, events.DownloadProgress{ID: "nodejs", Downloaded: 30, Total: 30, Phase: events.PhaseDone})

		assert.Equal(t, strings.Join([]string{
			"[running] npm_install: Installing OpenClaw via npm...",
			"[error] npm_install: npm install failed",
			"EACCES",
			"nodejs: downloading (10 of 30 bytes)",
			"nodejs: done (30 of 30 bytes)",
			"",
		}, "\n"), buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		p := newProgressPrinter(&buf, true)

		events.Step(p, "verify", events.StatusDone, "OpenClaw 2026.1.5", "")

		assert.JSONEq(t,
			`{"topic":"install-step","payload":{"id":"verify","status":"done","message":"OpenClaw 2026.1.5","log":null}}`,
			buf.String())
	})
}

func TestServiceStatus_Unsupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("service is supported on Windows")
	}
	env := newCLIEnv(t)

	out, err := env.run(t, "service", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "OpenClawGateway")
	assert.Contains(t, out, "Unsupported")

	_, err = env.run(t, "service", "register")
	require.ErrorIs(t, err, pkgerrors.ErrUnsupported)
}
