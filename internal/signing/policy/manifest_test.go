package policy_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/signing/policy"
	"github/chapool/signing-gateway/internal/util"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadManifest(t *testing.T) {
	manifest, err := policy.LoadManifest(filepath.Join(util.GetProjectRootDir(), "policies", "policies.toml"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, manifest.Timeout)

	modules, err := manifest.Modules()
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "safe_transfers", modules[0].Name)
	assert.Equal(t, "gnosis", modules[1].Name)
}

func TestLoadManifestSkipsDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.lua"), `function validate_message() return true end`)
	writeFile(t, filepath.Join(dir, "policies.toml"), `
[[validator]]
name = "first"
path = "a.lua"
disabled = true

[[validator]]
path = "a.lua"
`)

	manifest, err := policy.LoadManifest(filepath.Join(dir, "policies.toml"))
	require.NoError(t, err)
	assert.Zero(t, manifest.Timeout)

	modules, err := manifest.Modules()
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "a", modules[0].Name)
}

func TestLoadManifestRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "policies.toml"), `
[[validator]]
name = "first"
file = "a.lua"
`)

	_, err := policy.LoadManifest(filepath.Join(dir, "policies.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validator.file")
}

func TestLoadModulesMissingFile(t *testing.T) {
	_, err := policy.LoadModules([]string{filepath.Join(t.TempDir(), "missing.lua")})
	require.Error(t, err)
}
