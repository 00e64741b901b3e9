package bot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfigYAML() string {
	return `
telegram:
  token: "123:abc"
script:
  path: "script.yaml"
`
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, validConfigYAML())

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "script.yaml", cfg.Script.Path)
	require.Equal(t, "assets", cfg.Script.AssetsDir)
	require.Equal(t, UsersBackendFile, cfg.Users.Backend)
	require.Equal(t, "users.json", cfg.Users.File)
	require.NotNil(t, cfg.CoreConfig())
	require.Equal(t, "123:abc", cfg.CoreConfig().Telegram.Token)
}

func TestLoadConfigRequiresScriptPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
telegram:
  token: "123:abc"
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "script.path")
}

func TestLoadConfigPostgresNeedsDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, validConfigYAML()+`
users:
  backend: postgres
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "database.host")
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, validConfigYAML()+`
users:
  backend: redis
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "users.backend")
}
