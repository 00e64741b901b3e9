package bot

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "flowbot/core/config"
	coredatabase "flowbot/core/database"
)

// User store backends.
const (
	UsersBackendFile     = "file"
	UsersBackendPostgres = "postgres"
)

// ScriptConfig locates the conversation script and its asset files.
type ScriptConfig struct {
	Path      string `yaml:"path" envconfig:"SCRIPT_PATH"`
	AssetsDir string `yaml:"assets_dir" envconfig:"SCRIPT_ASSETS_DIR"`
}

// UsersConfig selects where the known-user roster is persisted.
type UsersConfig struct {
	Backend string `yaml:"backend" envconfig:"USERS_BACKEND"`
	File    string `yaml:"file" envconfig:"USERS_FILE"`
}

// Config aggregates core settings with flow-bot specific sections.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Script   ScriptConfig        `yaml:"script"`
	Users    UsersConfig         `yaml:"users"`
}

// CoreConfig returns the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates bot-level fields and applies defaults, then defers to
// the core normalizer.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Script.Path) == "" {
		return fmt.Errorf("script.path is required")
	}
	if strings.TrimSpace(cfg.Script.AssetsDir) == "" {
		cfg.Script.AssetsDir = "assets"
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Users.Backend))
	if backend == "" {
		backend = UsersBackendFile
	}
	switch backend {
	case UsersBackendFile:
		if strings.TrimSpace(cfg.Users.File) == "" {
			cfg.Users.File = "users.json"
		}
	case UsersBackendPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" {
			return fmt.Errorf("database.host is required when users.backend is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid users.backend %q; allowed: file, postgres", cfg.Users.Backend)
	}
	cfg.Users.Backend = backend

	return nil
}
