// Package config handles the XDG configuration directory, file paths and
// the optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "firetodo"

	// ConfigFile is the optional YAML settings filename.
	ConfigFile = "config.yaml"

	// PrefsFile is the SQLite preference store filename.
	PrefsFile = "prefs.db"

	// LogFile is the log filename.
	LogFile = "firetodo.log"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// PrefsNamespace is the preference namespace holding configuration
	// values such as the schema version and installation id.
	PrefsNamespace = AppName

	// EnvBackend overrides the backend setting.
	EnvBackend = "FIRETODO_BACKEND"
)

// Backend names.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

const (
	defaultSchemaVersion = 2
	defaultRemoteTimeout = 10 * time.Second
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-"`

	// Backend selects the active task store: "local" or "remote".
	Backend string `yaml:"backend"`

	// SchemaVersion is the data schema version this run expects.
	SchemaVersion int `yaml:"schema_version"`

	Remote RemoteConfig `yaml:"remote"`
}

// RemoteConfig holds settings for the remote backend.
type RemoteConfig struct {
	// OfflineCache keeps a local snapshot of the remote list that is served
	// when the remote cannot be reached. Defaults to true.
	OfflineCache *bool `yaml:"offline_cache"`

	// Timeout bounds how long the CLI waits for the first load to arrive.
	Timeout time.Duration `yaml:"timeout"`
}

// New creates a new Config with the default or specified config directory
// and default settings. It does not read config.yaml; see Load.
// If configDir is empty, uses XDG_CONFIG_HOME/firetodo or $HOME/.config/firetodo.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c, nil
}

// Load is New followed by reading config.yaml from the directory, if it
// exists, and applying the FIRETODO_BACKEND override.
func Load(configDir string) (*Config, error) {
	c, err := New(configDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.FilePath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", c.FilePath(), err)
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", c.FilePath(), err)
		}
	}

	if b := os.Getenv(EnvBackend); b != "" {
		c.Backend = b
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyDefaults fills in missing settings.
func (c *Config) applyDefaults() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.SchemaVersion == 0 {
		c.SchemaVersion = defaultSchemaVersion
	}
	if c.Remote.OfflineCache == nil {
		on := true
		c.Remote.OfflineCache = &on
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = defaultRemoteTimeout
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal, BackendRemote:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendLocal, BackendRemote)
	}
	if c.SchemaVersion < 1 {
		return fmt.Errorf("invalid schema_version: %d", c.SchemaVersion)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("invalid remote.timeout: %s", c.Remote.Timeout)
	}
	return nil
}

// OfflineCacheEnabled reports whether the remote backend keeps a local snapshot.
func (c *Config) OfflineCacheEnabled() bool {
	return c.Remote.OfflineCache == nil || *c.Remote.OfflineCache
}

// Save writes the settings to config.yaml, creating the directory if needed.
func (c *Config) Save() error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.FilePath(), data, 0600)
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FilePath returns the path to config.yaml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// PrefsPath returns the path to the preference database.
func (c *Config) PrefsPath() string {
	return filepath.Join(c.Dir, PrefsFile)
}

// LogPath returns the path to the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, LogFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
