package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deskline/deskline/internal/version"
)

const (
	// FileName is the settings file looked up in the config directories.
	FileName = "config.ini"

	// DefaultAPIBaseURL is used when neither the environment nor config.ini
	// names a backend.
	DefaultAPIBaseURL = "http://localhost:8080"

	// APIVersion is the versioned path segment appended to the base URL.
	APIVersion = "v1"

	appDirName = "deskline"
)

// Config represents the client configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type SessionConfig struct {
	File string `mapstructure:"file"`
}

// FullAPIURL returns the versioned API root, e.g. http://host:8080/api/v1.
func (c *Config) FullAPIURL() string {
	version := c.API.Version
	if version == "" {
		version = APIVersion
	}
	return NormalizeBaseURL(c.API.BaseURL) + "/api/" + version
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// envKeys maps config keys to the environment variables that override them,
// checked in order.
var envKeys = map[string][]string{
	"api.base_url": {"API_BASE_URL", "DESKLINE_API_BASE_URL"},
	"http.timeout": {"DESKLINE_HTTP_TIMEOUT"},
	"log.level":    {"DESKLINE_LOG_LEVEL"},
	"log.format":   {"DESKLINE_LOG_FORMAT"},
	"log.file":     {"DESKLINE_LOG_FILE"},
	"session.file": {"DESKLINE_SESSION_FILE"},
}

// flagKeys maps config keys to the global CLI flags that override them.
var flagKeys = map[string]string{
	"api.base_url": "api-url",
	"log.level":    "log-level",
	"log.format":   "log-format",
}

// Manager owns the viper instance behind a Config. It is safe for
// concurrent use; Get returns a snapshot that is swapped on reload.
type Manager struct {
	mu       sync.RWMutex
	v        *viper.Viper
	cfg      *Config
	explicit string
}

// Load reads config.ini from dir (when non-empty), the executable's
// directory and the user config directory, in that order. A missing file is
// not an error. API_BASE_URL, then DESKLINE_API_BASE_URL, override the file;
// flags that were set on the command line override both.
func Load(dir string, flags *pflag.FlagSet) (*Manager, error) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("ini")

	for _, d := range searchDirs(dir) {
		v.AddConfigPath(d)
	}

	setDefaults(v)

	for key, names := range envKeys {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind environment: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	m := &Manager{v: v, explicit: dir}
	if err := m.refresh(); err != nil {
		return nil, err
	}
	return m, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultAPIBaseURL)
	v.SetDefault("api.version", APIVersion)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", version.UserAgent())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("session.file", filepath.Join(userDir(), "session"))
}

func searchDirs(dir string) []string {
	var dirs []string
	if dir != "" {
		dirs = append(dirs, dir)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return append(dirs, userDir())
}

func userDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, appDirName)
}

func (m *Manager) refresh() error {
	next := &Config{}
	if err := m.v.Unmarshal(next); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	next.API.BaseURL = NormalizeBaseURL(next.API.BaseURL)
	if next.API.BaseURL == "" {
		next.API.BaseURL = DefaultAPIBaseURL
	}

	m.mu.Lock()
	m.cfg = next
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration (thread-safe)
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Path returns the config file in use, or the file that SetAPIBaseURL
// would create.
func (m *Manager) Path() string {
	if used := m.v.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(m.writeDir(), FileName)
}

func (m *Manager) writeDir() string {
	if m.explicit != "" {
		return m.explicit
	}
	return userDir()
}

// SetAPIBaseURL stores url under [api] base_url in config.ini. Only the
// file's own keys are written back; defaults and environment overrides
// stay out of it.
func (m *Manager) SetAPIBaseURL(url string) error {
	url = NormalizeBaseURL(url)
	if url == "" {
		return fmt.Errorf("base url must not be empty")
	}

	path := m.Path()
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("ini")
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	file.Set("api.base_url", url)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	return m.refresh()
}

// Watch reloads the configuration when config.ini changes on disk and
// hands the new snapshot to onChange. It does nothing when no file is in
// use.
func (m *Manager) Watch(onChange func(*Config, error)) {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		err := m.refresh()
		if onChange != nil {
			onChange(m.Get(), err)
		}
	})
	m.v.WatchConfig()
}
