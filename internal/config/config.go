// Package config loads gigtrack settings from defaults, an optional YAML
// file and GIGTRACK_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables read by Load. Nested keys are
// separated by a double underscore: GIGTRACK_API__BASE_URL sets api.base_url.
const EnvPrefix = "GIGTRACK_"

type Config struct {
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	API      APIConfig      `koanf:"api"      yaml:"api"`
	Server   ServerConfig   `koanf:"server"   yaml:"server"`
	Log      LogConfig      `koanf:"log"      yaml:"log"`
	Search   SearchConfig   `koanf:"search"   yaml:"search"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `koanf:"dsn"    yaml:"dsn"    validate:"required"`
}

// APIConfig points at the remote gig-tracking service.
type APIConfig struct {
	BaseURL       string        `koanf:"base_url"        yaml:"base_url"        validate:"omitempty,url"`
	Username      string        `koanf:"username"        yaml:"username"`
	Password      string        `koanf:"password"        yaml:"password"`
	Timeout       time.Duration `koanf:"timeout"         yaml:"timeout"         validate:"gt=0"`
	RatePerSecond float64       `koanf:"rate_per_second" yaml:"rate_per_second" validate:"gt=0"`
	Retries       int           `koanf:"retries"         yaml:"retries"         validate:"gte=0,lte=10"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level"  yaml:"level"  validate:"oneof=debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=text json"`
}

// SearchConfig tunes the artist lookup used when adding gigs.
type SearchConfig struct {
	Debounce time.Duration `koanf:"debounce"  yaml:"debounce"  validate:"gte=0"`
	MinChars int           `koanf:"min_chars" yaml:"min_chars" validate:"gte=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "gigtrack.db"},
		API: APIConfig{
			Timeout:       15 * time.Second,
			RatePerSecond: 5,
			Retries:       2,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Search: SearchConfig{Debounce: 300 * time.Millisecond, MinChars: 3},
	}
}

// Loader merges configuration sources. The zero value is not usable; call
// NewLoader.
type Loader struct {
	k        *koanf.Koanf
	validate *validator.Validate
	environ  func() []string
}

func NewLoader() *Loader {
	return &Loader{
		k:        koanf.New("."),
		validate: validator.New(),
		environ:  os.Environ,
	}
}

// Load reads defaults, then path (skipped when empty), then the environment.
func (l *Loader) Load(path string) (*Config, error) {
	l.k = koanf.New(".")

	if err := l.k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		data, err := readYAML(path)
		if err != nil {
			return nil, err
		}
		if err := l.k.Load(rawMap(data), nil); err != nil {
			return nil, fmt.Errorf("applying %s: %w", path, err)
		}
	}

	if err := l.k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
		EnvironFunc:   l.environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := l.validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Load is shorthand for NewLoader().Load(path).
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

func readYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// transformEnvKey maps GIGTRACK_API__BASE_URL to api.base_url.
func transformEnvKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
	return key, value
}

// rawMap is a koanf.Provider adapter for already-parsed map data.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}
