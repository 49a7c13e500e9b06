package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/logging"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix marks environment and .env entries that configure dirwand
const EnvPrefix = "WAND_"

// DotEnvFile is read from the working directory when present
const DotEnvFile = ".env"

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("not implemented")
}

// LoadOptions controls where configuration is read from. Zero values
// select the standard locations.
type LoadOptions struct {
	// ConfigFile replaces the user file lookup; it must exist
	ConfigFile string
	// DotEnv is the .env path; empty means DotEnvFile in the working directory
	DotEnv string
}

// Load builds the configuration from every layer.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Built-in defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to parse built-in defaults")
	}

	// 2. User file
	userFile, required := opts.ConfigFile, true
	if userFile == "" {
		userFile, required = findUserConfig()
	}
	if userFile != "" {
		if _, err := os.Stat(userFile); err != nil {
			if required {
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not found", userFile).
					WithDetail("path", userFile)
			}
		} else {
			if err := k.Load(file.Provider(userFile), parserFor(userFile)); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", userFile).
					WithDetail("path", userFile)
			}
			logger.Debug().Str("path", userFile).Msg("Loaded user config")
		}
	}

	// 3. .env file
	dotEnv := opts.DotEnv
	if dotEnv == "" {
		dotEnv = DotEnvFile
	}
	values, err := readDotEnv(dotEnv)
	if err != nil {
		return nil, err
	}
	if len(values) > 0 {
		if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load %s", dotEnv)
		}
		logger.Debug().Str("path", dotEnv).Int("keys", len(values)).Msg("Loaded .env")
	}

	// 4. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment")
	}

	// 5. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Defaults returns the built-in configuration without reading any file or
// the environment.
func Defaults() *Config {
	k := koanf.New(".")
	cfg := &Config{}
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return cfg
	}
	_ = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"})
	return cfg
}

// UserConfigDir is where the user config file is looked up.
func UserConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = xdg.ConfigHome
	}
	return filepath.Join(base, logging.AppDirName)
}

func findUserConfig() (string, bool) {
	dir := UserConfigDir()
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, false
		}
	}
	return "", false
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

// readDotEnv returns the WAND_* entries of path keyed like the config
// file. A missing file yields no entries.
func readDotEnv(path string) (map[string]interface{}, error) {
	raw, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read %s", path).
			WithDetail("path", path)
	}

	values := make(map[string]interface{})
	for k, v := range raw {
		if strings.HasPrefix(k, EnvPrefix) {
			values[envKey(k)] = v
		}
	}
	return values, nil
}

// envKey maps WAND_CACHE_ENTRIES to cache_entries
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}
