package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/wagiedev/spx-launcher-go/internal/locate"
)

// Setting keys. Each can also be set through the environment as SPX_<KEY>.
const (
	KeyPort       = "port"
	KeyVerbose    = "verbose"
	KeySidecar    = "sidecar"
	KeyConfigFile = "config_file"
)

// EnvPrefix prefixes the environment variables read for settings.
const EnvPrefix = "SPX"

// SettingsFileName is the optional launcher settings file, looked up in the
// SPX user config directory.
const SettingsFileName = "launcher.toml"

// Settings are the launcher's own preferences. They are separate from the
// saved sidecar path, which lives in config.json.
type Settings struct {
	Port       string `mapstructure:"port"`
	Verbose    bool   `mapstructure:"verbose"`
	Sidecar    string `mapstructure:"sidecar"`
	ConfigFile string `mapstructure:"config_file"`
}

// NewViper returns a viper instance with defaults, environment overrides and
// the settings file location configured. file overrides the default settings
// file when non-empty.
func NewViper(file string) *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeySidecar, "")
	v.SetDefault(KeyConfigFile, "")

	v.SetConfigType("toml")

	if file != "" {
		v.SetConfigFile(file)
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, locate.AppDirName))
		v.SetConfigName(strings.TrimSuffix(SettingsFileName, filepath.Ext(SettingsFileName)))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	return v
}

// Load reads the settings file, if any, and decodes the merged settings.
// A missing settings file is not an error.
func Load(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := stderrors.AsType[viper.ConfigFileNotFoundError](err); !notFound && !stderrors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}

	s.Port = ParsePort(s.Port, DefaultPort)

	return s, nil
}

// ParsePort returns arg normalised when it is a valid port number and
// fallback otherwise. Invalid input is not an error.
func ParsePort(arg, fallback string) string {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(arg), "+"), 10, 16)
	if err != nil {
		return fallback
	}

	return strconv.FormatUint(n, 10)
}

// PortFromArgs picks the port from the first positional argument, falling
// back to the configured port.
func PortFromArgs(args []string, configured string) string {
	fallback := ParsePort(configured, DefaultPort)

	if len(args) == 0 {
		return fallback
	}

	return ParsePort(args[0], fallback)
}
