package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// LoadEnvFileIfExists loads KEY=value pairs from path into the environment. Variables that
// are already set are left untouched. A missing file is not an error.
func LoadEnvFileIfExists(path string) {
	if path == "" {
		return
	}

	if _, err := os.Stat(path); err != nil {
		return
	}

	if err := gotenv.Load(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to load env file")
	}
}

// ApplyFile reads a config file (toml, yaml or json) and exports its settings as GATEWAY_*
// environment variables, so DefaultServiceConfigFromEnv picks them up. Keys map to variable
// names by upper-casing them ("upstream_urls" becomes GATEWAY_UPSTREAM_URLS). Variables
// already present in the environment win over the file.
func ApplyFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	replacer := strings.NewReplacer(".", "_", "-", "_")
	for _, key := range v.AllKeys() {
		name := env(strings.ToUpper(replacer.Replace(key)))
		if _, ok := os.LookupEnv(name); ok {
			continue
		}

		if err := os.Setenv(name, fileValue(v, key)); err != nil {
			return errors.Wrapf(err, "failed to export %s", name)
		}
	}

	return nil
}

func fileValue(v *viper.Viper, key string) string {
	switch value := v.Get(key).(type) {
	case []any:
		parts := make([]string, 0, len(value))
		for _, part := range value {
			parts = append(parts, fmt.Sprint(part))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(value, ",")
	default:
		return v.GetString(key)
	}
}
