// Package config loads the calpipe configuration from calpipe.yaml and
// CALPIPE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	errUtils "github.com/stellarops/calpipe/errors"
	"github.com/stellarops/calpipe/pkg/schema"
)

const (
	configName = "calpipe"
	configType = "yaml"
	envPrefix  = "CALPIPE"
)

// Load reads the configuration, searching the given paths (the current
// directory when none are given). A missing config file is not an error;
// defaults and environment variables still apply.
func Load(searchPaths ...string) (*schema.Configuration, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)

	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", errUtils.ErrInvalidConfig, err)
		}
	}

	var cfg schema.Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errUtils.ErrInvalidConfig, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.file", "/dev/stderr")
	v.SetDefault("crds.type", "filesystem")
}
