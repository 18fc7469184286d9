// Package config loads the engine's YAML configuration via viper, the way
// the original novasql.internal.LoadConfig did, expanded with the PF/SM
// session parameters SPEC_FULL.md section 2.3 adds.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RedbaseConfig is the top-level shape of the engine's YAML config file.
type RedbaseConfig struct {
	Storage struct {
		DataDir         string `mapstructure:"data_dir"`
		PageSize        int    `mapstructure:"page_size"`
		BufferPoolPages int    `mapstructure:"buffer_pool_pages"`
	} `mapstructure:"storage"`

	Session struct {
		PrintCommands bool `mapstructure:"print_commands"`
		OptimizeQuery bool `mapstructure:"optimize_query"`
		QueryPlans    bool `mapstructure:"query_plans"`
	} `mapstructure:"session"`
}

// Defaults returns the values Load starts from; a field absent from the
// config file keeps the value set here.
func Defaults() RedbaseConfig {
	var cfg RedbaseConfig
	cfg.Storage.DataDir = "."
	cfg.Storage.PageSize = 4096
	cfg.Storage.BufferPoolPages = 128
	cfg.Session.PrintCommands = false
	cfg.Session.OptimizeQuery = true
	cfg.Session.QueryPlans = false
	return cfg
}

// Load reads a YAML config file at path, overlaying it onto Defaults.
func Load(path string) (RedbaseConfig, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
