// Package config loads the storage engine's YAML configuration via
// Viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the on-disk storage engine's full runtime configuration.
// Page size is deliberately absent: it is a fixed 16 KiB, not a tunable.
type Config struct {
	Storage struct {
		// File is the path to the single backing file the Disk Manager
		// opens.
		File string `mapstructure:"file"`
	} `mapstructure:"storage"`

	BufferPool struct {
		// PoolSize is the number of frames the Buffer Pool Manager
		// holds in memory at once.
		PoolSize int `mapstructure:"pool_size"`
	} `mapstructure:"buffer_pool"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.Storage.File = "./pagekit.db"
	cfg.BufferPool.PoolSize = 64
	cfg.Log.Level = "info"
	return cfg
}

// Load reads and unmarshals the YAML config at path. Unset fields keep
// Default's values, since Load seeds viper's defaults before reading
// the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := Default()
	v.SetDefault("storage.file", def.Storage.File)
	v.SetDefault("buffer_pool.pool_size", def.BufferPool.PoolSize)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}
