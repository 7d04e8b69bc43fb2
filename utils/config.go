package utils

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/config"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
)

// Config is the globally accessible configuration
var Config *types.Config

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	readConfigEnv(cfg)

	// apply defaults for unset values
	defaultCfg := buildDefaultConfig()
	err = mergo.Merge(cfg, defaultCfg)
	if err != nil {
		return fmt.Errorf("error merging default config: %w", err)
	}

	return nil
}

func readConfigFile(cfg *types.Config, path string) error {
	if path == "" {
		return yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %w", path, err)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}

func buildDefaultConfig() *types.Config {
	cfg := &types.Config{}
	cfg.Logging.OutputLevel = "info"
	cfg.Chain.DisplayName = "Telebit"
	cfg.Chain.TokenSymbol = "TBT"
	cfg.ExecutionApi.CallTimeout = 30 * time.Second
	cfg.ExecutionApi.LogBatchSize = 1000
	cfg.Indexer.MaxReorgDepth = 64
	cfg.Indexer.HeadPollInterval = 4 * time.Second
	cfg.Indexer.RetryBaseDelay = 1 * time.Second
	cfg.Indexer.RetryMaxDelay = 60 * time.Second
	cfg.Indexer.WatchdogTimeout = 5 * time.Minute
	cfg.Indexer.TokenMetadataInterval = 30 * time.Second
	cfg.Api.Host = "0.0.0.0"
	cfg.Api.Port = "8080"
	cfg.Api.HttpReadTimeout = 30 * time.Second
	cfg.Api.HttpWriteTimeout = 30 * time.Second
	cfg.Api.HttpIdleTimeout = 120 * time.Second
	cfg.Metrics.Host = "127.0.0.1"
	cfg.Metrics.Port = "9090"
	cfg.Database.Engine = "sqlite"
	cfg.Database.Sqlite.File = "./explorer.sqlite"
	return cfg
}
