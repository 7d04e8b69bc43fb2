package types

import "time"

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"LOGGING_FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Chain struct {
		DisplayName string `yaml:"displayName" envconfig:"CHAIN_DISPLAY_NAME"`
		ChainId     uint64 `yaml:"chainId" envconfig:"CHAIN_ID"`
		TokenSymbol string `yaml:"tokenSymbol" envconfig:"CHAIN_TOKEN_SYMBOL"`
	} `yaml:"chain"`

	ExecutionApi struct {
		Endpoint string            `yaml:"endpoint" envconfig:"EXECUTIONAPI_ENDPOINT"`
		Headers  map[string]string `yaml:"headers"`

		CallTimeout  time.Duration `yaml:"callTimeout" envconfig:"EXECUTIONAPI_CALL_TIMEOUT"`
		LogBatchSize int           `yaml:"logBatchSize" envconfig:"EXECUTIONAPI_LOG_BATCH_SIZE"`
	} `yaml:"executionapi"`

	Indexer struct {
		StartBlock    uint64 `yaml:"startBlock" envconfig:"INDEXER_START_BLOCK"`
		MaxReorgDepth uint64 `yaml:"maxReorgDepth" envconfig:"INDEXER_MAX_REORG_DEPTH"`

		TrackInternalTxs bool `yaml:"trackInternalTxs" envconfig:"INDEXER_TRACK_INTERNAL_TXS"`
		TrackTokens      bool `yaml:"trackTokens" envconfig:"INDEXER_TRACK_TOKENS"`
		FetchBalances    bool `yaml:"fetchBalances" envconfig:"INDEXER_FETCH_BALANCES"`

		HeadPollInterval time.Duration `yaml:"headPollInterval" envconfig:"INDEXER_HEAD_POLL_INTERVAL"`
		RetryBaseDelay   time.Duration `yaml:"retryBaseDelay" envconfig:"INDEXER_RETRY_BASE_DELAY"`
		RetryMaxDelay    time.Duration `yaml:"retryMaxDelay" envconfig:"INDEXER_RETRY_MAX_DELAY"`
		WatchdogTimeout  time.Duration `yaml:"watchdogTimeout" envconfig:"INDEXER_WATCHDOG_TIMEOUT"`

		TokenMetadataInterval time.Duration `yaml:"tokenMetadataInterval" envconfig:"INDEXER_TOKEN_METADATA_INTERVAL"`
	} `yaml:"indexer"`

	Api struct {
		Enabled     bool     `yaml:"enabled" envconfig:"API_ENABLED"`
		Host        string   `yaml:"host" envconfig:"API_HOST"`
		Port        string   `yaml:"port" envconfig:"API_PORT"`
		CorsOrigins []string `yaml:"corsOrigins" envconfig:"API_CORS_ORIGINS"`

		HttpReadTimeout  time.Duration `yaml:"httpReadTimeout" envconfig:"API_HTTP_READ_TIMEOUT"`
		HttpWriteTimeout time.Duration `yaml:"httpWriteTimeout" envconfig:"API_HTTP_WRITE_TIMEOUT"`
		HttpIdleTimeout  time.Duration `yaml:"httpIdleTimeout" envconfig:"API_HTTP_IDLE_TIMEOUT"`
	} `yaml:"api"`

	RateLimit struct {
		Enabled    bool `yaml:"enabled" envconfig:"RATELIMIT_ENABLED"`
		ProxyCount uint `yaml:"proxyCount" envconfig:"RATELIMIT_PROXY_COUNT"`
		Rate       uint `yaml:"rate" envconfig:"RATELIMIT_RATE"`
		Burst      uint `yaml:"burst" envconfig:"RATELIMIT_BURST"`
	} `yaml:"rateLimit"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Host    string `yaml:"host" envconfig:"METRICS_HOST"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`

	Database struct {
		Engine      string               `yaml:"engine" envconfig:"DATABASE_ENGINE"`
		Sqlite      SqliteDatabaseConfig `yaml:"sqlite"`
		Pgsql       PgsqlDatabaseConfig  `yaml:"pgsql"`
		PgsqlWriter PgsqlDatabaseConfig  `yaml:"pgsqlWriter"`
	} `yaml:"database"`
}

type SqliteDatabaseConfig struct {
	File         string `yaml:"file" envconfig:"DATABASE_SQLITE_FILE"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_SQLITE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_SQLITE_MAX_IDLE_CONNS"`
}

type PgsqlDatabaseConfig struct {
	Username     string `yaml:"user" envconfig:"DATABASE_PGSQL_USERNAME"`
	Password     string `yaml:"password" envconfig:"DATABASE_PGSQL_PASSWORD"`
	Name         string `yaml:"name" envconfig:"DATABASE_PGSQL_NAME"`
	Host         string `yaml:"host" envconfig:"DATABASE_PGSQL_HOST"`
	Port         string `yaml:"port" envconfig:"DATABASE_PGSQL_PORT"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_PGSQL_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_PGSQL_MAX_IDLE_CONNS"`
}
