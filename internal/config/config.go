package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Scan        ScanConfig        `mapstructure:"scan"`
	Dexscreener DexscreenerConfig `mapstructure:"dexscreener"`
	Rugcheck    RugcheckConfig    `mapstructure:"rugcheck"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`

	Safety     SafetyConfig     `mapstructure:"safety"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Pacer      PacerConfig      `mapstructure:"pacer"`

	Telegram TelegramConfig `mapstructure:"telegram"`
	Labeler  LabelerConfig  `mapstructure:"labeler"`
	Stream   StreamConfig   `mapstructure:"stream"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	LedgerPurge string `mapstructure:"ledger_purge"`
	StatsReport string `mapstructure:"stats_report"`
}

type ScanConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	Chains           []string      `mapstructure:"chains"`
	SearchQueries    []string      `mapstructure:"search_queries"`
	QueriesPerScan   int           `mapstructure:"queries_per_scan"`
	MaxPairsPerChain int           `mapstructure:"max_pairs_per_chain"`
	MinTokenAge      time.Duration `mapstructure:"min_token_age"`
	MaxMarketCapUSD  float64       `mapstructure:"max_market_cap_usd"`
}

type DexscreenerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RugcheckConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	CallsPerMinute int `mapstructure:"calls_per_minute"`
	Burst          int `mapstructure:"burst"`
}

type SafetyConfig struct {
	MinLiquidityUSD  float64 `mapstructure:"min_liquidity_usd"`
	MinMarketCapUSD  float64 `mapstructure:"min_market_cap_usd"`
	MinVolumeUSD24h  float64 `mapstructure:"min_volume_usd_24h"`
	MinHolders       int     `mapstructure:"min_holders"`
	MinTransactions  int     `mapstructure:"min_transactions"`
	MaxTaxPercentage float64 `mapstructure:"max_tax_percentage"`

	// Fake-volume multiples: volume above either bound flags manipulation.
	VolumeLiquidityMultiple float64 `mapstructure:"volume_liquidity_multiple"`
	VolumeMarketCapMultiple float64 `mapstructure:"volume_market_cap_multiple"`

	// Every filter can be flipped between blocking and advisory per
	// deployment. Liquidity, market cap and holders block by default;
	// volume, transactions and single-sided trading advise by default.
	LiquidityBlocking    bool `mapstructure:"liquidity_blocking"`
	MarketCapBlocking    bool `mapstructure:"market_cap_blocking"`
	HoldersBlocking      bool `mapstructure:"holders_blocking"`
	VolumeBlocking       bool `mapstructure:"volume_blocking"`
	TransactionsBlocking bool `mapstructure:"transactions_blocking"`
	SingleSidedBlocking  bool `mapstructure:"single_sided_blocking"`
}

type ClassifierConfig struct {
	Threshold1hPct      float64 `mapstructure:"threshold_1h_pct"`
	Threshold6hPct      float64 `mapstructure:"threshold_6h_pct"`
	Threshold24hPct     float64 `mapstructure:"threshold_24h_pct"`
	PremiumMarketCapUSD float64 `mapstructure:"premium_market_cap_usd"`
	PremiumVolumeUSD    float64 `mapstructure:"premium_volume_usd"`
}

type DedupConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type PacerConfig struct {
	TargetPerMinute int           `mapstructure:"target_per_minute"`
	MaxQueue        int           `mapstructure:"max_queue"`
	CandidateTTL    time.Duration `mapstructure:"candidate_ttl"`
}

type TelegramConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Token   string        `mapstructure:"token"`
	ChatID  string        `mapstructure:"chat_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LabelerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type StreamConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	SubscriberBuf int  `mapstructure:"subscriber_buf"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.ledger_purge", "@every 1h")
	v.SetDefault("cron.stats_report", "@every 6h")

	v.SetDefault("scan.interval", "30s")
	v.SetDefault("scan.chains", []string{"solana", "bsc", "ethereum"})
	v.SetDefault("scan.search_queries", []string{})
	v.SetDefault("scan.queries_per_scan", 15)
	v.SetDefault("scan.max_pairs_per_chain", 100)
	v.SetDefault("scan.min_token_age", "1m")
	v.SetDefault("scan.max_market_cap_usd", 5_000_000)

	v.SetDefault("dexscreener.base_url", "https://api.dexscreener.com/latest")
	v.SetDefault("dexscreener.timeout", "30s")
	v.SetDefault("rugcheck.enabled", true)
	v.SetDefault("rugcheck.base_url", "https://api.rugcheck.xyz/v1")
	v.SetDefault("rugcheck.timeout", "30s")
	v.SetDefault("rate_limit.calls_per_minute", 60)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("safety.min_liquidity_usd", 1000)
	v.SetDefault("safety.min_market_cap_usd", 10_000)
	v.SetDefault("safety.min_volume_usd_24h", 50)
	v.SetDefault("safety.min_holders", 0)
	v.SetDefault("safety.min_transactions", 0)
	v.SetDefault("safety.max_tax_percentage", 10)
	v.SetDefault("safety.volume_liquidity_multiple", 20)
	v.SetDefault("safety.volume_market_cap_multiple", 10)
	v.SetDefault("safety.liquidity_blocking", true)
	v.SetDefault("safety.market_cap_blocking", true)
	v.SetDefault("safety.holders_blocking", true)
	v.SetDefault("safety.volume_blocking", false)
	v.SetDefault("safety.transactions_blocking", false)
	v.SetDefault("safety.single_sided_blocking", false)

	v.SetDefault("classifier.threshold_1h_pct", 1)
	v.SetDefault("classifier.threshold_6h_pct", 1)
	v.SetDefault("classifier.threshold_24h_pct", 5)
	v.SetDefault("classifier.premium_market_cap_usd", 100_000_000)
	v.SetDefault("classifier.premium_volume_usd", 1_000_000)

	v.SetDefault("dedup.cooldown", "10m")
	v.SetDefault("pacer.target_per_minute", 5)
	v.SetDefault("pacer.max_queue", 256)
	v.SetDefault("pacer.candidate_ttl", "10m")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.timeout", "10s")
	v.SetDefault("labeler.enabled", true)
	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.subscriber_buf", 16)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
