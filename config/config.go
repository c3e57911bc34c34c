package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	BackendTendermint = "tendermint"
	BackendEth        = "eth"
	BackendAvax       = "avax"

	DriverMysql    = "mysql"
	DriverPostgres = "postgres"

	DefaultStartHeight     uint64 = 4636000
	DefaultRetries                = 3
	DefaultPageSize               = 10
	defaultTimeout                = 30 * time.Second
	defaultInterval               = 12 * time.Second
	defaultRetryInterval          = time.Second
	defaultUpdaterInterval        = 13 * time.Second
)

var (
	BackoffMaxElapsedTime time.Duration = 5 * time.Minute
	Timeout               time.Duration = defaultTimeout

	GlobalConfigCallback ConfigCallback[GlobalConfig] = ConfigCallback[GlobalConfig]{}
	CfgFlag                                           = flag.String("config", "config.toml", "Configuration file (toml format)")
)

type GlobalConfig interface {
	LoggerConfig() LoggerConfig
	ChainConfig() ChainConfig
}

type Config struct {
	DB      DBConfig      `toml:"db"`
	Logger  LoggerConfig  `toml:"logger"`
	Chain   ChainConfig   `toml:"chain"`
	Scanner ScannerConfig `toml:"scanner"`
	Updater UpdaterConfig `toml:"updater"`
	API     APIConfig     `toml:"api"`
	Metrics MetricsConfig `toml:"metrics"`
}

type LoggerConfig struct {
	Level       string `toml:"level" envconfig:"LOG_LEVEL"` // valid values are: DEBUG, INFO, WARN, ERROR, DPANIC, PANIC, FATAL (zap)
	File        string `toml:"file"`
	MaxFileSize int    `toml:"max_file_size"` // In megabytes
	Console     bool   `toml:"console"`
}

type DBConfig struct {
	Driver           string `toml:"driver" envconfig:"DB_DRIVER"`
	Host             string `toml:"host" envconfig:"DB_HOST"`
	Port             int    `toml:"port" envconfig:"DB_PORT"`
	Database         string `toml:"database" envconfig:"DB_DATABASE"`
	Username         string `toml:"username" envconfig:"DB_USERNAME"`
	Password         string `toml:"password" envconfig:"DB_PASSWORD"`
	LogQueries       bool   `toml:"log_queries"`
	DropTableAtStart bool   `toml:"drop_table_at_start"`
	MaxOpenConns     int    `toml:"max_open_conns"`
}

type ChainConfig struct {
	NodeURL string   `toml:"node_url" envconfig:"CHAIN_NODE_URL"`
	Backend string   `toml:"backend" envconfig:"CHAIN_BACKEND"`
	Timeout Duration `toml:"timeout"`
}

type ScannerConfig struct {
	StartHeight   uint64   `toml:"start_height" envconfig:"SCANNER_START_HEIGHT"`
	Single        bool     `toml:"single"`
	Interval      Duration `toml:"interval"`
	Concurrency   int      `toml:"concurrency" envconfig:"SCANNER_CONCURRENCY"`
	Retries       int      `toml:"retries"`
	RetryInterval Duration `toml:"retry_interval"`
}

type UpdaterConfig struct {
	NodeURL        string   `toml:"node_url" envconfig:"UPDATER_NODE_URL"`
	StakingAddress string   `toml:"staking_address" envconfig:"STAKING_ADDRESS"`
	RewardAddress  string   `toml:"reward_address" envconfig:"REWARD_ADDRESS"`
	Interval       Duration `toml:"interval"`
	MaxWorkers     int      `toml:"max_workers"`
}

type APIConfig struct {
	Listen string `toml:"listen" envconfig:"API_LISTEN"`
}

type MetricsConfig struct {
	Listen string `toml:"listen" envconfig:"METRICS_LISTEN"`
}

// Duration is a time.Duration that decodes from strings like "12s" in toml.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func newConfig() *Config {
	return &Config{
		DB: DBConfig{
			Driver: DriverMysql,
		},
		Logger: LoggerConfig{
			Level:       "INFO",
			Console:     true,
			MaxFileSize: 10,
		},
		Chain: ChainConfig{
			Backend: BackendTendermint,
			Timeout: Duration{defaultTimeout},
		},
		Scanner: ScannerConfig{
			Interval:      Duration{defaultInterval},
			Concurrency:   runtime.NumCPU(),
			Retries:       DefaultRetries,
			RetryInterval: Duration{defaultRetryInterval},
		},
		Updater: UpdaterConfig{
			Interval:   Duration{defaultUpdaterInterval},
			MaxWorkers: runtime.NumCPU(),
		},
		API: APIConfig{
			Listen: ":8080",
		},
	}
}

func BuildConfig() (*Config, error) {
	cfgFileName := *CfgFlag

	cfg := newConfig()
	err := ParseConfigFile(cfg, cfgFileName)
	if err != nil {
		return nil, err
	}
	err = ReadEnv(cfg)
	if err != nil {
		return nil, err
	}
	Timeout = cfg.Chain.Timeout.Duration
	return cfg, nil
}

// NewDefaultConfig returns a configuration with every default filled in and
// no file or environment applied.
func NewDefaultConfig() *Config {
	return newConfig()
}

func ParseConfigFile(cfg *Config, fileName string) error {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("error opening config file: %w", err)
	}

	_, err = toml.Decode(string(content), cfg)
	if err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

func ReadEnv(cfg interface{}) error {
	// a missing .env file is fine, the process env is still read
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	err := envconfig.Process("", cfg)
	if err != nil {
		return fmt.Errorf("error reading env config: %w", err)
	}
	return nil
}

func (c Config) LoggerConfig() LoggerConfig {
	return c.Logger
}

func (c Config) ChainConfig() ChainConfig {
	return c.Chain
}

func (c ChainConfig) FullNodeURL() (*url.URL, error) {
	u, err := url.Parse(c.NodeURL)
	if err != nil {
		return nil, errors.Wrap(err, "url.Parse")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid node url %q", c.NodeURL)
	}
	return u, nil
}

// ValidateScanner checks the sections needed by the scanner binary.
func (c *Config) ValidateScanner() error {
	if err := c.validateDB(); err != nil {
		return err
	}
	if _, err := c.Chain.FullNodeURL(); err != nil {
		return errors.Wrap(err, "chain.node_url")
	}
	switch strings.ToLower(c.Chain.Backend) {
	case BackendTendermint, BackendEth, BackendAvax:
	default:
		return fmt.Errorf("unknown chain backend %q", c.Chain.Backend)
	}
	if c.Chain.Timeout.Duration <= 0 {
		return errors.New("chain.timeout must be positive")
	}
	if c.Scanner.Concurrency <= 0 {
		return errors.New("scanner.concurrency must be positive")
	}
	if c.Scanner.Retries <= 0 {
		return errors.New("scanner.retries must be positive")
	}
	if c.Scanner.Interval.Duration <= 0 {
		return errors.New("scanner.interval must be positive")
	}
	if c.Scanner.Single && c.Scanner.StartHeight == 0 {
		return errors.New("scanner.single requires scanner.start_height")
	}
	return nil
}

// ValidateUpdater checks the sections needed by the updater and api binaries.
func (c *Config) ValidateUpdater() error {
	if err := c.validateDB(); err != nil {
		return err
	}
	if c.Updater.NodeURL == "" {
		return errors.New("updater.node_url is required")
	}
	if c.Updater.StakingAddress == "" {
		return errors.New("updater.staking_address is required")
	}
	if c.Updater.Interval.Duration <= 0 {
		return errors.New("updater.interval must be positive")
	}
	return nil
}

func (c *Config) validateDB() error {
	switch c.DB.Driver {
	case DriverMysql, DriverPostgres:
		return nil
	default:
		return fmt.Errorf("unknown db driver %q", c.DB.Driver)
	}
}
