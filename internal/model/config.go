package model

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Enum helpers.
const (
	ActionCreate   = "creation"
	ActionValidate = "validation"

	DefaultAzBinary      = "az"
	DefaultConcurrency   = 10
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 5 * time.Second
	DefaultLogDir        = "logs"
	DefaultLedger        = "snap_rid_list.txt"
	DefaultVMList        = "snapshot_vmlist.txt"
	DefaultHostInventory = "linux_vm-inventory.csv"
	DefaultExpireDays    = 3
	DefaultNamePrefix    = "RH"
)

type Config struct {
	Version  int      `yaml:"version"` // fixed 0 for now
	Verbose  bool     `yaml:"verbose" env:"AZSNAP_VERBOSE"`
	Az       Az       `yaml:"az" envPrefix:"AZSNAP_AZ_"`
	Run      Run      `yaml:"run" envPrefix:"AZSNAP_RUN_"`
	Files    Files    `yaml:"files" envPrefix:"AZSNAP_FILES_"`
	Snapshot Snapshot `yaml:"snapshot" envPrefix:"AZSNAP_SNAPSHOT_"`
	Publish  Publish  `yaml:"publish" envPrefix:"AZSNAP_PUBLISH_"`
	Tracing  Tracing  `yaml:"tracing" envPrefix:"AZSNAP_TRACING_"`
}

// Az configures how the az command line is invoked.
type Az struct {
	Binary     string        `yaml:"binary" env:"BINARY"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"` // per attempt, 0 means no timeout
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
}

// Run holds the settings of the orchestration engine.
type Run struct {
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
}

type Files struct {
	LogDir        string `yaml:"log_dir" env:"LOG_DIR"`
	Ledger        string `yaml:"ledger" env:"LEDGER"`
	VMList        string `yaml:"vm_list" env:"VM_LIST"`
	HostInventory string `yaml:"host_inventory" env:"HOST_INVENTORY"`
}

type Snapshot struct {
	NamePrefix string `yaml:"name_prefix" env:"NAME_PREFIX"`
	ExpireDays int    `yaml:"expire_days" env:"EXPIRE_DAYS"` // 0 disables the expiry tag
}

// Publish uploads reports to an Azure Blob container when ConnectionString is set.
type Publish struct {
	ConnectionString string `yaml:"connection_string" env:"CONNECTION_STRING" json:"-"` // carries the account key, never logged
	Container        string `yaml:"container" env:"CONTAINER"`
}

// Tracing exports OpenTelemetry spans when Endpoint (host:port) is set.
type Tracing struct {
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

func DefaultConfig() Config {
	return Config{
		Az: Az{
			Binary:     DefaultAzBinary,
			MaxRetries: DefaultMaxRetries,
			RetryDelay: DefaultRetryDelay,
		},
		Run: Run{
			Concurrency: DefaultConcurrency,
		},
		Files: Files{
			LogDir:        DefaultLogDir,
			Ledger:        DefaultLedger,
			VMList:        DefaultVMList,
			HostInventory: DefaultHostInventory,
		},
		Snapshot: Snapshot{
			NamePrefix: DefaultNamePrefix,
			ExpireDays: DefaultExpireDays,
		},
		Publish: Publish{
			Container: "azsnap",
		},
		Tracing: Tracing{
			SampleRatio: 1.0,
		},
	}
}

// LoadConfig decodes YAML from r on top of DefaultConfig. Unknown fields are rejected.
// An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with AZSNAP_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	if c.Version != 0 {
		return fmt.Errorf("config version %d is not supported, expected 0: %w", c.Version, ErrInvalidConfig)
	}
	if c.Az.Binary == "" {
		return fmt.Errorf("az.binary is empty: %w", ErrInvalidConfig)
	}
	if c.Az.MaxRetries < 1 {
		return fmt.Errorf("az.max_retries must be at least 1, got %d: %w", c.Az.MaxRetries, ErrInvalidConfig)
	}
	if c.Az.RetryDelay < 0 || c.Az.Timeout < 0 {
		return fmt.Errorf("az durations can't be negative: %w", ErrInvalidConfig)
	}
	if c.Run.Concurrency < 1 {
		return fmt.Errorf("run.concurrency must be at least 1, got %d: %w", c.Run.Concurrency, ErrInvalidConfig)
	}
	if c.Snapshot.ExpireDays < 0 {
		return fmt.Errorf("snapshot.expire_days can't be negative: %w", ErrInvalidConfig)
	}
	if c.Publish.ConnectionString != "" && c.Publish.Container == "" {
		return fmt.Errorf("publish.container is required with publish.connection_string: %w", ErrInvalidConfig)
	}
	return nil
}
