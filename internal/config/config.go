// Package config loads and validates service configuration from file and
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration tree.
type Config struct {
	Development bool   `mapstructure:"development"`
	DryRun      bool   `mapstructure:"dry_run"`
	DataDir     string `mapstructure:"data_dir"`

	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Search    SearchConfig    `mapstructure:"search"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Processed ProcessedConfig `mapstructure:"processed"`
	JobSource JobSourceConfig `mapstructure:"job_source"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
}

// ServerConfig covers the HTTP admin surface in serve mode.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// CronSchedule triggers ticks in serve mode; empty disables the cron.
	CronSchedule string `mapstructure:"cron_schedule"`
}

// SchedulerConfig covers run shaping.
type SchedulerConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	MaxContactsPerRun int           `mapstructure:"max_contacts_per_run"`
	ReportTimeout     time.Duration `mapstructure:"report_timeout"`
}

// SearchConfig covers the static keyword pool and search constraints used
// when no backend job source is configured.
type SearchConfig struct {
	Keywords   []string          `mapstructure:"keywords"`
	Candidates []CandidateConfig `mapstructure:"candidates"`
	Coverage   int               `mapstructure:"coverage"`
	DateWindow string            `mapstructure:"date_window"`
	SortBy     string            `mapstructure:"sort_by"`
}

// CandidateConfig names one worker account.
type CandidateConfig struct {
	ID            string `mapstructure:"id"`
	CredentialRef string `mapstructure:"credential_ref"`
}

// BrowserConfig covers the headless Chrome scraper.
type BrowserConfig struct {
	SearchBaseURL     string        `mapstructure:"search_base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ProfileBaseDir    string        `mapstructure:"profile_base_dir"`
	MaxPosts          int           `mapstructure:"max_posts"`
	ScrollPasses      int           `mapstructure:"scroll_passes"`
	Headless          bool          `mapstructure:"headless"`
}

// RetryConfig covers transient-failure retries.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// StorageConfig selects and configures the contact store.
type StorageConfig struct {
	// Provider is one of "postgres", "csv", "memory".
	Provider string `mapstructure:"provider"`
	Postgres struct {
		ConnString string `mapstructure:"conn_string"`
	} `mapstructure:"postgres"`
	CSV struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"csv"`
	// OwnEmails are the operator's addresses, never extracted as leads.
	OwnEmails []string `mapstructure:"own_emails"`
}

// ProcessedConfig selects the cross-run processed-post store.
type ProcessedConfig struct {
	// Provider is one of "file", "redis", "none".
	Provider string `mapstructure:"provider"`
	File     struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"file"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
}

// JobSourceConfig selects where pending jobs come from.
type JobSourceConfig struct {
	// Provider is "static" or "backend".
	Provider string `mapstructure:"provider"`
}

// BackendConfig covers the backend API used by the HTTP job source and the
// activity reporter.
type BackendConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Token       string        `mapstructure:"token"`
	JobTypeName string        `mapstructure:"job_type_name"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// TelegramConfig covers the optional Telegram summary reporter.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

// Load reads the config file at path (optional) plus LEADHARVEST_*
// environment overrides, applies defaults, and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LEADHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("development", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("data_dir", "data")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.cron_schedule", "0 */4 * * *")

	v.SetDefault("scheduler.concurrency", 2)
	v.SetDefault("scheduler.max_contacts_per_run", 0)
	v.SetDefault("scheduler.report_timeout", 30*time.Second)

	v.SetDefault("search.coverage", 0)
	v.SetDefault("search.date_window", "past-24h")
	v.SetDefault("search.sort_by", "date_posted")

	v.SetDefault("browser.search_base_url", "https://www.linkedin.com/search/results/content")
	v.SetDefault("browser.navigation_timeout", 45*time.Second)
	v.SetDefault("browser.max_posts", 25)
	v.SetDefault("browser.scroll_passes", 3)
	v.SetDefault("browser.headless", true)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", 250*time.Millisecond)
	v.SetDefault("retry.max_delay", 5*time.Second)

	v.SetDefault("storage.provider", "csv")
	v.SetDefault("storage.csv.dir", "data/contacts")

	v.SetDefault("processed.provider", "file")
	v.SetDefault("processed.file.dir", "data/processed")

	v.SetDefault("job_source.provider", "static")

	v.SetDefault("backend.job_type_name", "linkedin_extraction")
	v.SetDefault("backend.timeout", 15*time.Second)
}

// Validate rejects configurations that cannot produce a working service.
func (c *Config) Validate() error {
	switch c.Storage.Provider {
	case "postgres":
		if c.Storage.Postgres.ConnString == "" {
			return fmt.Errorf("storage.postgres.conn_string is required for the postgres provider")
		}
	case "csv":
		if c.Storage.CSV.Dir == "" {
			return fmt.Errorf("storage.csv.dir is required for the csv provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}

	switch c.Processed.Provider {
	case "file":
		if c.Processed.File.Dir == "" {
			return fmt.Errorf("processed.file.dir is required for the file provider")
		}
	case "redis":
		if c.Processed.Redis.Addr == "" {
			return fmt.Errorf("processed.redis.addr is required for the redis provider")
		}
	case "none":
	default:
		return fmt.Errorf("unknown processed provider %q", c.Processed.Provider)
	}

	switch c.JobSource.Provider {
	case "static":
		if len(c.Search.Keywords) == 0 {
			return fmt.Errorf("search.keywords must not be empty with the static job source")
		}
		if len(c.Search.Candidates) == 0 {
			return fmt.Errorf("search.candidates must not be empty with the static job source")
		}
	case "backend":
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("backend.base_url is required for the backend job source")
		}
	default:
		return fmt.Errorf("unknown job source provider %q", c.JobSource.Provider)
	}

	if c.Telegram.Enabled {
		if c.Telegram.Token == "" || c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.token and telegram.chat_id are required when telegram is enabled")
		}
	}
	if c.Scheduler.Concurrency < 0 {
		return fmt.Errorf("scheduler.concurrency must not be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}
