// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is constructed once at
// process start (see cmd/root.go) and passed into every component constructor;
// there is no ambient global settings object.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	User    UserConfig    `mapstructure:"user" yaml:"user"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Forms   FormsConfig   `mapstructure:"forms" yaml:"forms"`
	Rate    RateConfig    `mapstructure:"rate" yaml:"rate"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Notify  NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	Watcher WatcherConfig `mapstructure:"watcher" yaml:"watcher"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// UserConfig is the identity submitted into attendance forms.
type UserConfig struct {
	StudentName string `mapstructure:"student_name" yaml:"student_name"`
	StudentID   string `mapstructure:"student_id" yaml:"student_id"`
}

// BrowserConfig holds settings for the controlled Chrome instance.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ProfileDir is the persistent user-data directory. Keeping it across runs
	// preserves cookies, so a Microsoft account stays logged in. "~" expands to
	// the user's home directory.
	ProfileDir string   `mapstructure:"profile_dir" yaml:"profile_dir"`
	Locale     string   `mapstructure:"locale" yaml:"locale"`
	Timezone   string   `mapstructure:"timezone" yaml:"timezone"`
	Args       []string `mapstructure:"args" yaml:"args"`

	Humanoid HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// HumanoidConfig bounds the randomized pacing policies. These delays are
// business logic: they keep interaction timing inside the envelope that form
// providers' bot heuristics treat as human.
type HumanoidConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	KeyDelayMin    time.Duration `mapstructure:"key_delay_min" yaml:"key_delay_min"`
	KeyDelayMax    time.Duration `mapstructure:"key_delay_max" yaml:"key_delay_max"`
	ThinkChance    float64       `mapstructure:"think_chance" yaml:"think_chance"`
	ThinkPauseMin  time.Duration `mapstructure:"think_pause_min" yaml:"think_pause_min"`
	ThinkPauseMax  time.Duration `mapstructure:"think_pause_max" yaml:"think_pause_max"`
	ClickPauseMin  time.Duration `mapstructure:"click_pause_min" yaml:"click_pause_min"`
	ClickPauseMax  time.Duration `mapstructure:"click_pause_max" yaml:"click_pause_max"`
	ReadingPerItem time.Duration `mapstructure:"reading_per_item" yaml:"reading_per_item"`
}

// FormsConfig tunes the analysis/fill/submit pipeline.
type FormsConfig struct {
	// ConfidenceThreshold gates filling when the field mapping is incomplete.
	// Below it the attempt is aborted (the AI fallback is a stub and must fail
	// closed rather than proceed with partial data).
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	AnalyzeTimeout      time.Duration `mapstructure:"analyze_timeout" yaml:"analyze_timeout"`
	NavigationTimeout   time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SubmitSettleWait    time.Duration `mapstructure:"submit_settle_wait" yaml:"submit_settle_wait"`
	CaptchaPause        time.Duration `mapstructure:"captcha_pause" yaml:"captcha_pause"`
	MaxRetryAttempts    int           `mapstructure:"max_retry_attempts" yaml:"max_retry_attempts"`
	RetryDelay          time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	ScreenshotDir       string        `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	SnapshotDir         string        `mapstructure:"snapshot_dir" yaml:"snapshot_dir"`
}

// RateConfig parameterizes the submission rate limiter.
type RateConfig struct {
	MinDelay      time.Duration `mapstructure:"min_delay" yaml:"min_delay"`
	MaxPerHour    int           `mapstructure:"max_per_hour" yaml:"max_per_hour"`
	BreakAfterN   int           `mapstructure:"break_after_n" yaml:"break_after_n"`
	BreakDuration time.Duration `mapstructure:"break_duration" yaml:"break_duration"`
}

// StoreConfig holds the submission log database location.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// NotifyConfig configures the fire-and-forget notification sinks.
type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token" yaml:"telegram_token"`
	TelegramChatID string `mapstructure:"telegram_chat_id" yaml:"telegram_chat_id"`
}

// HasTelegram reports whether Telegram notifications are fully configured.
func (n NotifyConfig) HasTelegram() bool {
	return n.TelegramToken != "" && n.TelegramChatID != ""
}

// WatcherConfig configures the messaging-client link monitor.
type WatcherConfig struct {
	ChatURL      string        `mapstructure:"chat_url" yaml:"chat_url"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "attendbot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// Browser
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.profile_dir", "~/.attendbot/chrome")
	v.SetDefault("browser.locale", "tr-TR")
	v.SetDefault("browser.timezone", "Europe/Istanbul")
	v.SetDefault("browser.args", []string{})

	// Humanoid pacing
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.key_delay_min", 50*time.Millisecond)
	v.SetDefault("browser.humanoid.key_delay_max", 150*time.Millisecond)
	v.SetDefault("browser.humanoid.think_chance", 0.1)
	v.SetDefault("browser.humanoid.think_pause_min", 200*time.Millisecond)
	v.SetDefault("browser.humanoid.think_pause_max", 500*time.Millisecond)
	v.SetDefault("browser.humanoid.click_pause_min", 200*time.Millisecond)
	v.SetDefault("browser.humanoid.click_pause_max", 800*time.Millisecond)
	v.SetDefault("browser.humanoid.reading_per_item", 400*time.Millisecond)

	// Forms pipeline
	v.SetDefault("forms.confidence_threshold", 0.85)
	v.SetDefault("forms.analyze_timeout", 30*time.Second)
	v.SetDefault("forms.navigation_timeout", 30*time.Second)
	v.SetDefault("forms.submit_settle_wait", 3*time.Second)
	v.SetDefault("forms.captcha_pause", 2*time.Minute)
	v.SetDefault("forms.max_retry_attempts", 3)
	v.SetDefault("forms.retry_delay", 10*time.Second)
	v.SetDefault("forms.screenshot_dir", "logs/screenshots")

	// Rate limiting
	v.SetDefault("rate.min_delay", 60*time.Second)
	v.SetDefault("rate.max_per_hour", 10)
	v.SetDefault("rate.break_after_n", 5)
	v.SetDefault("rate.break_duration", 5*time.Minute)

	// Store
	v.SetDefault("store.path", "data/attendbot.db")

	// Watcher
	v.SetDefault("watcher.chat_url", "https://web.whatsapp.com")
	v.SetDefault("watcher.poll_interval", 15*time.Second)
}

// Load reads the configuration from the given viper instance and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values only.
// Intended for tests and for components constructed without a config file.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logger level %q", c.Logger.Level)
	}
	if c.Forms.ConfidenceThreshold < 0 || c.Forms.ConfidenceThreshold > 1 {
		return fmt.Errorf("forms.confidence_threshold must be within [0,1], got %v", c.Forms.ConfidenceThreshold)
	}
	if c.Rate.MaxPerHour < 1 {
		return fmt.Errorf("rate.max_per_hour must be at least 1, got %d", c.Rate.MaxPerHour)
	}
	if c.Rate.BreakAfterN < 1 {
		return fmt.Errorf("rate.break_after_n must be at least 1, got %d", c.Rate.BreakAfterN)
	}
	if c.Forms.MaxRetryAttempts < 1 {
		return fmt.Errorf("forms.max_retry_attempts must be at least 1, got %d", c.Forms.MaxRetryAttempts)
	}
	return nil
}
