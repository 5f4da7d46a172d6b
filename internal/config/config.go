package config

import (
	"errors"
	"io/fs"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/postcode-cli/pkg/geocode"
)

// Output formats understood by the aggregate command.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatGeoJSON = "geojson"
)

// Progress styles.
const (
	ProgressLines = "lines"
	ProgressBar   = "bar"
	ProgressNone  = "none"
	ProgressAuto  = "auto"
)

var (
	knownFormats  = []string{FormatJSON, FormatCSV, FormatXLSX, FormatGeoJSON}
	knownProgress = []string{ProgressLines, ProgressBar, ProgressNone, ProgressAuto}
)

// Config holds the full application configuration.
type Config struct {
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Progress  ProgressConfig  `yaml:"progress" mapstructure:"progress"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DirectoryConfig points at the postal directory API.
type DirectoryConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeocodeConfig holds Google Geocoding API settings.
type GeocodeConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// Enabled reports whether a usable API key is configured. The sample
// placeholder key counts as missing.
func (g GeocodeConfig) Enabled() bool {
	return geocode.KeyConfigured(g.APIKey)
}

// FetchConfig configures upstream HTTP reads. A RetryDelaySecs of 0 retries
// immediately.
type FetchConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelaySecs    int     `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	MaxRetryDelaySecs int     `yaml:"max_retry_delay_secs" mapstructure:"max_retry_delay_secs"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	JitterFraction    float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Dir      string   `yaml:"dir" mapstructure:"dir"`
	Formats  []string `yaml:"formats" mapstructure:"formats"`
	S3Bucket string   `yaml:"s3_bucket" mapstructure:"s3_bucket"`
	S3Prefix string   `yaml:"s3_prefix" mapstructure:"s3_prefix"`
	S3Region string   `yaml:"s3_region" mapstructure:"s3_region"`
}

// ProgressConfig selects how traversal progress is shown. Style "auto" uses
// the bar when stdout is a terminal and lines otherwise.
type ProgressConfig struct {
	Style string `yaml:"style" mapstructure:"style"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from a .env file, config.yaml and the environment.
func Load() (*Config, error) {
	// .env never overrides variables that are already set.
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POSTCODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("geocode.api_key", "POSTCODE_GEOCODE_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("directory.base_url", "https://www.maltapost.com/postcode/api/v1/Address/")
	v.SetDefault("geocode.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("fetch.max_attempts", 10)
	v.SetDefault("fetch.retry_delay_secs", 30)
	v.SetDefault("fetch.max_retry_delay_secs", 30)
	v.SetDefault("fetch.backoff_multiplier", 1.0)
	v.SetDefault("fetch.jitter_fraction", 0.0)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.requests_per_second", 0.0)
	v.SetDefault("fetch.user_agent", "postcode-cli/1.0")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.formats", []string{FormatJSON, FormatCSV})
	v.SetDefault("output.s3_bucket", "")
	v.SetDefault("output.s3_prefix", "")
	v.SetDefault("output.s3_region", "eu-west-1")
	v.SetDefault("progress.style", ProgressLines)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	for i, f := range cfg.Output.Formats {
		cfg.Output.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}

	return &cfg, nil
}

// Validate checks the configuration for values the aggregate run cannot use.
func (c *Config) Validate() error {
	var problems []string

	if c.Directory.BaseURL == "" {
		problems = append(problems, "directory.base_url is required")
	}
	if c.Fetch.MaxAttempts < 1 {
		problems = append(problems, "fetch.max_attempts must be at least 1")
	}
	if c.Fetch.RetryDelaySecs < 0 {
		problems = append(problems, "fetch.retry_delay_secs must not be negative")
	}
	if c.Fetch.JitterFraction < 0 || c.Fetch.JitterFraction > 1 {
		problems = append(problems, "fetch.jitter_fraction must be between 0 and 1")
	}
	if c.Fetch.RequestsPerSecond < 0 {
		problems = append(problems, "fetch.requests_per_second must not be negative")
	}
	if len(c.Output.Formats) == 0 {
		problems = append(problems, "output.formats must name at least one format")
	}
	for _, f := range c.Output.Formats {
		if !slices.Contains(knownFormats, f) {
			problems = append(problems, "output.formats: unknown format "+f)
		}
	}
	if !slices.Contains(knownProgress, c.Progress.Style) {
		problems = append(problems, "progress.style: unknown style "+c.Progress.Style)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
