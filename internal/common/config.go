// Package common provides shared configuration and telemetry for the
// swx-plotter tools.
package common

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/viper"
)

// Config holds common configuration for all commands.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Data       DataConfig       `mapstructure:"data"`
	Output     OutputConfig     `mapstructure:"output"`
	Log        LogConfig        `mapstructure:"log"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
}

// APIConfig locates the DONKI service.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Key     string        `mapstructure:"key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DataConfig selects the date window and where raw dumps live.
type DataConfig struct {
	StartDate string `mapstructure:"start_date"` // overrides per-dataset start when set
	EndDate   string `mapstructure:"end_date"`   // YYYY-MM-DD, empty means today
	DumpDir   string `mapstructure:"dump_dir"`
	Offline   bool   `mapstructure:"offline"` // read dumps instead of calling DONKI
}

// OutputConfig controls chart files and terminal output.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // png or svg
	Colors bool   `mapstructure:"colors"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// ClickHouseConfig addresses the optional ingest sink.
type ClickHouseConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Protocol string `mapstructure:"protocol"` // native (ch-go) or batch (clickhouse-go)
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://api.nasa.gov/DONKI/",
			Key:     "DEMO_KEY",
			Timeout: 5 * time.Minute,
		},
		Data: DataConfig{
			DumpDir: filepath.Join("data", "donki"),
		},
		Output: OutputConfig{
			Dir:    "charts",
			Format: "png",
			Colors: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		ClickHouse: ClickHouseConfig{
			Addr:     "127.0.0.1:9000",
			Database: "swx",
			User:     "default",
			Protocol: "native",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and SWX_*
// environment variables, in increasing order of precedence. An empty
// cfgFile searches for swx.yaml in the working directory and
// $HOME/.config/swx-plotter; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("swx")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/swx-plotter")
	}

	v.SetEnvPrefix("SWX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.key", d.API.Key)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("data.start_date", d.Data.StartDate)
	v.SetDefault("data.end_date", d.Data.EndDate)
	v.SetDefault("data.dump_dir", d.Data.DumpDir)
	v.SetDefault("data.offline", d.Data.Offline)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.colors", d.Output.Colors)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.json", d.Log.JSON)

	v.SetDefault("clickhouse.addr", d.ClickHouse.Addr)
	v.SetDefault("clickhouse.database", d.ClickHouse.Database)
	v.SetDefault("clickhouse.user", d.ClickHouse.User)
	v.SetDefault("clickhouse.password", d.ClickHouse.Password)
	v.SetDefault("clickhouse.protocol", d.ClickHouse.Protocol)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	for name, date := range map[string]string{"data.start_date": c.Data.StartDate, "data.end_date": c.Data.EndDate} {
		if date == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return errors.Wrapf(err, "%s", name)
		}
	}
	switch c.Output.Format {
	case "png", "svg":
	default:
		return errors.Errorf("output.format %q: must be png or svg", c.Output.Format)
	}
	return nil
}

// EndDate returns the configured end date, or today in UTC.
func (c *Config) EndDate(now time.Time) string {
	if c.Data.EndDate != "" {
		return c.Data.EndDate
	}
	return now.UTC().Format(time.DateOnly)
}
