package config

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	FirmID string       `yaml:"firm_id" mapstructure:"firm_id"`
	Input  InputConfig  `yaml:"input" mapstructure:"input"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the fee schedule listing.
type InputConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Export string `yaml:"export" mapstructure:"export"` // name of the exported array
}

// OutputConfig controls the generated SQL.
type OutputConfig struct {
	Dialect string `yaml:"dialect" mapstructure:"dialect"`
	Table   string `yaml:"table" mapstructure:"table"`
	Replace bool   `yaml:"replace" mapstructure:"replace"`
	Verify  bool   `yaml:"verify" mapstructure:"verify"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FEESQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("firm_id", "")
	v.SetDefault("input.path", "src/data/feeSchedulesData.ts")
	v.SetDefault("input.export", "allFeeSchedules")
	v.SetDefault("output.dialect", "postgres")
	v.SetDefault("output.table", "fee_schedules")
	v.SetDefault("output.replace", false)
	v.SetDefault("output.verify", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

	return &cfg, nil
}

// Validate checks the settings needed to generate SQL.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.FirmID) == "" {
		errs = append(errs, "firm_id is required")
	} else if _, err := uuid.Parse(strings.TrimSpace(c.FirmID)); err != nil {
		errs = append(errs, "firm_id must be a UUID")
	}

	switch strings.ToLower(c.Output.Dialect) {
	case "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		errs = append(errs, "output.dialect must be postgres or sqlite")
	}

	if strings.TrimSpace(c.Output.Table) == "" {
		errs = append(errs, "output.table is required")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ParseFirmID validates a firm identifier and returns its canonical
// lowercase form.
func ParseFirmID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", eris.New("config: firm id is required (FEESQL_FIRM_ID or --firm-id)")
	}
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", eris.Wrapf(err, "config: firm id %q is not a UUID", id)
	}
	return u.String(), nil
}

// InitLogger initializes the global zap logger. Output goes to stderr so
// that stdout carries only generated SQL.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}

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
