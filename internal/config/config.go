package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourcesConfig locates the input datasets. Each entry is either a local
// file path or an http/ftp URL to download first.
type SourcesConfig struct {
	Census     SourceConfig `yaml:"census" mapstructure:"census"`
	Boundaries SourceConfig `yaml:"boundaries" mapstructure:"boundaries"`
	CareHomes  SourceConfig `yaml:"care_homes" mapstructure:"care_homes"`
	Childcare  SourceConfig `yaml:"childcare" mapstructure:"childcare"`
}

// SourceConfig describes a single dataset source.
type SourceConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	URL   string `yaml:"url" mapstructure:"url"`
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// FetchConfig configures dataset downloads.
type FetchConfig struct {
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// AnalysisConfig configures feature derivation and clustering.
type AnalysisConfig struct {
	Exclusions []string `yaml:"exclusions" mapstructure:"exclusions"`
	K          int      `yaml:"k" mapstructure:"k"`
	KMin       int      `yaml:"k_min" mapstructure:"k_min"`
	KMax       int      `yaml:"k_max" mapstructure:"k_max"`
	NInit      int      `yaml:"n_init" mapstructure:"n_init"`
	Seed       int64    `yaml:"seed" mapstructure:"seed"`
	MaxIter    int      `yaml:"max_iterations" mapstructure:"max_iterations"`
}

// ExportConfig configures report output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the results API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("PROVISION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "provision.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("fetch.temp_dir", "/tmp/provision")
	v.SetDefault("fetch.user_agent", "provision-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("sources.census.sheet", "Mid-2022 Persons")
	v.SetDefault("analysis.exclusions", []string{"E09000001"})
	v.SetDefault("analysis.k", 4)
	v.SetDefault("analysis.k_min", 1)
	v.SetDefault("analysis.k_max", 9)
	v.SetDefault("analysis.n_init", 10)
	v.SetDefault("analysis.seed", 42)
	v.SetDefault("analysis.max_iterations", 300)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("server.port", 8080)
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

	return &cfg, nil
}

// Validate checks the configuration for the given mode. Mode selects which
// sections must be complete: "load" needs dataset sources, "analysis" needs
// sane clustering bounds, "serve" needs a listen port.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "load":
		if c.Sources.Census.Path == "" && c.Sources.Census.URL == "" {
			problems = append(problems, "sources.census.path or url is required")
		}
		if c.Sources.Boundaries.Path == "" && c.Sources.Boundaries.URL == "" {
			problems = append(problems, "sources.boundaries.path or url is required")
		}
		if c.Sources.CareHomes.Path == "" && c.Sources.CareHomes.URL == "" {
			problems = append(problems, "sources.care_homes.path or url is required")
		}
		if c.Sources.Childcare.Path == "" && c.Sources.Childcare.URL == "" {
			problems = append(problems, "sources.childcare.path or url is required")
		}
	case "analysis":
		if c.Analysis.K < 1 {
			problems = append(problems, "analysis.k must be >= 1")
		}
		if c.Analysis.KMin < 1 || c.Analysis.KMax < c.Analysis.KMin {
			problems = append(problems, "analysis.k_min/k_max must satisfy 1 <= k_min <= k_max")
		}
		if c.Analysis.NInit < 1 {
			problems = append(problems, "analysis.n_init must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
