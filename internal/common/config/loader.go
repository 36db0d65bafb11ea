package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like SEOUL_DATA_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored if not present.
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env in several locations so binaries and tests can run
// from any directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets from plain env vars when the YAML left
// them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.SeoulData.APIKey == "" {
		if val := os.Getenv("SEOUL_DATA_API_KEY"); val != "" {
			cfg.APIs.SeoulData.APIKey = val
		}
	}
	if cfg.APIs.Kakao.APIKey == "" {
		if val := os.Getenv("KAKAO_API_KEY"); val != "" {
			cfg.APIs.Kakao.APIKey = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "housing-radar"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "housing-notices"
	}

	if cfg.Scheduler.IntervalHours == 0 {
		cfg.Scheduler.IntervalHours = 24
	}

	if cfg.Scrapers.UserAgent == "" {
		cfg.Scrapers.UserAgent = "Mozilla/5.0 (compatible; housing-radar/1.0)"
	}
	if cfg.Scrapers.MaxRows == 0 {
		cfg.Scrapers.MaxRows = 10
	}
	if cfg.Scrapers.Timeout == 0 {
		cfg.Scrapers.Timeout = 30000
	}
	if cfg.Scrapers.SH.ListURL == "" {
		cfg.Scrapers.SH.ListURL = "https://www.i-sh.co.kr/main/lay2/program/S1T294C295/www/brd/m_241/list.do"
	}
	if cfg.Scrapers.SH.BaseURL == "" {
		cfg.Scrapers.SH.BaseURL = "https://www.i-sh.co.kr"
	}
	if cfg.Scrapers.LH.ListURL == "" {
		cfg.Scrapers.LH.ListURL = "https://apply.lh.or.kr/lhapply/apply/wt/wrtanc/selectWrtancList.do"
	}
	if cfg.Scrapers.LH.BaseURL == "" {
		cfg.Scrapers.LH.BaseURL = "https://apply.lh.or.kr"
	}

	if cfg.APIs.SeoulData.BaseURL == "" {
		cfg.APIs.SeoulData.BaseURL = "http://openapi.seoul.go.kr:8088"
	}
	if cfg.APIs.SeoulData.BatchSize == 0 {
		cfg.APIs.SeoulData.BatchSize = 1000
	}
	if cfg.APIs.SeoulData.Timeout == 0 {
		cfg.APIs.SeoulData.Timeout = 10000
	}
	if cfg.APIs.SeoulData.CacheTTL == 0 {
		cfg.APIs.SeoulData.CacheTTL = 21600 // 6h
	}
	if cfg.APIs.Kakao.BaseURL == "" {
		cfg.APIs.Kakao.BaseURL = "https://dapi.kakao.com"
	}
	if cfg.APIs.Kakao.Timeout == 0 {
		cfg.APIs.Kakao.Timeout = 10000
	}
	if cfg.APIs.Kakao.CacheTTL == 0 {
		cfg.APIs.Kakao.CacheTTL = 604800 // 7d, addresses rarely move
	}

	if cfg.Notifications.ScoreThreshold == 0 {
		cfg.Notifications.ScoreThreshold = 4.0
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetTTL converts seconds from config to time.Duration.
func GetTTL(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
