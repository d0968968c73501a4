// Package cfg loads pipeline configuration from a YAML file selected by
// CONFIG_FILE, with environment variables overriding file values. When
// no file is set, everything comes from the environment with sensible
// defaults. A .env file next to the binary is honored for local runs.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the resolved configuration shared by all pipeline stages.
type Settings struct {
	// Driver is the database/sql driver name: sqlite3 or pgx.
	Driver string
	// DSN is the connection string for the booking history database.
	DSN string

	DataPath   string // directory for the feature table and prediction log
	ModelPath  string // directory for model artifacts
	ReportPath string // optional xlsx training report; empty disables

	WindowMonths int // trailing export window

	AutoApproveMin    float64 // minimum confidence to auto-approve
	ExtraReminderOver float64 // no-show probability above which to flag a reminder
	ReminderDays      int     // lookahead of the reminder scan

	MetricsPort int // 0 disables the metrics endpoint
}

type ConfigFile struct {
	Database struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Pipeline struct {
		DataPath     string `yaml:"dataPath"`
		ModelPath    string `yaml:"modelPath"`
		ReportPath   string `yaml:"reportPath"`
		WindowMonths int    `yaml:"windowMonths"`
	} `yaml:"pipeline"`

	Serving struct {
		AutoApproveMin    float64 `yaml:"autoApproveMin"`
		ExtraReminderOver float64 `yaml:"extraReminderOver"`
		ReminderDays      int     `yaml:"reminderDays"`
	} `yaml:"serving"`

	System struct {
		MetricsPort int `yaml:"metricsPort"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// local development convenience; absence is not an error
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("parse config file: %w", err)
	}

	dsn := config.Database.DSN
	if dsn == "" && config.Database.Host != "" {
		dsn = postgresDSN(config)
	}

	settings := Settings{
		Driver:            getEnvOrDefault("DB_DRIVER", orDefault(config.Database.Driver, "sqlite3")),
		DSN:               getEnvOrDefault("DB_DSN", orDefault(dsn, "bookings.db")),
		DataPath:          getEnvOrDefault("DATA_PATH", orDefault(config.Pipeline.DataPath, "data")),
		ModelPath:         getEnvOrDefault("MODEL_PATH", orDefault(config.Pipeline.ModelPath, "models")),
		ReportPath:        getEnvOrDefault("REPORT_PATH", config.Pipeline.ReportPath),
		WindowMonths:      getIntFromEnvOrConfig("WINDOW_MONTHS", config.Pipeline.WindowMonths, 12),
		AutoApproveMin:    getFloatFromEnvOrConfig("AUTO_APPROVE_MIN", config.Serving.AutoApproveMin, 0.7),
		ExtraReminderOver: getFloatFromEnvOrConfig("EXTRA_REMINDER_OVER", config.Serving.ExtraReminderOver, 0.6),
		ReminderDays:      getIntFromEnvOrConfig("REMINDER_DAYS", config.Serving.ReminderDays, 7),
		MetricsPort:       getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort, 0),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Driver:            getEnvOrDefault("DB_DRIVER", "sqlite3"),
		DSN:               getEnvOrDefault("DB_DSN", "bookings.db"),
		DataPath:          getEnvOrDefault("DATA_PATH", "data"),
		ModelPath:         getEnvOrDefault("MODEL_PATH", "models"),
		ReportPath:        os.Getenv("REPORT_PATH"), // optional
		WindowMonths:      getIntOrDefault("WINDOW_MONTHS", 12),
		AutoApproveMin:    getFloatOrDefault("AUTO_APPROVE_MIN", 0.7),
		ExtraReminderOver: getFloatOrDefault("EXTRA_REMINDER_OVER", 0.6),
		ReminderDays:      getIntOrDefault("REMINDER_DAYS", 7),
		MetricsPort:       getIntOrDefault("METRICS_PORT", 0),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// Window returns the export time range: the trailing WindowMonths
// months ending at now.
func (s *Settings) Window(now time.Time) (from, to time.Time) {
	return now.AddDate(0, -s.WindowMonths, 0), now
}

func postgresDSN(config ConfigFile) string {
	port := config.Database.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		config.Database.User, config.Database.Password,
		config.Database.Host, port, config.Database.Name)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func validateSettings(settings *Settings) error {
	switch settings.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q (want sqlite3 or pgx)", settings.Driver)
	}
	if settings.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	if settings.WindowMonths < 1 || settings.WindowMonths > 120 {
		return fmt.Errorf("window months must be between 1 and 120, got %d", settings.WindowMonths)
	}
	if settings.ReminderDays < 1 || settings.ReminderDays > 60 {
		return fmt.Errorf("reminder days must be between 1 and 60, got %d", settings.ReminderDays)
	}

	if settings.AutoApproveMin < 0.5 || settings.AutoApproveMin > 0.99 {
		return fmt.Errorf("auto-approve threshold must be between 0.5 and 0.99, got %f", settings.AutoApproveMin)
	}
	if settings.ExtraReminderOver < 0.1 || settings.ExtraReminderOver > 0.99 {
		return fmt.Errorf("reminder threshold must be between 0.1 and 0.99, got %f", settings.ExtraReminderOver)
	}

	if settings.MetricsPort != 0 && (settings.MetricsPort < 1024 || settings.MetricsPort > 65535) {
		return fmt.Errorf("metrics port must be 0 (disabled) or between 1024 and 65535, got %d", settings.MetricsPort)
	}

	return nil
}
