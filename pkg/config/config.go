package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/smukkama/aqi-forecast/internal/ensemble"
	"github.com/smukkama/aqi-forecast/internal/schema"
	"github.com/smukkama/aqi-forecast/internal/severity"
)

// Data source kinds
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type Config struct {
	Pipeline PipelineConfig
	HTTP     HTTPConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Alerting AlertingConfig
	Refresh  RefreshConfig
	SMTP     SMTPConfig
}

// PipelineConfig is everything a forecast run depends on
type PipelineConfig struct {
	BasePath   string
	DataSource string
	DataFile   string
	DataQuery  string
	ScalerFile string
	Models     []ModelSpec
	WindowSize int
	Horizons   []int // hours ahead
	Schema     schema.Schema
	SortByDate bool
}

// ModelSpec names one ensemble member and its weight
type ModelSpec struct {
	Name   string
	File   string
	Weight float64
}

// HorizonDurations returns the horizons as durations
func (p PipelineConfig) HorizonDurations() []time.Duration {
	d := make([]time.Duration, len(p.Horizons))
	for i, h := range p.Horizons {
		d[i] = time.Duration(h) * time.Hour
	}
	return d
}

// Weights returns the model weights in model order
func (p PipelineConfig) Weights() []float64 {
	w := make([]float64, len(p.Models))
	for i, m := range p.Models {
		w[i] = m.Weight
	}
	return w
}

// Validate rejects configurations the pipeline cannot run with
func (p PipelineConfig) Validate() error {
	if p.BasePath == "" {
		return fmt.Errorf("base path is required")
	}
	if p.DataSource != SourceCSV && p.DataSource != SourcePostgres {
		return fmt.Errorf("unknown data source %q", p.DataSource)
	}
	if p.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", p.WindowSize)
	}
	if len(p.Horizons) == 0 {
		return fmt.Errorf("at least one horizon is required")
	}
	for _, h := range p.Horizons {
		if h <= 0 {
			return fmt.Errorf("horizon must be positive, got %d", h)
		}
	}
	if len(p.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	for _, m := range p.Models {
		if m.Name == "" || m.File == "" {
			return fmt.Errorf("model entries need a name and a file")
		}
	}
	if err := ensemble.ValidateWeights(p.Weights()); err != nil {
		return fmt.Errorf("invalid ensemble weights: %w", err)
	}
	if len(p.Schema.Pollutants) == 0 || len(p.Schema.Temporal) == 0 {
		return fmt.Errorf("feature column lists must not be empty")
	}
	if p.Schema.Target == "" || p.Schema.Date == "" {
		return fmt.Errorf("target and date columns are required")
	}
	return nil
}

type HTTPConfig struct {
	Addr string
}

type LogConfig struct {
	Level      string
	Format     string // text or json
	File       string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string // empty disables caching and shared alert state
	Password string
	DB       int
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers     []string // empty disables alert publishing
	TopicAlerts string
	GroupID     string
}

type AlertingConfig struct {
	MinSeverity string
}

type RefreshConfig struct {
	Schedule string // cron spec, empty disables scheduled refresh
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Default returns the built-in configuration without consulting the
// environment
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			BasePath:   ".",
			DataSource: SourceCSV,
			DataFile:   "processed_data.csv",
			ScalerFile: "scaler.json",
			Models: []ModelSpec{
				{Name: "xgb", File: "xgb_model.json", Weight: 0.34},
				{Name: "rf", File: "rf_model.json", Weight: 0.33},
				{Name: "cat", File: "cat_model.json", Weight: 0.33},
			},
			WindowSize: 48,
			Horizons:   []int{12, 48, 72},
			Schema:     schema.Default(),
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "aqi_user",
			Password: "aqi_pass",
			DBName:   "aqi_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			CacheTTL: 30 * time.Minute,
		},
		Kafka: KafkaConfig{
			TopicAlerts: "aqi.forecast.alerts",
			GroupID:     "aqi-notifier-group",
		},
		Alerting: AlertingConfig{MinSeverity: "Poor"},
		Refresh:  RefreshConfig{Schedule: "@every 15m"},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
			From: "aqi-dashboard@example.com",
			To:   "admin@example.com",
		},
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := Default()
	p := &config.Pipeline

	p.BasePath = getEnv("AQI_BASE_PATH", p.BasePath)
	p.DataSource = strings.ToLower(getEnv("AQI_DATA_SOURCE", p.DataSource))
	p.DataFile = getEnv("AQI_DATA_FILE", p.DataFile)
	p.DataQuery = getEnv("AQI_DATA_QUERY", p.DataQuery)
	p.ScalerFile = getEnv("AQI_SCALER_FILE", p.ScalerFile)
	p.WindowSize = getEnvAsInt("AQI_WINDOW_SIZE", p.WindowSize)
	p.SortByDate = getEnvAsBool("AQI_SORT_BY_DATE", p.SortByDate)

	if v := getEnv("AQI_HORIZONS", ""); v != "" {
		horizons, err := parseInts(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AQI_HORIZONS: %w", err)
		}
		p.Horizons = horizons
	}
	if v := getEnv("AQI_MODELS", ""); v != "" {
		models, err := parseModels(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AQI_MODELS: %w", err)
		}
		p.Models = models
	}
	if v := getEnv("ENSEMBLE_WEIGHTS", ""); v != "" {
		weights, err := parseFloats(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ENSEMBLE_WEIGHTS: %w", err)
		}
		if len(weights) != len(p.Models) {
			return nil, fmt.Errorf("ENSEMBLE_WEIGHTS has %d values for %d models", len(weights), len(p.Models))
		}
		for i := range p.Models {
			p.Models[i].Weight = weights[i]
		}
	}

	config.HTTP.Addr = getEnv("HTTP_ADDR", config.HTTP.Addr)

	config.Log.Level = getEnv("LOG_LEVEL", config.Log.Level)
	config.Log.Format = getEnv("LOG_FORMAT", config.Log.Format)
	config.Log.File = getEnv("LOG_FILE", config.Log.File)
	config.Log.MaxSizeMB = getEnvAsInt("LOG_MAX_SIZE_MB", config.Log.MaxSizeMB)
	config.Log.MaxBackups = getEnvAsInt("LOG_MAX_BACKUPS", config.Log.MaxBackups)
	config.Log.MaxAgeDays = getEnvAsInt("LOG_MAX_AGE_DAYS", config.Log.MaxAgeDays)

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", config.Database.Host),
		Port:     getEnvAsInt("DB_PORT", config.Database.Port),
		User:     getEnv("DB_USER", config.Database.User),
		Password: getEnv("DB_PASSWORD", config.Database.Password),
		DBName:   getEnv("DB_NAME", config.Database.DBName),
		SSLMode:  getEnv("DB_SSLMODE", config.Database.SSLMode),
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", config.Redis.Addr),
		Password: getEnv("REDIS_PASSWORD", config.Redis.Password),
		DB:       getEnvAsInt("REDIS_DB", config.Redis.DB),
		CacheTTL: getEnvAsDuration("CACHE_TTL", config.Redis.CacheTTL),
	}

	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		config.Kafka.Brokers = strings.Split(v, ",")
	}
	config.Kafka.TopicAlerts = getEnv("KAFKA_TOPIC_ALERTS", config.Kafka.TopicAlerts)
	config.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", config.Kafka.GroupID)

	config.Alerting.MinSeverity = getEnv("ALERT_MIN_SEVERITY", config.Alerting.MinSeverity)
	// An explicitly empty schedule turns scheduled refresh off
	if v, set := os.LookupEnv("REFRESH_SCHEDULE"); set {
		config.Refresh.Schedule = v
	}

	config.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", config.SMTP.Host),
		Port:     getEnvAsInt("SMTP_PORT", config.SMTP.Port),
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", config.SMTP.From),
		To:       getEnv("SMTP_TO", config.SMTP.To),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the pipeline and alerting settings
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}
	if _, err := severity.Parse(c.Alerting.MinSeverity); err != nil {
		return fmt.Errorf("invalid ALERT_MIN_SEVERITY: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseModels reads "name:file,name:file". Weights are split evenly until
// ENSEMBLE_WEIGHTS overrides them.
func parseModels(s string) ([]ModelSpec, error) {
	parts := strings.Split(s, ",")
	models := make([]ModelSpec, 0, len(parts))
	for _, part := range parts {
		name, file, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || name == "" || file == "" {
			return nil, fmt.Errorf("entry %q is not name:file", part)
		}
		models = append(models, ModelSpec{Name: name, File: file, Weight: 1 / float64(len(parts))})
	}
	return models, nil
}
