package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Symbol             string             `json:"symbol"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	DecisionConfig     DecisionConfig     `json:"decision"`
	DriftConfig        DriftConfig        `json:"drift"`
	NewsConfig         NewsConfig         `json:"news"`
	RiskConfig         RiskConfig         `json:"risk"`
	SchedulerConfig    SchedulerConfig    `json:"scheduler"`
	ServerConfig       ServerConfig       `json:"server"`
	AuthConfig         AuthConfig         `json:"auth"`
	VaultConfig        VaultConfig        `json:"vault"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	NotificationConfig NotificationConfig `json:"notification"`
	AuditConfig        AuditConfig        `json:"audit"`
	ProviderConfig     ProviderConfig     `json:"providers"`
}

// ProviderConfig points at the model-serving and news-feed endpoints.
type ProviderConfig struct {
	ModelBaseURL   string `json:"model_base_url"`
	NewsFeedURL    string `json:"news_feed_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // trace, debug, info, warn, error
	Pretty bool   `json:"pretty"` // console writer instead of JSON
}

// DecisionConfig holds the admission thresholds. MinConfidence must
// carry an entry for every scheduled timeframe.
type DecisionConfig struct {
	MinConfidence      map[string]float64 `json:"min_confidence"`
	MinATR             map[string]float64 `json:"min_atr"`
	MinRR              float64            `json:"min_rr"`
	MinRiskMultiplier  float64            `json:"min_risk_multiplier"`
	EvalTimeoutSeconds int                `json:"eval_timeout_seconds"`
}

type DriftConfig struct {
	SafeMaxPct    float64 `json:"safe_max_pct"`
	WarningMaxPct float64 `json:"warning_max_pct"`
}

type NewsConfig struct {
	MaxCacheAgeMinutes     int     `json:"max_cache_age_minutes"`
	RelevanceWindowMinutes int     `json:"relevance_window_minutes"`
	MaxVolatilityRatio     float64 `json:"max_volatility_ratio"`
}

type RiskConfig struct {
	BaseRiskPct     float64 `json:"base_risk_pct"`
	MaxRiskPct      float64 `json:"max_risk_pct"`
	MinStopDistance float64 `json:"min_stop_distance"`
	ContractSize    float64 `json:"contract_size"`
	MinLot          float64 `json:"min_lot"`
	MaxLot          float64 `json:"max_lot"`
	LotStep         float64 `json:"lot_step"`
}

type SchedulerConfig struct {
	IntervalSeconds int      `json:"interval_seconds"`
	Workers         int      `json:"workers"`
	Timeframes      []string `json:"timeframes"`
}

type ServerConfig struct {
	Enabled        bool     `json:"enabled"`
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	ProductionMode bool     `json:"production_mode"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret            string        `json:"jwt_secret"`
	Operator             string        `json:"operator"`
	OperatorPasswordHash string        `json:"operator_password_hash"`
	TokenDuration        time.Duration `json:"-"`
	TokenDurationMinutes int           `json:"token_duration_minutes"`
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
	SecretPath string `json:"secret_path"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for news state persistence
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type AuditConfig struct {
	FilePath string `json:"file_path"`
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with defaults
		cfg = &Config{}
	}

	applyDefaults(cfg)

	// Environment variable overrides take precedence
	applyEnvOverrides(cfg)

	cfg.AuthConfig.TokenDuration = time.Duration(cfg.AuthConfig.TokenDurationMinutes) * time.Minute

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Symbol == "" {
		cfg.Symbol = "XAUUSD"
	}
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
	if len(cfg.DecisionConfig.MinConfidence) == 0 {
		cfg.DecisionConfig.MinConfidence = map[string]float64{
			"15m": 0.68, "30m": 0.66, "1h": 0.64, "4h": 0.62, "1d": 0.60,
		}
	}
	if cfg.DecisionConfig.MinRR == 0 {
		cfg.DecisionConfig.MinRR = 1.5
	}
	if cfg.DecisionConfig.MinRiskMultiplier == 0 {
		cfg.DecisionConfig.MinRiskMultiplier = 0.1
	}
	if cfg.DecisionConfig.EvalTimeoutSeconds == 0 {
		cfg.DecisionConfig.EvalTimeoutSeconds = 5
	}
	if cfg.DriftConfig.SafeMaxPct == 0 {
		cfg.DriftConfig.SafeMaxPct = 15.0
	}
	if cfg.DriftConfig.WarningMaxPct == 0 {
		cfg.DriftConfig.WarningMaxPct = 25.0
	}
	if cfg.NewsConfig.MaxCacheAgeMinutes == 0 {
		cfg.NewsConfig.MaxCacheAgeMinutes = 60
	}
	if cfg.NewsConfig.RelevanceWindowMinutes == 0 {
		cfg.NewsConfig.RelevanceWindowMinutes = 180
	}
	if cfg.NewsConfig.MaxVolatilityRatio == 0 {
		cfg.NewsConfig.MaxVolatilityRatio = 1.5
	}
	if cfg.RiskConfig.BaseRiskPct == 0 {
		cfg.RiskConfig.BaseRiskPct = 1.0
	}
	if cfg.RiskConfig.MaxRiskPct == 0 {
		cfg.RiskConfig.MaxRiskPct = 2.0
	}
	if cfg.RiskConfig.MinStopDistance == 0 {
		cfg.RiskConfig.MinStopDistance = 0.5
	}
	if cfg.RiskConfig.ContractSize == 0 {
		cfg.RiskConfig.ContractSize = 100
	}
	if cfg.RiskConfig.MinLot == 0 {
		cfg.RiskConfig.MinLot = 0.01
	}
	if cfg.RiskConfig.MaxLot == 0 {
		cfg.RiskConfig.MaxLot = 10.0
	}
	if cfg.RiskConfig.LotStep == 0 {
		cfg.RiskConfig.LotStep = 0.01
	}
	if cfg.SchedulerConfig.IntervalSeconds == 0 {
		cfg.SchedulerConfig.IntervalSeconds = 300
	}
	if cfg.SchedulerConfig.Workers == 0 {
		cfg.SchedulerConfig.Workers = 3
	}
	if len(cfg.SchedulerConfig.Timeframes) == 0 {
		cfg.SchedulerConfig.Timeframes = []string{"1d", "4h", "1h", "30m", "15m"}
	}
	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.AuthConfig.TokenDurationMinutes == 0 {
		cfg.AuthConfig.TokenDurationMinutes = 60
	}
	if cfg.AuthConfig.Operator == "" {
		cfg.AuthConfig.Operator = "operator"
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}
	if cfg.AuditConfig.FilePath == "" {
		cfg.AuditConfig.FilePath = "verdicts.jsonl"
	}
	if cfg.ProviderConfig.ModelBaseURL == "" {
		cfg.ProviderConfig.ModelBaseURL = "http://localhost:9000"
	}
	if cfg.ProviderConfig.TimeoutSeconds == 0 {
		cfg.ProviderConfig.TimeoutSeconds = 3
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Symbol = getEnvOrDefault("ENGINE_SYMBOL", cfg.Symbol)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", boolString(cfg.LoggingConfig.Pretty)) == "true"

	cfg.SchedulerConfig.IntervalSeconds = getEnvIntOrDefault("CYCLE_INTERVAL_SECONDS", cfg.SchedulerConfig.IntervalSeconds)
	cfg.SchedulerConfig.Workers = getEnvIntOrDefault("CYCLE_WORKERS", cfg.SchedulerConfig.Workers)

	cfg.ServerConfig.Enabled = getEnvOrDefault("API_ENABLED", boolString(cfg.ServerConfig.Enabled)) == "true"
	cfg.ServerConfig.Host = getEnvOrDefault("API_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("API_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("API_PRODUCTION", boolString(cfg.ServerConfig.ProductionMode)) == "true"

	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.Operator = getEnvOrDefault("AUTH_OPERATOR", cfg.AuthConfig.Operator)
	cfg.AuthConfig.OperatorPasswordHash = getEnvOrDefault("AUTH_OPERATOR_PASSWORD_HASH", cfg.AuthConfig.OperatorPasswordHash)

	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolString(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)

	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", boolString(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolString(cfg.NotificationConfig.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", boolString(cfg.NotificationConfig.Telegram.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", boolString(cfg.NotificationConfig.Discord.Enabled)) == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	cfg.AuditConfig.FilePath = getEnvOrDefault("AUDIT_FILE", cfg.AuditConfig.FilePath)

	cfg.ProviderConfig.ModelBaseURL = getEnvOrDefault("MODEL_BASE_URL", cfg.ProviderConfig.ModelBaseURL)
	cfg.ProviderConfig.NewsFeedURL = getEnvOrDefault("NEWS_FEED_URL", cfg.ProviderConfig.NewsFeedURL)
}

// validate rejects configs the engine cannot run with. A scheduled
// timeframe without a confidence threshold surfaces here rather than
// as CONFIG_ERROR verdicts every cycle.
func (c *Config) validate() error {
	for _, tf := range c.SchedulerConfig.Timeframes {
		if _, ok := c.DecisionConfig.MinConfidence[tf]; !ok {
			return fmt.Errorf("no min_confidence entry for scheduled timeframe %q", tf)
		}
	}
	if c.ServerConfig.Enabled && c.AuthConfig.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret required when the api server is enabled")
	}
	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.ServerConfig.Enabled = true
	cfg.AuthConfig.JWTSecret = "change_me"
	cfg.AuthConfig.OperatorPasswordHash = "$2a$12$replace_with_bcrypt_hash"

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
