// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// Бэкенды хранилища снапшотов
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// ============================================
// СЕКЦИИ КОНФИГУРАЦИИ
// ============================================

// MonitorConfig - параметры цикла мониторинга
type MonitorConfig struct {
	TargetURL     string
	PollInterval  time.Duration
	FetchTimeout  time.Duration
	NotifyTimeout time.Duration
	UserAgent     string

	// Множитель перевода целых единиц валюты в минимальные (центы)
	PriceScale int64

	// Отправлять ли в канал оповещений текущий максимум в каждом цикле
	NotifyStandingMax bool
	CurrencySymbol    string
}

// ExtractorConfig - селекторы разметки страницы товара
type ExtractorConfig struct {
	TitleSelector        string
	PriceSelector        string
	AllowMissingDiscount bool
}

// DatabaseConfig - конфигурация SQL хранилища
type DatabaseConfig struct {
	URL      string // postgres://... имеет приоритет над отдельными полями
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MySQLDSN string

	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// RedisConfig - кэш текущего максимума
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// TelegramConfig - канал оповещений Telegram
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   string
	APIURL   string
}

// EmailConfig - канал оповещений по почте
type EmailConfig struct {
	Enabled  bool
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
	To       string
}

// HTTPConfig - сервер статуса и метрик
type HTTPConfig struct {
	Enabled bool
	Port    int
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level string
	File  string
	Debug bool
}

// Config - структура конфигурации приложения.
// Создается один раз при старте и передается по ссылке.
type Config struct {
	Environment  string
	StoreBackend string

	Monitor   MonitorConfig
	Extractor ExtractorConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Telegram  TelegramConfig
	Email     EmailConfig
	HTTP      HTTPConfig
	Logging   LoggingConfig
}

// ============================================
// ЗАГРУЗКА КОНФИГУРАЦИИ
// ============================================

// LoadConfig загружает конфигурацию из .env файла и окружения
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			log.Printf("⚠️  Config file %s not found, using environment variables", path)
		}
	}

	cfg := &Config{}

	cfg.Environment = getEnv("ENVIRONMENT", "production")
	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres))

	// ======================
	// МОНИТОРИНГ
	// ======================
	cfg.Monitor.TargetURL = getEnv("TARGET_URL", "")
	cfg.Monitor.PollInterval = getEnvDuration("POLL_INTERVAL", 10*time.Second)
	cfg.Monitor.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.Monitor.NotifyTimeout = getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)
	cfg.Monitor.UserAgent = getEnv("USER_AGENT", "")
	cfg.Monitor.PriceScale = getEnvInt64("PRICE_SCALE", 100)
	cfg.Monitor.NotifyStandingMax = getEnvBool("NOTIFY_STANDING_MAX", false)
	cfg.Monitor.CurrencySymbol = getEnv("CURRENCY_SYMBOL", "R$")

	// ======================
	// РАЗБОР СТРАНИЦЫ
	// ======================
	cfg.Extractor.TitleSelector = getEnv("TITLE_SELECTOR", "h1.ui-pdp-title")
	cfg.Extractor.PriceSelector = getEnv("PRICE_SELECTOR", "span.andes-money-amount__fraction")
	cfg.Extractor.AllowMissingDiscount = getEnvBool("ALLOW_MISSING_DISCOUNT", false)

	// ======================
	// БАЗА ДАННЫХ
	// ======================
	cfg.Database.URL = getEnv("DB_URL", "")
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "")
	cfg.Database.Password = getEnv("DB_PASSWORD", "")
	cfg.Database.Name = getEnv("DB_NAME", "")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MySQLDSN = getEnv("MYSQL_DSN", "")
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 5)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 2)
	cfg.Database.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute)

	// ======================
	// REDIS
	// ======================
	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnvInt("REDIS_PORT", 6379)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.TTL = getEnvDuration("REDIS_TTL", 0)

	// ======================
	// ОПОВЕЩЕНИЯ
	// ======================
	cfg.Telegram.Enabled = getEnvBool("TELEGRAM_ENABLED", false)
	cfg.Telegram.BotToken = getEnv("TG_API_KEY", "")
	cfg.Telegram.ChatID = getEnv("TG_CHAT_ID", "")
	cfg.Telegram.APIURL = getEnv("TG_API_URL", "https://api.telegram.org")

	cfg.Email.Enabled = getEnvBool("EMAIL_ENABLED", false)
	cfg.Email.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.Email.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.Email.SMTPUser = getEnv("SMTP_USER", "")
	cfg.Email.SMTPPass = getEnv("SMTP_PASS", "")
	cfg.Email.From = getEnv("EMAIL_FROM", "")
	cfg.Email.To = getEnv("EMAIL_TO", "")

	// ======================
	// HTTP И ЛОГИ
	// ======================
	cfg.HTTP.Enabled = getEnvBool("HTTP_ENABLED", false)
	cfg.HTTP.Port = getEnvInt("HTTP_PORT", 8080)

	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Logging.File = getEnv("LOG_FILE", "")
	cfg.Logging.Debug = getEnvBool("DEBUG", false)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ============================================
// ВАЛИДАЦИЯ
// ============================================

// validate проверяет обязательные параметры конфигурации
func (c *Config) validate() error {
	var validationErrors []string

	if c.Monitor.TargetURL == "" {
		validationErrors = append(validationErrors, "TARGET_URL is required")
	} else if u, err := url.Parse(c.Monitor.TargetURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		validationErrors = append(validationErrors, "TARGET_URL must be an absolute http(s) URL")
	}
	if c.Monitor.PollInterval <= 0 {
		validationErrors = append(validationErrors, "POLL_INTERVAL must be positive")
	}
	if c.Monitor.FetchTimeout <= 0 {
		validationErrors = append(validationErrors, "FETCH_TIMEOUT must be positive")
	}
	if c.Monitor.NotifyTimeout <= 0 {
		validationErrors = append(validationErrors, "NOTIFY_TIMEOUT must be positive")
	}
	if c.Monitor.PriceScale <= 0 {
		validationErrors = append(validationErrors, "PRICE_SCALE must be positive")
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if _, err := c.PostgresDSN(); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
	case BackendMySQL:
		if _, err := c.MySQLDSN(); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("STORE_BACKEND %q is not one of memory, postgres, mysql", c.StoreBackend))
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			validationErrors = append(validationErrors, "TG_API_KEY is required when Telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			validationErrors = append(validationErrors, "TG_CHAT_ID is required when Telegram is enabled")
		}
	}

	if c.Email.Enabled {
		if c.Email.SMTPHost == "" || c.Email.From == "" || c.Email.To == "" {
			validationErrors = append(validationErrors, "SMTP_HOST, EMAIL_FROM and EMAIL_TO are required when email is enabled")
		}
	}

	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		validationErrors = append(validationErrors, "HTTP_PORT must be in range 1-65535")
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("%s", strings.Join(validationErrors, "; "))
	}

	return nil
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ МЕТОДЫ
// ============================================

// PostgresDSN возвращает DSN для lib/pq. DB_URL разбирается через pq.ParseURL.
func (c *Config) PostgresDSN() (string, error) {
	if c.Database.URL != "" {
		dsn, err := pq.ParseURL(c.Database.URL)
		if err != nil {
			return "", fmt.Errorf("DB_URL is not a valid postgres URL: %w", err)
		}
		return dsn, nil
	}

	if c.Database.Name == "" || c.Database.User == "" {
		return "", fmt.Errorf("DB_URL or DB_USER and DB_NAME are required for postgres")
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	), nil
}

// MySQLDSN возвращает DSN для go-sql-driver/mysql с parseTime=true
func (c *Config) MySQLDSN() (string, error) {
	if c.Database.MySQLDSN == "" {
		return "", fmt.Errorf("MYSQL_DSN is required for mysql")
	}

	parsed, err := mysql.ParseDSN(c.Database.MySQLDSN)
	if err != nil {
		return "", fmt.Errorf("MYSQL_DSN is invalid: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC

	return parsed.FormatDSN(), nil
}

// RedisAddress возвращает адрес Redis
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// PrintSummary выводит конфигурацию без секретов
func (c *Config) PrintSummary() {
	log.Printf("📋 Конфигурация приложения:")
	log.Printf("   • Окружение: %s", c.Environment)
	log.Printf("   • URL товара: %s", c.Monitor.TargetURL)
	log.Printf("   • Интервал опроса: %s (таймаут запроса: %s)", c.Monitor.PollInterval, c.Monitor.FetchTimeout)
	log.Printf("   • Хранилище: %s", c.StoreBackend)
	if c.StoreBackend == BackendPostgres && c.Database.URL == "" {
		log.Printf("   • PostgreSQL: %s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Name)
	}
	if c.Redis.Enabled {
		log.Printf("   • Redis: %s (DB: %d)", c.RedisAddress(), c.Redis.DB)
	}
	log.Printf("   • Telegram включен: %v", c.Telegram.Enabled)
	if c.Telegram.Enabled {
		log.Printf("   • Telegram Token: %s", maskSecret(c.Telegram.BotToken))
		log.Printf("   • Telegram Chat ID: %s", c.Telegram.ChatID)
	}
	log.Printf("   • Email включен: %v", c.Email.Enabled)
	log.Printf("   • HTTP сервер: %v (порт: %d)", c.HTTP.Enabled, c.HTTP.Port)
	log.Printf("   • Уровень логирования: %s", c.Logging.Level)
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ ФУНКЦИИ
// ============================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration принимает "10s", "1m" или целое число секунд
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	// некорректное значение не подменяется дефолтом, его отловит validate
	return -1
}
