// Пакет config — загрузка и валидация конфигурации SIR
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Tier — уровень развёртывания. Определяется один раз при старте
// и выбирает секрет и срок жизни токенов.
type Tier string

const (
	TierTest        Tier = "test"
	TierDevelopment Tier = "development"
	TierProduction  Tier = "production"
)

// envPrefix возвращает префикс переменных уровня (TEST, DEV, PROD).
func (t Tier) envPrefix() string {
	switch t {
	case TierTest:
		return "TEST"
	case TierProduction:
		return "PROD"
	default:
		return "DEV"
	}
}

// Config содержит все параметры конфигурации SIR.
type Config struct {
	// --- Сервер ---

	// Уровень развёртывания
	Tier Tier
	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Доверять X-Forwarded-For / X-Real-IP при определении IP клиента
	TrustProxy bool

	// --- Токены ---

	// Секрет подписи HS256 для текущего уровня
	TokenSecret string
	// Срок жизни токена и сессии
	TokenTTL time.Duration

	// --- Файлы ---

	// Корень файлового хранилища (по умолчанию $HOME/SIRFiles)
	FilesRoot string
	// Максимальное количество производных размеров в одном запросе
	MaxDerivatives int
	// Общий дедлайн обработки запроса
	RequestTimeout time.Duration
	// Дедлайн построения одного производного изображения
	DerivativeTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Кэш сессий ---

	// Адрес Redis; пустое значение — in-process LRU
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Размер in-process кэша
	SessionCacheSize int
	// TTL записи кэша
	SessionCacheTTL time.Duration

	// --- Фоновые задачи ---

	// Ёмкость очереди записи журнала доступа
	AccessLogQueue int
	// Интервал очистки просроченных сессий и старых загрузок
	SweepInterval time.Duration
	// Срок хранения загруженных файлов
	UploadRetention time.Duration
	// Группа сервиса для topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SIR_ENV — уровень развёртывания (по умолчанию development)
	cfg.Tier = ParseTier(os.Getenv("SIR_ENV"))

	// SIR_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("SIR_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("SIR_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SIR_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// SIR_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SIR_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SIR_LOG_LEVEL: %w", err)
	}

	// SIR_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SIR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SIR_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// SIR_TRUST_PROXY — доверять заголовкам прокси (по умолчанию false)
	cfg.TrustProxy, err = getEnvBool("SIR_TRUST_PROXY", false)
	if err != nil {
		return nil, fmt.Errorf("SIR_TRUST_PROXY: %w", err)
	}

	// --- Токены ---

	prefix := cfg.Tier.envPrefix()

	// SIR_<TIER>_TOKEN_SECRET — обязательный
	cfg.TokenSecret, err = getEnvRequired("SIR_" + prefix + "_TOKEN_SECRET")
	if err != nil {
		return nil, err
	}

	// SIR_<TIER>_TOKEN_TTL — срок жизни токена (по умолчанию 7 days)
	ttlKey := "SIR_" + prefix + "_TOKEN_TTL"
	cfg.TokenTTL, err = ParseTTL(getEnvDefault(ttlKey, "7 days"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ttlKey, err)
	}

	// --- Файлы ---

	// SIR_FILES_ROOT — корень файлового хранилища (по умолчанию $HOME/SIRFiles)
	cfg.FilesRoot = os.Getenv("SIR_FILES_ROOT")
	if cfg.FilesRoot == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("SIR_FILES_ROOT: не задан и домашний каталог недоступен: %w", homeErr)
		}
		cfg.FilesRoot = filepath.Join(home, "SIRFiles")
	}

	// SIR_MAX_DERIVATIVES — лимит размеров в одном запросе (по умолчанию 16)
	cfg.MaxDerivatives, err = getEnvInt("SIR_MAX_DERIVATIVES", 16)
	if err != nil {
		return nil, fmt.Errorf("SIR_MAX_DERIVATIVES: %w", err)
	}
	if cfg.MaxDerivatives < 1 || cfg.MaxDerivatives > 256 {
		return nil, fmt.Errorf("SIR_MAX_DERIVATIVES: значение %d вне допустимого диапазона 1-256", cfg.MaxDerivatives)
	}

	// SIR_REQUEST_TIMEOUT — дедлайн запроса (по умолчанию 60s)
	cfg.RequestTimeout, err = getEnvDuration("SIR_REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIR_REQUEST_TIMEOUT: %w", err)
	}

	// SIR_DERIVATIVE_TIMEOUT — дедлайн одного размера (по умолчанию 15s)
	cfg.DerivativeTimeout, err = getEnvDuration("SIR_DERIVATIVE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIR_DERIVATIVE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// SIR_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("SIR_DB_HOST")
	if err != nil {
		return nil, err
	}

	// SIR_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("SIR_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SIR_DB_PORT: %w", err)
	}

	// SIR_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("SIR_DB_NAME")
	if err != nil {
		return nil, err
	}

	// SIR_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("SIR_DB_USER")
	if err != nil {
		return nil, err
	}

	// SIR_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("SIR_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// SIR_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("SIR_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SIR_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Кэш сессий ---

	cfg.RedisAddr = getEnvDefault("SIR_REDIS_ADDR", "")
	cfg.RedisPassword = getEnvDefault("SIR_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("SIR_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("SIR_REDIS_DB: %w", err)
	}

	// SIR_SESSION_CACHE_SIZE — размер LRU (по умолчанию 1024)
	cfg.SessionCacheSize, err = getEnvInt("SIR_SESSION_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("SIR_SESSION_CACHE_SIZE: %w", err)
	}
	if cfg.SessionCacheSize < 1 {
		return nil, fmt.Errorf("SIR_SESSION_CACHE_SIZE: значение %d должно быть положительным", cfg.SessionCacheSize)
	}

	// SIR_SESSION_CACHE_TTL — TTL записи (по умолчанию 30s)
	cfg.SessionCacheTTL, err = getEnvDuration("SIR_SESSION_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIR_SESSION_CACHE_TTL: %w", err)
	}

	// --- Фоновые задачи ---

	// SIR_ACCESSLOG_QUEUE — ёмкость очереди журнала (по умолчанию 1024)
	cfg.AccessLogQueue, err = getEnvInt("SIR_ACCESSLOG_QUEUE", 1024)
	if err != nil {
		return nil, fmt.Errorf("SIR_ACCESSLOG_QUEUE: %w", err)
	}
	if cfg.AccessLogQueue < 1 {
		return nil, fmt.Errorf("SIR_ACCESSLOG_QUEUE: значение %d должно быть положительным", cfg.AccessLogQueue)
	}

	// SIR_SWEEP_INTERVAL — интервал очистки (по умолчанию 1h)
	cfg.SweepInterval, err = getEnvDuration("SIR_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SIR_SWEEP_INTERVAL: %w", err)
	}

	// SIR_UPLOAD_RETENTION — срок хранения загрузок (по умолчанию 24h)
	cfg.UploadRetention, err = getEnvDuration("SIR_UPLOAD_RETENTION", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SIR_UPLOAD_RETENTION: %w", err)
	}

	// SIR_DEPHEALTH_GROUP — группа сервиса (по умолчанию sir)
	cfg.DephealthGroup = getEnvDefault("SIR_DEPHEALTH_GROUP", "sir")

	// SIR_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SIR_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIR_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// SIR_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SIR_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SIR_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения (для topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// UploadsDir возвращает базовый каталог загрузок текущего уровня.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.FilesRoot, string(c.Tier), "uploads")
}

// LogsDir возвращает базовый каталог журналов текущего уровня.
func (c *Config) LogsDir() string {
	return filepath.Join(c.FilesRoot, string(c.Tier), "logs")
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseTier разбирает значение SIR_ENV. Неизвестное или пустое
// значение означает development.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "test", "testing":
		return TierTest
	case "prod", "production":
		return TierProduction
	default:
		return TierDevelopment
	}
}

var ttlExpr = regexp.MustCompile(`^([1-9][0-9]*)\s*(days?|h)$`)

// ParseTTL разбирает срок жизни токена. Допускается длительность Go
// (168h, 30m) или форма "N days" / "Nh".
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if m := ttlExpr.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("некорректный срок жизни: %q", s)
		}
		if m[2] == "h" {
			return time.Duration(n) * time.Hour, nil
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("некорректный срок жизни: %q (используйте 7 days, 12h или формат Go)", s)
	}
	return d, nil
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает логическое значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
