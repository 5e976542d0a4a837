package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config — централизованная структура настроек сервиса.
// Русский комментарий: Все переменные окружения собираются один раз при старте.
// Это упрощает тестирование и делает код чище — далее мы работаем только с этой структурой.
// Логирование всегда на английском для единообразия операционных сообщений.

type Config struct {
	TelegramBotToken string        // Токен Telegram бота
	KafkaBrokers     []string      // Список адресов Kafka брокеров
	PostgresDSN      string        // Строка подключения к PostgreSQL
	RabbitURL        string        // Опциональный RabbitMQ для аудита сырых апдейтов
	LogLevel         string        // Уровень логирования (debug, info, warn, error)
	LogPretty        bool          // Флаг человекочитаемого (pretty) логирования
	ShutdownTimeout  time.Duration // Таймаут graceful shutdown (общий)
	PollingTimeout   int           // Таймаут long polling Telegram, секунды
	Concurrency      int           // Максимум параллельно обрабатываемых сообщений
	KafkaGroupSender string        // Consumer group для отправки
	KafkaGroupDelete string        // Consumer group для удаления
	SeedRulesPath    string        // Опциональный YAML с начальными правилами
	WarnTTL          time.Duration // Окно подавления после /warn
	RestrictTTL      time.Duration // Окно подавления после /restrict
	BanTTL           time.Duration // Окно подавления после /ban
	EventRetention   time.Duration // Срок хранения event_log
}

// Load загружает и валидирует конфигурацию из окружения.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TelegramBotToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	cfg.RabbitURL = strings.TrimSpace(os.Getenv("RABBIT_URL"))
	cfg.SeedRulesPath = strings.TrimSpace(os.Getenv("SEED_RULES_PATH"))
	brokersRaw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))

	if brokersRaw != "" {
		// Разрешаем перечисление через запятую или пробелы
		brokers := strings.FieldsFunc(brokersRaw, func(r rune) bool { return r == ',' || r == ' ' })
		cfg.KafkaBrokers = brokers
	}

	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), "info")
	cfg.LogPretty = strings.ToLower(os.Getenv("LOGGER_PRETTY")) == "true"

	var err error
	if cfg.ShutdownTimeout, err = optionalDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.WarnTTL, err = optionalDuration("WARN_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RestrictTTL, err = optionalDuration("RESTRICT_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.BanTTL, err = optionalDuration("BAN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EventRetention, err = optionalDuration("EVENT_RETENTION", 90*24*time.Hour); err != nil {
		return nil, err
	}

	if cfg.PollingTimeout, err = optionalInt("POLLING_TIMEOUT", 60); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = optionalInt("CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	// Имена consumer groups — можно переопределять, чтобы запускать несколько инстансов.
	cfg.KafkaGroupSender = firstNonEmpty(os.Getenv("KAFKA_GROUP_SENDER"), "keywarden-sender")
	cfg.KafkaGroupDelete = firstNonEmpty(os.Getenv("KAFKA_GROUP_DELETE"), "keywarden-deleter")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if len(c.KafkaBrokers) == 0 {
		missing = append(missing, "KAFKA_BROKERS")
	}
	if c.PostgresDSN == "" {
		missing = append(missing, "POSTGRES_DSN")
	}
	if len(missing) > 0 {
		return errors.New("missing required env vars: " + strings.Join(missing, ", "))
	}
	return nil
}

// Helper: возвращает первое непустое значение.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func optionalDuration(name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return dur, nil
}

func optionalInt(name string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}
