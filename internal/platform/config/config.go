package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	ElectionAuditTopic        string
	ElectionNotificationTopic string
	OutboxBatchSize           int
	WorkerPollInterval        time.Duration
	DBStatementTimeout        time.Duration
	DBMaxOpenConns            int
	RoleCacheTTL              time.Duration

	AutoMigrate              bool
	EnableElectionAutoClose  bool
	EnableElectionOutboxPump bool
}

// Load reads the process environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	return LoadFiles(".env")
}

func LoadFiles(files ...string) (Config, error) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	cfg := Config{
		ServiceName:  envString("SERVICE_NAME", "orgnet"),
		HTTPPort:     envString("HTTP_PORT", "8080"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		ElectionAuditTopic:        envString("ELECTION_AUDIT_TOPIC", "election.audit"),
		ElectionNotificationTopic: envString("ELECTION_NOTIFICATION_TOPIC", "election.notification"),
		OutboxBatchSize:           envInt("OUTBOX_BATCH_SIZE", 100),
		WorkerPollInterval:        envDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		DBStatementTimeout:        envDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
		DBMaxOpenConns:            envInt("DB_MAX_OPEN_CONNS", 20),
		RoleCacheTTL:              envDuration("ROLE_CACHE_TTL", 30*time.Second),

		AutoMigrate:              envBool("AUTO_MIGRATE", true),
		EnableElectionAutoClose:  envBool("ENABLE_ELECTION_AUTO_CLOSE", true),
		EnableElectionOutboxPump: envBool("ENABLE_ELECTION_OUTBOX_PUMP", true),
	}
	if cfg.OutboxBatchSize <= 0 {
		return Config{}, errors.New("OUTBOX_BATCH_SIZE must be positive")
	}
	if cfg.WorkerPollInterval <= 0 {
		return Config{}, errors.New("WORKER_POLL_INTERVAL must be positive")
	}
	return cfg, nil
}

func envString(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
