package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSheets   = "sheets"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// HTTPDisabled as HTTP_PORT turns the JSON API off. The API is off by
// default: POST /api/messages writes to the ledger without authentication.
const HTTPDisabled = "off"

type Config struct {
	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string
	DatabaseURL  string

	// Google Sheets
	GoogleSheetID         string
	GoogleWorksheetName   string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Read cache in front of the backend; size 0 disables it.
	CacheTTL  time.Duration
	CacheSize int

	// Discord
	DiscordToken string

	// Dispatcher
	CommandPrefix      string
	DefaultRecentCount int
	MaxRecentCount     int
	RateLimitPerMinute int

	// AMQP; an empty URL disables the queue transport.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	AMQPReplyKey string
	AMQPEventKey string

	// HTTP Server; an empty port disables it. HTTPHost defaults to loopback.
	HTTPHost string
	HTTPPort string

	LogLevel string
}

func Load() *Config {
	return &Config{
		DataBackend: strings.ToLower(getEnv("DATA_BACKEND", BackendMemory)),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		GoogleSheetID:         getEnv("GOOGLE_SHEET_ID", ""),
		GoogleWorksheetName:   getEnv("GOOGLE_WORKSHEET_NAME", "Expenses"),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		CacheTTL:  getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheSize: getEnvInt("CACHE_SIZE", 64),

		DiscordToken: getEnv("DISCORD_BOT_TOKEN", ""),

		CommandPrefix:      getEnv("COMMAND_PREFIX", "!"),
		DefaultRecentCount: getEnvInt("DEFAULT_RECENT_COUNT", 5),
		MaxRecentCount:     getEnvInt("MAX_RECENT_COUNT", 25),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledgerbot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledgerbot.messages"),
		AMQPReplyKey: getEnv("AMQP_REPLY_KEY", "ledgerbot.replies"),
		AMQPEventKey: getEnv("AMQP_EVENT_KEY", "expense.recorded"),

		HTTPHost: getEnv("HTTP_HOST", "127.0.0.1"),
		HTTPPort: getEnv("HTTP_PORT", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Transports enabled by this configuration.
func (c *Config) DiscordEnabled() bool { return c.DiscordToken != "" }
func (c *Config) AMQPEnabled() bool    { return c.AMQPURL != "" }
func (c *Config) HTTPEnabled() bool {
	return c.HTTPPort != "" && !strings.EqualFold(c.HTTPPort, HTTPDisabled)
}

// HTTPAddr is the listen address of the JSON API.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, c.HTTPPort)
}

// Validate checks the configuration's shape. Missing backend credentials are
// not an error here: the backend factory reports them and the bot runs with
// an offline ledger.
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPEnabled() {
		if port, err := strconv.Atoi(c.HTTPPort); err != nil {
			errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number or '%s'", c.HTTPPort, HTTPDisabled))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
		}
	}

	validBackends := []string{BackendMemory, BackendSheets, BackendSQLite, BackendPostgres}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == BackendPostgres && c.DatabaseURL != "" {
		if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	if c.AMQPEnabled() {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPReplyKey == "" {
			errors = append(errors, "AMQP reply routing key cannot be empty when AMQP URL is provided")
		}
	}

	if strings.TrimSpace(c.CommandPrefix) == "" {
		errors = append(errors, "command prefix cannot be empty")
	}
	if c.MaxRecentCount < 1 || c.MaxRecentCount > 100 {
		errors = append(errors, fmt.Sprintf("invalid max recent count %d: must be between 1 and 100", c.MaxRecentCount))
	}
	if c.DefaultRecentCount < 1 || c.DefaultRecentCount > c.MaxRecentCount {
		errors = append(errors, fmt.Sprintf("invalid default recent count %d: must be between 1 and %d", c.DefaultRecentCount, c.MaxRecentCount))
	}
	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheSize))
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive when the cache is enabled", c.CacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
