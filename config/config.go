package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farellandr/confpass/internal/models"
)

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Batch commands connect with a separate writer role when one is set.
	DBWriterUser     string
	DBWriterPassword string

	LogLevel  string
	LogFormat string

	EnableDemo          bool
	MakeAllTransferable bool
	TransferIsolation   sql.IsolationLevel

	JWTSecret         string
	AdminPasswordHash string
	BadgeSecret       string

	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPRoutingKey string

	CSVMaxFileSize int64
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port: getenv("PORT", "9001"),

		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getenv("DB_SSLMODE", "require"),

		DBWriterUser:     os.Getenv("DB_WRITER_USER"),
		DBWriterPassword: os.Getenv("DB_WRITER_PASSWORD"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		BadgeSecret:       os.Getenv("BADGE_SECRET"),

		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   getenv("AMQP_EXCHANGE", "attendees"),
		AMQPQueue:      getenv("AMQP_QUEUE", "ticket-transfers"),
		AMQPRoutingKey: getenv("AMQP_ROUTING_KEY", "ticket.transferred"),
	}

	var err error
	if cfg.EnableDemo, err = getbool("ENABLE_DEMO", true); err != nil {
		return nil, err
	}
	if cfg.MakeAllTransferable, err = getbool("TEST_MAKE_ALL_TRANSFERABLE", false); err != nil {
		return nil, err
	}
	if cfg.TransferIsolation, err = parseIsolation(getenv("TRANSFER_ISOLATION", "serializable")); err != nil {
		return nil, err
	}
	if cfg.CSVMaxFileSize, err = strconv.ParseInt(getenv("CSV_MAX_FILE_SIZE", "10485760"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid value for CSV_MAX_FILE_SIZE: %w", err)
	}
	if cfg.BadgeSecret == "" {
		cfg.BadgeSecret = cfg.JWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.DBUser == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DBName == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Port))
	}
	if c.AdminPasswordHash != "" && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when ADMIN_PASSWORD_HASH is set"))
	}
	if c.CSVMaxFileSize <= 0 {
		errs = append(errs, errors.New("CSV_MAX_FILE_SIZE must be positive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// AdminEnabled reports whether the admin API should be mounted.
func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}

func (c *Config) DSN() string {
	return c.dsn(c.DBUser, c.DBPassword)
}

// WriterDSN is the connection string for batch commands. It falls back to the
// service credentials when no writer role is configured.
func (c *Config) WriterDSN() string {
	if c.DBWriterUser == "" {
		return c.DSN()
	}
	return c.dsn(c.DBWriterUser, c.DBWriterPassword)
}

func (c *Config) dsn(user, password string) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, user, password, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// OpenDatabase connects without touching the schema. Batch commands use it so
// that a dry run leaves the database exactly as it found it.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	return openDatabase(postgres.Open(dsn))
}

func openDatabase(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
}

func MigrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(&models.Attendee{})
}

// InitDatabase opens the service connection and migrates the schema.
func InitDatabase(dsn string) (*gorm.DB, error) {
	db, err := OpenDatabase(dsn)
	if err != nil {
		return nil, err
	}

	if err := MigrateDatabase(db); err != nil {
		return nil, err
	}

	return db, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s=%q: %w", key, v, err)
	}
	return b, nil
}

func parseIsolation(s string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("invalid value for TRANSFER_ISOLATION=%q", s)
	}
}
