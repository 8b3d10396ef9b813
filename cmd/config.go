package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"orderflow/internal/adapters/out/broker"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/jobs"

	"github.com/go-playground/validator/v10"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env      string `validate:"required,oneof=development production"`
	HTTPPort string `validate:"required,numeric"`

	DBDriver   string `validate:"required,oneof=postgres sqlite"`
	DBHost     string `validate:"required_if=DBDriver postgres"`
	DBPort     string `validate:"required_if=DBDriver postgres,omitempty,numeric"`
	DBUser     string `validate:"required_if=DBDriver postgres"`
	DBPassword string
	DBName     string `validate:"required_if=DBDriver postgres"`
	DBSslMode  string `validate:"omitempty,oneof=disable require verify-ca verify-full"`
	SQLitePath string `validate:"required_if=DBDriver sqlite"`

	JWTSecret string `validate:"required,min=16"`

	KafkaBrokers           []string `validate:"omitempty,dive,hostname_port"`
	KafkaOrderUpdatesTopic string
	KafkaBatchTimeout      time.Duration `validate:"gt=0"`
	KafkaPublishTimeout    time.Duration `validate:"gt=0"`

	PrepareTarget      time.Duration `validate:"gt=0"`
	PickupTarget       time.Duration `validate:"gt=0"`
	DeliverTarget      time.Duration `validate:"gt=0"`
	ProgressBatchLimit int           `validate:"min=1,max=500"`
	OverdueSchedule    string        `validate:"required"`
}

// ConfigFromEnv reads the configuration through getenv, usually os.Getenv
// after godotenv loaded the .env file. Unset keys take their defaults.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	defaults := services.DefaultPhaseTargets()
	var errList []error
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}

	batchLimit, err := strconv.Atoi(get("PROGRESS_BATCH_LIMIT", "100"))
	if err != nil {
		errList = append(errList, fmt.Errorf("PROGRESS_BATCH_LIMIT: %w", err))
	}

	var brokers []string
	for _, b := range strings.Split(get("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	config := Config{
		Env:      get("ENV", "development"),
		HTTPPort: get("HTTP_PORT", "8080"),

		DBDriver:   get("DB_DRIVER", DriverPostgres),
		DBHost:     get("DB_HOST", ""),
		DBPort:     get("DB_PORT", "5432"),
		DBUser:     get("DB_USER", ""),
		DBPassword: get("DB_PASSWORD", ""),
		DBName:     get("DB_NAME", ""),
		DBSslMode:  get("DB_SSLMODE", "disable"),
		SQLitePath: get("SQLITE_PATH", ""),

		JWTSecret: get("JWT_SECRET", ""),

		KafkaBrokers:           brokers,
		KafkaOrderUpdatesTopic: get("KAFKA_ORDER_UPDATES_TOPIC", ""),
		KafkaBatchTimeout:      duration("KAFKA_BATCH_TIMEOUT", broker.DefaultBatchTimeout),
		KafkaPublishTimeout:    duration("KAFKA_PUBLISH_TIMEOUT", broker.DefaultPublishTimeout),

		PrepareTarget:      duration("PREPARE_TARGET", defaults.Prepare),
		PickupTarget:       duration("PICKUP_TARGET", defaults.Pickup),
		DeliverTarget:      duration("DELIVER_TARGET", defaults.Deliver),
		ProgressBatchLimit: batchLimit,
		OverdueSchedule:    get("OVERDUE_SCHEDULE", jobs.DefaultOverdueSchedule),
	}
	if len(errList) > 0 {
		return Config{}, fmt.Errorf("parse config: %w", errors.Join(errList...))
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func (c Config) PhaseTargets() services.PhaseTargets {
	return services.PhaseTargets{
		Prepare: c.PrepareTarget,
		Pickup:  c.PickupTarget,
		Deliver: c.DeliverTarget,
	}
}

// PostgresDSN is the connection string for the postgres driver.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%v port=%v user=%v password=%v dbname=%v sslmode=%v",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode,
	)
}
