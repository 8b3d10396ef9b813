package cmd_test

import (
	"testing"
	"time"

	"orderflow/cmd"
	"orderflow/internal/adapters/out/broker"
	"orderflow/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		config, err := cmd.ConfigFromEnv(envOf(map[string]string{
			"DB_DRIVER":   "sqlite",
			"SQLITE_PATH": "orders.db",
			"JWT_SECRET":  "0123456789abcdef",
		}))

		require.NoError(t, err)
		assert.Equal(t, "development", config.Env)
		assert.Equal(t, "8080", config.HTTPPort)
		assert.Equal(t, 20*time.Minute, config.PrepareTarget)
		assert.Equal(t, 10*time.Minute, config.PickupTarget)
		assert.Equal(t, 25*time.Minute, config.DeliverTarget)
		assert.Equal(t, 100, config.ProgressBatchLimit)
		assert.Equal(t, jobs.DefaultOverdueSchedule, config.OverdueSchedule)
		assert.Empty(t, config.KafkaBrokers)
		assert.Equal(t, broker.DefaultBatchTimeout, config.KafkaBatchTimeout)
		assert.Equal(t, broker.DefaultPublishTimeout, config.KafkaPublishTimeout)
	})

	t.Run("should read postgres and kafka settings", func(t *testing.T) {
		config, err := cmd.ConfigFromEnv(envOf(map[string]string{
			"ENV":                  "production",
			"HTTP_PORT":            "9090",
			"DB_HOST":              "db",
			"DB_USER":              "orderflow",
			"DB_NAME":              "orders",
			"JWT_SECRET":           "0123456789abcdef",
			"KAFKA_BROKERS":        "kafka-1:9092, kafka-2:9092,",
			"KAFKA_BATCH_TIMEOUT":  "5ms",
			"PREPARE_TARGET":       "15m",
			"PROGRESS_BATCH_LIMIT": "40",
		}))

		require.NoError(t, err)
		assert.Equal(t, cmd.DriverPostgres, config.DBDriver)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.KafkaBrokers)
		assert.Equal(t, 5*time.Millisecond, config.KafkaBatchTimeout)
		assert.Equal(t, 15*time.Minute, config.PhaseTargets().Prepare)
		assert.Equal(t, 40, config.ProgressBatchLimit)
		assert.Equal(t, "host=db port=5432 user=orderflow password= dbname=orders sslmode=disable", config.PostgresDSN())
	})

	tests := []struct {
		name   string
		values map[string]string
	}{
		{
			name:   "should require the postgres host",
			values: map[string]string{"DB_USER": "u", "DB_NAME": "n", "JWT_SECRET": "0123456789abcdef"},
		},
		{
			name:   "should require the sqlite path",
			values: map[string]string{"DB_DRIVER": "sqlite", "JWT_SECRET": "0123456789abcdef"},
		},
		{
			name:   "should require a long enough secret",
			values: map[string]string{"DB_DRIVER": "sqlite", "SQLITE_PATH": "o.db", "JWT_SECRET": "short"},
		},
		{
			name: "should reject a malformed duration",
			values: map[string]string{
				"DB_DRIVER": "sqlite", "SQLITE_PATH": "o.db", "JWT_SECRET": "0123456789abcdef",
				"PICKUP_TARGET": "ten minutes",
			},
		},
		{
			name: "should reject an oversized batch limit",
			values: map[string]string{
				"DB_DRIVER": "sqlite", "SQLITE_PATH": "o.db", "JWT_SECRET": "0123456789abcdef",
				"PROGRESS_BATCH_LIMIT": "1000",
			},
		},
		{
			name: "should reject an unknown driver",
			values: map[string]string{
				"DB_DRIVER": "mysql", "JWT_SECRET": "0123456789abcdef",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cmd.ConfigFromEnv(envOf(tt.values))
			require.Error(t, err)
		})
	}
}
