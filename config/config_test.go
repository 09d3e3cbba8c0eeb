package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("TRACING_SAMPLE_RATE", "0.1")
	t.Setenv("OUTBOX_BATCH_SIZE", "100")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Clinic.AllowDischargedActivity)
	assert.Equal(t, 2*time.Second, cfg.Events.PollInterval)
	assert.Equal(t, uint32(5), cfg.Events.BreakerMaxFailures)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CLINIC_ALLOW_DISCHARGED_ACTIVITY", "false")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092 , kafka-2:9092,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("SERVER_PORT", " 9090 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Clinic.AllowDischargedActivity)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, 500*time.Millisecond, cfg.Events.PollInterval)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"short production secret", map[string]string{"APP_ENV": "production", "DB_PASSWORD": "pw"}, "at least 32 characters"},
		{"sample rate", map[string]string{"TRACING_SAMPLE_RATE": "1.5"}, "TRACING_SAMPLE_RATE"},
		{"log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"empty topic", map[string]string{"EVENTS_ENABLED": "true", "KAFKA_TOPIC": ""}, "KAFKA_TOPIC"},
		{"batch size", map[string]string{"OUTBOX_BATCH_SIZE": "0"}, "OUTBOX_BATCH_SIZE"},
		{"unparsable integer", map[string]string{"SERVER_PORT": "eighty"}, `SERVER_PORT="eighty" is not a valid integer`},
		{"unparsable duration", map[string]string{"OUTBOX_POLL_INTERVAL": "2"}, "OUTBOX_POLL_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
