package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("PAYMENT_SELLER_ID", "seller-1")
}

func TestLoad_Defaults(t *testing.T) {
	validEnv(t)

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorePostgres, cfg.OrderStore)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "BRL", cfg.Payment.Currency)
	assert.Equal(t, "oob", cfg.Payment.Scope)
	assert.Equal(t, 6, cfg.Payment.PollAttempts)
	assert.Equal(t, 5*time.Second, cfg.Payment.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.PublishTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	validEnv(t)
	t.Setenv("ORDER_STORE", "DynamoDB")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("PIX_POLL_ATTEMPTS", "3")
	t.Setenv("PIX_POLL_INTERVAL", "250ms")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("PUBLISH_TIMEOUT", "750ms")

	cfg := Load()

	assert.Equal(t, StoreDynamoDB, cfg.OrderStore)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.Payment.PollAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Payment.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.PublishTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	validEnv(t)
	t.Setenv("PIX_POLL_ATTEMPTS", "many")
	t.Setenv("PIX_POLL_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 6, cfg.Payment.PollAttempts)
	assert.Equal(t, 5*time.Second, cfg.Payment.PollInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32 characters"},
		{"missing seller", map[string]string{"PAYMENT_SELLER_ID": ""}, "PAYMENT_SELLER_ID is required"},
		{"unknown store", map[string]string{"ORDER_STORE": "mongo"}, "ORDER_STORE must be"},
		{"zero attempts", map[string]string{"PIX_POLL_ATTEMPTS": "0"}, "PIX_POLL_ATTEMPTS must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := Load().Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
