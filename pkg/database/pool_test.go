package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff_WithinJitterBounds(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := defaultRetryBaseWait << attempt
		lo := time.Duration(float64(base) * (1 - retryJitterFraction))
		hi := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, lo)
			assert.LessOrEqual(t, d, hi)
		}
	}
}

func TestRetryBackoff_NegativeAttempt(t *testing.T) {
	d := retryBackoff(-3)
	assert.LessOrEqual(t, d, time.Duration(float64(defaultRetryBaseWait)*(1+retryJitterFraction)))
}

func TestSleepCtx_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5433, User: "bo", Password: "pw", DBName: "backoffice", SSLMode: "disable"}
	assert.Equal(t, "postgres://bo:pw@db:5433/backoffice?sslmode=disable", cfg.DSN())
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"dial tcp 127.0.0.1:5432: connect: connection refused", true},
		{"read: connection reset by peer", true},
		{"unexpected EOF", true},
		{"ERROR: syntax error at or near \"CREAT\" (SQLSTATE 42601)", false},
		{"ERROR: relation \"invoices\" already exists", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isConnectionError(errStr(tt.msg)), tt.msg)
	}
	assert.False(t, isConnectionError(nil))
}

type errStr string

func (e errStr) Error() string { return string(e) }
