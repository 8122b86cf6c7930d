package pg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappbot/pkg/retry"
)

// testDSN returns TEST_DATABASE_URL or skips the test.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return dsn
}

func TestDefaultPoolOptions(t *testing.T) {
	opts := DefaultPoolOptions()
	assert.Equal(t, int32(8), opts.MaxConns)
	assert.Equal(t, int32(1), opts.MinConns)
	assert.Equal(t, 30*time.Second, opts.HealthCheckPeriod)
	assert.Equal(t, 5*time.Second, opts.PingTimeout)
	assert.Equal(t, 10, opts.Wait.MaxAttempts)
}

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz")
	require.Error(t, err)
}

func TestNewPool_Unreachable(t *testing.T) {
	opts := DefaultPoolOptions()
	opts.PingTimeout = 200 * time.Millisecond
	opts.Wait = retry.Config{MaxAttempts: 2, InitialDelay: 10 * time.Millisecond}

	_, err := NewPoolWithOptions(context.Background(), "postgres://u:p@127.0.0.1:1/bot?sslmode=disable&connect_timeout=1", opts)
	require.ErrorContains(t, err, "database not available")
}

func TestNewPool_Integration(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	r := NewTxRunner(pool)
	err = r.WithinTx(ctx, func(ctx context.Context) error {
		var one int
		return r.GetQuerier(ctx).QueryRow(ctx, "SELECT 1").Scan(&one)
	})
	require.NoError(t, err)
}
