package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"memeup_backend/internal/config"
	"memeup_backend/internal/testutil"
	"memeup_backend/internal/util"
	"memeup_backend/pkg/monitoring"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"stale progress", fmt.Errorf("save: %w", util.ErrStaleProgress), true},
		{"duplicate key", gorm.ErrDuplicatedKey, true},
		{"pg serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait timeout", &mysql.MySQLError{Number: 1205}, true},
		{"mysql syntax", &mysql.MySQLError{Number: 1064}, false},
		{"domain error", util.ErrLevelLocked, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func newTestTxRunner(t *testing.T, maxRetries int) *TxRunner {
	db := testutil.OpenDB(t)
	cfg := config.DefaultGameConfig()
	cfg.TxMaxRetries = maxRetries
	r := NewTxRunner(db, NewRuleSet(cfg))
	r.BackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return r
}

func TestTxRunnerRetriesConflicts(t *testing.T) {
	r := newTestTxRunner(t, 3)

	calls := 0
	err := r.Run(context.Background(), "test", func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return util.ErrStaleProgress
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestTxRunnerReturnsDomainErrorsImmediately(t *testing.T) {
	r := newTestTxRunner(t, 3)

	calls := 0
	err := r.Run(context.Background(), "test", func(tx *gorm.DB) error {
		calls++
		return util.ErrLevelLocked
	})

	assert.ErrorIs(t, err, util.ErrLevelLocked)
	assert.Equal(t, 1, calls)
}

func TestTxRunnerExhaustedRetriesBecomeConflict(t *testing.T) {
	r := newTestTxRunner(t, 2)

	calls := 0
	err := r.Run(context.Background(), "test", func(tx *gorm.DB) error {
		calls++
		return util.ErrStaleProgress
	})

	assert.ErrorIs(t, err, util.ErrConcurrencyConflict)
	assert.Equal(t, 3, calls)
}

func TestTxRunnerCountsOnlyScheduledRetries(t *testing.T) {
	r := newTestTxRunner(t, 2)
	retries := monitoring.GameTxRetries.WithLabelValues("exhausted")
	before := promtestutil.ToFloat64(retries)

	calls := 0
	err := r.Run(context.Background(), "exhausted", func(tx *gorm.DB) error {
		calls++
		return util.ErrStaleProgress
	})

	assert.ErrorIs(t, err, util.ErrConcurrencyConflict)
	assert.Equal(t, 3, calls)
	// 三次执行之间只有两次重试，最后一次失败后不再计数
	assert.Equal(t, float64(2), promtestutil.ToFloat64(retries)-before)

	before = promtestutil.ToFloat64(monitoring.GameTxRetries.WithLabelValues("first-try"))
	require.NoError(t, r.Run(context.Background(), "first-try", func(tx *gorm.DB) error { return nil }))
	assert.Equal(t, before, promtestutil.ToFloat64(monitoring.GameTxRetries.WithLabelValues("first-try")))
}

func TestTxRunnerRollsBackFailedAttempts(t *testing.T) {
	r := newTestTxRunner(t, 1)

	calls := 0
	err := r.Run(context.Background(), "test", func(tx *gorm.DB) error {
		calls++
		testutil.NewUser(t, tx, fmt.Sprintf("user-%d", calls), "")
		if calls == 1 {
			return util.ErrStaleProgress
		}
		return nil
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, r.DB.Table("users").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTxRunnerStopsOnCanceledContext(t *testing.T) {
	r := newTestTxRunner(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, "test", func(tx *gorm.DB) error {
		return nil
	})

	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
