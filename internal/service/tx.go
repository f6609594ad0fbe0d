package service

import (
	"context"
	"errors"
	"fmt"
	"memeup_backend/internal/util"
	"memeup_backend/pkg/logger"
	"memeup_backend/pkg/monitoring"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxRunner 每个请求一个事务，遇到可重试的存储冲突时整体重跑
type TxRunner struct {
	DB      *gorm.DB
	Rules   *RuleSet
	BackOff func() backoff.BackOff
}

func NewTxRunner(db *gorm.DB, rules *RuleSet) *TxRunner {
	return &TxRunner{DB: db, Rules: rules, BackOff: defaultBackOff}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// Run fn 可能被执行多次，闭包内的结果变量需要在开头重置
func (r *TxRunner) Run(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	maxRetries := r.Rules.Get().TxMaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	newBackOff := r.BackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}

	attempt := 0
	op := func() error {
		attempt++
		err := r.DB.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	// 只有确定还会再跑一次时才会回调
	notify := func(err error, wait time.Duration) {
		monitoring.GameTxRetries.WithLabelValues(operation).Inc()
		logger.Log.Warn("transaction conflict, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(maxRetries)), ctx)
	err := backoff.RetryNotify(op, b, notify)
	if err != nil && IsRetryable(err) {
		return fmt.Errorf("%w: %s after %d attempts: %v", util.ErrConcurrencyConflict, operation, attempt, err)
	}
	return err
}

// IsRetryable 序列化失败、死锁、并发插入与乐观锁冲突都可以通过重跑事务解决
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, util.ErrStaleProgress) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1213, 1205:
			return true
		}
	}
	return false
}
