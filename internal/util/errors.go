package util

import (
	"errors"
	"fmt"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrLevelNotFound   = errors.New("level not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrAttemptNotFound = errors.New("attempt token not found")

	ErrAttemptForbidden  = errors.New("attempt token belongs to another user")
	ErrAttemptMismatch   = errors.New("attempt token does not match task")
	ErrAttemptFinalized  = errors.New("attempt already finalized")
	ErrLevelLocked       = errors.New("level is locked")
	ErrInvalidSelection  = errors.New("selected option is invalid")
	ErrLevelNotCompleted = errors.New("level is not completed")
	ErrNoPublishedTasks  = errors.New("level has no published tasks")
	ErrUnsupportedPeriod = errors.New("only AllTime period is supported")

	ErrMissingIdentity     = errors.New("user identifier claim is missing")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrStaleProgress 乐观锁版本不一致，由事务重试吸收
	ErrStaleProgress = errors.New("progress row was modified concurrently")
)

// CooldownError 重玩冷却未结束
type CooldownError struct {
	RetryAfterSeconds int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("replay cooldown active, retry after %d seconds", e.RetryAfterSeconds)
}
