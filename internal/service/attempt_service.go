package service

import (
	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"memeup_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// AttemptService 管理一次性作答令牌，所有方法都在调用方的事务内执行
type AttemptService struct {
	AttemptRepo *repository.LevelAttemptRepository
	Rules       *RuleSet
}

func NewAttemptService(attemptRepo *repository.LevelAttemptRepository, rules *RuleSet) *AttemptService {
	return &AttemptService{AttemptRepo: attemptRepo, Rules: rules}
}

// ExpiryFor 有时限时为 now + 时限 + 宽限期，否则永不过期
func (s *AttemptService) ExpiryFor(now time.Time, timeLimitSec *int) time.Time {
	if timeLimitSec == nil || *timeLimitSec <= 0 {
		return model.AttemptNeverExpires
	}
	return now.Add(time.Duration(*timeLimitSec)*time.Second + s.Rules.Get().TimerGrace())
}

// Issue 先结束该题所有未提交的令牌，再签发新令牌
func (s *AttemptService) Issue(tx *gorm.DB, userID, levelID, taskID string, attemptNumber int, timeLimitSec *int, now time.Time) (*model.ActiveTaskAttempt, error) {
	repo := s.AttemptRepo.WithTx(tx)
	if _, err := repo.FinalizeOpenForTask(userID, taskID, now); err != nil {
		return nil, err
	}

	attempt := &model.ActiveTaskAttempt{
		Token:          model.GenerateUUID(),
		UserID:         userID,
		LevelID:        levelID,
		TaskID:         taskID,
		AttemptNumber:  attemptNumber,
		AttemptStartAt: now,
		ExpiresAt:      s.ExpiryFor(now, timeLimitSec),
	}
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	if err := repo.Create(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Validate 按 未找到 → 非本人 → 题目不符 → 已结束 的顺序校验。
// 令牌行不加锁，并发提交由 Finalize 的版本号校验拦截
func (s *AttemptService) Validate(tx *gorm.DB, token, userID, taskID string) (*model.ActiveTaskAttempt, error) {
	if _, ok := util.ParseID(token); !ok {
		return nil, util.ErrAttemptNotFound
	}
	attempt, err := s.AttemptRepo.WithTx(tx).FindByToken(token, false)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, util.ErrAttemptNotFound
	}
	if attempt.UserID != userID {
		return nil, util.ErrAttemptForbidden
	}
	if attempt.TaskID != taskID {
		return nil, util.ErrAttemptMismatch
	}
	if attempt.IsFinalized {
		return nil, util.ErrAttemptFinalized
	}
	return attempt, nil
}

// MatchLevel 令牌签发时的关卡必须与题目当前所属关卡一致
func (s *AttemptService) MatchLevel(attempt *model.ActiveTaskAttempt, task *model.Task) error {
	if attempt.LevelID != task.LevelID {
		return util.ErrAttemptMismatch
	}
	return nil
}

// Finalize 幂等；expire 为 true 时同时把过期时间收到 now
func (s *AttemptService) Finalize(tx *gorm.DB, attempt *model.ActiveTaskAttempt, now time.Time, expire bool) error {
	if attempt.IsFinalized {
		return nil
	}
	attempt.IsFinalized = true
	attempt.UpdatedAt = now
	if expire {
		attempt.ExpiresAt = now
	}
	return s.AttemptRepo.WithTx(tx).Save(attempt)
}
