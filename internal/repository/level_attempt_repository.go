package repository

import (
	"memeup_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// LevelAttemptRepository 作答令牌与提交审计日志
type LevelAttemptRepository struct {
	DB *gorm.DB
}

func NewLevelAttemptRepository(db *gorm.DB) *LevelAttemptRepository {
	return &LevelAttemptRepository{DB: db}
}

func (r *LevelAttemptRepository) WithTx(tx *gorm.DB) *LevelAttemptRepository {
	return &LevelAttemptRepository{DB: tx}
}

func (r *LevelAttemptRepository) Create(attempt *model.ActiveTaskAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *LevelAttemptRepository) FindByToken(token string, lock bool) (*model.ActiveTaskAttempt, error) {
	db := r.DB
	if lock {
		db = forUpdate(db)
	}
	var a model.ActiveTaskAttempt
	err := db.Where("token = ?", token).First(&a).Error
	return notFoundAsNil(&a, err)
}

func (r *LevelAttemptRepository) finalizeOpen(query *gorm.DB, now time.Time) (int64, error) {
	res := query.Model(&model.ActiveTaskAttempt{}).
		Where("is_finalized = ?", false).
		Updates(map[string]interface{}{
			"is_finalized": true,
			"updated_at":   now,
			"version":      gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}

// FinalizeOpenForTask 同一 (user, task) 只允许存在一个未结束的令牌
func (r *LevelAttemptRepository) FinalizeOpenForTask(userID, taskID string, now time.Time) (int64, error) {
	return r.finalizeOpen(r.DB.Where("user_id = ? AND task_id = ?", userID, taskID), now)
}

func (r *LevelAttemptRepository) FinalizeOpenForLevel(userID, levelID string, now time.Time) (int64, error) {
	return r.finalizeOpen(r.DB.Where("user_id = ? AND level_id = ?", userID, levelID), now)
}

func (r *LevelAttemptRepository) Save(attempt *model.ActiveTaskAttempt) error {
	return saveVersioned(r.DB, attempt, &attempt.ProgressBase)
}

func (r *LevelAttemptRepository) AppendLog(log *model.TaskAttemptLog) error {
	return r.DB.Create(log).Error
}
