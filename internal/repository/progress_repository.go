package repository

import (
	"errors"
	"memeup_backend/internal/model"
	"memeup_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 用户关卡与题目进度
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// saveVersioned 全字段更新并校验版本号，版本不一致返回 ErrStaleProgress
func saveVersioned(db *gorm.DB, value interface{}, base *model.ProgressBase) error {
	old := base.Version
	base.Version = old + 1
	res := db.Model(value).Select("*").Omit("created_at").Where("version = ?", old).Updates(value)
	if res.Error != nil {
		base.Version = old
		return res.Error
	}
	if res.RowsAffected == 0 {
		base.Version = old
		return util.ErrStaleProgress
	}
	return nil
}

func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindLevelProgress 不存在时返回 nil, nil；lock 为 true 时加行锁
func (r *ProgressRepository) FindLevelProgress(userID, levelID string, lock bool) (*model.UserLevelProgress, error) {
	db := r.DB
	if lock {
		db = forUpdate(db)
	}
	var p model.UserLevelProgress
	err := db.Where("user_id = ? AND level_id = ?", userID, levelID).First(&p).Error
	return notFoundAsNil(&p, err)
}

func (r *ProgressRepository) ListLevelProgress(userID string, levelIDs []string) ([]model.UserLevelProgress, error) {
	var list []model.UserLevelProgress
	if len(levelIDs) == 0 {
		return list, nil
	}
	err := r.DB.Where("user_id = ? AND level_id IN ?", userID, levelIDs).Find(&list).Error
	return list, err
}

func (r *ProgressRepository) ListAllLevelProgress(userID string) ([]model.UserLevelProgress, error) {
	var list []model.UserLevelProgress
	err := r.DB.Where("user_id = ?", userID).Find(&list).Error
	return list, err
}

func (r *ProgressRepository) CreateLevelProgress(p *model.UserLevelProgress) error {
	return r.DB.Create(p).Error
}

func (r *ProgressRepository) SaveLevelProgress(p *model.UserLevelProgress) error {
	return saveVersioned(r.DB, p, &p.ProgressBase)
}

func (r *ProgressRepository) ListTaskProgress(userID, levelID string) ([]model.UserTaskProgress, error) {
	var list []model.UserTaskProgress
	err := r.DB.Where("user_id = ? AND level_id = ?", userID, levelID).Find(&list).Error
	return list, err
}

func (r *ProgressRepository) FindTaskProgress(userID, taskID string, lock bool) (*model.UserTaskProgress, error) {
	db := r.DB
	if lock {
		db = forUpdate(db)
	}
	var p model.UserTaskProgress
	err := db.Where("user_id = ? AND task_id = ?", userID, taskID).First(&p).Error
	return notFoundAsNil(&p, err)
}

func (r *ProgressRepository) CreateTaskProgress(p *model.UserTaskProgress) error {
	return r.DB.Create(p).Error
}

func (r *ProgressRepository) SaveTaskProgress(p *model.UserTaskProgress) error {
	return saveVersioned(r.DB, p, &p.ProgressBase)
}

// DeleteTaskProgress 关卡重置时清空本轮的题目进度
func (r *ProgressRepository) DeleteTaskProgress(userID, levelID string) (int64, error) {
	res := r.DB.Where("user_id = ? AND level_id = ?", userID, levelID).Delete(&model.UserTaskProgress{})
	return res.RowsAffected, res.Error
}
