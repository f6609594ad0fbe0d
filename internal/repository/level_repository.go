package repository

import (
	"memeup_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LevelRepository 分区与关卡的只读查询，内容由管理端维护
type LevelRepository struct {
	DB *gorm.DB
}

func NewLevelRepository(db *gorm.DB) *LevelRepository {
	return &LevelRepository{DB: db}
}

func (r *LevelRepository) WithTx(tx *gorm.DB) *LevelRepository {
	return &LevelRepository{DB: tx}
}

func (r *LevelRepository) FindPublishedSection(id string) (*model.Section, error) {
	var section model.Section
	err := r.DB.Where("id = ? AND status = ?", id, model.Published).First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *LevelRepository) ListPublishedSections() ([]model.Section, error) {
	var sections []model.Section
	err := r.DB.Where("status = ?", model.Published).
		Order("order_index ASC").Order("name ASC").
		Find(&sections).Error
	return sections, err
}

func (r *LevelRepository) FindPublishedLevel(id string) (*model.Level, error) {
	var level model.Level
	err := r.DB.Where("id = ? AND status = ?", id, model.Published).First(&level).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}

// ListPublishedLevels 按展示顺序返回若干分区下已发布的关卡
func (r *LevelRepository) ListPublishedLevels(sectionIDs ...string) ([]model.Level, error) {
	var levels []model.Level
	if len(sectionIDs) == 0 {
		return levels, nil
	}
	err := r.DB.Where("section_id IN ? AND status = ?", sectionIDs, model.Published).
		Order("order_index ASC").Order("name ASC").
		Find(&levels).Error
	return levels, err
}

// ListLevelIDsBySection 排行榜按分区过滤时包含未发布关卡上的历史成绩
func (r *LevelRepository) ListLevelIDsBySection(sectionID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.Level{}).Where("section_id = ?", sectionID).Pluck("id", &ids).Error
	return ids, err
}

func (r *LevelRepository) UpsertSection(section *model.Section) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "image_url", "order_index", "status", "updated_at"}),
	}).Omit("Levels").Create(section).Error
}

func (r *LevelRepository) UpsertLevel(level *model.Level) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"section_id", "name", "image_url", "header_text", "animation_image_url",
			"order_index", "time_limit_sec", "status", "updated_at",
		}),
	}).Omit("Tasks").Create(level).Error
}
