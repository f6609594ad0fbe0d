package repository

import (
	"fmt"
	"memeup_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskRepository struct {
	DB *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: tx}
}

func preloadOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

func (r *TaskRepository) FindPublished(id string) (*model.Task, error) {
	var task model.Task
	err := r.DB.Preload("Options", preloadOptions).
		Where("id = ? AND status = ?", id, model.Published).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListPublishedByLevel 按 (order_index, created_at) 排序，id 作为最终的稳定排序键
func (r *TaskRepository) ListPublishedByLevel(levelID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.DB.Preload("Options", preloadOptions).
		Where("level_id = ? AND status = ?", levelID, model.Published).
		Order("order_index ASC").Order("created_at ASC").Order("id ASC").
		Find(&tasks).Error
	return tasks, err
}

type levelMaxScore struct {
	LevelID  string
	MaxScore int
}

// MaxScoresByLevel 已发布题目第一次作答分值之和，是满分的唯一可信来源
func (r *TaskRepository) MaxScoresByLevel(levelIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(levelIDs))
	if len(levelIDs) == 0 {
		return result, nil
	}
	var rows []levelMaxScore
	err := r.DB.Model(&model.Task{}).
		Select("level_id, COALESCE(SUM(points_attempt1), 0) AS max_score").
		Where("level_id IN ? AND status = ?", levelIDs, model.Published).
		Group("level_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.LevelID] = row.MaxScore
	}
	return result, nil
}

func (r *TaskRepository) UpsertTask(task *model.Task) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"level_id", "internal_name", "type", "header_text", "image_url",
			"result_image_path", "result_image_source", "task_image_source",
			"order_index", "time_limit_sec", "points_attempt1", "points_attempt2",
			"points_attempt3", "explanation_text", "status", "updated_at",
		}),
	}).Omit("Options").Create(task).Error
}

// OptionDiff 选项列表替换的三类操作
type OptionDiff struct {
	Delete []string
	Update []model.TaskOption
	Insert []model.TaskOption
}

// DiffOptions 以 id 为键比较现有与目标选项；没有 id 或 id 不存在的视为新增
func DiffOptions(current, desired []model.TaskOption) OptionDiff {
	existing := make(map[string]struct{}, len(current))
	for _, o := range current {
		existing[o.ID] = struct{}{}
	}

	var diff OptionDiff
	kept := make(map[string]struct{}, len(desired))
	for _, o := range desired {
		if _, ok := existing[o.ID]; ok && o.ID != "" {
			kept[o.ID] = struct{}{}
			diff.Update = append(diff.Update, o)
			continue
		}
		diff.Insert = append(diff.Insert, o)
	}
	for _, o := range current {
		if _, ok := kept[o.ID]; !ok {
			diff.Delete = append(diff.Delete, o.ID)
		}
	}
	return diff
}

// ReplaceOptions 显式执行删除、更新、插入三步，不依赖 gorm 的关联自动保存
func (r *TaskRepository) ReplaceOptions(taskID string, desired []model.TaskOption) (OptionDiff, error) {
	var current []model.TaskOption
	if err := r.DB.Where("task_id = ?", taskID).Find(&current).Error; err != nil {
		return OptionDiff{}, err
	}

	for i := range desired {
		desired[i].TaskID = taskID
		desired[i].Position = i
	}
	diff := DiffOptions(current, desired)

	if len(diff.Delete) > 0 {
		if err := r.DB.Where("task_id = ? AND id IN ?", taskID, diff.Delete).
			Delete(&model.TaskOption{}).Error; err != nil {
			return diff, fmt.Errorf("delete options: %w", err)
		}
	}
	for i := range diff.Update {
		o := diff.Update[i]
		err := r.DB.Model(&model.TaskOption{}).
			Where("id = ? AND task_id = ?", o.ID, taskID).
			Updates(map[string]interface{}{
				"label":          o.Label,
				"image_url":      o.ImageURL,
				"is_correct":     o.IsCorrect,
				"correct_answer": o.CorrectAnswer,
				"position":       o.Position,
			}).Error
		if err != nil {
			return diff, fmt.Errorf("update option %s: %w", o.ID, err)
		}
	}
	if len(diff.Insert) > 0 {
		if err := r.DB.Create(&diff.Insert).Error; err != nil {
			return diff, fmt.Errorf("insert options: %w", err)
		}
	}
	return diff, nil
}
