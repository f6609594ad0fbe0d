package model

import "time"

type LevelStatus string

const (
	LevelNotStarted LevelStatus = "NotStarted"
	LevelInProgress LevelStatus = "InProgress"
	LevelCompleted  LevelStatus = "Completed"
	LevelLocked     LevelStatus = "Locked"
)

// UserLevelProgress 用户在某个关卡上的进度，(user_id, level_id) 唯一
// swagger:model UserLevelProgress
type UserLevelProgress struct {
	ProgressBase
	UserID            string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_level_progress_user_level" json:"userId"`
	LevelID           string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_level_progress_user_level;index" json:"levelId"`
	Status            LevelStatus `gorm:"size:20;not null;default:'NotStarted'" json:"status"`
	LastTaskID        *string     `gorm:"type:varchar(36)" json:"lastTaskId,omitempty"`
	LastRunScore      int         `gorm:"not null;default:0" json:"lastRunScore"`
	BestScore         int         `gorm:"not null;default:0" json:"bestScore"`
	MaxScore          int         `gorm:"not null;default:0" json:"maxScore"`
	RunsCount         int         `gorm:"not null;default:0" json:"runsCount"`
	LastCompletedAt   *time.Time  `json:"lastCompletedAt,omitempty"`
	ReplayAvailableAt *time.Time  `json:"replayAvailableAt,omitempty"`
}

func (UserLevelProgress) TableName() string {
	return "user_level_progress"
}

func (p *UserLevelProgress) IsCompleted() bool {
	return p != nil && p.Status == LevelCompleted
}
