package model

import "time"

// swagger:model UserTaskProgress
type UserTaskProgress struct {
	ProgressBase
	UserID       string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_task_progress_user_task;index:idx_task_progress_user_level" json:"userId"`
	LevelID      string     `gorm:"type:varchar(36);not null;index:idx_task_progress_user_level" json:"levelId"`
	TaskID       string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_task_progress_user_task" json:"taskId"`
	AttemptsUsed int        `gorm:"not null;default:0" json:"attemptsUsed"`
	PointsEarned int        `gorm:"not null;default:0" json:"pointsEarned"`
	IsCompleted  bool       `gorm:"not null;default:false" json:"isCompleted"`
	TimeSpentSec int        `gorm:"not null;default:0" json:"timeSpentSec"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (UserTaskProgress) TableName() string {
	return "user_task_progress"
}
