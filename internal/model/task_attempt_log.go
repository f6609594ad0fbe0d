package model

import (
	"time"

	"gorm.io/gorm"
)

// TaskAttemptLog 提交审计记录，只追加
// swagger:model TaskAttemptLog
type TaskAttemptLog struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string    `gorm:"type:varchar(36);not null;index" json:"userId"`
	LevelID          string    `gorm:"type:varchar(36);not null;index" json:"levelId"`
	TaskID           string    `gorm:"type:varchar(36);not null;index" json:"taskId"`
	AttemptNumber    int       `gorm:"not null" json:"attemptNumber"`
	IsCorrect        bool      `json:"isCorrect"`
	IsTimeout        bool      `json:"isTimeout"`
	TimeSpentSec     int       `json:"timeSpentSec"`
	StartedAt        time.Time `json:"startedAt"`
	SubmittedAt      time.Time `json:"submittedAt"`
	PointsAwarded    int       `json:"pointsAwarded"`
	ShownExplanation bool      `json:"shownExplanation"`
	ClientAgent      string    `gorm:"size:512" json:"clientAgent"`
	ClientTz         string    `gorm:"size:64" json:"clientTz"`
	IPHash           string    `gorm:"size:64" json:"ipHash"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (TaskAttemptLog) TableName() string {
	return "task_attempt_logs"
}

func (l *TaskAttemptLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = GenerateUUID()
	}
	return
}
