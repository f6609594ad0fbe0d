package model

import "time"

// AttemptNeverExpires 题目没有时限时使用的过期时间
var AttemptNeverExpires = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// ActiveTaskAttempt 一次作答机会，Token 只能提交一次
// swagger:model ActiveTaskAttempt
type ActiveTaskAttempt struct {
	ProgressBase
	Token          string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"token"`
	UserID         string    `gorm:"type:varchar(36);not null;index:idx_attempt_user_task" json:"userId"`
	LevelID        string    `gorm:"type:varchar(36);not null;index" json:"levelId"`
	TaskID         string    `gorm:"type:varchar(36);not null;index:idx_attempt_user_task" json:"taskId"`
	AttemptNumber  int       `gorm:"not null" json:"attemptNumber"`
	AttemptStartAt time.Time `gorm:"not null" json:"attemptStartAt"`
	ExpiresAt      time.Time `gorm:"not null" json:"expiresAt"`
	IsFinalized    bool      `gorm:"not null;default:false;index" json:"isFinalized"`
}

func (ActiveTaskAttempt) TableName() string {
	return "active_task_attempts"
}

func (a *ActiveTaskAttempt) NeverExpires() bool {
	return !a.ExpiresAt.Before(AttemptNeverExpires)
}

// ExpiredAt 惰性过期判断
func (a *ActiveTaskAttempt) ExpiredAt(now time.Time) bool {
	return !a.NeverExpires() && now.After(a.ExpiresAt)
}
