package model

import "time"

const LeaderboardPeriodAllTime = "AllTime"

// swagger:model LeaderboardEntry
type LeaderboardEntry struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_leaderboard_user_period" json:"userId"`
	Period    string    `gorm:"size:20;not null;uniqueIndex:idx_leaderboard_user_period" json:"period"`
	Score     int       `gorm:"not null;default:0" json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
