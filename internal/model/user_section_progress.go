package model

import "time"

// swagger:model UserSectionProgress
type UserSectionProgress struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_section_progress_user_section" json:"userId"`
	SectionID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_section_progress_user_section" json:"sectionId"`
	LevelsCompleted int       `gorm:"not null;default:0" json:"levelsCompleted"`
	TotalLevels     int       `gorm:"not null;default:0" json:"totalLevels"`
	Score           int       `gorm:"not null;default:0" json:"score"`
	MaxScore        int       `gorm:"not null;default:0" json:"maxScore"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (UserSectionProgress) TableName() string {
	return "user_section_progress"
}
