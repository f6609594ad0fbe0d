package model

// swagger:model Level
type Level struct {
	UUIDBase
	SectionID         string        `gorm:"type:varchar(36);index;not null" json:"sectionId"`
	Name              string        `gorm:"size:255;not null" json:"name"`
	ImageURL          string        `gorm:"size:512" json:"imageUrl"`
	HeaderText        string        `gorm:"type:text" json:"headerText"`
	AnimationImageURL string        `gorm:"size:512" json:"animationImageUrl"`
	OrderIndex        int           `gorm:"index;default:0" json:"orderIndex"`
	TimeLimitSec      *int          `json:"timeLimitSec,omitempty"` // 关卡级别的每题时限，题目未设置时生效
	Status            PublishStatus `gorm:"size:20;index;default:'Draft'" json:"status"`

	Tasks []Task `gorm:"foreignKey:LevelID" json:"tasks,omitempty"`
}

func (Level) TableName() string {
	return "levels"
}
