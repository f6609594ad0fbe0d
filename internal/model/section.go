package model

// swagger:model Section
type Section struct {
	UUIDBase
	Name       string        `gorm:"size:255;not null" json:"name"`
	ImageURL   string        `gorm:"size:512" json:"imageUrl"`
	OrderIndex int           `gorm:"index;default:0" json:"orderIndex"`
	Status     PublishStatus `gorm:"size:20;index;default:'Draft'" json:"status"`

	Levels []Level `gorm:"foreignKey:SectionID" json:"levels,omitempty"`
}

func (Section) TableName() string {
	return "sections"
}
