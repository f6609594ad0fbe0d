package model

import "gorm.io/gorm"

type TaskType string

const (
	TaskTypeMeme TaskType = "MemeTask"
)

// swagger:model Task
type Task struct {
	UUIDBase
	LevelID           string        `gorm:"type:varchar(36);index;not null" json:"levelId"`
	InternalName      string        `gorm:"size:255" json:"internalName"`
	Type              TaskType      `gorm:"size:50;default:'MemeTask'" json:"type"`
	HeaderText        string        `gorm:"type:text" json:"headerText"`
	ImageURL          string        `gorm:"size:512" json:"imageUrl"`
	ResultImagePath   string        `gorm:"size:512" json:"resultImagePath"`
	ResultImageSource string        `gorm:"size:512" json:"resultImageSource"`
	TaskImageSource   string        `gorm:"size:512" json:"taskImageSource"`
	OrderIndex        int           `gorm:"index;default:0" json:"orderIndex"`
	TimeLimitSec      *int          `json:"timeLimitSec,omitempty"`
	PointsAttempt1    int           `gorm:"default:0" json:"pointsAttempt1"`
	PointsAttempt2    int           `gorm:"default:0" json:"pointsAttempt2"`
	PointsAttempt3    int           `gorm:"default:0" json:"pointsAttempt3"`
	ExplanationText   string        `gorm:"type:text" json:"explanationText"`
	Status            PublishStatus `gorm:"size:20;index;default:'Draft'" json:"status"`

	Options []TaskOption `gorm:"foreignKey:TaskID" json:"options,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

// MaxAttempts 第一次作答总是允许的，第二、三次只有配置了分值才开放
func (t *Task) MaxAttempts() int {
	attempts := 1
	if t.PointsAttempt2 > 0 {
		attempts++
	}
	if t.PointsAttempt3 > 0 {
		attempts++
	}
	return attempts
}

// PointsForAttempt 超出第三次的作答不计分
func (t *Task) PointsForAttempt(attemptNumber int) int {
	switch attemptNumber {
	case 1:
		return t.PointsAttempt1
	case 2:
		return t.PointsAttempt2
	case 3:
		return t.PointsAttempt3
	default:
		return 0
	}
}

// swagger:model TaskOption
type TaskOption struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TaskID        string `gorm:"type:varchar(36);index;not null" json:"taskId"`
	Label         string `gorm:"size:512;not null" json:"label"`
	ImageURL      string `gorm:"size:512" json:"imageUrl"`
	IsCorrect     bool   `gorm:"default:false" json:"isCorrect"`
	CorrectAnswer string `gorm:"size:512" json:"correctAnswer"`
	Position      int    `gorm:"default:0" json:"position"`
}

func (TaskOption) TableName() string {
	return "task_options"
}

func (o *TaskOption) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID = GenerateUUID()
	}
	return
}
