package service

import (
	"time"

	"memeup_backend/internal/model"
)

const (
	DeliveryStatusOK        = "ok"
	DeliveryStatusCompleted = "completed"

	ResultCorrect   = "correct"
	ResultIncorrect = "incorrect"
	ResultTimeout   = "timeout"

	NextActionTask = "nextTask"
)

// LevelIntroDTO 关卡介绍页
type LevelIntroDTO struct {
	LevelID           string            `json:"levelId"`
	LevelName         string            `json:"levelName"`
	HeaderText        string            `json:"headerText"`
	AnimationImageURL string            `json:"animationImageUrl"`
	OrderIndex        int               `json:"orderIndex"`
	TasksCount        int               `json:"tasksCount"`
	MaxScore          int               `json:"maxScore"`
	Status            model.LevelStatus `json:"status"`
	ReplayAvailableAt *time.Time        `json:"replayAvailableAt"`
}

type GameTaskOptionDTO struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ImageURL string `json:"imageUrl"`
}

// GameTaskDTO 下发给客户端的题目，不包含正确答案
type GameTaskDTO struct {
	ID                    string              `json:"id"`
	Type                  model.TaskType      `json:"type"`
	HeaderText            string              `json:"headerText"`
	ImageURL              string              `json:"imageUrl"`
	ResultImagePath       string              `json:"resultImagePath"`
	ResultImageSource     string              `json:"resultImageSource"`
	TaskImageSource       string              `json:"taskImageSource"`
	Options               []GameTaskOptionDTO `json:"options"`
	OrderIndex            int                 `json:"orderIndex"`
	TimeLimitSecEffective *int                `json:"timeLimitSecEffective"`
	AttemptToken          string              `json:"attemptToken"`
}

type LevelProgressDTO struct {
	CompletedTasks int `json:"completedTasks"`
	TotalTasks     int `json:"totalTasks"`
	Score          int `json:"score"`
	MaxScore       int `json:"maxScore"`
}

// TaskDeliveryResponse start/next/replay 的统一返回
type TaskDeliveryResponse struct {
	LevelID       string           `json:"levelId"`
	Task          *GameTaskDTO     `json:"task"`
	Status        string           `json:"status"`
	LevelProgress LevelProgressDTO `json:"levelProgress"`
}

type SelectedOptionDTO struct {
	SelectedOptionID string `json:"selectedOptionId"`
}

// TaskSubmitRequest 兼容三种选项写法
type TaskSubmitRequest struct {
	AttemptToken      string              `json:"attemptToken" binding:"required"`
	SelectedOptionID  *string             `json:"selectedOptionId"`
	SelectedOptionIDs []string            `json:"selectedOptionIds"`
	SelectedOptions   []SelectedOptionDTO `json:"selectedOptions"`
}

// SelectedOption 依次取 selectedOptionId、selectedOptionIds[0]、selectedOptions[0]
func (r *TaskSubmitRequest) SelectedOption() string {
	if r.SelectedOptionID != nil && *r.SelectedOptionID != "" {
		return *r.SelectedOptionID
	}
	if len(r.SelectedOptionIDs) > 0 {
		return r.SelectedOptionIDs[0]
	}
	if len(r.SelectedOptions) > 0 {
		return r.SelectedOptions[0].SelectedOptionID
	}
	return ""
}

type LevelSummaryDTO struct {
	EarnedScore int `json:"earnedScore"`
	MaxScore    int `json:"maxScore"`
}

type TaskSubmitResponse struct {
	Result            string           `json:"result"`
	AttemptNumber     int              `json:"attemptNumber"`
	AttemptsLeft      int              `json:"attemptsLeft"`
	PointsEarned      int              `json:"pointsEarned"`
	TaskCompleted     bool             `json:"taskCompleted"`
	LevelCompleted    bool             `json:"levelCompleted"`
	LevelSummary      *LevelSummaryDTO `json:"levelSummary,omitempty"`
	NextAction        string           `json:"nextAction"`
	ExplanationText   *string          `json:"explanationText"`
	ResultImagePath   string           `json:"resultImagePath"`
	ResultImageSource string           `json:"resultImageSource"`
	TaskImageSource   string           `json:"taskImageSource"`
}

// SubmitMeta 审计日志需要的请求信息
type SubmitMeta struct {
	UserAgent string
	Timezone  string
	ClientIP  string
}

type GameSectionDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ImageURL        string `json:"imageUrl"`
	OrderIndex      int    `json:"orderIndex"`
	LevelsCompleted int    `json:"levelsCompleted"`
	TotalLevels     int    `json:"totalLevels"`
	Score           int    `json:"score"`
	MaxScore        int    `json:"maxScore"`
	IsCompleted     bool   `json:"isCompleted"`
}

type GameLevelDTO struct {
	ID                string            `json:"id"`
	SectionID         string            `json:"sectionId"`
	Name              string            `json:"name"`
	ImageURL          string            `json:"imageUrl"`
	OrderIndex        int               `json:"orderIndex"`
	Status            model.LevelStatus `json:"status"`
	Score             int               `json:"score"`
	MaxScore          int               `json:"maxScore"`
	ReplayAvailableAt *time.Time        `json:"replayAvailableAt"`
}

type LeaderboardEntryDTO struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LeaderboardQuery 排行榜过滤条件，LevelID 优先于 SectionID
type LeaderboardQuery struct {
	Period    string `form:"period"`
	SectionID string `form:"sectionId"`
	LevelID   string `form:"levelId"`
}
