package service

import (
	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"time"

	"gorm.io/gorm"
)

// runSummary 本轮题目进度的统计
type runSummary struct {
	CompletedTasks int
	TotalTasks     int
	Score          int
	MaxScore       int
}

// summarizeRun 完成数只统计已发布题目；得分为该关卡全部题目进度的 PointsEarned 之和
func summarizeRun(tasks []model.Task, rows map[string]*model.UserTaskProgress) runSummary {
	sum := runSummary{TotalTasks: len(tasks), MaxScore: liveMaxScore(tasks)}
	for _, t := range tasks {
		if p := rows[t.ID]; p != nil && p.IsCompleted {
			sum.CompletedTasks++
		}
	}
	for _, p := range rows {
		sum.Score += p.PointsEarned
	}
	return sum
}

func (r runSummary) AllCompleted() bool {
	return r.TotalTasks > 0 && r.CompletedTasks == r.TotalTasks
}

func (r runSummary) DTO() LevelProgressDTO {
	return LevelProgressDTO{
		CompletedTasks: r.CompletedTasks,
		TotalTasks:     r.TotalTasks,
		Score:          r.Score,
		MaxScore:       r.MaxScore,
	}
}

func liveMaxScore(tasks []model.Task) int {
	total := 0
	for _, t := range tasks {
		total += t.PointsAttempt1
	}
	return total
}

func taskProgressMap(rows []model.UserTaskProgress) map[string]*model.UserTaskProgress {
	m := make(map[string]*model.UserTaskProgress, len(rows))
	for i := range rows {
		m[rows[i].TaskID] = &rows[i]
	}
	return m
}

// LevelRunFinisher 结束一轮关卡并触发汇总，投递与提交共用
type LevelRunFinisher struct {
	ProgressRepo *repository.ProgressRepository
	Aggregation  *AggregationService
	Rules        *RuleSet
}

func NewLevelRunFinisher(progressRepo *repository.ProgressRepository, aggregation *AggregationService, rules *RuleSet) *LevelRunFinisher {
	return &LevelRunFinisher{ProgressRepo: progressRepo, Aggregation: aggregation, Rules: rules}
}

func (f *LevelRunFinisher) Complete(tx *gorm.DB, level *model.Level, progress *model.UserLevelProgress, sum runSummary, now time.Time) error {
	replayAt := now.Add(f.Rules.Get().ReplayCooldown())
	completedAt := now

	progress.Status = model.LevelCompleted
	progress.LastRunScore = sum.Score
	if sum.Score > progress.BestScore {
		progress.BestScore = sum.Score
	}
	progress.MaxScore = sum.MaxScore
	progress.LastTaskID = nil
	progress.LastCompletedAt = &completedAt
	progress.ReplayAvailableAt = &replayAt
	progress.UpdatedAt = now
	if err := f.ProgressRepo.WithTx(tx).SaveLevelProgress(progress); err != nil {
		return err
	}

	return f.Aggregation.OnLevelCompleted(tx, progress.UserID, level, now)
}
