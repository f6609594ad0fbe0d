package service

import (
	"fmt"
	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"time"

	"gorm.io/gorm"
)

// AggregationService 关卡完成后全量重算排行榜与分区汇总
type AggregationService struct {
	LevelRepo       *repository.LevelRepository
	TaskRepo        *repository.TaskRepository
	ProgressRepo    *repository.ProgressRepository
	LeaderboardRepo *repository.LeaderboardRepository
}

func NewAggregationService(
	levelRepo *repository.LevelRepository,
	taskRepo *repository.TaskRepository,
	progressRepo *repository.ProgressRepository,
	leaderboardRepo *repository.LeaderboardRepository,
) *AggregationService {
	return &AggregationService{
		LevelRepo:       levelRepo,
		TaskRepo:        taskRepo,
		ProgressRepo:    progressRepo,
		LeaderboardRepo: leaderboardRepo,
	}
}

func (s *AggregationService) OnLevelCompleted(tx *gorm.DB, userID string, level *model.Level, now time.Time) error {
	if err := s.RefreshLeaderboard(tx, userID, now); err != nil {
		return fmt.Errorf("refresh leaderboard: %w", err)
	}
	if err := s.RefreshSection(tx, userID, level.SectionID, now); err != nil {
		return fmt.Errorf("refresh section %s: %w", level.SectionID, err)
	}
	return nil
}

// RefreshLeaderboard 总分为用户所有关卡 BestScore 之和
func (s *AggregationService) RefreshLeaderboard(tx *gorm.DB, userID string, now time.Time) error {
	all, err := s.ProgressRepo.WithTx(tx).ListAllLevelProgress(userID)
	if err != nil {
		return err
	}
	total := 0
	for _, p := range all {
		total += p.BestScore
	}
	return s.LeaderboardRepo.WithTx(tx).UpsertEntry(&model.LeaderboardEntry{
		UserID:    userID,
		Period:    model.LeaderboardPeriodAllTime,
		Score:     total,
		UpdatedAt: now,
	})
}

// RefreshSection 分区下没有已发布关卡时不写汇总
func (s *AggregationService) RefreshSection(tx *gorm.DB, userID, sectionID string, now time.Time) error {
	levels, err := s.LevelRepo.WithTx(tx).ListPublishedLevels(sectionID)
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		return nil
	}
	ids := make([]string, 0, len(levels))
	for _, l := range levels {
		ids = append(ids, l.ID)
	}

	progress, err := s.ProgressRepo.WithTx(tx).ListLevelProgress(userID, ids)
	if err != nil {
		return err
	}
	maxScores, err := s.TaskRepo.WithTx(tx).MaxScoresByLevel(ids)
	if err != nil {
		return err
	}

	rollup := &model.UserSectionProgress{
		UserID:      userID,
		SectionID:   sectionID,
		TotalLevels: len(levels),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, p := range progress {
		rollup.Score += p.BestScore
		if p.IsCompleted() {
			rollup.LevelsCompleted++
		}
	}
	for _, m := range maxScores {
		rollup.MaxScore += m
	}
	return s.LeaderboardRepo.WithTx(tx).UpsertSectionProgress(rollup)
}
