package service

import (
	"context"
	"errors"

	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"memeup_backend/internal/util"

	"gorm.io/gorm"
)

// GameSectionService 分区与关卡列表的读模型
type GameSectionService struct {
	DB           *gorm.DB
	LevelRepo    *repository.LevelRepository
	TaskRepo     *repository.TaskRepository
	ProgressRepo *repository.ProgressRepository
	Storage      *StorageService
}

func NewGameSectionService(
	db *gorm.DB,
	levelRepo *repository.LevelRepository,
	taskRepo *repository.TaskRepository,
	progressRepo *repository.ProgressRepository,
	storage *StorageService,
) *GameSectionService {
	return &GameSectionService{
		DB:           db,
		LevelRepo:    levelRepo,
		TaskRepo:     taskRepo,
		ProgressRepo: progressRepo,
		Storage:      storage,
	}
}

type sectionSnapshot struct {
	levels    []model.Level
	progress  map[string]*model.UserLevelProgress
	maxScores map[string]int
}

func (s *GameSectionService) snapshot(db *gorm.DB, userID string, sectionIDs ...string) (*sectionSnapshot, error) {
	levels, err := s.LevelRepo.WithTx(db).ListPublishedLevels(sectionIDs...)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(levels))
	for _, l := range levels {
		ids = append(ids, l.ID)
	}
	rows, err := s.ProgressRepo.WithTx(db).ListLevelProgress(userID, ids)
	if err != nil {
		return nil, err
	}
	maxScores, err := s.TaskRepo.WithTx(db).MaxScoresByLevel(ids)
	if err != nil {
		return nil, err
	}
	progress := make(map[string]*model.UserLevelProgress, len(rows))
	for i := range rows {
		progress[rows[i].LevelID] = &rows[i]
	}
	return &sectionSnapshot{levels: levels, progress: progress, maxScores: maxScores}, nil
}

// levelMaxScore 有进度记录时用缓存值，否则用实时汇总
func (snap *sectionSnapshot) levelMaxScore(levelID string) int {
	if p := snap.progress[levelID]; p != nil {
		return p.MaxScore
	}
	return snap.maxScores[levelID]
}

func (s *GameSectionService) Sections(ctx context.Context, userID string) ([]GameSectionDTO, error) {
	db := s.DB.WithContext(ctx)
	sections, err := s.LevelRepo.WithTx(db).ListPublishedSections()
	if err != nil {
		return nil, err
	}
	result := make([]GameSectionDTO, 0, len(sections))
	if len(sections) == 0 {
		return result, nil
	}

	sectionIDs := make([]string, 0, len(sections))
	for _, sec := range sections {
		sectionIDs = append(sectionIDs, sec.ID)
	}
	snap, err := s.snapshot(db, userID, sectionIDs...)
	if err != nil {
		return nil, err
	}

	bySection := make(map[string]*GameSectionDTO, len(sections))
	for _, sec := range sections {
		result = append(result, GameSectionDTO{
			ID:         sec.ID,
			Name:       sec.Name,
			ImageURL:   s.Storage.ResolveURL(ctx, sec.ImageURL),
			OrderIndex: sec.OrderIndex,
		})
	}
	for i := range result {
		bySection[result[i].ID] = &result[i]
	}

	for _, l := range snap.levels {
		dto := bySection[l.SectionID]
		if dto == nil {
			continue
		}
		dto.TotalLevels++
		dto.MaxScore += snap.levelMaxScore(l.ID)
		if p := snap.progress[l.ID]; p != nil {
			dto.Score += p.BestScore
			if p.IsCompleted() {
				dto.LevelsCompleted++
			}
		}
	}
	for i := range result {
		result[i].IsCompleted = result[i].TotalLevels > 0 && result[i].LevelsCompleted == result[i].TotalLevels
	}
	return result, nil
}

// SectionLevels id 也可以是某个已发布关卡的 id，此时返回其所属分区
func (s *GameSectionService) SectionLevels(ctx context.Context, userID, id string) ([]GameLevelDTO, error) {
	db := s.DB.WithContext(ctx)
	repo := s.LevelRepo.WithTx(db)

	sectionID := ""
	section, err := repo.FindPublishedSection(id)
	switch {
	case err == nil:
		sectionID = section.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
		level, lerr := repo.FindPublishedLevel(id)
		if errors.Is(lerr, gorm.ErrRecordNotFound) {
			return nil, util.ErrSectionNotFound
		}
		if lerr != nil {
			return nil, lerr
		}
		if _, serr := repo.FindPublishedSection(level.SectionID); serr != nil {
			if errors.Is(serr, gorm.ErrRecordNotFound) {
				return nil, util.ErrSectionNotFound
			}
			return nil, serr
		}
		sectionID = level.SectionID
	default:
		return nil, err
	}

	snap, err := s.snapshot(db, userID, sectionID)
	if err != nil {
		return nil, err
	}
	statuses := ResolveLevelStatuses(LockInputs(snap.levels, snap.progress))

	result := make([]GameLevelDTO, 0, len(snap.levels))
	for _, l := range snap.levels {
		dto := GameLevelDTO{
			ID:         l.ID,
			SectionID:  l.SectionID,
			Name:       l.Name,
			ImageURL:   s.Storage.ResolveURL(ctx, l.ImageURL),
			OrderIndex: l.OrderIndex,
			Status:     statuses[l.ID],
			MaxScore:   snap.levelMaxScore(l.ID),
		}
		if p := snap.progress[l.ID]; p != nil {
			dto.Score = p.BestScore
			dto.ReplayAvailableAt = p.ReplayAvailableAt
		}
		result = append(result, dto)
	}
	return result, nil
}
