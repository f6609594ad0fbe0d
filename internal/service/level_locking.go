package service

import (
	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"sort"

	"gorm.io/gorm"
)

// LevelLockInput 计算锁定状态所需的最小信息
type LevelLockInput struct {
	LevelID     string
	OrderIndex  int
	Status      model.LevelStatus
	IsCompleted bool
}

// ResolveLevelStatuses 按 (OrderIndex, LevelID) 排序后，第一个未完成的关卡之前全部为已完成，
// 之后全部锁定；该关卡本身保留 InProgress，否则为 NotStarted。纯函数。
func ResolveLevelStatuses(levels []LevelLockInput) map[string]model.LevelStatus {
	result := make(map[string]model.LevelStatus, len(levels))
	if len(levels) == 0 {
		return result
	}

	ordered := make([]LevelLockInput, len(levels))
	copy(ordered, levels)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].OrderIndex != ordered[j].OrderIndex {
			return ordered[i].OrderIndex < ordered[j].OrderIndex
		}
		return ordered[i].LevelID < ordered[j].LevelID
	})

	frontier := -1
	for i, l := range ordered {
		if !l.IsCompleted {
			frontier = i
			break
		}
	}

	for i, l := range ordered {
		switch {
		case frontier < 0 || i < frontier:
			result[l.LevelID] = model.LevelCompleted
		case i == frontier:
			if l.Status == model.LevelInProgress {
				result[l.LevelID] = model.LevelInProgress
			} else {
				result[l.LevelID] = model.LevelNotStarted
			}
		default:
			result[l.LevelID] = model.LevelLocked
		}
	}
	return result
}

// LockInputs 没有进度记录的关卡视为 NotStarted
func LockInputs(levels []model.Level, progress map[string]*model.UserLevelProgress) []LevelLockInput {
	inputs := make([]LevelLockInput, 0, len(levels))
	for _, l := range levels {
		in := LevelLockInput{LevelID: l.ID, OrderIndex: l.OrderIndex, Status: model.LevelNotStarted}
		if p := progress[l.ID]; p != nil {
			in.Status = p.Status
			in.IsCompleted = p.IsCompleted()
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// LevelLockingService 读取最新的分区关卡与用户进度后计算状态，用于写操作前的准入判断
type LevelLockingService struct {
	LevelRepo    *repository.LevelRepository
	ProgressRepo *repository.ProgressRepository
}

func NewLevelLockingService(levelRepo *repository.LevelRepository, progressRepo *repository.ProgressRepository) *LevelLockingService {
	return &LevelLockingService{LevelRepo: levelRepo, ProgressRepo: progressRepo}
}

func (s *LevelLockingService) SectionStatuses(tx *gorm.DB, userID, sectionID string) (map[string]model.LevelStatus, error) {
	levels, err := s.LevelRepo.WithTx(tx).ListPublishedLevels(sectionID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(levels))
	for _, l := range levels {
		ids = append(ids, l.ID)
	}
	list, err := s.ProgressRepo.WithTx(tx).ListLevelProgress(userID, ids)
	if err != nil {
		return nil, err
	}
	lookup := make(map[string]*model.UserLevelProgress, len(list))
	for i := range list {
		lookup[list[i].LevelID] = &list[i]
	}
	return ResolveLevelStatuses(LockInputs(levels, lookup)), nil
}

func (s *LevelLockingService) LevelStatus(tx *gorm.DB, userID string, level *model.Level) (model.LevelStatus, error) {
	statuses, err := s.SectionStatuses(tx, userID, level.SectionID)
	if err != nil {
		return "", err
	}
	if status, ok := statuses[level.ID]; ok {
		return status, nil
	}
	return model.LevelNotStarted, nil
}
