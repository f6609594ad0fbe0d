package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"memeup_backend/internal/util"
	"memeup_backend/pkg/logger"
	"memeup_backend/pkg/monitoring"
	"memeup_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GameLevelService 关卡运行：介绍、开始、取下一题、重玩
type GameLevelService struct {
	Tx           *TxRunner
	LevelRepo    *repository.LevelRepository
	TaskRepo     *repository.TaskRepository
	ProgressRepo *repository.ProgressRepository
	AttemptRepo  *repository.LevelAttemptRepository
	Locking      *LevelLockingService
	Attempts     *AttemptService
	Finisher     *LevelRunFinisher
	Storage      *StorageService
	Leaderboard  *LeaderboardService
	Rules        *RuleSet
	Clock        Clock
}

func NewGameLevelService(
	tx *TxRunner,
	levelRepo *repository.LevelRepository,
	taskRepo *repository.TaskRepository,
	progressRepo *repository.ProgressRepository,
	attemptRepo *repository.LevelAttemptRepository,
	locking *LevelLockingService,
	attempts *AttemptService,
	finisher *LevelRunFinisher,
	storage *StorageService,
	leaderboard *LeaderboardService,
	rules *RuleSet,
) *GameLevelService {
	return &GameLevelService{
		Tx:           tx,
		LevelRepo:    levelRepo,
		TaskRepo:     taskRepo,
		ProgressRepo: progressRepo,
		AttemptRepo:  attemptRepo,
		Locking:      locking,
		Attempts:     attempts,
		Finisher:     finisher,
		Storage:      storage,
		Leaderboard:  leaderboard,
		Rules:        rules,
		Clock:        SystemClock,
	}
}

func (s *GameLevelService) now() time.Time {
	if s.Clock == nil {
		return SystemClock()
	}
	return s.Clock()
}

func (s *GameLevelService) findLevel(tx *gorm.DB, levelID string) (*model.Level, error) {
	level, err := s.LevelRepo.WithTx(tx).FindPublishedLevel(levelID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLevelNotFound
	}
	return level, err
}

// playableLevel 写操作前用最新的进度快照判断锁定状态
func (s *GameLevelService) playableLevel(tx *gorm.DB, userID, levelID string) (*model.Level, error) {
	level, err := s.findLevel(tx, levelID)
	if err != nil {
		return nil, err
	}
	status, err := s.Locking.LevelStatus(tx, userID, level)
	if err != nil {
		return nil, err
	}
	if status == model.LevelLocked {
		return nil, util.ErrLevelLocked
	}
	return level, nil
}

func (s *GameLevelService) publishedTasks(tx *gorm.DB, levelID string) ([]model.Task, error) {
	tasks, err := s.TaskRepo.WithTx(tx).ListPublishedByLevel(levelID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, util.ErrNoPublishedTasks
	}
	return tasks, nil
}

func (s *GameLevelService) Intro(ctx context.Context, userID, levelID string) (*LevelIntroDTO, error) {
	ctx, span := tracing.Tracer.Start(ctx, "GameLevelService.Intro")
	defer span.End()

	db := s.Tx.DB.WithContext(ctx)
	level, err := s.findLevel(db, levelID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.TaskRepo.WithTx(db).ListPublishedByLevel(level.ID)
	if err != nil {
		return nil, err
	}
	status, err := s.Locking.LevelStatus(db, userID, level)
	if err != nil {
		return nil, err
	}
	progress, err := s.ProgressRepo.WithTx(db).FindLevelProgress(userID, level.ID, false)
	if err != nil {
		return nil, err
	}

	dto := &LevelIntroDTO{
		LevelID:           level.ID,
		LevelName:         level.Name,
		HeaderText:        level.HeaderText,
		AnimationImageURL: s.Storage.ResolveURL(ctx, level.AnimationImageURL),
		OrderIndex:        level.OrderIndex,
		TasksCount:        len(tasks),
		MaxScore:          liveMaxScore(tasks),
		Status:            status,
	}
	if progress != nil {
		dto.ReplayAvailableAt = progress.ReplayAvailableAt
	}
	return dto, nil
}

// Start 开始或继续一轮关卡
func (s *GameLevelService) Start(ctx context.Context, userID, levelID string) (*TaskDeliveryResponse, error) {
	ctx, span := tracing.Tracer.Start(ctx, "GameLevelService.Start")
	defer span.End()
	span.SetAttributes(attribute.String("level.id", levelID))

	var resp *TaskDeliveryResponse
	var completed bool
	err := s.Tx.Run(ctx, "level.start", func(tx *gorm.DB) error {
		resp, completed = nil, false
		now := s.now()

		level, err := s.playableLevel(tx, userID, levelID)
		if err != nil {
			return err
		}
		tasks, err := s.publishedTasks(tx, level.ID)
		if err != nil {
			return err
		}
		maxScore := liveMaxScore(tasks)

		repo := s.ProgressRepo.WithTx(tx)
		progress, err := repo.FindLevelProgress(userID, level.ID, true)
		if err != nil {
			return err
		}

		switch {
		case progress == nil:
			progress = &model.UserLevelProgress{
				UserID:    userID,
				LevelID:   level.ID,
				Status:    model.LevelInProgress,
				MaxScore:  maxScore,
				RunsCount: 1,
			}
			if err := repo.CreateLevelProgress(progress); err != nil {
				return err
			}
		case progress.Status == model.LevelCompleted:
			if err := s.checkCooldown(progress, now); err != nil {
				return err
			}
			if err := s.resetLevelState(tx, progress, maxScore, true, now); err != nil {
				return err
			}
		case progress.Status == model.LevelNotStarted:
			if err := s.resetLevelState(tx, progress, maxScore, progress.RunsCount == 0, now); err != nil {
				return err
			}
		case progress.Status == model.LevelLocked:
			return util.ErrLevelLocked
		default:
			// 继续进行中的一轮
			if progress.MaxScore != maxScore {
				progress.MaxScore = maxScore
				if err := repo.SaveLevelProgress(progress); err != nil {
					return err
				}
			}
		}

		resp, completed, err = s.deliverNext(ctx, tx, level, tasks, progress, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, userID, levelID, completed)
	return resp, nil
}

// Next 幂等地获取当前应作答的题目；已完成的关卡只返回汇总
func (s *GameLevelService) Next(ctx context.Context, userID, levelID string) (*TaskDeliveryResponse, error) {
	ctx, span := tracing.Tracer.Start(ctx, "GameLevelService.Next")
	defer span.End()
	span.SetAttributes(attribute.String("level.id", levelID))

	var resp *TaskDeliveryResponse
	var completed bool
	err := s.Tx.Run(ctx, "level.next", func(tx *gorm.DB) error {
		resp, completed = nil, false
		now := s.now()

		level, err := s.playableLevel(tx, userID, levelID)
		if err != nil {
			return err
		}
		tasks, err := s.publishedTasks(tx, level.ID)
		if err != nil {
			return err
		}

		repo := s.ProgressRepo.WithTx(tx)
		progress, err := repo.FindLevelProgress(userID, level.ID, true)
		if err != nil {
			return err
		}
		if progress == nil {
			progress = &model.UserLevelProgress{
				UserID:    userID,
				LevelID:   level.ID,
				Status:    model.LevelInProgress,
				MaxScore:  liveMaxScore(tasks),
				RunsCount: 1,
			}
			if err := repo.CreateLevelProgress(progress); err != nil {
				return err
			}
		}

		if progress.IsCompleted() {
			rows, err := repo.ListTaskProgress(userID, level.ID)
			if err != nil {
				return err
			}
			resp = completedResponse(level.ID, summarizeRun(tasks, taskProgressMap(rows)))
			return nil
		}

		resp, completed, err = s.deliverNext(ctx, tx, level, tasks, progress, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, userID, levelID, completed)
	return resp, nil
}

// Replay 重置已完成的关卡并开始新一轮，受冷却时间限制
func (s *GameLevelService) Replay(ctx context.Context, userID, levelID string) (*TaskDeliveryResponse, error) {
	ctx, span := tracing.Tracer.Start(ctx, "GameLevelService.Replay")
	defer span.End()
	span.SetAttributes(attribute.String("level.id", levelID))

	var resp *TaskDeliveryResponse
	var completed bool
	err := s.Tx.Run(ctx, "level.replay", func(tx *gorm.DB) error {
		resp, completed = nil, false
		now := s.now()

		level, err := s.playableLevel(tx, userID, levelID)
		if err != nil {
			return err
		}
		progress, err := s.ProgressRepo.WithTx(tx).FindLevelProgress(userID, level.ID, true)
		if err != nil {
			return err
		}
		if !progress.IsCompleted() {
			return util.ErrLevelNotCompleted
		}
		if err := s.checkCooldown(progress, now); err != nil {
			return err
		}
		tasks, err := s.publishedTasks(tx, level.ID)
		if err != nil {
			return err
		}
		if err := s.resetLevelState(tx, progress, liveMaxScore(tasks), true, now); err != nil {
			return err
		}

		resp, completed, err = s.deliverNext(ctx, tx, level, tasks, progress, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, userID, levelID, completed)
	return resp, nil
}

func (s *GameLevelService) afterCommit(ctx context.Context, userID, levelID string, completed bool) {
	if !completed {
		return
	}
	monitoring.GameLevelCompletions.Inc()
	s.Leaderboard.Invalidate(ctx)
	logger.Log.Info("Level run completed during delivery",
		zap.String("user_id", userID),
		zap.String("level_id", levelID),
	)
}

// checkCooldown 剩余秒数向上取整，至少为 1
func (s *GameLevelService) checkCooldown(progress *model.UserLevelProgress, now time.Time) error {
	if progress.ReplayAvailableAt == nil || !now.Before(*progress.ReplayAvailableAt) {
		return nil
	}
	remaining := int(math.Ceil(progress.ReplayAvailableAt.Sub(now).Seconds()))
	if remaining < 1 {
		remaining = 1
	}
	return &util.CooldownError{RetryAfterSeconds: remaining}
}

// resetLevelState 清空本轮题目进度并结束所有未提交的令牌
func (s *GameLevelService) resetLevelState(tx *gorm.DB, progress *model.UserLevelProgress, maxScore int, incrementRun bool, now time.Time) error {
	if _, err := s.ProgressRepo.WithTx(tx).DeleteTaskProgress(progress.UserID, progress.LevelID); err != nil {
		return fmt.Errorf("delete task progress: %w", err)
	}
	if _, err := s.AttemptRepo.WithTx(tx).FinalizeOpenForLevel(progress.UserID, progress.LevelID, now); err != nil {
		return fmt.Errorf("finalize open attempts: %w", err)
	}

	progress.Status = model.LevelInProgress
	progress.LastRunScore = 0
	progress.MaxScore = maxScore
	progress.LastTaskID = nil
	progress.LastCompletedAt = nil
	progress.ReplayAvailableAt = nil
	if incrementRun {
		progress.RunsCount++
	}
	return s.ProgressRepo.WithTx(tx).SaveLevelProgress(progress)
}

// deliverNext 找到下一道可作答的题目并签发令牌；没有剩余题目时结束本轮。
// 次数用尽但未标记完成的题目会在这里补标记，循环次数以题目数为上限
func (s *GameLevelService) deliverNext(ctx context.Context, tx *gorm.DB, level *model.Level, tasks []model.Task, progress *model.UserLevelProgress, now time.Time) (*TaskDeliveryResponse, bool, error) {
	repo := s.ProgressRepo.WithTx(tx)
	rows, err := repo.ListTaskProgress(progress.UserID, level.ID)
	if err != nil {
		return nil, false, err
	}
	progressByTask := taskProgressMap(rows)

	for i := 0; i <= len(tasks); i++ {
		task := resolveNextTask(tasks, progressByTask, progress.LastTaskID)
		if task == nil {
			sum := summarizeRun(tasks, progressByTask)
			if err := s.Finisher.Complete(tx, level, progress, sum, now); err != nil {
				return nil, false, err
			}
			return completedResponse(level.ID, sum), true, nil
		}

		tp := progressByTask[task.ID]
		if tp == nil {
			tp = &model.UserTaskProgress{UserID: progress.UserID, LevelID: level.ID, TaskID: task.ID}
			if err := repo.CreateTaskProgress(tp); err != nil {
				return nil, false, err
			}
			progressByTask[task.ID] = tp
		}

		if tp.IsCompleted || tp.AttemptsUsed >= task.MaxAttempts() {
			tp.IsCompleted = true
			if tp.CompletedAt == nil {
				completedAt := now
				tp.CompletedAt = &completedAt
			}
			if err := repo.SaveTaskProgress(tp); err != nil {
				return nil, false, err
			}
			progress.LastTaskID = &task.ID
			continue
		}

		limit := effectiveTimeLimit(task, level)
		attempt, err := s.Attempts.Issue(tx, progress.UserID, level.ID, task.ID, tp.AttemptsUsed+1, limit, now)
		if err != nil {
			return nil, false, err
		}

		sum := summarizeRun(tasks, progressByTask)
		taskID := task.ID
		progress.LastTaskID = &taskID
		progress.Status = model.LevelInProgress
		progress.MaxScore = sum.MaxScore
		progress.LastRunScore = sum.Score
		if err := repo.SaveLevelProgress(progress); err != nil {
			return nil, false, err
		}

		return &TaskDeliveryResponse{
			LevelID:       level.ID,
			Task:          s.taskDTO(ctx, task, limit, attempt.Token),
			Status:        DeliveryStatusOK,
			LevelProgress: sum.DTO(),
		}, false, nil
	}
	return nil, false, fmt.Errorf("task delivery for level %s did not settle after %d steps", level.ID, len(tasks)+1)
}

// resolveNextTask 优先续答 lastTaskID 指向的未完成题目，否则从其后开始顺序查找，
// 找不到再回到开头，保证返回 nil 时所有题目都已完成
func resolveNextTask(tasks []model.Task, progress map[string]*model.UserTaskProgress, lastTaskID *string) *model.Task {
	done := func(t *model.Task) bool {
		p := progress[t.ID]
		return p != nil && p.IsCompleted
	}

	start := 0
	if lastTaskID != nil {
		for i := range tasks {
			if tasks[i].ID != *lastTaskID {
				continue
			}
			if !done(&tasks[i]) {
				return &tasks[i]
			}
			start = i + 1
			break
		}
	}

	for i := start; i < len(tasks); i++ {
		if !done(&tasks[i]) {
			return &tasks[i]
		}
	}
	for i := 0; i < start && i < len(tasks); i++ {
		if !done(&tasks[i]) {
			return &tasks[i]
		}
	}
	return nil
}

// effectiveTimeLimit 题目时限优先，非正数表示不限时
func effectiveTimeLimit(task *model.Task, level *model.Level) *int {
	limit := task.TimeLimitSec
	if limit == nil {
		limit = level.TimeLimitSec
	}
	if limit == nil || *limit <= 0 {
		return nil
	}
	v := *limit
	return &v
}

func completedResponse(levelID string, sum runSummary) *TaskDeliveryResponse {
	return &TaskDeliveryResponse{
		LevelID:       levelID,
		Status:        DeliveryStatusCompleted,
		LevelProgress: sum.DTO(),
	}
}

// taskDTO 每次下发都重新打乱选项顺序
func (s *GameLevelService) taskDTO(ctx context.Context, task *model.Task, limit *int, token string) *GameTaskDTO {
	options := make([]GameTaskOptionDTO, 0, len(task.Options))
	for _, o := range task.Options {
		options = append(options, GameTaskOptionDTO{
			ID:       o.ID,
			Label:    o.Label,
			ImageURL: s.Storage.ResolveURL(ctx, o.ImageURL),
		})
	}
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return &GameTaskDTO{
		ID:                    task.ID,
		Type:                  task.Type,
		HeaderText:            task.HeaderText,
		ImageURL:              s.Storage.ResolveURL(ctx, task.ImageURL),
		ResultImagePath:       s.Storage.ResolveURL(ctx, task.ResultImagePath),
		ResultImageSource:     task.ResultImageSource,
		TaskImageSource:       task.TaskImageSource,
		Options:               options,
		OrderIndex:            task.OrderIndex,
		TimeLimitSecEffective: limit,
		AttemptToken:          token,
	}
}
