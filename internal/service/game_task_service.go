package service

import (
	"context"
	"errors"
	"math"
	"strings"
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

const maxClientAgentLen = 512

// GameTaskService 作答提交与计分
type GameTaskService struct {
	Tx           *TxRunner
	LevelRepo    *repository.LevelRepository
	TaskRepo     *repository.TaskRepository
	ProgressRepo *repository.ProgressRepository
	AttemptRepo  *repository.LevelAttemptRepository
	Attempts     *AttemptService
	Finisher     *LevelRunFinisher
	Storage      *StorageService
	Leaderboard  *LeaderboardService
	IPHashKey    string
	Clock        Clock
}

func NewGameTaskService(
	tx *TxRunner,
	levelRepo *repository.LevelRepository,
	taskRepo *repository.TaskRepository,
	progressRepo *repository.ProgressRepository,
	attemptRepo *repository.LevelAttemptRepository,
	attempts *AttemptService,
	finisher *LevelRunFinisher,
	storage *StorageService,
	leaderboard *LeaderboardService,
	ipHashKey string,
) *GameTaskService {
	return &GameTaskService{
		Tx:           tx,
		LevelRepo:    levelRepo,
		TaskRepo:     taskRepo,
		ProgressRepo: progressRepo,
		AttemptRepo:  attemptRepo,
		Attempts:     attempts,
		Finisher:     finisher,
		Storage:      storage,
		Leaderboard:  leaderboard,
		IPHashKey:    ipHashKey,
		Clock:        SystemClock,
	}
}

func (s *GameTaskService) now() time.Time {
	if s.Clock == nil {
		return SystemClock()
	}
	return s.Clock()
}

// Submit 校验令牌、计分、更新题目与关卡进度、写审计日志，全部在同一事务内完成
func (s *GameTaskService) Submit(ctx context.Context, userID, taskID string, req TaskSubmitRequest, meta SubmitMeta) (*TaskSubmitResponse, error) {
	ctx, span := tracing.Tracer.Start(ctx, "GameTaskService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", taskID))

	var resp *TaskSubmitResponse
	var level *model.Level
	err := s.Tx.Run(ctx, "task.submit", func(tx *gorm.DB) error {
		resp, level = nil, nil
		now := s.now()

		attempt, err := s.Attempts.Validate(tx, req.AttemptToken, userID, taskID)
		if err != nil {
			return err
		}
		task, err := s.TaskRepo.WithTx(tx).FindPublished(taskID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTaskNotFound
		}
		if err != nil {
			return err
		}
		if err := s.Attempts.MatchLevel(attempt, task); err != nil {
			return err
		}
		level, err = s.LevelRepo.WithTx(tx).FindPublishedLevel(task.LevelID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrLevelNotFound
		}
		if err != nil {
			return err
		}

		maxAttempts := task.MaxAttempts()
		attemptNumber := attempt.AttemptNumber
		if attemptNumber > maxAttempts {
			attemptNumber = maxAttempts
		}
		if attemptNumber < 1 {
			attemptNumber = 1
		}

		expired := attempt.ExpiredAt(now)
		timeSpent := int(math.Round(now.Sub(attempt.AttemptStartAt).Seconds()))
		if timeSpent < 0 {
			timeSpent = 0
		}

		option, err := selectOption(task, req.SelectedOption(), expired)
		if err != nil {
			return err
		}
		correct := !expired && option != nil && option.IsCorrect
		points := 0
		if correct {
			points = task.PointsForAttempt(attemptNumber)
		}

		// 关卡进度是本事务的写入锚点，先于题目进度加锁
		progressRepo := s.ProgressRepo.WithTx(tx)
		levelProgress, err := progressRepo.FindLevelProgress(userID, task.LevelID, true)
		if err != nil {
			return err
		}
		if levelProgress == nil {
			levelProgress = &model.UserLevelProgress{
				UserID:    userID,
				LevelID:   task.LevelID,
				Status:    model.LevelInProgress,
				RunsCount: 1,
			}
			if err := progressRepo.CreateLevelProgress(levelProgress); err != nil {
				return err
			}
		}

		taskProgress, err := progressRepo.FindTaskProgress(userID, task.ID, true)
		if err != nil {
			return err
		}
		isNew := taskProgress == nil
		if isNew {
			taskProgress = &model.UserTaskProgress{UserID: userID, LevelID: task.LevelID, TaskID: task.ID}
		} else if taskProgress.IsCompleted {
			// 已完成的题目在本轮内不可再修改
			return util.ErrAttemptFinalized
		}

		if attemptNumber > taskProgress.AttemptsUsed {
			taskProgress.AttemptsUsed = attemptNumber
		}
		if correct || attemptNumber >= maxAttempts {
			completedAt := now
			taskProgress.IsCompleted = true
			taskProgress.PointsEarned = points
			taskProgress.TimeSpentSec = timeSpent
			taskProgress.CompletedAt = &completedAt
		}
		if isNew {
			err = progressRepo.CreateTaskProgress(taskProgress)
		} else {
			err = progressRepo.SaveTaskProgress(taskProgress)
		}
		if err != nil {
			return err
		}

		result := ResultIncorrect
		switch {
		case expired:
			result = ResultTimeout
		case correct:
			result = ResultCorrect
		}

		if err := s.AttemptRepo.WithTx(tx).AppendLog(&model.TaskAttemptLog{
			UserID:           userID,
			LevelID:          task.LevelID,
			TaskID:           task.ID,
			AttemptNumber:    attemptNumber,
			IsCorrect:        correct,
			IsTimeout:        expired,
			TimeSpentSec:     timeSpent,
			StartedAt:        attempt.AttemptStartAt,
			SubmittedAt:      now,
			PointsAwarded:    points,
			ShownExplanation: correct,
			ClientAgent:      truncate(meta.UserAgent, maxClientAgentLen),
			ClientTz:         truncate(meta.Timezone, 64),
			IPHash:           util.HashIP(meta.ClientIP, s.IPHashKey),
			CreatedAt:        now,
		}); err != nil {
			return err
		}

		if err := s.Attempts.Finalize(tx, attempt, now, true); err != nil {
			return err
		}

		rows, err := progressRepo.ListTaskProgress(userID, task.LevelID)
		if err != nil {
			return err
		}
		tasks, err := s.TaskRepo.WithTx(tx).ListPublishedByLevel(task.LevelID)
		if err != nil {
			return err
		}
		sum := summarizeRun(tasks, taskProgressMap(rows))

		levelCompleted := sum.AllCompleted()
		if levelCompleted {
			if err := s.Finisher.Complete(tx, level, levelProgress, sum, now); err != nil {
				return err
			}
		} else {
			taskRef := task.ID
			levelProgress.Status = model.LevelInProgress
			levelProgress.LastRunScore = sum.Score
			levelProgress.MaxScore = sum.MaxScore
			levelProgress.LastTaskID = &taskRef
			if err := progressRepo.SaveLevelProgress(levelProgress); err != nil {
				return err
			}
		}

		attemptsLeft := maxAttempts - attemptNumber
		if attemptsLeft < 0 {
			attemptsLeft = 0
		}
		resp = &TaskSubmitResponse{
			Result:            result,
			AttemptNumber:     attemptNumber,
			AttemptsLeft:      attemptsLeft,
			PointsEarned:      points,
			TaskCompleted:     taskProgress.IsCompleted,
			LevelCompleted:    levelCompleted,
			LevelSummary:      &LevelSummaryDTO{EarnedScore: sum.Score, MaxScore: sum.MaxScore},
			NextAction:        NextActionTask,
			ResultImagePath:   s.Storage.ResolveURL(ctx, task.ResultImagePath),
			ResultImageSource: task.ResultImageSource,
			TaskImageSource:   task.TaskImageSource,
		}
		if correct {
			explanation := task.ExplanationText
			resp.ExplanationText = &explanation
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.GameSubmissions.WithLabelValues(resp.Result).Inc()
	if resp.LevelCompleted {
		monitoring.GameLevelCompletions.Inc()
		s.Leaderboard.Invalidate(ctx)
		logger.Log.Info("Level run completed",
			zap.String("user_id", userID),
			zap.String("level_id", level.ID),
			zap.Int("score", resp.LevelSummary.EarnedScore),
		)
	}
	return resp, nil
}

// selectOption 超时的作答不看选项；未超时时必须提供存在的选项
func selectOption(task *model.Task, selected string, expired bool) (*model.TaskOption, error) {
	if expired {
		return nil, nil
	}
	selected = strings.TrimSpace(selected)
	if selected == "" {
		return nil, util.ErrInvalidSelection
	}
	for i := range task.Options {
		if strings.EqualFold(task.Options[i].ID, selected) {
			return &task.Options[i], nil
		}
	}
	return nil, util.ErrInvalidSelection
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
