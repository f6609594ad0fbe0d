package service

import (
	"context"
	"testing"

	"memeup_backend/internal/config"
	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"memeup_backend/internal/testutil"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEngine 与 app.NewServices 相同的装配，时钟可控
type testEngine struct {
	db    *gorm.DB
	clock *testutil.Clock
	rules *RuleSet

	progress *repository.ProgressRepository
	attempts *repository.LevelAttemptRepository
	board    *repository.LeaderboardRepository

	Attempts    *AttemptService
	Levels      *GameLevelService
	Tasks       *GameTaskService
	Sections    *GameSectionService
	Leaderboard *LeaderboardService
	Content     *ContentService
}

func newTestEngine(t *testing.T, rdb *redis.Client) *testEngine {
	t.Helper()
	db := testutil.OpenDB(t)
	cfg := testutil.Config()
	clock := testutil.NewClock()

	userRepo := repository.NewUserRepository(db)
	levelRepo := repository.NewLevelRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	attemptRepo := repository.NewLevelAttemptRepository(db)
	boardRepo := repository.NewLeaderboardRepository(db)

	rules := NewRuleSet(cfg.Game)
	tx := NewTxRunner(db, rules)
	tx.BackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	storage := NewStorageService(cfg)
	locking := NewLevelLockingService(levelRepo, progressRepo)
	attempts := NewAttemptService(attemptRepo, rules)
	aggregation := NewAggregationService(levelRepo, taskRepo, progressRepo, boardRepo)
	finisher := NewLevelRunFinisher(progressRepo, aggregation, rules)
	leaderboard := NewLeaderboardService(db, levelRepo, boardRepo, userRepo, rdb, rules)
	leaderboard.Clock = clock.Now

	levels := NewGameLevelService(tx, levelRepo, taskRepo, progressRepo, attemptRepo, locking, attempts, finisher, storage, leaderboard, rules)
	levels.Clock = clock.Now
	tasks := NewGameTaskService(tx, levelRepo, taskRepo, progressRepo, attemptRepo, attempts, finisher, storage, leaderboard, cfg.JWT.Secret)
	tasks.Clock = clock.Now

	return &testEngine{
		db:          db,
		clock:       clock,
		rules:       rules,
		progress:    progressRepo,
		attempts:    attemptRepo,
		board:       boardRepo,
		Attempts:    attempts,
		Levels:      levels,
		Tasks:       tasks,
		Sections:    NewGameSectionService(db, levelRepo, taskRepo, progressRepo, storage),
		Leaderboard: leaderboard,
		Content:     NewContentService(tx, levelRepo, taskRepo, userRepo),
	}
}

func (e *testEngine) setRules(fn func(*config.GameConfig)) {
	cfg := e.rules.Get()
	fn(&cfg)
	e.rules.Set(cfg)
}

func (e *testEngine) levelProgress(t *testing.T, userID, levelID string) *model.UserLevelProgress {
	t.Helper()
	p, err := e.progress.FindLevelProgress(userID, levelID, false)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (e *testEngine) taskProgress(t *testing.T, userID, taskID string) *model.UserTaskProgress {
	t.Helper()
	p, err := e.progress.FindTaskProgress(userID, taskID, false)
	require.NoError(t, err)
	return p
}

func (e *testEngine) attemptLogs(t *testing.T, userID, taskID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.TaskAttemptLog{}).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Count(&count).Error)
	return count
}

// memeLevel 一个分区、一个关卡，题目分值依次为 points
type memeLevel struct {
	section *model.Section
	level   *model.Level
	tasks   []*model.Task
}

func seedLevel(t *testing.T, db *gorm.DB, points ...[3]int) memeLevel {
	t.Helper()
	section := testutil.NewSection(t, db, "Classics", 1)
	level := testutil.NewLevel(t, db, section.ID, "Level 1", 1)
	m := memeLevel{section: section, level: level}
	for i, p := range points {
		m.tasks = append(m.tasks, testutil.NewTask(t, db, level.ID, i+1, p))
	}
	return m
}

func submitReq(token, option string) TaskSubmitRequest {
	return TaskSubmitRequest{AttemptToken: token, SelectedOptionID: &option}
}

var noMeta = SubmitMeta{UserAgent: "go-test", Timezone: "UTC", ClientIP: "127.0.0.1"}


func (m memeLevel) task(id string) *model.Task {
	for _, t := range m.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// answerNext 取下一题并作答，correct 决定选正确还是错误选项
func (e *testEngine) answerNext(t *testing.T, m memeLevel, userID string, correct bool) *TaskSubmitResponse {
	t.Helper()
	ctx := context.Background()
	delivery, err := e.Levels.Next(ctx, userID, m.level.ID)
	require.NoError(t, err)
	require.Equal(t, DeliveryStatusOK, delivery.Status)
	require.NotNil(t, delivery.Task)

	task := m.task(delivery.Task.ID)
	require.NotNil(t, task)
	option := testutil.WrongOption(task)
	if correct {
		option = testutil.CorrectOption(task)
	}
	resp, err := e.Tasks.Submit(ctx, userID, task.ID, submitReq(delivery.Task.AttemptToken, option), noMeta)
	require.NoError(t, err)
	return resp
}
