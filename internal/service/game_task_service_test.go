package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"memeup_backend/internal/model"
	"memeup_backend/internal/testutil"
	"memeup_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitSecondAttemptCompletesLevel(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 5, 0})
	user := testutil.NewUser(t, e.db, "alice", "")

	first := e.answerNext(t, m, user.ID, false)
	assert.Equal(t, ResultIncorrect, first.Result)
	assert.Equal(t, 1, first.AttemptNumber)
	assert.Equal(t, 1, first.AttemptsLeft)
	assert.Zero(t, first.PointsEarned)
	assert.False(t, first.TaskCompleted)
	assert.False(t, first.LevelCompleted)
	assert.Nil(t, first.ExplanationText)
	require.NotNil(t, first.LevelSummary)
	assert.Equal(t, LevelSummaryDTO{EarnedScore: 0, MaxScore: 10}, *first.LevelSummary)
	assert.Equal(t, 1, e.taskProgress(t, user.ID, m.tasks[0].ID).AttemptsUsed)

	second := e.answerNext(t, m, user.ID, true)
	assert.Equal(t, ResultCorrect, second.Result)
	assert.Equal(t, 2, second.AttemptNumber)
	assert.Equal(t, 5, second.PointsEarned)
	assert.Zero(t, second.AttemptsLeft)
	assert.True(t, second.TaskCompleted)
	assert.True(t, second.LevelCompleted)
	require.NotNil(t, second.ExplanationText)
	assert.Equal(t, "because", *second.ExplanationText)
	assert.Equal(t, NextActionTask, second.NextAction)

	p := e.levelProgress(t, user.ID, m.level.ID)
	assert.Equal(t, model.LevelCompleted, p.Status)
	assert.Equal(t, 5, p.BestScore)
	assert.Equal(t, 5, p.LastRunScore)
	assert.Equal(t, 10, p.MaxScore)

	tp := e.taskProgress(t, user.ID, m.tasks[0].ID)
	assert.Equal(t, 2, tp.AttemptsUsed)
	assert.Equal(t, 5, tp.PointsEarned)
	assert.True(t, tp.IsCompleted)

	assert.Equal(t, int64(2), e.attemptLogs(t, user.ID, m.tasks[0].ID))
}

func TestSubmitLastAttemptWrongCompletesTask(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 0, 0}, [3]int{6, 0, 0})
	user := testutil.NewUser(t, e.db, "alice", "")

	resp := e.answerNext(t, m, user.ID, false)

	assert.Equal(t, ResultIncorrect, resp.Result)
	assert.Zero(t, resp.AttemptsLeft)
	assert.True(t, resp.TaskCompleted)
	assert.False(t, resp.LevelCompleted)
	assert.Equal(t, LevelSummaryDTO{EarnedScore: 0, MaxScore: 16}, *resp.LevelSummary)

	p := e.levelProgress(t, user.ID, m.level.ID)
	require.NotNil(t, p.LastTaskID)
	assert.Equal(t, m.tasks[0].ID, *p.LastTaskID)
}

func TestSubmitAfterExpiryIsTimeout(t *testing.T) {
	for _, option := range []string{"", "correct", "wrong", "unknown"} {
		t.Run("option="+option, func(t *testing.T) {
			e := newTestEngine(t, nil)
			m := seedLevel(t, e.db, [3]int{10, 5, 0})
			require.NoError(t, e.db.Model(m.tasks[0]).Update("time_limit_sec", 10).Error)
			user := testutil.NewUser(t, e.db, "alice", "")
			ctx := context.Background()

			delivery, err := e.Levels.Start(ctx, user.ID, m.level.ID)
			require.NoError(t, err)
			e.clock.Advance(16 * time.Second)

			req := TaskSubmitRequest{AttemptToken: delivery.Task.AttemptToken}
			switch option {
			case "correct":
				req = submitReq(delivery.Task.AttemptToken, testutil.CorrectOption(m.tasks[0]))
			case "wrong":
				req = submitReq(delivery.Task.AttemptToken, testutil.WrongOption(m.tasks[0]))
			case "unknown":
				req = submitReq(delivery.Task.AttemptToken, model.GenerateUUID())
			}
			resp, err := e.Tasks.Submit(ctx, user.ID, m.tasks[0].ID, req, noMeta)
			require.NoError(t, err)

			assert.Equal(t, ResultTimeout, resp.Result)
			assert.Zero(t, resp.PointsEarned)
			assert.Equal(t, 1, resp.AttemptsLeft)
			assert.False(t, resp.TaskCompleted)
			assert.Nil(t, resp.ExplanationText)

			// 超时同样消耗令牌并留下审计记录
			var logs []model.TaskAttemptLog
			require.NoError(t, e.db.Where("user_id = ?", user.ID).Find(&logs).Error)
			require.Len(t, logs, 1)
			assert.True(t, logs[0].IsTimeout)
			_, err = e.Tasks.Submit(ctx, user.ID, m.tasks[0].ID, req, noMeta)
			assert.ErrorIs(t, err, util.ErrAttemptFinalized)
		})
	}
}

func TestSubmitWithinGraceIsScored(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 0, 0})
	require.NoError(t, e.db.Model(m.tasks[0]).Update("time_limit_sec", 10).Error)
	user := testutil.NewUser(t, e.db, "alice", "")
	ctx := context.Background()

	delivery, err := e.Levels.Start(ctx, user.ID, m.level.ID)
	require.NoError(t, err)
	e.clock.Advance(14 * time.Second)

	resp, err := e.Tasks.Submit(ctx, user.ID, m.tasks[0].ID, submitReq(delivery.Task.AttemptToken, testutil.CorrectOption(m.tasks[0])), noMeta)
	require.NoError(t, err)
	assert.Equal(t, ResultCorrect, resp.Result)
	assert.Equal(t, 10, resp.PointsEarned)
	assert.Equal(t, 14, e.taskProgress(t, user.ID, m.tasks[0].ID).TimeSpentSec)
}

func TestSubmitRejectsInvalidSelection(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 0, 0})
	other := testutil.NewTask(t, e.db, m.level.ID, 2, [3]int{1, 0, 0})
	user := testutil.NewUser(t, e.db, "alice", "")
	ctx := context.Background()

	delivery, err := e.Levels.Start(ctx, user.ID, m.level.ID)
	require.NoError(t, err)
	token := delivery.Task.AttemptToken

	for name, req := range map[string]TaskSubmitRequest{
		"missing":      {AttemptToken: token},
		"unknown":      submitReq(token, model.GenerateUUID()),
		"foreign task": submitReq(token, testutil.CorrectOption(other)),
	} {
		_, err := e.Tasks.Submit(ctx, user.ID, m.tasks[0].ID, req, noMeta)
		assert.ErrorIs(t, err, util.ErrInvalidSelection, name)
	}

	resp, err := e.Tasks.Submit(ctx, user.ID, m.tasks[0].ID, submitReq(token, testutil.CorrectOption(m.tasks[0])), noMeta)
	require.NoError(t, err, "rejected selections must not consume the token")
	assert.Equal(t, ResultCorrect, resp.Result)
}

func TestSubmitAcceptsAlternateSelectionShapes(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 0, 0}, [3]int{10, 0, 0})
	user := testutil.NewUser(t, e.db, "alice", "")
	ctx := context.Background()

	d1, err := e.Levels.Next(ctx, user.ID, m.level.ID)
	require.NoError(t, err)
	resp, err := e.Tasks.Submit(ctx, user.ID, d1.Task.ID, TaskSubmitRequest{
		AttemptToken:      d1.Task.AttemptToken,
		SelectedOptionIDs: []string{strings.ToUpper(testutil.CorrectOption(m.task(d1.Task.ID)))},
	}, noMeta)
	require.NoError(t, err)
	assert.Equal(t, ResultCorrect, resp.Result)

	d2, err := e.Levels.Next(ctx, user.ID, m.level.ID)
	require.NoError(t, err)
	resp, err = e.Tasks.Submit(ctx, user.ID, d2.Task.ID, TaskSubmitRequest{
		AttemptToken:    d2.Task.AttemptToken,
		SelectedOptions: []SelectedOptionDTO{{SelectedOptionID: testutil.CorrectOption(m.task(d2.Task.ID))}},
	}, noMeta)
	require.NoError(t, err)
	assert.True(t, resp.LevelCompleted)
}

func TestSubmitTokenChecks(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 5, 0}, [3]int{10, 0, 0})
	alice := testutil.NewUser(t, e.db, "alice", "")
	bob := testutil.NewUser(t, e.db, "bob", "")
	ctx := context.Background()

	delivery, err := e.Levels.Start(ctx, alice.ID, m.level.ID)
	require.NoError(t, err)
	token := delivery.Task.AttemptToken
	correct := testutil.CorrectOption(m.tasks[0])

	_, err = e.Tasks.Submit(ctx, bob.ID, m.tasks[0].ID, submitReq(token, correct), noMeta)
	assert.ErrorIs(t, err, util.ErrAttemptForbidden)

	_, err = e.Tasks.Submit(ctx, alice.ID, m.tasks[1].ID, submitReq(token, correct), noMeta)
	assert.ErrorIs(t, err, util.ErrAttemptMismatch)

	_, err = e.Tasks.Submit(ctx, alice.ID, m.tasks[0].ID, submitReq(model.GenerateUUID(), correct), noMeta)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)

	_, err = e.Tasks.Submit(ctx, alice.ID, m.tasks[0].ID, submitReq(token, correct), noMeta)
	require.NoError(t, err)

	_, err = e.Tasks.Submit(ctx, alice.ID, m.tasks[0].ID, submitReq(token, correct), noMeta)
	assert.ErrorIs(t, err, util.ErrAttemptFinalized)

	assert.Equal(t, int64(1), e.attemptLogs(t, alice.ID, m.tasks[0].ID))
}

func TestSubmitOnCompletedTaskIsRejected(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 0, 0}, [3]int{10, 0, 0})
	user := testutil.NewUser(t, e.db, "alice", "")
	ctx := context.Background()

	e.answerNext(t, m, user.ID, true)

	// 直接签发一个指向已完成题目的令牌
	attempt, err := e.Attempts.Issue(e.db, user.ID, m.level.ID, m.tasks[0].ID, 2, nil, e.clock.Now())
	require.NoError(t, err)
	_, err = e.Tasks.Submit(ctx, user.ID, m.tasks[0].ID, submitReq(attempt.Token, testutil.CorrectOption(m.tasks[0])), noMeta)
	assert.ErrorIs(t, err, util.ErrAttemptFinalized)

	assert.Equal(t, 10, e.taskProgress(t, user.ID, m.tasks[0].ID).PointsEarned)
}

func TestSubmitClampsAttemptNumber(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 0, 0})
	user := testutil.NewUser(t, e.db, "alice", "")

	attempt, err := e.Attempts.Issue(e.db, user.ID, m.level.ID, m.tasks[0].ID, 3, nil, e.clock.Now())
	require.NoError(t, err)
	resp, err := e.Tasks.Submit(context.Background(), user.ID, m.tasks[0].ID, submitReq(attempt.Token, testutil.CorrectOption(m.tasks[0])), noMeta)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.AttemptNumber)
	assert.Equal(t, 10, resp.PointsEarned)
	assert.True(t, resp.LevelCompleted)
}

func TestSubmitWritesAuditLog(t *testing.T) {
	e := newTestEngine(t, nil)
	m := seedLevel(t, e.db, [3]int{10, 0, 0})
	user := testutil.NewUser(t, e.db, "alice", "")
	ctx := context.Background()

	delivery, err := e.Levels.Start(ctx, user.ID, m.level.ID)
	require.NoError(t, err)
	e.clock.Advance(3 * time.Second)
	meta := SubmitMeta{UserAgent: strings.Repeat("a", 600), Timezone: "Europe/Berlin", ClientIP: "10.0.0.1"}
	_, err = e.Tasks.Submit(ctx, user.ID, m.tasks[0].ID, submitReq(delivery.Task.AttemptToken, testutil.CorrectOption(m.tasks[0])), meta)
	require.NoError(t, err)

	var logs []model.TaskAttemptLog
	require.NoError(t, e.db.Where("user_id = ?", user.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	l := logs[0]
	assert.True(t, l.IsCorrect)
	assert.False(t, l.IsTimeout)
	assert.True(t, l.ShownExplanation)
	assert.Equal(t, 10, l.PointsAwarded)
	assert.Equal(t, 3, l.TimeSpentSec)
	assert.Len(t, l.ClientAgent, 512)
	assert.Equal(t, "Europe/Berlin", l.ClientTz)
	assert.Equal(t, util.HashIP("10.0.0.1", testutil.TestSecret), l.IPHash)
	assert.NotContains(t, l.IPHash, "10.0.0.1")
}

func TestSelectOption(t *testing.T) {
	task := &model.Task{Options: []model.TaskOption{{ID: "abc", IsCorrect: true}}}

	got, err := selectOption(task, " ABC ", false)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)

	got, err = selectOption(task, "", true)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = selectOption(task, "", false)
	assert.ErrorIs(t, err, util.ErrInvalidSelection)
	_, err = selectOption(task, "nope", false)
	assert.ErrorIs(t, err, util.ErrInvalidSelection)

	got, err = selectOption(task, "nope", true)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = selectOption(task, "abc", true)
	require.NoError(t, err)
	assert.Nil(t, got)
}
