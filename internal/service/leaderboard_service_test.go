package service

import (
	"context"
	"testing"

	"memeup_backend/internal/config"
	"memeup_backend/internal/model"
	"memeup_backend/internal/testutil"
	"memeup_backend/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNormalizePeriod(t *testing.T) {
	for _, in := range []string{"", "AllTime", "alltime", " ALLTIME "} {
		got, err := NormalizePeriod(in)
		require.NoError(t, err, in)
		assert.Equal(t, model.LeaderboardPeriodAllTime, got)
	}
	_, err := NormalizePeriod("Weekly")
	assert.ErrorIs(t, err, util.ErrUnsupportedPeriod)
}

// twoLevelBoard 两个分区各一个关卡；alice 两关都满分，bob 只完成第一关
type twoLevelBoard struct {
	first, second memeLevel
	alice, bob    *model.User
}

func seedBoard(t *testing.T, e *testEngine) twoLevelBoard {
	t.Helper()
	b := twoLevelBoard{first: seedLevel(t, e.db, [3]int{10, 0, 0})}

	section := testutil.NewSection(t, e.db, "Modern", 2)
	level := testutil.NewLevel(t, e.db, section.ID, "Level A", 1)
	b.second = memeLevel{section: section, level: level, tasks: []*model.Task{
		testutil.NewTask(t, e.db, level.ID, 1, [3]int{7, 0, 0}),
	}}

	b.alice = testutil.NewUser(t, e.db, "alice", "")
	b.bob = testutil.NewUser(t, e.db, "", "bob@example.com")

	e.answerNext(t, b.first, b.alice.ID, true)
	e.answerNext(t, b.second, b.alice.ID, true)
	e.answerNext(t, b.first, b.bob.ID, true)
	return b
}

func TestLeaderboardRanksByBestScore(t *testing.T) {
	e := newTestEngine(t, nil)
	b := seedBoard(t, e)

	entries, err := e.Leaderboard.Leaderboard(context.Background(), LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, b.alice.ID, entries[0].UserID)
	assert.Equal(t, "alice", entries[0].DisplayName)
	assert.Equal(t, 17, entries[0].Score)

	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "bob@example.com", entries[1].DisplayName)
	assert.Equal(t, 10, entries[1].Score)
}

func TestLeaderboardFilters(t *testing.T) {
	e := newTestEngine(t, nil)
	b := seedBoard(t, e)
	ctx := context.Background()

	bySection, err := e.Leaderboard.Leaderboard(ctx, LeaderboardQuery{SectionID: b.second.section.ID})
	require.NoError(t, err)
	require.Len(t, bySection, 1)
	assert.Equal(t, b.alice.ID, bySection[0].UserID)
	assert.Equal(t, 7, bySection[0].Score)

	// levelId 优先于 sectionId
	byLevel, err := e.Leaderboard.Leaderboard(ctx, LeaderboardQuery{SectionID: b.second.section.ID, LevelID: b.first.level.ID})
	require.NoError(t, err)
	assert.Len(t, byLevel, 2)

	empty, err := e.Leaderboard.Leaderboard(ctx, LeaderboardQuery{SectionID: model.GenerateUUID()})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	_, err = e.Leaderboard.Leaderboard(ctx, LeaderboardQuery{Period: "Monthly"})
	assert.ErrorIs(t, err, util.ErrUnsupportedPeriod)
}

func TestLeaderboardRespectsLimit(t *testing.T) {
	e := newTestEngine(t, nil)
	seedBoard(t, e)
	e.setRules(func(c *config.GameConfig) { c.LeaderboardLimit = 1 })

	entries, err := e.Leaderboard.Leaderboard(context.Background(), LeaderboardQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLeaderboardCacheAndInvalidation(t *testing.T) {
	mr, rdb := newTestRedis(t)
	e := newTestEngine(t, rdb)
	m := seedLevel(t, e.db, [3]int{10, 0, 0})
	alice := testutil.NewUser(t, e.db, "alice", "")
	bob := testutil.NewUser(t, e.db, "bob", "")
	ctx := context.Background()

	e.answerNext(t, m, alice.ID, true)
	version, err := mr.Get(leaderboardVersionKey)
	require.NoError(t, err)
	assert.Equal(t, "1", version, "completion bumps the cache version")

	entries, err := e.Leaderboard.Leaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, mr.Exists("leaderboard:v1:AllTime:s=:l="))
	assert.Positive(t, mr.TTL("leaderboard:v1:AllTime:s=:l="))

	// 绕过服务直接写库，缓存命中时看不到
	require.NoError(t, e.db.Model(&model.UserLevelProgress{}).
		Where("user_id = ?", alice.ID).Update("best_score", 99).Error)
	cached, err := e.Leaderboard.Leaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, 10, cached[0].Score)

	e.answerNext(t, m, bob.ID, true)
	fresh, err := e.Leaderboard.Leaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, 99, fresh[0].Score)
	assert.True(t, mr.Exists("leaderboard:v2:AllTime:s=:l="))
}

func TestLeaderboardSurvivesRedisOutage(t *testing.T) {
	mr, rdb := newTestRedis(t)
	e := newTestEngine(t, rdb)
	m := seedLevel(t, e.db, [3]int{10, 0, 0})
	alice := testutil.NewUser(t, e.db, "alice", "")
	mr.Close()

	resp := e.answerNext(t, m, alice.ID, true)
	assert.True(t, resp.LevelCompleted)

	entries, err := e.Leaderboard.Leaderboard(context.Background(), LeaderboardQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInvalidateWithoutRedis(t *testing.T) {
	var s *LeaderboardService
	assert.NotPanics(t, func() { s.Invalidate(context.Background()) })
	assert.NotPanics(t, func() { (&LeaderboardService{}).Invalidate(context.Background()) })
}
