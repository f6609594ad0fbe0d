package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"memeup_backend/internal/util"
	"memeup_backend/pkg/logger"
	"memeup_backend/pkg/monitoring"
	"memeup_backend/pkg/tracing"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const leaderboardVersionKey = "leaderboard:version"

// LeaderboardService 排行榜读模型。Redis 可选，键中带版本号，关卡完成时 INCR 版本使旧缓存失效
type LeaderboardService struct {
	DB              *gorm.DB
	LevelRepo       *repository.LevelRepository
	LeaderboardRepo *repository.LeaderboardRepository
	UserRepo        *repository.UserRepository
	Redis           *redis.Client
	Rules           *RuleSet
	Clock           Clock

	sf singleflight.Group
}

func NewLeaderboardService(
	db *gorm.DB,
	levelRepo *repository.LevelRepository,
	leaderboardRepo *repository.LeaderboardRepository,
	userRepo *repository.UserRepository,
	rdb *redis.Client,
	rules *RuleSet,
) *LeaderboardService {
	return &LeaderboardService{
		DB:              db,
		LevelRepo:       levelRepo,
		LeaderboardRepo: leaderboardRepo,
		UserRepo:        userRepo,
		Redis:           rdb,
		Rules:           rules,
		Clock:           SystemClock,
	}
}

// NormalizePeriod 目前只支持 AllTime，大小写不敏感，空值视为 AllTime
func NormalizePeriod(period string) (string, error) {
	period = strings.TrimSpace(period)
	if period == "" || strings.EqualFold(period, model.LeaderboardPeriodAllTime) {
		return model.LeaderboardPeriodAllTime, nil
	}
	return "", util.ErrUnsupportedPeriod
}

func (s *LeaderboardService) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]LeaderboardEntryDTO, error) {
	ctx, span := tracing.Tracer.Start(ctx, "LeaderboardService.Leaderboard")
	defer span.End()

	period, err := NormalizePeriod(q.Period)
	if err != nil {
		return nil, err
	}
	q.Period = period
	if q.LevelID != "" {
		q.SectionID = ""
	}

	if s.Redis == nil {
		return s.load(ctx, q)
	}

	key := s.cacheKey(ctx, q)
	if entries, ok := s.readCache(ctx, key); ok {
		monitoring.LeaderboardCache.WithLabelValues("hit").Inc()
		return entries, nil
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// 等待期间可能已被其他请求写入
		if entries, ok := s.readCache(ctx, key); ok {
			monitoring.LeaderboardCache.WithLabelValues("hit").Inc()
			return entries, nil
		}
		monitoring.LeaderboardCache.WithLabelValues("miss").Inc()
		entries, err := s.load(ctx, q)
		if err != nil {
			return nil, err
		}
		s.writeCache(ctx, key, entries)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]LeaderboardEntryDTO), nil
}

// Invalidate 缓存失败只记录日志，不影响已提交的写操作
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s == nil || s.Redis == nil {
		return
	}
	if err := s.Redis.Incr(ctx, leaderboardVersionKey).Err(); err != nil {
		logger.Log.Warn("Failed to bump leaderboard cache version", zap.Error(err))
	}
}

func (s *LeaderboardService) cacheKey(ctx context.Context, q LeaderboardQuery) string {
	version, err := s.Redis.Get(ctx, leaderboardVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Log.Warn("Failed to read leaderboard cache version", zap.Error(err))
	}
	return fmt.Sprintf("leaderboard:v%d:%s:s=%s:l=%s", version, q.Period, q.SectionID, q.LevelID)
}

func (s *LeaderboardService) readCache(ctx context.Context, key string) ([]LeaderboardEntryDTO, bool) {
	raw, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			monitoring.LeaderboardCache.WithLabelValues("error").Inc()
			logger.Log.Warn("Failed to read leaderboard cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var entries []LeaderboardEntryDTO
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Log.Warn("Corrupt leaderboard cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (s *LeaderboardService) writeCache(ctx context.Context, key string, entries []LeaderboardEntryDTO) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, raw, s.ttlWithJitter()).Err(); err != nil {
		monitoring.LeaderboardCache.WithLabelValues("error").Inc()
		logger.Log.Warn("Failed to write leaderboard cache", zap.String("key", key), zap.Error(err))
	}
}

// ttlWithJitter 在 TTL 上叠加最多 10% 的随机抖动，避免同时过期
func (s *LeaderboardService) ttlWithJitter() time.Duration {
	ttl := s.Rules.Get().LeaderboardCacheTTL()
	if ttl <= 0 {
		return 0
	}
	return ttl + time.Duration(rand.Int64N(int64(ttl)/10+1))
}

func (s *LeaderboardService) load(ctx context.Context, q LeaderboardQuery) ([]LeaderboardEntryDTO, error) {
	db := s.DB.WithContext(ctx)

	var levelIDs []string
	switch {
	case q.LevelID != "":
		levelIDs = []string{q.LevelID}
	case q.SectionID != "":
		ids, err := s.LevelRepo.WithTx(db).ListLevelIDsBySection(q.SectionID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []LeaderboardEntryDTO{}, nil
		}
		levelIDs = ids
	}

	rows, err := s.LeaderboardRepo.WithTx(db).TopScores(levelIDs, s.Rules.Get().LeaderboardLimit)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []LeaderboardEntryDTO{}, nil
	}

	userIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		userIDs = append(userIDs, r.UserID)
	}
	users, err := s.UserRepo.WithTx(db).FindByIDs(userIDs)
	if err != nil {
		return nil, err
	}
	entries, err := s.LeaderboardRepo.WithTx(db).EntriesByUsers(userIDs, q.Period)
	if err != nil {
		return nil, err
	}

	now := SystemClock()
	if s.Clock != nil {
		now = s.Clock()
	}
	result := make([]LeaderboardEntryDTO, 0, len(rows))
	for i, r := range rows {
		updatedAt := now
		if e, ok := entries[r.UserID]; ok {
			updatedAt = e.UpdatedAt
		}
		result = append(result, LeaderboardEntryDTO{
			Rank:        i + 1,
			UserID:      r.UserID,
			DisplayName: users[r.UserID].DisplayName(),
			Score:       r.Score,
			UpdatedAt:   updatedAt,
		})
	}
	return result, nil
}
