package repository

import (
	"memeup_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardRepository struct {
	DB *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{DB: db}
}

func (r *LeaderboardRepository) WithTx(tx *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{DB: tx}
}

func (r *LeaderboardRepository) UpsertEntry(entry *model.LeaderboardEntry) error {
	if entry.ID == "" {
		entry.ID = model.GenerateUUID()
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(entry).Error
}

func (r *LeaderboardRepository) UpsertSectionProgress(p *model.UserSectionProgress) error {
	if p.ID == "" {
		p.ID = model.GenerateUUID()
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "section_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"levels_completed", "total_levels", "score", "max_score", "updated_at"}),
	}).Create(p).Error
}

func (r *LeaderboardRepository) FindEntry(userID, period string) (*model.LeaderboardEntry, error) {
	var e model.LeaderboardEntry
	err := r.DB.Where("user_id = ? AND period = ?", userID, period).First(&e).Error
	return notFoundAsNil(&e, err)
}

func (r *LeaderboardRepository) FindSectionProgress(userID, sectionID string) (*model.UserSectionProgress, error) {
	var p model.UserSectionProgress
	err := r.DB.Where("user_id = ? AND section_id = ?", userID, sectionID).First(&p).Error
	return notFoundAsNil(&p, err)
}

func (r *LeaderboardRepository) EntriesByUsers(userIDs []string, period string) (map[string]model.LeaderboardEntry, error) {
	result := make(map[string]model.LeaderboardEntry, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var entries []model.LeaderboardEntry
	if err := r.DB.Where("period = ? AND user_id IN ?", period, userIDs).Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		result[e.UserID] = e
	}
	return result, nil
}

// ScoreRow 排行榜聚合结果
type ScoreRow struct {
	UserID string
	Score  int
}

// TopScores 按 BestScore 求和排序，levelIDs 为 nil 时统计全部关卡，空切片时返回空
func (r *LeaderboardRepository) TopScores(levelIDs []string, limit int) ([]ScoreRow, error) {
	var rows []ScoreRow
	if levelIDs != nil && len(levelIDs) == 0 {
		return rows, nil
	}
	q := r.DB.Model(&model.UserLevelProgress{}).
		Select("user_id, SUM(best_score) AS score")
	if levelIDs != nil {
		q = q.Where("level_id IN ?", levelIDs)
	}
	err := q.Group("user_id").
		Having("SUM(best_score) > 0").
		Order("score DESC").Order("user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
