// Package testutil 测试用的 sqlite 数据库、固定时钟与内容构造函数
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"memeup_backend/internal/config"
	"memeup_backend/internal/model"
	"memeup_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const TestSecret = "test-secret-with-at-least-32-characters"

// OpenDB 每个测试一个独立的内存库；只有一个连接，事务内的查询必须走 tx
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig("silent"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Config 测试用配置，存储为本地、不启用 Redis
func Config() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: "test"},
		Database:  config.DatabaseConfig{Driver: "mysql"},
		JWT:       config.JWTConfig{Secret: TestSecret},
		Storage:   config.StorageConfig{Type: "local"},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Game:      config.DefaultGameConfig(),
	}
}

// Clock 可手动推进的时钟
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func IntPtr(v int) *int {
	return &v
}

func NewUser(t *testing.T, db *gorm.DB, username, email string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: email, Role: model.Player}
	require.NoError(t, db.Create(u).Error)
	return u
}

func NewSection(t *testing.T, db *gorm.DB, name string, order int) *model.Section {
	t.Helper()
	s := &model.Section{Name: name, OrderIndex: order, Status: model.Published}
	require.NoError(t, db.Create(s).Error)
	return s
}

func NewLevel(t *testing.T, db *gorm.DB, sectionID, name string, order int) *model.Level {
	t.Helper()
	l := &model.Level{SectionID: sectionID, Name: name, OrderIndex: order, Status: model.Published}
	require.NoError(t, db.Create(l).Error)
	return l
}

// NewTask 创建一道带一个正确选项和一个错误选项的题目
func NewTask(t *testing.T, db *gorm.DB, levelID string, order int, points [3]int) *model.Task {
	t.Helper()
	task := &model.Task{
		LevelID:         levelID,
		InternalName:    fmt.Sprintf("task-%d", order),
		Type:            model.TaskTypeMeme,
		HeaderText:      "Which meme is this?",
		OrderIndex:      order,
		PointsAttempt1:  points[0],
		PointsAttempt2:  points[1],
		PointsAttempt3:  points[2],
		ExplanationText: "because",
		Status:          model.Published,
	}
	require.NoError(t, db.Omit("Options").Create(task).Error)

	options := []model.TaskOption{
		{TaskID: task.ID, Label: "right", IsCorrect: true, Position: 0},
		{TaskID: task.ID, Label: "wrong", IsCorrect: false, Position: 1},
	}
	require.NoError(t, db.Create(&options).Error)
	task.Options = options
	return task
}

func CorrectOption(task *model.Task) string {
	for _, o := range task.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return ""
}

func WrongOption(task *model.Task) string {
	for _, o := range task.Options {
		if !o.IsCorrect {
			return o.ID
		}
	}
	return ""
}
