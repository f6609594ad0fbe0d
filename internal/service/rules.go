package service

import (
	"memeup_backend/internal/config"
	"sync/atomic"
	"time"
)

// Clock 便于测试注入时间
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// RuleSet 引擎运行参数，配置热更新时整体替换
type RuleSet struct {
	v atomic.Pointer[config.GameConfig]
}

func NewRuleSet(cfg config.GameConfig) *RuleSet {
	r := &RuleSet{}
	r.Set(cfg)
	return r
}

func (r *RuleSet) Get() config.GameConfig {
	if r == nil {
		return config.DefaultGameConfig()
	}
	if cfg := r.v.Load(); cfg != nil {
		return *cfg
	}
	return config.DefaultGameConfig()
}

func (r *RuleSet) Set(cfg config.GameConfig) {
	r.v.Store(&cfg)
}
