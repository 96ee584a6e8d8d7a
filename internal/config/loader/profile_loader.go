package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"kairos/internal/backtest"
	"kairos/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ProfileDefinition 描述一个策略参数 profile。
type ProfileDefinition struct {
	Name     string             `mapstructure:"-"`
	Strategy string             `mapstructure:"strategy"`
	Params   map[string]float64 `mapstructure:"params"`
	Default  bool               `mapstructure:"default"`
}

// FileConfig 是完整的 profile 配置文件结构。
type FileConfig struct {
	Profiles map[string]ProfileDefinition `mapstructure:"profiles"`
}

// ProfileSnapshot 对外暴露的只读快照。
type ProfileSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]ProfileDefinition
}

// ChangeListener 在配置变更时被调用。
type ChangeListener func(ProfileSnapshot)

// ProfileLoader 从 YAML 文件加载策略参数 profile，并监听热更新。
type ProfileLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  ProfileSnapshot
	listeners []ChangeListener
}

// NewProfileLoader 读取配置文件并开始监听 FS 事件。
func NewProfileLoader(path string) (*ProfileLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profile loader requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profile config failed: %w", err)
	}
	loader := &ProfileLoader{path: path, v: v}
	if err := loader.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := loader.reload(); err != nil {
			logger.Errorf("profile reload failed (%s): %v", evt.Name, err)
			return
		}
		loader.notify()
	})
	v.WatchConfig()
	return loader, nil
}

// Snapshot 返回当前配置快照（深拷贝）。
func (l *ProfileLoader) Snapshot() ProfileSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.snapshot)
}

// StrategyParams 返回指定策略的参数集：优先取 strategy 字段匹配的
// 默认 profile，其次同名 profile。没有匹配时返回 nil。
func (l *ProfileLoader) StrategyParams(name string) backtest.Params {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var fallback map[string]float64
	for key, def := range l.snapshot.Profiles {
		strategy := def.Strategy
		if strategy == "" {
			strategy = key
		}
		if strategy != name {
			continue
		}
		if def.Default {
			return cloneParams(def.Params)
		}
		if fallback == nil {
			fallback = def.Params
		}
	}
	return cloneParams(fallback)
}

// Subscribe 注册监听器，并立即收到一次完整快照。
func (l *ProfileLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneSnapshot(l.snapshot)
	l.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("profile listener panic: %v", r)
			}
		}()
		fn(snap)
	}()
}

func (l *ProfileLoader) notify() {
	l.mu.RLock()
	snap := cloneSnapshot(l.snapshot)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("profile listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func (l *ProfileLoader) reload() error {
	var fileCfg FileConfig
	if err := l.v.Unmarshal(&fileCfg); err != nil {
		return fmt.Errorf("parse profile config failed: %w", err)
	}
	normalized := make(map[string]ProfileDefinition)
	for name, def := range fileCfg.Profiles {
		normalized[name] = normalizeProfileDefinition(name, def)
	}
	l.mu.Lock()
	l.snapshot = ProfileSnapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: normalized,
	}
	l.mu.Unlock()
	logger.Infof("Profile loader reloaded %d profiles from %s", len(normalized), filepath.Base(l.path))
	return nil
}

func normalizeProfileDefinition(name string, def ProfileDefinition) ProfileDefinition {
	def.Name = name
	def.Strategy = strings.TrimSpace(def.Strategy)
	if def.Strategy == "" {
		def.Strategy = name
	}
	return def
}

func cloneSnapshot(in ProfileSnapshot) ProfileSnapshot {
	out := ProfileSnapshot{
		Version:  in.Version,
		LoadedAt: in.LoadedAt,
		Profiles: make(map[string]ProfileDefinition, len(in.Profiles)),
	}
	for name, def := range in.Profiles {
		def.Params = cloneParams(def.Params)
		out.Profiles[name] = def
	}
	return out
}

func cloneParams(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
