package aggregator

import (
	"sync"
	"time"

	"github.com/LJTian/FeedHub/internal/feed"
)

// State 某个 source 的聚合状态
type State struct {
	Feed       *feed.Feed `json:"feed,omitempty"`
	Loading    bool       `json:"isLoading"`
	LastError  string     `json:"lastError,omitempty"`
	Generation uint64     `json:"generation"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Store 按 source id 保存聚合状态，只由 Aggregator 写入
type Store struct {
	mu     sync.RWMutex
	states map[string]*State
	now    func() time.Time
}

func NewStore(sources []feed.Source) *Store {
	s := &Store{states: make(map[string]*State, len(sources)), now: time.Now}
	for _, src := range sources {
		s.states[src.ID] = &State{}
	}
	return s
}

// Begin 标记开始抓取：置 loading、清空错误，并返回本次请求的 generation
func (s *Store) Begin(id string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return 0, false
	}
	st.Generation++
	st.Loading = true
	st.LastError = ""
	return st.Generation, true
}

// Succeed 整体替换 feed；generation 已过期时丢弃并返回 false
func (s *Store) Succeed(id string, gen uint64, f *feed.Feed) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok || st.Generation != gen {
		return false
	}
	st.Feed = f
	st.Loading = false
	st.LastError = ""
	st.UpdatedAt = s.now()
	return true
}

// Fail 保留旧的 feed，只记录错误文案
func (s *Store) Fail(id string, gen uint64, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok || st.Generation != gen {
		return false
	}
	st.Loading = false
	st.LastError = msg
	return true
}

// Get 返回状态的副本
func (s *Store) Get(id string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return State{}, false
	}
	return *st, true
}
