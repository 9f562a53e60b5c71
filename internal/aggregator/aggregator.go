package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/LJTian/FeedHub/internal/feed"
)

// All 作为过滤参数时表示全部 source
const All = "all"

// FetchFailedMessage 抓取失败时展示给用户的固定文案，具体错误只写日志
const FetchFailedMessage = "فشل في تحميل الخلاصة. يرجى المحاولة لاحقاً."

// Acquirer 为一个 source 获取规范化的 feed
type Acquirer interface {
	Acquire(ctx context.Context, src feed.Source) (*feed.Feed, error)
}

// TaggedItem 附带所属 source 信息的条目
type TaggedItem struct {
	feed.Item
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`
	Color      string `json:"color,omitempty"`
	BgColor    string `json:"bgColor,omitempty"`
	TextColor  string `json:"textColor,omitempty"`
}

// SourceState 对外展示用：配置 + 当前状态
type SourceState struct {
	feed.Source
	State
	ItemCount int `json:"itemCount"`
}

type Aggregator struct {
	sources  []feed.Source
	byID     map[string]feed.Source
	acquirer Acquirer
	store    *Store
}

// New store 传 nil 时按 sources 新建
func New(sources []feed.Source, acq Acquirer, store *Store) *Aggregator {
	if store == nil {
		store = NewStore(sources)
	}
	return &Aggregator{
		sources:  sources,
		byID:     lo.KeyBy(sources, func(s feed.Source) string { return s.ID }),
		acquirer: acq,
		store:    store,
	}
}

func (a *Aggregator) Sources() []feed.Source {
	return a.sources
}

func (a *Aggregator) Has(id string) bool {
	_, ok := a.byID[id]
	return ok
}

// RefreshOne 刷新一个 source。失败时保留旧 feed，只设置错误文案；
// 被更新的请求取代的响应会被丢弃。
func (a *Aggregator) RefreshOne(ctx context.Context, id string) error {
	src, ok := a.byID[id]
	if !ok {
		return fmt.Errorf("aggregator: refresh %q: %w", id, feed.ErrUnknownSource)
	}
	gen, _ := a.store.Begin(id)

	f, err := a.acquirer.Acquire(ctx, src)
	if err != nil {
		log.WithFields(log.Fields{"source": id, "generation": gen}).Errorf("refresh %s failed: %v", id, err)
		if !a.store.Fail(id, gen, FetchFailedMessage) {
			log.WithField("source", id).Debugf("drop stale failure, generation=%d", gen)
		}
		return fmt.Errorf("aggregator: refresh %s: %w", id, err)
	}
	if !a.store.Succeed(id, gen, f) {
		log.WithField("source", id).Infof("drop stale result, generation=%d", gen)
		return nil
	}
	log.WithField("source", id).Infof("refresh %s done, items=%d", id, len(f.Items))
	return nil
}

// RefreshAll 并发刷新所有 source，彼此独立，等全部结束后返回失败的个数
func (a *Aggregator) RefreshAll(ctx context.Context) int {
	log.Info("start refresh job...")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, src := range a.sources {
		id := src.ID
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.RefreshOne(ctx, id); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	log.Infof("refresh job done, sources=%d failed=%d", len(a.sources), failed)
	return failed
}

func (a *Aggregator) tagged(src feed.Source) []TaggedItem {
	st, ok := a.store.Get(src.ID)
	if !ok || st.Feed == nil {
		return nil
	}
	return lo.Map(st.Feed.Items, func(it feed.Item, _ int) TaggedItem {
		return TaggedItem{
			Item:       it,
			SourceID:   src.ID,
			SourceName: src.Name,
			Color:      src.Color,
			BgColor:    src.BgColor,
			TextColor:  src.TextColor,
		}
	})
}

// Merged 合并所有已加载的 feed，按发布时间倒序；
// 时间相同按 source id 升序，再按在 feed 中的原始位置。
func (a *Aggregator) Merged() []TaggedItem {
	type ranked struct {
		item  TaggedItem
		index int
	}
	var all []ranked
	for _, src := range a.sources {
		for i, it := range a.tagged(src) {
			all = append(all, ranked{item: it, index: i})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		x, y := all[i], all[j]
		if !x.item.PublishedAt.Equal(y.item.PublishedAt) {
			return x.item.PublishedAt.After(y.item.PublishedAt)
		}
		if x.item.SourceID != y.item.SourceID {
			return x.item.SourceID < y.item.SourceID
		}
		return x.index < y.index
	})

	return lo.Map(all, func(r ranked, _ int) TaggedItem { return r.item })
}

// Filtered id 为 All 时等同 Merged，否则返回该 source 的条目，保持 feed 原顺序
func (a *Aggregator) Filtered(id string) ([]TaggedItem, error) {
	if id == All || id == "" {
		return a.Merged(), nil
	}
	src, ok := a.byID[id]
	if !ok {
		return nil, fmt.Errorf("aggregator: filter %q: %w", id, feed.ErrUnknownSource)
	}
	items := a.tagged(src)
	if items == nil {
		items = []TaggedItem{}
	}
	return items, nil
}

// State 返回单个 source 的状态副本
func (a *Aggregator) State(id string) (State, bool) {
	return a.store.Get(id)
}

// States 按配置顺序返回所有 source 的状态
func (a *Aggregator) States() []SourceState {
	return lo.Map(a.sources, func(src feed.Source, _ int) SourceState {
		st, _ := a.store.Get(src.ID)
		n := 0
		if st.Feed != nil {
			n = len(st.Feed.Items)
		}
		return SourceState{Source: src, State: st, ItemCount: n}
	})
}
