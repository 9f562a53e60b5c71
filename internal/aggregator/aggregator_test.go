package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/FeedHub/internal/feed"
)

var (
	srcA = feed.Source{ID: "alpha", Name: "Alpha", URL: "https://a.example.com/rss", Color: "#111"}
	srcB = feed.Source{ID: "beta", Name: "Beta", URL: "https://b.example.com/rss"}
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func item(title string, at time.Time) feed.Item {
	return feed.Item{ID: title, Title: title, PublishedAt: at}
}

// fakeAcquirer 按 source id 返回预置结果，可以替换
type fakeAcquirer struct {
	mu    sync.Mutex
	feeds map[string]*feed.Feed
	errs  map[string]error
}

func newFakeAcquirer() *fakeAcquirer {
	return &fakeAcquirer{feeds: map[string]*feed.Feed{}, errs: map[string]error{}}
}

func (f *fakeAcquirer) set(id string, fd *feed.Feed, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds[id] = fd
	f.errs[id] = err
}

func (f *fakeAcquirer) Acquire(_ context.Context, src feed.Source) (*feed.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[src.ID]; err != nil {
		return nil, err
	}
	return f.feeds[src.ID], nil
}

func exhausted(id string) error {
	return &feed.AllProvidersExhaustedError{SourceID: id, Attempts: []feed.Attempt{{Provider: "p", Err: errors.New("down")}}}
}

func TestRefreshOneSuccessAndFailureKeepsStaleFeed(t *testing.T) {
	acq := newFakeAcquirer()
	first := &feed.Feed{Title: "A", Items: []feed.Item{item("a1", day(1))}}
	acq.set("alpha", first, nil)

	agg := New([]feed.Source{srcA, srcB}, acq, nil)
	require.NoError(t, agg.RefreshOne(context.Background(), "alpha"))

	st, ok := agg.State("alpha")
	require.True(t, ok)
	assert.Same(t, first, st.Feed)
	assert.False(t, st.Loading)
	assert.Empty(t, st.LastError)
	assert.False(t, st.UpdatedAt.IsZero())

	acq.set("alpha", nil, exhausted("alpha"))
	err := agg.RefreshOne(context.Background(), "alpha")
	require.Error(t, err)
	var ex *feed.AllProvidersExhaustedError
	assert.ErrorAs(t, err, &ex)

	st, _ = agg.State("alpha")
	assert.Same(t, first, st.Feed, "failed refresh must keep the previous feed")
	assert.False(t, st.Loading)
	assert.Equal(t, FetchFailedMessage, st.LastError)
	assert.NotContains(t, st.LastError, "down")

	// 再次成功时清除错误
	second := &feed.Feed{Title: "A2", Items: []feed.Item{item("a2", day(3))}}
	acq.set("alpha", second, nil)
	require.NoError(t, agg.RefreshOne(context.Background(), "alpha"))
	st, _ = agg.State("alpha")
	assert.Same(t, second, st.Feed)
	assert.Empty(t, st.LastError)
}

func TestRefreshOneUnknownSource(t *testing.T) {
	agg := New([]feed.Source{srcA}, newFakeAcquirer(), nil)
	err := agg.RefreshOne(context.Background(), "nope")
	assert.ErrorIs(t, err, feed.ErrUnknownSource)

	_, err = agg.Filtered("nope")
	assert.ErrorIs(t, err, feed.ErrUnknownSource)
}

func TestMergedOrderAndTags(t *testing.T) {
	acq := newFakeAcquirer()
	acq.set("alpha", &feed.Feed{Items: []feed.Item{item("a-old", day(1))}}, nil)
	acq.set("beta", &feed.Feed{Items: []feed.Item{item("b-new", day(2))}}, nil)

	agg := New([]feed.Source{srcA, srcB}, acq, nil)
	assert.Equal(t, 0, agg.RefreshAll(context.Background()))

	merged := agg.Merged()
	require.Len(t, merged, 2)
	assert.Equal(t, "b-new", merged[0].Title)
	assert.Equal(t, "beta", merged[0].SourceID)
	assert.Equal(t, "a-old", merged[1].Title)
	assert.Equal(t, "alpha", merged[1].SourceID)
	assert.Equal(t, "Alpha", merged[1].SourceName)
	assert.Equal(t, "#111", merged[1].Color)
}

func TestMergedTieBreakIsDeterministic(t *testing.T) {
	acq := newFakeAcquirer()
	same := day(5)
	acq.set("beta", &feed.Feed{Items: []feed.Item{item("b0", same), item("b1", same)}}, nil)
	acq.set("alpha", &feed.Feed{Items: []feed.Item{item("a0", same), item("a1", same)}}, nil)

	// 配置顺序 beta 在前，排序结果仍按 source id
	agg := New([]feed.Source{srcB, srcA}, acq, nil)
	agg.RefreshAll(context.Background())

	for i := 0; i < 5; i++ {
		titles := make([]string, 0, 4)
		for _, it := range agg.Merged() {
			titles = append(titles, it.Title)
		}
		assert.Equal(t, []string{"a0", "a1", "b0", "b1"}, titles)
	}
}

func TestFilteredAllCountAndSingleSourceOrder(t *testing.T) {
	acq := newFakeAcquirer()
	acq.set("alpha", &feed.Feed{Items: []feed.Item{item("a0", day(1)), item("a1", day(9)), item("a2", day(4))}}, nil)
	acq.set("beta", nil, exhausted("beta"))

	agg := New([]feed.Source{srcA, srcB}, acq, nil)
	assert.Equal(t, 1, agg.RefreshAll(context.Background()))

	all, err := agg.Filtered(All)
	require.NoError(t, err)
	assert.Len(t, all, 3, "sources without a loaded feed contribute nothing")

	one, err := agg.Filtered("alpha")
	require.NoError(t, err)
	require.Len(t, one, 3)
	assert.Equal(t, "a0", one[0].Title)
	assert.Equal(t, "a1", one[1].Title)
	assert.Equal(t, "a2", one[2].Title)

	empty, err := agg.Filtered("beta")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStatesFollowConfigOrder(t *testing.T) {
	acq := newFakeAcquirer()
	acq.set("alpha", &feed.Feed{Items: []feed.Item{item("a0", day(1))}}, nil)
	acq.set("beta", nil, exhausted("beta"))

	agg := New([]feed.Source{srcA, srcB}, acq, nil)
	agg.RefreshAll(context.Background())

	states := agg.States()
	require.Len(t, states, 2)
	assert.Equal(t, "alpha", states[0].ID)
	assert.Equal(t, 1, states[0].ItemCount)
	assert.Equal(t, "beta", states[1].ID)
	assert.Equal(t, FetchFailedMessage, states[1].LastError)
	assert.Equal(t, 0, states[1].ItemCount)
}

// blockingAcquirer 每次调用都等待测试放行
type blockingAcquirer struct {
	calls chan chan result
}

type result struct {
	feed *feed.Feed
	err  error
}

func (b *blockingAcquirer) Acquire(ctx context.Context, _ feed.Source) (*feed.Feed, error) {
	reply := make(chan result)
	b.calls <- reply
	r := <-reply
	return r.feed, r.err
}

func TestSupersededRefreshIsDiscarded(t *testing.T) {
	acq := &blockingAcquirer{calls: make(chan chan result)}
	agg := New([]feed.Source{srcA}, acq, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = agg.RefreshOne(context.Background(), "alpha") }()
	firstReply := <-acq.calls
	go func() { defer wg.Done(); _ = agg.RefreshOne(context.Background(), "alpha") }()
	secondReply := <-acq.calls

	newer := &feed.Feed{Title: "newer"}
	secondReply <- result{feed: newer}
	// 旧请求后返回，结果应被丢弃
	firstReply <- result{feed: &feed.Feed{Title: "older"}}
	wg.Wait()

	st, _ := agg.State("alpha")
	assert.Same(t, newer, st.Feed)
	assert.Equal(t, uint64(2), st.Generation)
	assert.False(t, st.Loading)
}

func TestStoreBeginMarksLoading(t *testing.T) {
	s := NewStore([]feed.Source{srcA})
	gen, ok := s.Begin("alpha")
	require.True(t, ok)
	st, _ := s.Get("alpha")
	assert.True(t, st.Loading)
	assert.Empty(t, st.LastError)

	_, ok = s.Begin("missing")
	assert.False(t, ok)

	assert.False(t, s.Fail("alpha", gen+1, "x"), "unknown generation is ignored")
	assert.True(t, s.Fail("alpha", gen, "x"))
	st, _ = s.Get("alpha")
	assert.False(t, st.Loading)
	assert.Equal(t, "x", st.LastError)
}
