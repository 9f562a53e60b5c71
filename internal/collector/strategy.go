package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/LJTian/FeedHub/internal/feed"
)

// Normalizer 把 provider 的原始数据转换为规范化 Feed
type Normalizer interface {
	Normalize(p feed.Payload, src feed.Source) (*feed.Feed, error)
}

// Strategy 按顺序尝试 provider：失败就换下一个，第一次成功立即返回，同一 provider 不重试
type Strategy struct {
	providers  []Provider
	normalizer Normalizer
}

func NewStrategy(n Normalizer, providers ...Provider) *Strategy {
	return &Strategy{providers: providers, normalizer: n}
}

// Providers 返回回退链上 provider 的名字
func (s *Strategy) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// result 单个 provider 的尝试结果
type result struct {
	feed *feed.Feed
	err  error
}

func (r result) ok() bool { return r.err == nil && r.feed != nil }

// Acquire 对一个 source 走一遍回退链
func (s *Strategy) Acquire(ctx context.Context, src feed.Source) (*feed.Feed, error) {
	attempts := make([]feed.Attempt, 0, len(s.providers))
	for _, p := range s.providers {
		start := time.Now()
		r := s.try(ctx, p, src)
		entry := log.WithFields(log.Fields{
			"source":   src.ID,
			"provider": p.Name(),
			"elapsed":  time.Since(start).Round(time.Millisecond),
		})
		if r.ok() {
			entry.Infof("fetch %s done, items=%d", src.ID, len(r.feed.Items))
			return r.feed, nil
		}
		entry.Warnf("fetch %s via %s failed: %v", src.ID, p.Name(), r.err)
		attempts = append(attempts, feed.Attempt{Provider: p.Name(), Err: r.err})
	}
	return nil, &feed.AllProvidersExhaustedError{SourceID: src.ID, Attempts: attempts}
}

func (s *Strategy) try(ctx context.Context, p Provider, src feed.Source) result {
	payload, err := p.Fetch(ctx, src)
	if err != nil {
		return result{err: err}
	}
	if payload.Provider == "" {
		payload.Provider = p.Name()
	}
	out, err := s.normalizer.Normalize(payload, src)
	if err != nil {
		var upstream *feed.UpstreamFormatError
		if errors.As(err, &upstream) && upstream.Provider == "" {
			upstream.Provider = p.Name()
		}
		return result{err: err}
	}
	if out == nil {
		return result{err: &feed.UpstreamFormatError{Provider: p.Name(), Message: "normalizer returned no feed"}}
	}
	return result{feed: out}
}

// Options 构造回退链所需的配置
type Options struct {
	Order              []string
	RSS2JSONEndpoint   string
	RSS2JSONAPIKey     string
	AllOriginsEndpoint string
	Timeout            time.Duration
}

// NewProviders 按名字顺序构造 provider 列表
func NewProviders(opts Options) ([]Provider, error) {
	providers := make([]Provider, 0, len(opts.Order))
	for _, name := range opts.Order {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ProviderRSS2JSON:
			providers = append(providers, NewRSS2JSONProvider(opts.RSS2JSONEndpoint, opts.RSS2JSONAPIKey, opts.Timeout))
		case ProviderAllOrigins:
			providers = append(providers, NewAllOriginsProvider(opts.AllOriginsEndpoint, opts.Timeout))
		case ProviderDirect:
			providers = append(providers, NewDirectProvider(opts.Timeout))
		case "":
			continue
		default:
			return nil, fmt.Errorf("collector: unknown provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, errors.New("collector: no providers configured")
	}
	return providers, nil
}
