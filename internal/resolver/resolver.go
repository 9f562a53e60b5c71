// Package resolver 为每条内容挑选一张代表图。
//
// 候选来源按优先级排列成策略列表，依次尝试，第一个命中即返回；
// 全部落空时按条目位置从兜底图池中取图，保证相邻条目的占位图不同。
package resolver

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultFallbackImage 未配置兜底图池时使用
const DefaultFallbackImage = "https://images.unsplash.com/photo-1504711434969-e33886168f5c?w=400&h=300&fit=crop"

// Enclosure 对应 RSS enclosure 或 rss2json 的 enclosure 对象
type Enclosure struct {
	URL  string
	Type string
	// FromString rss2json 把 enclosure 直接给成字符串时没有类型，只凭地址判断
	FromString bool
}

// Media 对应 media:content / media:thumbnail
type Media struct {
	URL       string
	Medium    string
	Type      string
	Thumbnail bool
}

// Input 解析图片时可用的原始条目字段
type Input struct {
	Link       string
	Thumbnail  string
	Enclosures []Enclosure
	Media      []Media
	// Fields 其它字符串字段（guid 等），用于最后的元数据扫描
	Fields map[string]string
	// Markup 条目自带的 HTML/XML 片段
	Markup string
}

// Strategy 从 Input 中提取一个候选图片地址，没有则返回 false
type Strategy struct {
	Name string
	Find func(in Input) (string, bool)
}

// DefaultStrategies 优先级从高到低
var DefaultStrategies = []Strategy{
	{Name: "structured", Find: findStructured},
	{Name: "media", Find: findMediaElements},
	{Name: "enclosure", Find: findEnclosureElements},
	{Name: "inline_img", Find: findInlineImages},
	{Name: "raw_text", Find: findRawTextURLs},
	{Name: "metadata", Find: findMetadata},
}

type Resolver struct {
	strategies []Strategy
	fallbacks  []string
}

// New 创建 Resolver；只保留绝对 http(s) 地址，过滤后为空时只使用 DefaultFallbackImage
func New(fallbacks []string) *Resolver {
	pool := make([]string, 0, len(fallbacks))
	for _, f := range fallbacks {
		if strings.TrimSpace(f) == "" {
			continue
		}
		u, ok := normalizeURL(f, "")
		if !ok {
			log.WithField("image", f).Warn("drop invalid fallback image")
			continue
		}
		pool = append(pool, u)
	}
	if len(pool) == 0 {
		pool = []string{DefaultFallbackImage}
	}
	return &Resolver{strategies: DefaultStrategies, fallbacks: pool}
}

// WithStrategies 替换策略列表，主要给测试使用
func (r *Resolver) WithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, fallbacks: r.fallbacks}
}

// Resolve 总是返回一个可用的绝对地址，不会失败
func (r *Resolver) Resolve(in Input, index int) string {
	for _, s := range r.strategies {
		if u, ok := runStrategy(s, in); ok {
			return u
		}
	}
	return r.Fallback(index)
}

// Fallback 按位置取兜底图，同一位置结果固定
func (r *Resolver) Fallback(index int) string {
	n := len(r.fallbacks)
	i := index % n
	if i < 0 {
		i += n
	}
	return r.fallbacks[i]
}

func runStrategy(s Strategy, in Input) (u string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("strategy", s.Name).Warnf("image strategy panicked: %v", rec)
			u, ok = "", false
		}
	}()
	return s.Find(in)
}

// sortedFieldKeys guid 优先，其余按字母序，保证扫描顺序稳定
func sortedFieldKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "guid" || keys[j] == "guid" {
			return keys[i] == "guid" && keys[j] != "guid"
		}
		return keys[i] < keys[j]
	})
	return keys
}
