package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/LJTian/FeedHub/internal/resolver"
)

// 每个 feed 保留的条目数上限，可配置范围 [MinItemsCap, MaxItemsCap]
const (
	DefaultMaxItems = 20
	MinItemsCap     = 20
	MaxItemsCap     = 25
)

// ClampMaxItems <=0 取默认值，其余收敛到允许范围内
func ClampMaxItems(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxItems
	case n < MinItemsCap:
		return MinItemsCap
	case n > MaxItemsCap:
		return MaxItemsCap
	default:
		return n
	}
}

// ImageResolver 为条目挑选代表图
type ImageResolver interface {
	Resolve(in resolver.Input, index int) string
}

// Normalizer 把 provider 的原始响应转换成规范化的 Feed，
// 每个字段都会补上默认值，图片交给 ImageResolver。
type Normalizer struct {
	images   ImageResolver
	maxItems int
	now      func() time.Time
}

func NewNormalizer(images ImageResolver, maxItems int) *Normalizer {
	return &Normalizer{images: images, maxItems: ClampMaxItems(maxItems), now: time.Now}
}

// WithClock 替换取当前时间的函数，测试用
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	cp := *n
	cp.now = now
	return &cp
}

// Normalize 按 payload 的类型分派到对应的入口
func (n *Normalizer) Normalize(p feed.Payload, src feed.Source) (*feed.Feed, error) {
	switch p.Kind {
	case feed.PayloadJSON:
		return n.NormalizeJSON(p.Body, src)
	case feed.PayloadXML:
		return n.NormalizeXML(p.Body, src)
	default:
		return nil, &feed.UpstreamFormatError{Provider: p.Provider, Message: fmt.Sprintf("unsupported payload kind %d", p.Kind)}
	}
}

// rawItem 是两种格式解析后、补默认值之前的中间结构
type rawItem struct {
	guid        string
	title       string
	link        string
	published   time.Time
	pubText     string
	author      string
	description string
	content     string
	categories  []string
	image       resolver.Input
}

func (n *Normalizer) buildItem(raw rawItem, index int, fetchedAt time.Time) feed.Item {
	published := raw.published
	if published.IsZero() {
		published = parseTime(raw.pubText, fetchedAt)
	}

	description := strings.TrimSpace(raw.description)
	content := strings.TrimSpace(raw.content)
	if content == "" {
		content = description
	}

	in := raw.image
	in.Link = strings.TrimSpace(raw.link)
	if in.Markup == "" {
		in.Markup = joinMarkup(content, description)
	}

	categories := make([]string, 0, len(raw.categories))
	for _, c := range raw.categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}

	link := orDefault(raw.link, feed.PlaceholderLink)
	title := orDefault(raw.title, feed.PlaceholderTitle)

	idKey := raw.link
	if strings.TrimSpace(idKey) == "" {
		idKey = orDefault(raw.guid, fmt.Sprintf("%s#%d", title, index))
	}

	return feed.Item{
		ID:          hashURL(strings.TrimSpace(idKey)),
		GUID:        strings.TrimSpace(raw.guid),
		Title:       title,
		Link:        link,
		PublishedAt: published,
		Author:      orDefault(raw.author, feed.PlaceholderAuthor),
		Description: orDefault(description, feed.PlaceholderDescription),
		Content:     orDefault(content, feed.PlaceholderDescription),
		Categories:  categories,
		ImageURL:    n.images.Resolve(in, index),
	}
}

func (n *Normalizer) limit(count int) int {
	if count > n.maxItems {
		return n.maxItems
	}
	return count
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func joinMarkup(content, description string) string {
	if description == "" || description == content {
		return content
	}
	if content == "" {
		return description
	}
	return content + "\n" + description
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// 常见的发布时间格式；rss2json 输出的是不带时区的 UTC 时间
var pubDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime 解析失败时使用抓取时间
func parseTime(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
