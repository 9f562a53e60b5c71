package processor

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/LJTian/FeedHub/internal/resolver"
)

// jsonEnvelope rss2json 的响应结构
type jsonEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Feed    struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Link        string `json:"link"`
	} `json:"feed"`
	Items []json.RawMessage `json:"items"`
}

type jsonItem struct {
	Title       string        `json:"title"`
	PubDate     string        `json:"pubDate"`
	Link        string        `json:"link"`
	GUID        looseString   `json:"guid"`
	Author      looseString   `json:"author"`
	Creator     looseString   `json:"creator"`
	Thumbnail   looseString   `json:"thumbnail"`
	Description string        `json:"description"`
	Content     string        `json:"content"`
	Enclosure   jsonEnclosure `json:"enclosure"`
	Categories  looseStrings  `json:"categories"`
}

// 这些字段已经作为 markup 扫描过，不再参与元数据扫描
var markupKeys = map[string]struct{}{"title": {}, "description": {}, "content": {}}

// NormalizeJSON 处理 {status, feed, items} 形态的响应
func (n *Normalizer) NormalizeJSON(body []byte, src feed.Source) (*feed.Feed, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &feed.UpstreamFormatError{Message: "decode json envelope: " + err.Error()}
	}
	if env.Status != "ok" {
		return nil, &feed.UpstreamFormatError{Message: strings.TrimSpace(env.Message)}
	}

	fetchedAt := n.now()
	count := n.limit(len(env.Items))
	items := make([]feed.Item, 0, count)
	for i := 0; i < count; i++ {
		raw := decodeJSONItem(env.Items[i])
		items = append(items, n.buildItem(raw, i, fetchedAt))
	}

	return &feed.Feed{
		Title:       orDefault(env.Feed.Title, orDefault(src.Name, feed.PlaceholderFeedTitle)),
		Description: orDefault(env.Feed.Description, feed.PlaceholderDescription),
		Link:        orDefault(env.Feed.Link, orDefault(src.URL, feed.PlaceholderLink)),
		Items:       items,
	}, nil
}

// decodeJSONItem 单条解析失败时按空条目处理，由默认值兜底
func decodeJSONItem(msg json.RawMessage) rawItem {
	var it jsonItem
	_ = json.Unmarshal(msg, &it)

	fields := make(map[string]string)
	var generic map[string]any
	if err := json.Unmarshal(msg, &generic); err == nil {
		for k, v := range generic {
			if _, skip := markupKeys[k]; skip {
				continue
			}
			if s, ok := v.(string); ok && s != "" {
				fields[k] = s
			}
		}
	}

	author := string(it.Author)
	if strings.TrimSpace(author) == "" {
		author = string(it.Creator)
	}

	var enclosures []resolver.Enclosure
	if it.Enclosure.Link != "" {
		enclosures = append(enclosures, resolver.Enclosure{
			URL:        it.Enclosure.Link,
			Type:       it.Enclosure.Type,
			FromString: it.Enclosure.fromString,
		})
	}

	return rawItem{
		guid:        string(it.GUID),
		title:       it.Title,
		link:        it.Link,
		pubText:     it.PubDate,
		author:      author,
		description: it.Description,
		content:     it.Content,
		categories:  []string(it.Categories),
		image: resolver.Input{
			Thumbnail:  string(it.Thumbnail),
			Enclosures: enclosures,
			Fields:     fields,
		},
	}
}

// jsonEnclosure 兼容对象、字符串、空数组三种写法
type jsonEnclosure struct {
	Link string `json:"link"`
	Type string `json:"type"`

	fromString bool
}

func (e *jsonEnclosure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		e.Link = s
		e.fromString = true
	case '{':
		type plain jsonEnclosure
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return nil
		}
		*e = jsonEnclosure(p)
	case '[':
		var list []jsonEnclosure
		if err := json.Unmarshal(data, &list); err != nil {
			return nil
		}
		for _, it := range list {
			if it.Link != "" {
				*e = it
				break
			}
		}
	}
	return nil
}

// looseString 非字符串的值一律视为空
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = looseString(v)
	return nil
}

// looseStrings 只保留数组中的字符串元素
type looseStrings []string

func (s *looseStrings) UnmarshalJSON(data []byte) error {
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		*s = nil
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	*s = out
	return nil
}
