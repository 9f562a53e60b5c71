package processor

import (
	"bytes"
	"errors"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/LJTian/FeedHub/internal/resolver"
)

// NormalizeXML 处理 RSS/Atom 文档；解析失败或没有条目时返回 MalformedXMLError
func (n *Normalizer) NormalizeXML(body []byte, src feed.Source) (*feed.Feed, error) {
	parsed, err := parseFeed(body)
	if err != nil {
		return nil, &feed.MalformedXMLError{Err: err}
	}
	if len(parsed.Items) == 0 {
		return nil, &feed.MalformedXMLError{}
	}

	fetchedAt := n.now()
	count := n.limit(len(parsed.Items))
	items := make([]feed.Item, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, n.buildItem(fromGofeedItem(parsed.Items[i]), i, fetchedAt))
	}

	return &feed.Feed{
		Title:       orDefault(parsed.Title, orDefault(src.Name, feed.PlaceholderFeedTitle)),
		Description: orDefault(parsed.Description, feed.PlaceholderDescription),
		Link:        orDefault(parsed.Link, orDefault(src.URL, feed.PlaceholderLink)),
		Items:       items,
	}, nil
}

// parseFeed 部分源只返回裸的 <item> 列表，没有 rss/channel 外壳；识别失败时补上外壳再试一次
func parseFeed(body []byte) (*gofeed.Feed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if !errors.Is(err, gofeed.ErrFeedTypeNotDetected) || !bytes.Contains(body, []byte("<item")) {
		return parsed, err
	}
	inner := bytes.TrimSpace(body)
	if bytes.HasPrefix(inner, []byte("<?xml")) {
		if end := bytes.Index(inner, []byte("?>")); end >= 0 {
			inner = inner[end+2:]
		}
	}
	wrapped := make([]byte, 0, len(inner)+64)
	wrapped = append(wrapped, `<rss version="2.0"><channel>`...)
	wrapped = append(wrapped, inner...)
	wrapped = append(wrapped, `</channel></rss>`...)
	if retry, rerr := gofeed.NewParser().Parse(bytes.NewReader(wrapped)); rerr == nil {
		return retry, nil
	}
	return parsed, err
}

func fromGofeedItem(it *gofeed.Item) rawItem {
	raw := rawItem{
		guid:        it.GUID,
		title:       it.Title,
		link:        it.Link,
		pubText:     it.Published,
		author:      itemAuthor(it),
		description: it.Description,
		content:     it.Content,
		categories:  it.Categories,
	}
	if it.PublishedParsed != nil {
		raw.published = *it.PublishedParsed
	} else if it.UpdatedParsed != nil {
		raw.published = *it.UpdatedParsed
	}

	in := resolver.Input{Fields: map[string]string{}}
	// gofeed 可能从正文 HTML 里取 Image；这种情况交给内联图片策略按过滤规则处理
	if it.Image != nil && it.Image.URL != "" && !strings.Contains(it.Content+it.Description, it.Image.URL) {
		in.Thumbnail = it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc == nil {
			continue
		}
		in.Enclosures = append(in.Enclosures, resolver.Enclosure{URL: enc.URL, Type: enc.Type})
	}
	in.Media = mediaRefs(it.Extensions)
	if it.GUID != "" {
		in.Fields["guid"] = it.GUID
	}
	for k, v := range it.Custom {
		if v != "" {
			in.Fields[k] = v
		}
	}
	raw.image = in
	return raw
}

// itemAuthor author 为空时退回 dc:creator
func itemAuthor(it *gofeed.Item) string {
	if it.Author != nil && strings.TrimSpace(it.Author.Name) != "" {
		return it.Author.Name
	}
	for _, a := range it.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return a.Name
		}
	}
	if it.DublinCoreExt != nil {
		for _, c := range it.DublinCoreExt.Creator {
			if strings.TrimSpace(c) != "" {
				return c
			}
		}
	}
	return ""
}

// mediaRefs 收集 media:content、media:thumbnail（含 media:group 内的）
func mediaRefs(exts ext.Extensions) []resolver.Media {
	media, ok := exts["media"]
	if !ok {
		return nil
	}
	var out []resolver.Media
	collect := func(m map[string][]ext.Extension) {
		for _, e := range m["content"] {
			out = append(out, resolver.Media{URL: e.Attrs["url"], Medium: e.Attrs["medium"], Type: e.Attrs["type"]})
		}
		for _, e := range m["thumbnail"] {
			out = append(out, resolver.Media{URL: e.Attrs["url"], Thumbnail: true})
		}
	}
	collect(media)
	for _, g := range media["group"] {
		collect(g.Children)
	}
	return out
}
