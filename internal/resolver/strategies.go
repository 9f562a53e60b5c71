package resolver

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	mediaTagPattern     = regexp.MustCompile(`(?is)<media:(content|thumbnail)\b[^>]*>`)
	enclosureTagPattern = regexp.MustCompile(`(?is)<enclosure\b[^>]*>`)
	attrPattern         = regexp.MustCompile(`(?i)\b([a-z_-]+)\s*=\s*["']([^"']*)["']`)
)

// 内联 img 上依次检查的属性（懒加载图片常用 data-src）
var imgSrcAttrs = []string{"src", "data-src", "data-lazy-src"}

func tagAttrs(tag string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(tag, -1) {
		attrs[strings.ToLower(m[1])] = m[2]
	}
	return attrs
}

func isImageType(t string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(t)), "image/")
}

// findStructured provider 直接给出的字段：thumbnail、image/* 类型的 enclosure
func findStructured(in Input) (string, bool) {
	if t := strings.TrimSpace(in.Thumbnail); t != "" && t != "null" {
		if u, ok := normalizeURL(t, in.Link); ok {
			return u, true
		}
	}
	for _, enc := range in.Enclosures {
		if strings.TrimSpace(enc.URL) == "" {
			continue
		}
		if !isImageType(enc.Type) && !(enc.FromString && strings.Contains(enc.URL, "http")) {
			continue
		}
		if u, ok := normalizeURL(enc.URL, in.Link); ok {
			return u, true
		}
	}
	return "", false
}

func acceptMedia(m Media) bool {
	if m.Thumbnail {
		return true
	}
	return strings.EqualFold(m.Medium, "image") || isImageType(m.Type) || hasImageExt(m.URL)
}

// findMediaElements media:content / media:thumbnail，结构化字段优先，其次扫描 markup
func findMediaElements(in Input) (string, bool) {
	for _, m := range in.Media {
		if !acceptMedia(m) {
			continue
		}
		if u, ok := normalizeURL(m.URL, in.Link); ok {
			return u, true
		}
	}
	for _, match := range mediaTagPattern.FindAllStringSubmatch(in.Markup, -1) {
		attrs := tagAttrs(match[0])
		m := Media{
			URL:       attrs["url"],
			Medium:    attrs["medium"],
			Type:      attrs["type"],
			Thumbnail: strings.EqualFold(match[1], "thumbnail"),
		}
		if !acceptMedia(m) {
			continue
		}
		if u, ok := normalizeURL(m.URL, in.Link); ok {
			return u, true
		}
	}
	return "", false
}

// findEnclosureElements markup 中声明 image/* 类型的 enclosure 标签
func findEnclosureElements(in Input) (string, bool) {
	for _, tag := range enclosureTagPattern.FindAllString(in.Markup, -1) {
		attrs := tagAttrs(tag)
		if !isImageType(attrs["type"]) {
			continue
		}
		if u, ok := normalizeURL(attrs["url"], in.Link); ok {
			return u, true
		}
	}
	return "", false
}

// findInlineImages markup 中的 img 标签，过滤 logo/icon 等装饰图和过短的地址
func findInlineImages(in Input) (string, bool) {
	if !strings.Contains(strings.ToLower(in.Markup), "<img") {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.Markup))
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := ""
		for _, attr := range imgSrcAttrs {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				src = strings.TrimSpace(v)
				break
			}
		}
		if src == "" || len(src) <= minImageURLLen || containsAny(src, excludedMarkers) {
			return true
		}
		if u, ok := normalizeURL(src, in.Link); ok {
			found = u
			return false
		}
		return true
	})
	return found, found != ""
}

// findRawTextURLs 直接在文本里找以图片扩展名结尾的地址
func findRawTextURLs(in Input) (string, bool) {
	for _, raw := range bareImageURL.FindAllString(in.Markup, -1) {
		if len(raw) <= minImageURLLen || containsAny(raw, excludedMarkers) {
			continue
		}
		if u, ok := normalizeURL(raw, in.Link); ok {
			return u, true
		}
	}
	return "", false
}

// findMetadata 扫描其它字符串字段（guid 优先），取其中带图片扩展名的地址
func findMetadata(in Input) (string, bool) {
	for _, key := range sortedFieldKeys(in.Fields) {
		value := in.Fields[key]
		if !strings.Contains(strings.ToLower(value), "http") {
			continue
		}
		for _, raw := range anyHTTPURL.FindAllString(value, -1) {
			if !hasImageExt(raw) || containsAny(raw, metadataExcludedMarkers) {
				continue
			}
			if u, ok := normalizeURL(raw, in.Link); ok {
				return u, true
			}
		}
	}
	return "", false
}
