package resolver

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// 内联图片和正文扫描时的过滤规则
var excludedMarkers = []string{"logo", "icon", "avatar", "button", "badge", "pixel", "tracking", "1x1"}

// 元数据扫描只排除 logo/icon
var metadataExcludedMarkers = []string{"logo", "icon"}

// 过短的地址多半是相对路径或噪声
const minImageURLLen = 20

var (
	imageExtPattern = regexp.MustCompile(`(?i)\.(?:jpe?g|png|gif|webp)(?:[?#&]|$)`)
	bareImageURL    = regexp.MustCompile(`(?i)https?://[^\s<>"']+\.(?:jpe?g|png|gif|webp)(?:\?[^\s<>"']*)?`)
	anyHTTPURL      = regexp.MustCompile(`(?i)https?://[^\s<>"']+`)
)

func containsAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	return lo.SomeBy(markers, func(m string) bool {
		return strings.Contains(lower, m)
	})
}

func hasImageExt(s string) bool {
	return imageExtPattern.MatchString(s)
}

func unescapeAmp(s string) string {
	for _, esc := range []string{"&amp;", "&#38;", "&#038;"} {
		s = strings.ReplaceAll(s, esc, "&")
	}
	return s
}

// normalizeURL 把候选地址规范成绝对 https/http 地址：
// "//host/x" 补 https；"/x" 以条目 link 的 origin 补全，link 无法解析时丢弃候选。
func normalizeURL(raw, link string) (string, bool) {
	raw = unescapeAmp(strings.TrimSpace(raw))
	if raw == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case strings.HasPrefix(raw, "/"):
		base, err := url.Parse(strings.TrimSpace(link))
		if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
			return "", false
		}
		raw = base.Scheme + "://" + base.Host + raw
	default:
		lower := strings.ToLower(raw)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			return "", false
		}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	return raw, true
}
