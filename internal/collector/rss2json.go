package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LJTian/FeedHub/internal/feed"
)

const (
	ProviderRSS2JSON        = "rss2json"
	DefaultRSS2JSONEndpoint = "https://api.rss2json.com/v1/api.json"
)

// RSS2JSONProvider 通过 rss2json 把 RSS 转成 JSON
type RSS2JSONProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewRSS2JSONProvider(endpoint, apiKey string, timeout time.Duration) *RSS2JSONProvider {
	if endpoint == "" {
		endpoint = DefaultRSS2JSONEndpoint
	}
	return &RSS2JSONProvider{endpoint: endpoint, apiKey: apiKey, client: newHTTPClient(timeout)}
}

func (p *RSS2JSONProvider) Name() string {
	return ProviderRSS2JSON
}

func (p *RSS2JSONProvider) requestURL(feedURL string) string {
	params := url.Values{"rss_url": {feedURL}}
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}
	return p.endpoint + "?" + params.Encode()
}

func (p *RSS2JSONProvider) Fetch(ctx context.Context, src feed.Source) (feed.Payload, error) {
	u := p.requestURL(src.URL)
	code, body, err := httpGet(ctx, p.client, p.Name(), u)
	if err != nil {
		return feed.Payload{}, err
	}
	if code != http.StatusOK {
		// 失败时 rss2json 仍会返回 {status, message}
		var env struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &env) == nil && env.Status != "" && env.Status != "ok" {
			return feed.Payload{}, &feed.UpstreamFormatError{Provider: p.Name(), Message: strings.TrimSpace(env.Message)}
		}
		return feed.Payload{}, statusError(p.Name(), u, code)
	}
	return feed.Payload{Kind: feed.PayloadJSON, Provider: p.Name(), Body: body}, nil
}
