package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/LJTian/FeedHub/internal/feed"
)

const ProviderDirect = "direct"

// DirectProvider 直接请求源站，不经过任何代理
type DirectProvider struct {
	timeout time.Duration
}

func NewDirectProvider(timeout time.Duration) *DirectProvider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &DirectProvider{timeout: timeout}
}

func (p *DirectProvider) Name() string {
	return ProviderDirect
}

func (p *DirectProvider) Fetch(ctx context.Context, src feed.Source) (feed.Payload, error) {
	if err := ctx.Err(); err != nil {
		return feed.Payload{}, &feed.NetworkError{Provider: p.Name(), URL: src.URL, Err: err}
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxBodySize(maxResponseBytes),
	)
	c.SetRequestTimeout(p.timeout)

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(src.URL); err != nil {
		return feed.Payload{}, &feed.NetworkError{Provider: p.Name(), URL: src.URL, Err: fmt.Errorf("visit: %w", err)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return feed.Payload{}, &feed.UpstreamFormatError{Provider: p.Name(), Message: "empty body"}
	}
	return feed.Payload{Kind: feed.PayloadXML, Provider: p.Name(), Body: body}, nil
}
