package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LJTian/FeedHub/internal/feed"
)

const (
	maxResponseBytes = 4 << 20 // 4MB，单个 feed 足够
	defaultTimeout   = 15 * time.Second
	userAgent        = "Mozilla/5.0 (compatible; FeedHubBot/1.0)"
)

// Provider 抽象一个抓取/转换服务，负责把 source 的 URL 代入自己的请求格式
type Provider interface {
	Name() string
	Fetch(ctx context.Context, src feed.Source) (feed.Payload, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// httpGet 只在请求层面失败时返回 NetworkError，状态码交给调用方判断
func httpGet(ctx context.Context, client *http.Client, provider, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, &feed.NetworkError{Provider: provider, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, application/rss+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &feed.NetworkError{Provider: provider, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &feed.NetworkError{Provider: provider, URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return resp.StatusCode, body, nil
}

func statusError(provider, rawURL string, code int) error {
	return &feed.NetworkError{Provider: provider, URL: rawURL, Err: fmt.Errorf("unexpected status %d", code)}
}
