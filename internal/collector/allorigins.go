package collector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LJTian/FeedHub/internal/feed"
)

const (
	ProviderAllOrigins        = "allorigins"
	DefaultAllOriginsEndpoint = "https://api.allorigins.win/get"
)

// AllOriginsProvider 通用的内容代理，返回包着原始 XML 的 JSON
type AllOriginsProvider struct {
	endpoint string
	client   *http.Client
}

func NewAllOriginsProvider(endpoint string, timeout time.Duration) *AllOriginsProvider {
	if endpoint == "" {
		endpoint = DefaultAllOriginsEndpoint
	}
	return &AllOriginsProvider{endpoint: endpoint, client: newHTTPClient(timeout)}
}

func (p *AllOriginsProvider) Name() string {
	return ProviderAllOrigins
}

type allOriginsResp struct {
	Contents string `json:"contents"`
	Status   struct {
		URL      string `json:"url"`
		HTTPCode int    `json:"http_code"`
	} `json:"status"`
}

func (p *AllOriginsProvider) Fetch(ctx context.Context, src feed.Source) (feed.Payload, error) {
	u := p.endpoint + "?" + url.Values{"url": {src.URL}}.Encode()
	code, body, err := httpGet(ctx, p.client, p.Name(), u)
	if err != nil {
		return feed.Payload{}, err
	}
	if code != http.StatusOK {
		return feed.Payload{}, statusError(p.Name(), u, code)
	}

	var resp allOriginsResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return feed.Payload{}, &feed.UpstreamFormatError{Provider: p.Name(), Message: "decode response: " + err.Error()}
	}
	if resp.Status.HTTPCode >= 400 {
		return feed.Payload{}, &feed.UpstreamFormatError{Provider: p.Name(), Message: fmt.Sprintf("origin returned status %d", resp.Status.HTTPCode)}
	}

	contents, err := decodeContents(resp.Contents)
	if err != nil {
		return feed.Payload{}, &feed.UpstreamFormatError{Provider: p.Name(), Message: err.Error()}
	}
	if strings.TrimSpace(contents) == "" {
		return feed.Payload{}, &feed.UpstreamFormatError{Provider: p.Name(), Message: "empty contents"}
	}
	return feed.Payload{Kind: feed.PayloadXML, Provider: p.Name(), Body: []byte(contents)}, nil
}

// decodeContents 部分 content-type 下 allorigins 会返回 base64 的 data URL
func decodeContents(s string) (string, error) {
	if !strings.HasPrefix(s, "data:") {
		return s, nil
	}
	idx := strings.Index(s, ";base64,")
	if idx < 0 {
		return s, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s[idx+len(";base64,"):])
	if err != nil {
		return "", fmt.Errorf("decode data url: %w", err)
	}
	return string(raw), nil
}
