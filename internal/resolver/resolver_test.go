package resolver

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePriorityOrder(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want string
	}{
		{
			name: "thumbnail wins over everything",
			in: Input{
				Thumbnail: " https://cdn.example.com/thumb.jpg ",
				Markup:    `<img src="https://cdn.example.com/photos/inline-photo.jpg">`,
			},
			want: "https://cdn.example.com/thumb.jpg",
		},
		{
			name: "null thumbnail is ignored",
			in: Input{
				Thumbnail:  "null",
				Enclosures: []Enclosure{{URL: "https://cdn.example.com/enc.png", Type: "image/png"}},
			},
			want: "https://cdn.example.com/enc.png",
		},
		{
			name: "audio enclosure is skipped",
			in: Input{
				Enclosures: []Enclosure{{URL: "https://cdn.example.com/a.mp3", Type: "audio/mpeg"}},
				Markup:     `<media:content url="https://cdn.example.com/media/pic.jpg" medium="image"/>`,
			},
			want: "https://cdn.example.com/media/pic.jpg",
		},
		{
			name: "untyped enclosure string is accepted",
			in: Input{
				Enclosures: []Enclosure{{URL: "https://cdn.example.com/enclosure-photo.jpg", FromString: true}},
				Markup:     `<img src="https://img.example.com/photos/cover-2024.jpg">`,
			},
			want: "https://cdn.example.com/enclosure-photo.jpg",
		},
		{
			name: "untyped enclosure object is skipped",
			in: Input{
				Enclosures: []Enclosure{{URL: "https://cdn.example.com/audio/episode-001.mp3"}},
				Markup:     `<img src="https://img.example.com/photos/cover-2024.jpg">`,
			},
			want: "https://img.example.com/photos/cover-2024.jpg",
		},
		{
			name: "audio enclosure loses to inline img",
			in: Input{
				Enclosures: []Enclosure{{URL: "https://cdn.example.com/audio/episode-001.mp3", Type: "audio/mpeg"}},
				Markup:     `<img src="https://img.example.com/photos/cover-2024.jpg">`,
			},
			want: "https://img.example.com/photos/cover-2024.jpg",
		},
		{
			name: "structured media thumbnail",
			in:   Input{Media: []Media{{URL: "//img.example.com/t.jpg", Thumbnail: true}}},
			want: "https://img.example.com/t.jpg",
		},
		{
			name: "enclosure tag in markup",
			in: Input{
				Markup: `<enclosure url="https://cdn.example.com/e.webp" type="image/webp" length="10"/>`,
			},
			want: "https://cdn.example.com/e.webp",
		},
		{
			name: "inline img with data-src",
			in: Input{
				Markup: `<p>text</p><img data-src="https://cdn.example.com/lazy/photo-1.jpg">`,
			},
			want: "https://cdn.example.com/lazy/photo-1.jpg",
		},
		{
			name: "bare url in text with escaped query",
			in: Input{
				Markup: `see https://cdn.example.com/raw/photo.png?w=400&amp;h=300 for details`,
			},
			want: "https://cdn.example.com/raw/photo.png?w=400&h=300",
		},
		{
			name: "guid metadata",
			in: Input{
				Fields: map[string]string{"guid": "https://cdn.example.com/guid/image.jpeg", "author": "x"},
			},
			want: "https://cdn.example.com/guid/image.jpeg",
		},
	}

	r := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.in, 0))
		})
	}
}

func TestInlineImageExclusions(t *testing.T) {
	markup := `
		<img src="https://cdn.example.com/site-logo.png">
		<img src="https://cdn.example.com/icons/share.png">
		<img src="https://cdn.example.com/avatar/u1.jpg">
		<img src="/a.jpg">
		<img src="https://track.example.com/1x1.gif">
		<img src="https://cdn.example.com/news/2024/story.jpg">`

	got, ok := findInlineImages(Input{Markup: markup, Link: "https://news.example.com/a/1"})
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/news/2024/story.jpg", got)
}

func TestInlineImageRootRelative(t *testing.T) {
	markup := `<img src="/uploads/2024/01/story-photo.jpg">`

	got, ok := findInlineImages(Input{Markup: markup, Link: "https://news.example.com/articles/1?x=y"})
	require.True(t, ok)
	assert.Equal(t, "https://news.example.com/uploads/2024/01/story-photo.jpg", got)

	// link 不可解析时候选被丢弃，继续后续策略
	_, ok = findInlineImages(Input{Markup: markup, Link: "#"})
	assert.False(t, ok)
}

func TestInlineImageProtocolRelative(t *testing.T) {
	got, ok := findInlineImages(Input{Markup: `<img src="//static.example.com/img/story-photo.jpg">`})
	require.True(t, ok)
	assert.Equal(t, "https://static.example.com/img/story-photo.jpg", got)
}

func TestRawTextScanAppliesExclusions(t *testing.T) {
	markup := `https://cdn.example.com/brand/logo-big.png https://cdn.example.com/story/main.jpg`
	got, ok := findRawTextURLs(Input{Markup: markup})
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/story/main.jpg", got)
}

func TestMetadataSkipsLogo(t *testing.T) {
	in := Input{Fields: map[string]string{
		"guid":  "https://example.com/logo.png",
		"extra": "cover https://cdn.example.com/cover.webp",
	}}
	got, ok := findMetadata(in)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/cover.webp", got)
}

func TestFallbackDeterministicByIndex(t *testing.T) {
	pool := []string{"https://f.example.com/0.jpg", "https://f.example.com/1.jpg", "https://f.example.com/2.jpg"}
	r := New(pool)

	for i := 0; i < 7; i++ {
		first := r.Resolve(Input{}, i)
		second := r.Resolve(Input{}, i)
		assert.Equal(t, first, second)
		assert.Equal(t, pool[i%3], first)
	}
	assert.NotEqual(t, r.Resolve(Input{}, 0), r.Resolve(Input{}, 1))
	assert.Equal(t, pool[2], r.Fallback(-1))
}

func TestDefaultFallbackWhenPoolEmpty(t *testing.T) {
	r := New([]string{"", "  "})
	assert.Equal(t, DefaultFallbackImage, r.Resolve(Input{Markup: "<p>no images</p>"}, 5))
}

func TestResolveAlwaysAbsolute(t *testing.T) {
	inputs := []Input{
		{Thumbnail: "relative/path.jpg"},
		{Markup: `<img src="data:image/png;base64,AAAAAAAAAAAAAAAAAAAA">`},
		{Markup: `<img src="/only/root/relative.jpg">`, Link: "#"},
		{Markup: "<<<not html"},
	}
	r := New(nil)
	for i, in := range inputs {
		got := r.Resolve(in, i)
		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.NotEmpty(t, u.Host, got)
		assert.Contains(t, []string{"http", "https"}, u.Scheme)
	}
}

func TestPanickingStrategyFallsThrough(t *testing.T) {
	boom := Strategy{Name: "boom", Find: func(Input) (string, bool) { panic("bad markup") }}
	r := New(nil).WithStrategies(boom, Strategy{Name: "structured", Find: findStructured})

	got := r.Resolve(Input{Thumbnail: "https://cdn.example.com/ok.jpg"}, 0)
	assert.Equal(t, "https://cdn.example.com/ok.jpg", got)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		raw, link, want string
		ok              bool
	}{
		{"//x.example.com/y.jpg", "", "https://x.example.com/y.jpg", true},
		{"/y.jpg", "http://site.example.com/a/b", "http://site.example.com/y.jpg", true},
		{"/y.jpg", "#", "", false},
		{"ftp://x/y.jpg", "", "", false},
		{"https://x.example.com/y.jpg?a=1&amp;b=2", "", "https://x.example.com/y.jpg?a=1&b=2", true},
		{"   ", "", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeURL(tt.raw, tt.link)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestFallbackPoolKeepsOnlyAbsoluteURLs(t *testing.T) {
	r := New([]string{"images/local.jpg", "/root-relative.jpg", "//cdn.example.com/f.jpg", "ftp://x.example.com/a.jpg", "https://f.example.com/1.jpg"})
	assert.Equal(t, "https://cdn.example.com/f.jpg", r.Fallback(0))
	assert.Equal(t, "https://f.example.com/1.jpg", r.Fallback(1))
	assert.Equal(t, "https://cdn.example.com/f.jpg", r.Fallback(2))

	assert.Equal(t, DefaultFallbackImage, New([]string{"not-a-url"}).Fallback(0))
}
