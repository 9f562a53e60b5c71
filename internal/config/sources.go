package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"

	"github.com/LJTian/FeedHub/internal/feed"
)

// sourcesFile 订阅源配置文件的结构
type sourcesFile struct {
	Sources []feed.Source `toml:"sources"`
}

// DefaultSources 未提供配置文件时使用的内置订阅源
func DefaultSources() []feed.Source {
	return []feed.Source{
		{
			ID:        "arabi21-politics",
			Name:      "عربي21 - سياسة دولية",
			URL:       "https://arabi21.com/Rss/SectionNewsRss?id=316",
			Color:     "orange",
			BgColor:   "bg-orange-50",
			TextColor: "text-orange-800",
		},
		{
			ID:        "arabi21-general",
			Name:      "عربي21 - عام",
			URL:       "https://arabi21.com/Rss/SectionNewsRss?id=410",
			Color:     "green",
			BgColor:   "bg-green-50",
			TextColor: "text-green-800",
		},
		{
			ID:        "lemonde",
			Name:      "Le Monde",
			URL:       "https://www.lemonde.fr/rss/une.xml",
			Color:     "blue",
			BgColor:   "bg-blue-50",
			TextColor: "text-blue-800",
		},
		{
			ID:        "liberation",
			Name:      "Libération",
			URL:       "https://www.liberation.fr/arc/outboundfeeds/rss-all/",
			Color:     "red",
			BgColor:   "bg-red-50",
			TextColor: "text-red-800",
		},
		{
			ID:        "figaro",
			Name:      "Le Figaro",
			URL:       "https://www.lefigaro.fr/rss/figaro_actualites.xml",
			Color:     "purple",
			BgColor:   "bg-purple-50",
			TextColor: "text-purple-800",
		},
	}
}

// LoadSources path 为空时返回内置订阅源
func LoadSources(path string) ([]feed.Source, error) {
	if path == "" {
		return DefaultSources(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources 解析 TOML 并校验
func ParseSources(data []byte) ([]feed.Source, error) {
	var f sourcesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse sources file: %w", err)
	}
	sources := lo.Map(f.Sources, func(s feed.Source, _ int) feed.Source {
		s.ID = strings.TrimSpace(s.ID)
		s.URL = strings.TrimSpace(s.URL)
		if s.Name == "" {
			s.Name = s.ID
		}
		return s
	})
	if err := ValidateSources(sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// ValidateSources id 和 url 必填，id 不可重复，url 必须是 http(s)
func ValidateSources(sources []feed.Source) error {
	if len(sources) == 0 {
		return errors.New("config: no sources configured")
	}
	for i, s := range sources {
		if s.ID == "" {
			return fmt.Errorf("config: source #%d: empty id", i)
		}
		if strings.EqualFold(s.ID, "all") {
			return fmt.Errorf("config: source #%d: id %q is reserved", i, s.ID)
		}
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: source %s: invalid url %q", s.ID, s.URL)
		}
	}
	if dups := lo.FindDuplicatesBy(sources, func(s feed.Source) string { return s.ID }); len(dups) > 0 {
		return fmt.Errorf("config: duplicate source id %q", dups[0].ID)
	}
	return nil
}
