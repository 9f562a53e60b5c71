package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/LJTian/FeedHub/internal/collector"
	"github.com/LJTian/FeedHub/internal/processor"
)

const envProduction = "production"

type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	// 可选的全站 Basic Auth，两者都配置时启用
	BasicAuthUser string
	BasicAuthPass string

	CronSpec    string
	SourcesFile string

	MaxItems     int
	FetchTimeout time.Duration

	Providers          []string
	RSS2JSONEndpoint   string
	RSS2JSONAPIKey     string
	AllOriginsEndpoint string

	FallbackImages []string

	RefreshRPS   float64
	RefreshBurst int
}

func Load() *Config {
	appEnv := getEnv("APP_ENV", envProduction)
	cfg := &Config{
		AppPort:            getEnv("APP_PORT", "9000"),
		AppEnv:             appEnv,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BasicAuthUser:      os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:      os.Getenv("APP_BASIC_PASS"),
		CronSpec:           getEnv("CRON_SPEC", "*/30 * * * *"),
		SourcesFile:        os.Getenv("SOURCES_FILE"),
		MaxItems:           maxItemsEnv("FEED_MAX_ITEMS"),
		FetchTimeout:       parseDurationEnv("FETCH_TIMEOUT", 15*time.Second),
		Providers:          parseListEnv("PROVIDERS", DefaultProviders(appEnv)),
		RSS2JSONEndpoint:   getEnv("RSS2JSON_ENDPOINT", collector.DefaultRSS2JSONEndpoint),
		RSS2JSONAPIKey:     os.Getenv("RSS2JSON_API_KEY"),
		AllOriginsEndpoint: getEnv("ALLORIGINS_ENDPOINT", collector.DefaultAllOriginsEndpoint),
		FallbackImages:     parseListEnv("FALLBACK_IMAGES", nil),
		RefreshRPS:         parseFloatEnv("REFRESH_RPS", 1),
		RefreshBurst:       parseIntEnv("REFRESH_BURST", 3),
	}

	log.Infof("config loaded: port=%s env=%s cron=%s providers=%s",
		cfg.AppPort, cfg.AppEnv, cfg.CronSpec, strings.Join(cfg.Providers, ","))
	return cfg
}

// IsProduction 是否运行在正式部署环境
func (c *Config) IsProduction() bool {
	return c.AppEnv == envProduction
}

// CollectorOptions 转换为构造 provider 链所需的参数
func (c *Config) CollectorOptions() collector.Options {
	return collector.Options{
		Order:              c.Providers,
		RSS2JSONEndpoint:   c.RSS2JSONEndpoint,
		RSS2JSONAPIKey:     c.RSS2JSONAPIKey,
		AllOriginsEndpoint: c.AllOriginsEndpoint,
		Timeout:            c.FetchTimeout,
	}
}

// DefaultProviders 正式环境优先走 JSON 转换代理；本地开发没有跨域限制，直接请求源站最快
func DefaultProviders(appEnv string) []string {
	if appEnv == envProduction {
		return []string{collector.ProviderRSS2JSON, collector.ProviderAllOrigins, collector.ProviderDirect}
	}
	return []string{collector.ProviderDirect, collector.ProviderRSS2JSON, collector.ProviderAllOrigins}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warnf("config: invalid %s=%q, use default %d", key, v, def)
	}
	return def
}

func parseFloatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warnf("config: invalid %s=%q, use default %g", key, v, def)
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Warnf("config: invalid %s=%q, use default %s", key, v, def)
	}
	return def
}

// maxItemsEnv 条目上限只允许在 [20, 25] 之间
func maxItemsEnv(key string) int {
	n := parseIntEnv(key, processor.DefaultMaxItems)
	clamped := processor.ClampMaxItems(n)
	if clamped != n {
		log.Warnf("config: %s=%d out of range [%d, %d], use %d", key, n, processor.MinItemsCap, processor.MaxItemsCap, clamped)
	}
	return clamped
}

// parseListEnv 逗号分隔，忽略空白项
func parseListEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
