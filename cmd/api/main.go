package main

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/LJTian/FeedHub/internal/aggregator"
	"github.com/LJTian/FeedHub/internal/api"
	"github.com/LJTian/FeedHub/internal/collector"
	"github.com/LJTian/FeedHub/internal/config"
	"github.com/LJTian/FeedHub/internal/processor"
	"github.com/LJTian/FeedHub/internal/resolver"
	"github.com/LJTian/FeedHub/internal/scheduler"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}

	providers, err := collector.NewProviders(cfg.CollectorOptions())
	if err != nil {
		log.Fatalf("init providers failed: %v", err)
	}

	normalizer := processor.NewNormalizer(resolver.New(cfg.FallbackImages), cfg.MaxItems)
	strategy := collector.NewStrategy(normalizer, providers...)
	agg := aggregator.New(sources, strategy, nil)
	log.Infof("pipeline ready: sources=%d providers=%v", len(sources), strategy.Providers())

	// 启动后立即加载所有订阅源，之后按 cron 周期刷新；
	// 单轮上限按回退链长度估算，每个 provider 最多占用一个 FetchTimeout
	roundTimeout := time.Duration(len(providers)+1) * cfg.FetchTimeout
	s, err := scheduler.New(cfg.CronSpec, agg, roundTimeout)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()
	defer s.Stop()

	// API
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	limiter := api.NewIPRateLimiter(cfg.RefreshRPS, cfg.RefreshBurst)
	apiServer := api.NewServer(agg, limiter)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Infof("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL %q, use info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// basicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// 仅当配置了 APP_BASIC_USER / APP_BASIC_PASS 时启用。
// /health 不做认证，便于健康检查。
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "FeedHub"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
