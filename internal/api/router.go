package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/LJTian/FeedHub/internal/aggregator"
	"github.com/LJTian/FeedHub/internal/feed"
)

const defaultRefreshTimeout = 2 * time.Minute

type Server struct {
	agg            *aggregator.Aggregator
	limiter        *IPRateLimiter
	refreshTimeout time.Duration
}

// NewServer limiter 为 nil 时刷新接口不限流
func NewServer(agg *aggregator.Aggregator, limiter *IPRateLimiter) *Server {
	return &Server{agg: agg, limiter: limiter, refreshTimeout: defaultRefreshTimeout}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/sources", s.listSources)
		v1.GET("/news", s.listNews)

		refresh := v1.Group("")
		if s.limiter != nil {
			refresh.Use(s.limiter.Middleware())
		}
		refresh.POST("/refresh", s.refreshAll)
		refresh.POST("/sources/:id/refresh", s.refreshOne)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sourceView 订阅源配置加当前加载状态，不带条目
type sourceView struct {
	feed.Source
	FeedTitle string    `json:"feedTitle,omitempty"`
	Loading   bool      `json:"isLoading"`
	LastError string    `json:"lastError,omitempty"`
	ItemCount int       `json:"itemCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) listSources(c *gin.Context) {
	views := lo.Map(s.agg.States(), func(st aggregator.SourceState, _ int) sourceView {
		v := sourceView{
			Source:    st.Source,
			Loading:   st.Loading,
			LastError: st.LastError,
			ItemCount: st.ItemCount,
			UpdatedAt: st.UpdatedAt,
		}
		if st.Feed != nil {
			v.FeedTitle = st.Feed.Title
		}
		return v
	})

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    views,
	})
}

func (s *Server) listNews(c *gin.Context) {
	source := c.DefaultQuery("source", aggregator.All)

	// 不传或非法时返回全部
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 0 {
		limit = 0
	}

	items, err := s.agg.Filtered(source)
	if errors.Is(err, feed.ErrUnknownSource) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "unknown source",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

// refreshAll 异步触发，立即返回 202
func (s *Server) refreshAll(c *gin.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()
		s.agg.RefreshAll(ctx)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"code":    "accepted",
		"message": "refresh started",
	})
}

func (s *Server) refreshOne(c *gin.Context) {
	id := c.Param("id")
	if !s.agg.Has(id) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "unknown source",
		})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()
		if err := s.agg.RefreshOne(ctx, id); err != nil {
			log.WithField("source", id).Debugf("manual refresh failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"code":    "accepted",
		"message": "refresh started",
		"data":    gin.H{"source": id},
	})
}
