package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Refresher 一次刷新全部订阅源，返回失败个数
type Refresher interface {
	RefreshAll(ctx context.Context) int
}

type Scheduler struct {
	cron         *cron.Cron
	refresher    Refresher
	timeout      time.Duration
	startupDelay time.Duration
}

// New timeout 限制单轮刷新的总时长，<=0 表示不限制
func New(spec string, r Refresher, timeout time.Duration) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:      c,
		refresher: r,
		timeout:   timeout,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// WithStartupDelay 首轮刷新延迟执行，默认启动后立即刷新
func (s *Scheduler) WithStartupDelay(d time.Duration) *Scheduler {
	s.startupDelay = d
	return s
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.startupDelay <= 0 {
		go s.runOnce()
		return
	}
	time.AfterFunc(s.startupDelay, func() {
		go s.runOnce()
	})
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发刷新
func (s *Scheduler) RunOnce() int {
	return s.runWithResult()
}

func (s *Scheduler) runOnce() {
	s.runWithResult()
}

func (s *Scheduler) runWithResult() int {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	failed := s.refresher.RefreshAll(ctx)
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).
		Infof("scheduled refresh finished, failed=%d", failed)
	return failed
}
