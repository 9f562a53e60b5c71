package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/LJTian/FeedHub/internal/aggregator"
	"github.com/LJTian/FeedHub/internal/collector"
	"github.com/LJTian/FeedHub/internal/config"
	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/LJTian/FeedHub/internal/processor"
	"github.com/LJTian/FeedHub/internal/resolver"
)

// 一个仅执行一次抓取的命令行入口：适合手动排查某个订阅源
func main() {
	app := &cli.App{
		Name:  "collect",
		Usage: "Fetch feeds once and print the normalized items as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Value:   aggregator.All,
				Usage:   "Source id to fetch, or \"all\"",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   0,
				Usage:   "Maximum number of items to print (0 = no limit)",
			},
			&cli.StringFlag{
				Name:    "sources-file",
				Aliases: []string{"c"},
				Usage:   "Path to sources configuration file",
				EnvVars: []string{"SOURCES_FILE"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	// 日志走 stderr，stdout 只输出 JSON
	log.SetOutput(os.Stderr)
	cfg := config.Load()
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	sources, err := config.LoadSources(ctx.String("sources-file"))
	if err != nil {
		return err
	}
	providers, err := collector.NewProviders(cfg.CollectorOptions())
	if err != nil {
		return err
	}

	normalizer := processor.NewNormalizer(resolver.New(cfg.FallbackImages), cfg.MaxItems)
	agg := aggregator.New(sources, collector.NewStrategy(normalizer, providers...), nil)

	timeout := time.Duration(len(providers)+1) * cfg.FetchTimeout
	runCtx, cancel := context.WithTimeout(ctx.Context, timeout)
	defer cancel()

	source := ctx.String("source")
	if source == aggregator.All || source == "" {
		agg.RefreshAll(runCtx)
	} else if err := agg.RefreshOne(runCtx, source); errors.Is(err, feed.ErrUnknownSource) {
		return cli.Exit(fmt.Sprintf("unknown source %q", source), 2)
	}

	items, err := agg.Filtered(source)
	if err != nil {
		return err
	}
	if limit := ctx.Int("limit"); limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	// 每个订阅源的状态打到日志，失败原因已在 aggregator 里记录
	for _, st := range agg.States() {
		if st.LastError != "" {
			log.WithField("source", st.ID).Warn(st.LastError)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(items)
}
