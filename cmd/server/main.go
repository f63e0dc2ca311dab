package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"stockwatcher/internal/alert"
	"stockwatcher/internal/api"
	"stockwatcher/internal/config"
	"stockwatcher/internal/logging"
	"stockwatcher/internal/market"
	"stockwatcher/internal/metrics"
	"stockwatcher/internal/notify"
	"stockwatcher/internal/push/dingtalk"
	"stockwatcher/internal/quote"
	"stockwatcher/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("configs/app.yaml")
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	logging.Configure(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	st, err := store.Open(cfg.Store.Sqlite.Path)
	if err != nil {
		logrus.Fatalf("store error: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logrus.Errorf("store close error: %v", err)
		}
	}()

	provider, err := buildProvider(cfg.Market)
	if err != nil {
		logrus.Fatalf("provider error: %v", err)
	}

	bus := notify.NewBus()
	mktSvc := market.NewService(provider, st, bus,
		time.Duration(cfg.Market.MinRequestIntervalMs)*time.Millisecond)

	var pusher alert.Pusher
	if cfg.Push.Dingtalk.Webhook != "" {
		pusher = dingtalk.NewClient(
			cfg.Push.Dingtalk.Webhook,
			cfg.Push.Dingtalk.Secret,
			time.Duration(cfg.Push.Dingtalk.TimeoutMs)*time.Millisecond,
		)
	}
	alertSvc, err := alert.NewService(st, pusher, time.Duration(cfg.Alert.CooldownSec)*time.Second)
	if err != nil {
		logrus.Fatalf("alert error: %v", err)
	}
	bus.Subscribe(alertSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Market.PollIntervalSec > 0 {
		go mktSvc.PollLoop(ctx, time.Duration(cfg.Market.PollIntervalSec)*time.Second)
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				logrus.Errorf("metrics server error: %v", err)
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))
	api.RegisterRoutes(h, mktSvc, alertSvc, st)

	logrus.Infof("server starting on %s (log.level=%s)", addr, cfg.Log.Level)
	if err := h.Run(); err != nil {
		logrus.Fatalf("server run error: %v", err)
	}
}

func buildProvider(cfg config.MarketConfig) (market.QuoteProvider, error) {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	providers := make([]market.QuoteProvider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		parsed, err := quote.ParseProvider(name)
		if err != nil {
			return nil, err
		}
		var p market.QuoteProvider
		switch parsed {
		case quote.Sina:
			p = market.NewSinaProvider(timeout)
		case quote.Tencent:
			p = market.NewTencentProvider(timeout)
		}
		providers = append(providers, market.NewBreakerProvider(p))
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	return market.NewMultiProvider(providers...), nil
}
