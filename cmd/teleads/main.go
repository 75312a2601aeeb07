package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleads/core/buildinfo"
	coreconfig "github.com/m3rciful/teleads/core/config"
	"github.com/m3rciful/teleads/core/logger"
	"github.com/m3rciful/teleads/core/storage"
	tg "github.com/m3rciful/teleads/core/telegram"
	"github.com/m3rciful/teleads/core/telegram/router"
	"github.com/m3rciful/teleads/internal/ads"
	"github.com/m3rciful/teleads/internal/bot"
	"github.com/m3rciful/teleads/internal/flow"
	"github.com/m3rciful/teleads/internal/poster"
	"github.com/m3rciful/teleads/internal/sched"
)

const component = "main"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "teleads:", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, component, "starting",
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
	)

	if err := storage.RunMigrations(cfg.Store); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store, err := storage.Connect(cfg.Store)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer func() { _ = store.Close() }()

	repo := ads.NewRepository(store)
	sessions := flow.NewSessions(store)
	ui := bot.New(cfg, repo, sessions)

	reg := tg.NewRegistry()
	ui.Register(reg)

	rejected := func(c tele.Context) error {
		return c.Send("This bot is private.")
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       cfg.Telegram.AdminID,
		OnAdminReject: rejected,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(ui.Flows(), reg, router.TextOptions{})...)

	var loop *sched.Scheduler

	return tg.RunTelegram(ctx, tg.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			primary := poster.NewTelebotClient(rt.Bot)

			var fallback poster.Client
			if cfg.Telegram.FallbackToken != "" {
				fb, err := tele.NewBot(tele.Settings{
					Token:  cfg.Telegram.FallbackToken,
					Client: tg.BuildHTTPClient(),
				})
				if err != nil {
					return fmt.Errorf("fallback bot: %w", err)
				}
				fallback = poster.NewTelebotClient(fb)
				logger.Info(ctx, component, "fallback_enabled", slog.String("bot", fb.Me.Username))
			}

			post := poster.New(primary, fallback, poster.Options{
				SendCooldown: cfg.Scheduler.SendCooldown,
				FloodMargin:  cfg.Scheduler.FloodMargin,
			})
			loop = sched.New(repo, post, cfg.Scheduler.Location())
			ui.Bind(loop, primary)

			return loop.Start(ctx, cfg.Scheduler.Interval)
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			if loop != nil {
				loop.Stop()
			}
			return nil
		},
	})
}
