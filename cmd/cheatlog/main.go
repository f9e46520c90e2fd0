package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/cheatlog/internal/bot"
	"github.com/iamwavecut/cheatlog/internal/config"
	"github.com/iamwavecut/cheatlog/internal/db/sqlite"
	"github.com/iamwavecut/cheatlog/internal/event"
	"github.com/iamwavecut/cheatlog/internal/handlers"
	"github.com/iamwavecut/cheatlog/internal/i18n"
	"github.com/iamwavecut/cheatlog/internal/infra"
	"github.com/iamwavecut/cheatlog/internal/lifecycle"
	"github.com/iamwavecut/cheatlog/internal/naming"
	"github.com/iamwavecut/cheatlog/internal/observability"
	"github.com/iamwavecut/cheatlog/internal/query"
	"github.com/iamwavecut/cheatlog/internal/reconcile"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	log.SetFormatter(&config.ClFormatter{})
	log.SetOutput(os.Stdout)
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))
	if !tool.In(strings.ToLower(cfg.DefaultLanguage), i18n.Languages()...) {
		log.WithField("lang", cfg.DefaultLanguage).Warnln("no translations shipped, falling back to en")
		cfg.DefaultLanguage = "en"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Errorln("exiting")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing := observability.SetupTracing()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(stopCtx)
	}()

	workDir, err := infra.GetWorkDir(cfg.DotPath)
	if err != nil {
		return err
	}
	store, err := sqlite.NewSQLiteClient(ctx, workDir, cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return err
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}

	metrics := observability.NewMetrics()
	bus := event.NewBus(0)
	worker := event.NewWorker(bus)

	policy := naming.Policy{
		MinLength:            cfg.Naming.MinLength,
		MaxLength:            cfg.Naming.MaxLength,
		MaxConsecutiveDigits: cfg.Naming.MaxConsecutiveDigits,
	}
	engine := reconcile.NewEngine(store, policy,
		reconcile.WithPublisher(bus),
		reconcile.WithMetrics(metrics),
		reconcile.WithEventTTL(cfg.Fanout.EventTTL),
	)
	queries := query.NewService(store, engine, metrics)
	service := bot.NewService(botAPI, store, cfg.DefaultLanguage, nil)

	handlers.NewNotifier(botAPI, store, cfg.DefaultLanguage, cfg.Fanout.Concurrency, metrics).Subscribe(worker)

	registry := bot.NewRegistry()
	registry.Register("reports", handlers.NewReports(service, engine, queries,
		handlers.WithNamingPolicy(policy),
		handlers.WithPageSize(cfg.Listing.PageSize),
		handlers.WithSearchLimit(cfg.Listing.SearchLimit),
	))
	processor := bot.NewUpdateProcessor(registry.Enabled(cfg.EnabledHandlers)...)

	runtime := lifecycle.NewRuntime()
	runtime.Register("metrics", observability.NewServer(cfg.Observability.MetricsAddr, metrics))
	runtime.Register("event_worker", worker)
	runtime.Register("poller", bot.NewPoller(botAPI, processor))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case _, changed := <-infra.MonitorExecutable(runCtx):
			if changed {
				log.Errorln("executable file was modified")
				cancel()
			}
		case <-runCtx.Done():
		}
	}()

	log.WithFields(log.Fields{
		"work_dir": workDir,
		"language": i18n.GetLanguageName(cfg.DefaultLanguage),
	}).Info("cheatlog started")
	return runtime.Run(runCtx, shutdownTimeout)
}
