// Основной пакет приложения FamilyPlan. Отвечает за запуск приложения, инициализацию базы данных, миграцию моделей и запуск Telegram бота с HTTP-сервером и планировщиком дайджестов.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	familyplan "github.com/aisa-it/familyplan/familyplan.go/internal/familyplan"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/config"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/cronmanager"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/dao"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/gormlogger"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/notifications"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var version string = "DEV"

var models = []any{&dao.Family{}, &dao.FamilyMember{}, &dao.Task{}, &dao.ShoppingItem{}, &dao.UserSettings{}, &dao.ActivityLog{}}

func main() {
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	cfg := config.ReadConfig()
	dao.Config = cfg

	if *trace {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	slog.Info("FamilyPlan start.")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: false, // disables implicit prepared statement usage
	}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 15)

	if !*noMigration {
		slog.Info("Migrate models")
		if err := db.AutoMigrate(models...); err != nil {
			slog.Error("DB migration failed", "err", err)
			os.Exit(1)
		}
	}

	ts := notifications.NewTelegramService(db, cfg)
	ds := notifications.NewDigestService(db, ts.Sender(), ts.Resolver())

	jobRegistry := cronmanager.JobRegistry{
		"daily_digest": cronmanager.Job{
			Func:     ds.SendDailyDigest,
			Schedule: cfg.DigestSchedule,
		},
	}
	cm := cronmanager.NewCronManager(jobRegistry)
	if err := cm.LoadJobs(); err != nil {
		slog.Error("Load cron jobs", "err", err)
		os.Exit(1)
	}
	cm.Start()
	slog.Info("Daily digest scheduler started", "schedule", cfg.DigestSchedule)

	var updates chan tgbotapi.Update
	if cfg.WebURL != nil {
		whURL := cfg.WebURL.JoinPath(familyplan.WebhookPath).String()
		updates, err = ts.StartWebhook(whURL, cfg.WebhookSecret)
		if err != nil {
			slog.Error("Set webhook", "err", err)
			os.Exit(1)
		}
	} else {
		ts.StartLongPolling()
		slog.Info("Long polling started")
	}

	e := familyplan.Server(db, cfg, updates)
	go func() {
		if err := e.Start(cfg.BindAddress); err != nil {
			slog.Info("HTTP server stopped", "err", err)
		}
	}()
	slog.Info("HTTP server started", "bind", cfg.BindAddress)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")

	cm.Stop()
	ts.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown", "err", err)
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("Close DB pool", "err", err)
	}
}

// PrintBanner выводит заголовок приложения с версией и ссылкой на сайт.
func PrintBanner() {
	banner := `
  ______               _ _       _____  _
 |  ____|             (_) |     |  __ \| |
 | |__ __ _ _ __ ___  _| |_   _ | |__) | | __ _ _ __
 |  __/ _  | '_   _ \| | | | | ||  ___/| |/ _  | '_ \
 | | | (_| | | | | | | | | |_| || |    | | (_| | | | |
 |_|  \__,_|_| |_| |_|_|_|\__, ||_|    |_|\__,_|_| |_| %s
                           __/ |
                          |___/
Family tasks & shopping Telegram bot
%s
----------------------------------------------------
`
	colorReset := "\033[0m"

	colorYellow := "\033[33m"
	colorBlue := "\033[34m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion, colorBlue+"https://aisa.ru"+colorReset)
}
