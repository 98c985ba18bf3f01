package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmermels/momentum-spark-app/internal/api"
	"github.com/danmermels/momentum-spark-app/internal/bot"
	"github.com/danmermels/momentum-spark-app/internal/config"
	"github.com/danmermels/momentum-spark-app/internal/model"
	"github.com/danmermels/momentum-spark-app/internal/motivation"
	"github.com/danmermels/momentum-spark-app/internal/repository"
	"github.com/danmermels/momentum-spark-app/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer func() {
		if err := repository.Close(db); err != nil {
			log.Printf("[warn] close db: %v", err)
		}
	}()
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db handle: %v", err)
	}

	defaults := model.DefaultAppSettings()
	defaults.UserName = cfg.UserName

	taskRepo := repository.NewTaskRepository(db)
	settingsRepo := repository.NewSettingsRepository(db, defaults)

	if n, err := taskRepo.Count(ctx); err != nil {
		log.Printf("[warn] count tasks: %v", err)
	} else {
		log.Printf("[info] %d tasks stored", n)
	}

	reminderSvc := service.NewReminderService(taskRepo, settingsRepo, motivation.NewTemplateGenerator(), service.LogNotifier{}, time.Local)
	taskSvc := service.NewTaskService(taskRepo, reminderSvc, time.Local)
	defer reminderSvc.Wait()

	scheduler := service.NewSchedulerService(time.Local)
	if err := scheduler.RegisterJobs(service.Schedule{
		ResetSpec:        cfg.ResetSchedule,
		ReminderInterval: cfg.ReminderInterval,
		SummaryTime:      cfg.SummaryTime,
	}, taskSvc, reminderSvc); err != nil {
		log.Fatalf("schedule jobs: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Printf("[info] scheduler started with %d jobs", scheduler.Entries())

	if cfg.TelegramEnabled() {
		telegramBot, err := bot.New(cfg.TelegramToken, cfg.TelegramChatID, taskSvc, reminderSvc, settingsRepo)
		if err != nil {
			log.Fatalf("bot: %v", err)
		}
		if cfg.TelegramChatID != 0 {
			reminderSvc.SetNotifier(telegramBot)
		}
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[error] bot stopped: %v", err)
			}
		}()
	}

	handler := api.NewHandler(taskSvc, cfg.RequestTimeout).WithHealthCheck(sqlDB.PingContext)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] momentum spark listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Printf("[error] http server: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[warn] http shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
}
