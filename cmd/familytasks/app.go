package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"family-tasks/internal/bot"
	"family-tasks/internal/config"
	"family-tasks/internal/httpapi"
	"family-tasks/internal/logging"
	"family-tasks/internal/metrics"
	"family-tasks/internal/repository"
	"family-tasks/internal/service"
)

const (
	jobTimeout      = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// app holds everything built from the configuration.
type app struct {
	cfg     config.Config
	loc     *time.Location
	log     *zap.Logger
	db      *gorm.DB
	metrics *metrics.Metrics

	family    *service.FamilyService
	tasks     *service.TaskService
	sprints   *service.SprintService
	telegram  *service.TelegramService
	reminders *service.ReminderService
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.File)

	db, err := repository.NewDB(cfg.Database.DSN, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("db: %w", err)
	}

	clock := func() time.Time { return time.Now().In(loc) }
	m := metrics.New()

	parents := repository.NewParentRepository(db)
	children := repository.NewChildRepository(db)
	tasks := repository.NewTaskRepository(db)
	sprints := repository.NewSprintRepository(db)
	links := repository.NewTelegramRepository(db)

	a := &app{
		cfg:     cfg,
		loc:     loc,
		log:     log,
		db:      db,
		metrics: m,
	}
	a.telegram = service.NewTelegramService(links, parents, log)
	a.family = service.NewFamilyService(parents, children, tasks, sprints, a.telegram, log)
	a.tasks = service.NewTaskService(tasks, children, sprints, log, m).WithClock(clock)
	a.sprints = service.NewSprintService(sprints, children, log).WithClock(clock)
	a.reminders = service.NewReminderService(children, a.tasks, a.sprints)
	return a, nil
}

func (a *app) now() time.Time {
	return time.Now().In(a.loc)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) newBot() (*bot.Bot, error) {
	b, err := bot.New(a.cfg.Telegram.Token, bot.Services{
		Family:    a.family,
		Tasks:     a.tasks,
		Telegram:  a.telegram,
		Reminders: a.reminders,
	}, a.metrics, a.log)
	if err != nil {
		return nil, err
	}
	return b.WithClock(a.now), nil
}

// scheduleReminders registers the daily and periodic bot jobs.
func (a *app) scheduleReminders(b *bot.Bot) (*service.SchedulerService, error) {
	scheduler := service.NewSchedulerService(a.loc, a.log)
	r := a.cfg.Reminders

	if _, err := scheduler.ScheduleDaily(r.Morning, scheduler.Job(bot.KindMorning, jobTimeout, b.SendMorningReminders)); err != nil {
		return nil, fmt.Errorf("schedule morning reminders: %w", err)
	}
	if _, err := scheduler.ScheduleDaily(r.Evening, scheduler.Job(bot.KindEvening, jobTimeout, b.SendEveningSummaries)); err != nil {
		return nil, fmt.Errorf("schedule evening summaries: %w", err)
	}
	if _, err := scheduler.ScheduleDaily(r.Evening, scheduler.Job(bot.KindSprint, jobTimeout, b.SendSprintNotices)); err != nil {
		return nil, fmt.Errorf("schedule sprint notices: %w", err)
	}
	if interval := r.ReportInterval(); interval > 0 {
		if _, err := scheduler.ScheduleInterval(interval, scheduler.Job(bot.KindInterval, jobTimeout, b.SendIntervalReports)); err != nil {
			return nil, fmt.Errorf("schedule interval reports: %w", err)
		}
	}
	a.log.Info("reminders scheduled",
		zap.String("morning", r.Morning),
		zap.String("evening", r.Evening),
		zap.Duration("interval", r.ReportInterval()),
		zap.Int("jobs", scheduler.Entries()))
	return scheduler, nil
}

// runBotLoop polls Telegram with reminders scheduled until ctx is done.
func (a *app) runBotLoop(ctx context.Context) error {
	b, err := a.newBot()
	if err != nil {
		return err
	}
	scheduler, err := a.scheduleReminders(b)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped with error: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	server, err := httpapi.NewServer(httpapi.Services{
		Family:   a.family,
		Tasks:    a.tasks,
		Sprints:  a.sprints,
		Telegram: a.telegram,
	}, a.metrics, a.log)
	if err != nil {
		return err
	}
	server.WithClock(a.now)

	errs := make(chan error, 2)
	go func() {
		errs <- server.Start(a.cfg.HTTP.Addr)
	}()
	if a.cfg.BotEnabled() {
		go func() {
			errs <- a.runBotLoop(ctx)
		}()
	} else {
		a.log.Info("telegram token not set, bot disabled")
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
		if runErr != nil {
			a.log.Error("component stopped", zap.Error(runErr))
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
	}
	a.log.Info("shutdown complete")
	return runErr
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.BotEnabled() {
		return errors.New("telegram.token is required (set FAMILY_TELEGRAM_TOKEN)")
	}
	a.log.Info("family tasks bot started")
	if err := a.runBotLoop(ctx); err != nil {
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	a.log.Info("database schema is up to date", zap.String("dsn", redactDSN(a.cfg.Database.DSN)))
	return nil
}

// redactDSN hides the password of URL-style DSNs before they are logged.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
