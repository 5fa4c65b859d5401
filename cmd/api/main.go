package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payzen/internal/config"
	"github.com/Dan9191/payzen/internal/database"
	"github.com/Dan9191/payzen/internal/handler"
	"github.com/Dan9191/payzen/internal/middleware"
	"github.com/Dan9191/payzen/internal/notification"
	"github.com/Dan9191/payzen/internal/repository"
	"github.com/Dan9191/payzen/internal/scheduler"
	"github.com/Dan9191/payzen/internal/service"
)

const usage = `usage:
  api                      run the HTTP server and the reminder scheduler
  api migrate up           apply pending migrations
  api migrate down [n]     roll back n migrations (default 1)
  api migrate status       print the schema version
  api user create <email> <username> [--admin]
                           register an account
  api token <user-id>      print a 24h bearer token for a user`

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	args := os.Args[1:]
	if len(args) == 0 {
		if err := serve(cfg, logger); err != nil {
			logger.Fatalf("Server failed: %v", err)
		}
		return
	}

	switch args[0] {
	case "migrate":
		err = runMigrate(cfg, logger, args[1:])
	case "user":
		err = runUser(cfg, logger, args[1:])
	case "token":
		err = printToken(cfg, args[1:])
	default:
		err = fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	if err != nil {
		logger.Fatal(err)
	}
}

func runMigrate(cfg *config.Config, logger *logrus.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "up":
		return database.MigrateUp(cfg.DBConn, logger)
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step count %q: %w", args[1], err)
			}
			steps = n
		}
		return database.MigrateDown(cfg.DBConn, steps, logger)
	case "status":
		return database.MigrateStatus(cfg.DBConn, logger)
	default:
		return fmt.Errorf("unknown migrate command %q\n%s", args[0], usage)
	}
}

func runUser(cfg *config.Config, logger *logrus.Logger, args []string) error {
	if len(args) < 3 || len(args) > 4 || args[0] != "create" {
		return errors.New(usage)
	}
	isAdmin := false
	if len(args) == 4 {
		if args[3] != "--admin" {
			return fmt.Errorf("unknown flag %q\n%s", args[3], usage)
		}
		isAdmin = true
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DBConn, database.ConnectOptions{
		MaxAttempts: cfg.DBConnectAttempts,
		MaxWait:     cfg.DBConnectMaxWait,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	admins := service.NewAdminService(repository.NewStore(db), logger, cfg.Location(), cfg.ReminderWindowDays)
	user, err := admins.CreateUser(ctx, args[1], args[2], isAdmin)
	if err != nil {
		return err
	}
	fmt.Println(user.ID)
	return nil
}

func printToken(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New(usage)
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", args[0], err)
	}
	token, err := middleware.IssueToken(cfg.JWTSecret, userID, 24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func serve(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(ctx, cfg.DBConn, database.ConnectOptions{
		MaxAttempts: cfg.DBConnectAttempts,
		MaxWait:     cfg.DBConnectMaxWait,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.MigrateUp(cfg.DBConn, logger); err != nil {
		return err
	}

	// Notifications
	var sender notification.Sender
	if cfg.SMTPConfigured() {
		sender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.SenderEmail,
			FromName:  cfg.SenderName,
		}, logger)
	} else {
		logger.Warn("SMTP_HOST not set, notifications will only be logged")
		sender = notification.NewLogSender(logger)
	}
	renderer := &notification.Renderer{AppName: cfg.SenderName, AppURL: cfg.AppURL}

	dispatcher := notification.NewDispatcher(sender, renderer, logger, notification.DispatcherOptions{
		QueueSize:   cfg.NotifyQueueSize,
		Workers:     cfg.NotifyWorkers,
		SendTimeout: cfg.NotifyTimeout,
	})
	stopDispatcher := dispatcher.Start(ctx)

	// Initialize layers
	store := repository.NewStore(db)
	ledger := service.NewLedger(store, dispatcher, logger, cfg.LowBalanceThreshold)
	bills := service.NewBillService(store, ledger, dispatcher, logger, cfg.Location())
	rewards := service.NewRewardService(store, logger)
	admins := service.NewAdminService(store, logger, cfg.Location(), cfg.ReminderWindowDays)

	reminders := scheduler.NewReminderScheduler(bills, sender, renderer, logger, scheduler.Options{
		Hour:        cfg.ReminderHour,
		WindowDays:  cfg.ReminderWindowDays,
		SendTimeout: cfg.NotifyTimeout,
		Location:    cfg.Location(),
	})
	stopReminders, err := reminders.Start(ctx)
	if err != nil {
		stopDispatcher()
		return err
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	h := handler.NewHandler(bills, ledger, rewards, admins, reminders, db.PingContext, logger)
	h.Register(r, middleware.AuthMiddleware(cfg.JWTSecret, logger))

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err = <-serverErr:
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Errorf("Server shutdown failed: %v", shutdownErr)
	}

	stopReminders()
	stopDispatcher()
	logger.Info("Server stopped")
	return err
}
