package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"deadlinebot/internal/config"
	"deadlinebot/internal/conversation"
	"deadlinebot/internal/deadline"
	"deadlinebot/internal/handlers"
	"deadlinebot/internal/logging"
	"deadlinebot/internal/repository"
	"deadlinebot/internal/scheduler"
	"deadlinebot/internal/service"
	"deadlinebot/internal/status"
	"deadlinebot/internal/timezone"
)

const pollTimeout = 60

func main() {
	rootCmd := &cobra.Command{
		Use:           "deadlinebot",
		Short:         "Telegram bot for deadlines with points and overdue reminders",
		RunE:          runServe, // default action is serve
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the deadline checks",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		RunE:  runMigrate,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	if !envLoaded {
		log.Warn("⚠️  .env file not found, using system environment variables")
	}
	return cfg, log, nil
}

// openRepository connects to the database and creates the schema.
func openRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sql.DB, *repository.Repository, error) {
	dialect, err := repository.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, nil, err
	}

	openCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
	defer cancel()
	db, err := repository.Open(openCtx, dialect, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection error: %w", err)
	}
	log.Info("✅ Connected to database", "driver", dialect)

	repo := repository.NewRepository(db, dialect, cfg.DBTimeout)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repo, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	db, _, err := openRepository(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("✅ Schema is up to date")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, repo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	resolver := timezone.NewResolver(timezone.SystemClock{}, cfg.DefaultTimezone)
	svc := service.NewService(repo, resolver, log)
	engine := conversation.NewEngine(svc, conversation.NewSessions(), log)

	// Long polling holds a request open for pollTimeout seconds.
	httpClient := &http.Client{Timeout: (pollTimeout + 15) * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return fmt.Errorf("bot initialization error: %w", err)
	}
	bot.Debug = cfg.BotDebug
	log.Info("✅ Bot authorized", "username", "@"+bot.Self.UserName)

	handler := handlers.NewBotHandler(bot, bot.Self.UserName, svc, engine, cfg.ImagesDir, log)
	sched := scheduler.New(
		repo,
		handlers.NewNotifier(bot),
		deadline.NewEvaluator(resolver, cfg.RenotifyInterval),
		scheduler.Options{Interval: cfg.CheckInterval, FirstDelay: cfg.CheckFirstDelay},
		log,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return receiveUpdates(ctx, bot, handler, log)
	})
	g.Go(func() error {
		return sched.Run(ctx)
	})
	if cfg.StatusAddr != "" {
		statusServer := status.NewServer(repo, sched, log)
		g.Go(func() error {
			return statusServer.Run(ctx, cfg.StatusAddr)
		})
	}

	log.Info("🚀 Bot is running...")
	err = g.Wait()
	log.Info("👋 Bot stopped")
	return err
}

// receiveUpdates dispatches each update on its own goroutine; the session
// store serializes messages of the same user.
func receiveUpdates(ctx context.Context, bot *tgbotapi.BotAPI, handler *handlers.BotHandler, log *slog.Logger) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	u.AllowedUpdates = []string{"message"}

	updates := bot.GetUpdatesChan(u)
	var inflight errgroup.Group
	defer inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			inflight.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						log.Error("update handler panicked", "update_id", update.UpdateID, "panic", fmt.Sprint(r))
					}
				}()
				handler.HandleUpdate(ctx, update)
				return nil
			})
		}
	}
}
