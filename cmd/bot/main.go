package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tutorado/internal/bot"
	"tutorado/internal/cache"
	"tutorado/internal/config"
	"tutorado/internal/dashboard"
	"tutorado/internal/database"
	"tutorado/internal/gateway"
	"tutorado/internal/handlers"
	"tutorado/internal/session"
	"tutorado/internal/store"
	"tutorado/internal/store/memstore"
	"tutorado/internal/store/rest"
	"tutorado/pkg/logger"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	zapLogger, err := logger.New(&cfg.Log, logger.DefaultServiceName)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)

	for _, d := range cfg.Diagnostics() {
		zap.L().Warn("configuration", zap.String("diagnostic", d))
	}

	if cfg.BotToken == "" {
		zap.L().Fatal("BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := bot.NewAPI(cfg.BotToken, cfg.BotAPIEndpoint)
	if err != nil {
		zap.L().Fatal("Failed to create bot", zap.Error(err))
	}

	b, cleanup, err := setup(ctx, cfg, api, zapLogger)
	if err != nil {
		zap.L().Fatal("Failed to start dashboard", zap.Error(err))
	}
	defer cleanup()

	zap.L().Info("Bot started successfully", zap.String("username", api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		zap.L().Info("Shutting down")
		api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message != nil {
			if !update.Message.Chat.IsPrivate() {
				continue
			}
			if update.Message.IsCommand() {
				switch update.Message.Command() {
				case "start", "menu":
					handlers.HandleStart(ctx, b, update.Message)
				case "logout":
					handlers.HandleLogout(ctx, b, update.Message)
				case "cancel":
					handlers.HandleCancel(ctx, b, update.Message)
				default:
					b.SendMessage(update.Message.Chat.ID,
						"Comando inválido. Use /start.", nil)
				}
			} else {
				handlers.HandleMessage(ctx, b, update.Message)
			}
		} else if update.CallbackQuery != nil {
			handlers.HandleCallbackQuery(ctx, b, update.CallbackQuery)
		}
	}
}

// setup wires the store, the dashboard service and the session registry
// behind a bot on api. Load failures are logged and the bot comes up with
// whatever loaded; with no users it offers the emergency login. cleanup
// drains pending writes and closes the database.
func setup(ctx context.Context, cfg config.Config, api bot.API, log *zap.Logger) (*bot.Bot, func(), error) {
	backend, db := openBackend(ctx, cfg)

	gw := gateway.New(backend, log, gateway.Options{
		UserAgent:        "tutorado-bot/" + version,
		AccessLogTimeout: cfg.RequestTimeout,
	})
	svc := dashboard.New(gw, cache.New(), log, dashboard.Options{LoadTimeout: cfg.LoadTimeout})
	cleanup := func() {
		svc.Close()
		if db != nil {
			_ = db.Close()
		}
	}

	outcome, err := svc.Start(ctx)
	if errors.Is(err, dashboard.ErrAlreadyStarted) {
		cleanup()
		return nil, nil, err
	}
	if err != nil {
		log.Warn("Initial load incomplete, continuing with what loaded", zap.Error(err))
	}
	log.Info("Initial load finished", zap.Stringer("outcome", outcome))

	sessions := session.NewRegistry(sessionStores(ctx, cfg), svc, log)
	return bot.New(api, svc, sessions, log, cfg.Diagnostics()), cleanup, nil
}

// openBackend picks the record store for cfg.StoreDriver. A store that
// cannot be reached degrades to offline mode instead of stopping the bot.
func openBackend(ctx context.Context, cfg config.Config) (store.Backend, *database.DB) {
	switch cfg.StoreDriver {
	case config.DriverREST:
		if cfg.StoreURL == "" || cfg.StoreKey == "" {
			return store.Offline{}, nil
		}
		return rest.New(cfg.REST(), zap.L()), nil

	case config.DriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()

		db, err := database.New(connectCtx, cfg.DB, zap.L())
		if err != nil {
			zap.L().Error("Failed to connect to database", zap.Error(err))
			return store.Offline{}, nil
		}
		zap.L().Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			zap.L().Error("Failed to run migrations", zap.Error(err))
			_ = db.Close()
			return store.Offline{}, nil
		}
		return db, db

	case config.DriverMemory:
		m := memstore.New()
		m.Seed(time.Now())
		return m, nil
	}
	return store.Offline{}, nil
}

// sessionStores returns the per-chat session persistence for
// cfg.SessionBackend. An unreachable redis falls back to memory.
func sessionStores(ctx context.Context, cfg config.Config) session.StoreFactory {
	switch cfg.SessionBackend {
	case config.SessionRedis:
		if cfg.RedisAddr == "" {
			break
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			zap.L().Error("Failed to connect to redis, sessions kept in memory", zap.Error(err))
			_ = client.Close()
			break
		}
		return func(key string) session.Store { return session.NewRedisStore(client, key) }

	case config.SessionFile:
		return func(key string) session.Store { return session.NewFileStore(cfg.SessionDir, key) }
	}
	return func(string) session.Store { return session.NewMemoryStore() }
}
