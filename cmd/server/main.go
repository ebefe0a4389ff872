package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ShaharFullStack/tdscorchedearth/internal/api"
	"github.com/ShaharFullStack/tdscorchedearth/internal/auth"
	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/config"
	"github.com/ShaharFullStack/tdscorchedearth/internal/eventbus"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/observability"
	"github.com/ShaharFullStack/tdscorchedearth/internal/session"
	"github.com/ShaharFullStack/tdscorchedearth/internal/storage"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
)

func main() {
	configPath := flag.String("config", "", "путь к config.yml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Logging.Dir != "" {
		logging.SetLogDir(cfg.Logging.Dir)
	}
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	level := logging.ParseLevel(cfg.Logging.Level)
	logging.Default().SetLevels(level, logging.DEBUG)
	logging.Loggers().SetConsoleLevel(level)
	defer func() {
		if err := logging.Loggers().CloseAll(); err != nil {
			log.Printf("⚠️ Ошибка закрытия логов: %v", err)
		}
	}()

	logging.Info("🎮 Запуск сервера Scorched Earth...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		logging.Warn("⚠️ Трассировка недоступна: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	profiles := storage.OpenWithFallback(ctx, storage.Options{
		Backend:    cfg.Storage.Backend,
		DataPath:   cfg.Storage.DataPath,
		SQLitePath: cfg.Storage.SQLitePath,
		MySQLDSN:   cfg.Storage.MySQLDSN,
		Redis: &storage.RedisConfig{
			Addr:      cfg.Storage.RedisAddr,
			Password:  cfg.Storage.RedisPassword,
			DB:        cfg.Storage.RedisDB,
			KeyPrefix: storage.DefaultRedisConfig().KeyPrefix,
			TTL:       cfg.Storage.RedisTTL(),
		},
		RedisCache: cfg.Storage.RedisCache,
	})
	defer func() {
		if err := storage.Close(profiles); err != nil {
			logging.Warn("⚠️ Ошибка закрытия хранилища: %v", err)
		}
	}()

	users := openUsers(ctx, cfg.Auth)
	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		logging.Error("❌ Неверный JWT секрет: %v", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		logging.Warn("⚠️ JWT_SECRET не задан, токены не переживут перезапуск")
	}
	authService := auth.NewService(users, issuer, logging.GetAPILogger())

	bus := openBus(cfg.EventBus)
	defer bus.Close()
	if _, err := eventbus.StartLoggingListener(ctx, bus, logging.GetServerLogger()); err != nil {
		logging.Warn("⚠️ Журнал событий недоступен: %v", err)
	}

	exporter, err := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	if err != nil {
		logging.Warn("⚠️ Метрики шины недоступны: %v", err)
	} else {
		exporter.Start()
		defer exporter.Stop()
	}

	sessions := session.NewManager(ctx, profiles, bus, session.Config{
		TickInterval: cfg.Game.TickInterval(),
		ActionBuffer: cfg.Game.ActionBuffer,
		IdleTimeout:  cfg.Game.IdleTimeout(),
		Difficulty:   combat.ParseDifficulty(cfg.Game.Difficulty),
		Quality:      terrain.ParseQuality(cfg.Game.Quality),
		Style:        terrain.ParseStyle(cfg.Game.Style),
		Mobile:       cfg.Game.Mobile,
	}, logging.GetSessionLogger())

	server := api.NewServer(api.Config{
		Addr:           cfg.Server.Addr(),
		Auth:           authService,
		Sessions:       sessions,
		Profiles:       profiles,
		Logger:         logging.GetAPILogger(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Tracing:        cfg.Telemetry.Endpoint != "",
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logging.Info("✅ Сервер готов")
	logging.Info("   🌐 REST API: http://%s/api/v1", cfg.Server.Addr())
	logging.Info("   🔌 Поток матча: ws://%s/ws/matches/{id}?token=...", cfg.Server.Addr())
	logging.Info("   ❤️  Health check: http://%s/health", cfg.Server.Addr())

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал, завершение работы...")
	case err := <-errCh:
		if err != nil {
			logging.Error("❌ REST API остановлен: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	sessions.Shutdown()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logging.Warn("⚠️ Ошибка остановки трассировки: %v", err)
	}
	if closer, ok := users.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logging.Warn("⚠️ Ошибка закрытия MongoDB: %v", err)
		}
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// openUsers MongoDB при заданном URI, иначе учётки живут в памяти
func openUsers(ctx context.Context, cfg config.AuthConfig) auth.UserRepository {
	if cfg.MongoURI == "" {
		logging.Info("👤 Учётные записи хранятся в памяти")
		return auth.NewMemoryUserRepo()
	}
	repo, err := auth.NewMongoUserRepo(ctx, auth.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		logging.Warn("⚠️ MongoDB недоступна, учётки в памяти: %v", err)
		return auth.NewMemoryUserRepo()
	}
	logging.Info("👤 Учётные записи: MongoDB %s", cfg.MongoDatabase)
	return repo
}

// openBus NATS JetStream при заданном URL, иначе шина в памяти
func openBus(cfg config.EventBusConfig) eventbus.EventBus {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(cfg.Buffer)
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, cfg.RetentionDuration())
	if err != nil {
		logging.Warn("⚠️ NATS недоступен, шина в памяти: %v", err)
		return eventbus.NewMemoryBus(cfg.Buffer)
	}
	logging.Info("📨 Шина событий: NATS %s, поток %s", cfg.URL, cfg.Stream)
	return bus
}
