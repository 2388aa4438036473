// main.go — точка входа SIR (сервис загрузки и нарезки изображений).
// Инициализирует конфигурацию, PostgreSQL, кэш сессий, конвейер загрузки,
// журнал доступа, фоновые задачи и HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/sirfiles/internal/accesslog"
	apierrors "github.com/bigkaa/sirfiles/internal/api/errors"
	"github.com/bigkaa/sirfiles/internal/api/handlers"
	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/config"
	"github.com/bigkaa/sirfiles/internal/database"
	"github.com/bigkaa/sirfiles/internal/media"
	"github.com/bigkaa/sirfiles/internal/repository"
	"github.com/bigkaa/sirfiles/internal/server"
	"github.com/bigkaa/sirfiles/internal/service"
	"github.com/bigkaa/sirfiles/internal/storage/filestore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("SIR запускается",
		slog.String("version", config.Version),
		slog.String("tier", string(cfg.Tier)),
		slog.Int("port", cfg.Port),
		slog.String("files_root", cfg.FilesRoot),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Репозитории
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	logRepo := repository.NewLogRepository(pool)

	// 6. Кэш сессий: Redis, если задан адрес, иначе in-process LRU
	checkers := []handlers.ReadinessChecker{database.NewReadinessChecker(pool)}
	var cache auth.SessionCache
	if cfg.RedisAddr != "" {
		redisClient := auth.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
		cache = auth.NewRedisCache(redisClient, cfg.SessionCacheTTL, logger)
		checkers = append(checkers, auth.NewRedisReadinessChecker(redisClient))
		logger.Info("Кэш сессий: Redis", slog.String("addr", cfg.RedisAddr))
	} else {
		cache = auth.NewLRUCache(cfg.SessionCacheSize, cfg.SessionCacheTTL)
		logger.Info("Кэш сессий: in-process LRU",
			slog.Int("size", cfg.SessionCacheSize),
			slog.String("ttl", cfg.SessionCacheTTL.String()),
		)
	}

	// 7. Токены, пароли и шлюз аутентификации
	tokens := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	hasher := auth.NewBcryptHasher(0)
	gate := auth.NewGate(tokens, sessionRepo, userRepo, cache, logger)

	// 8. Файловое хранилище и конвейер загрузки
	store, err := filestore.New(cfg.UploadsDir())
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	intake := media.NewIntake(store, cfg.MaxDerivatives, logger)
	engine := media.NewEngine(store, cfg.DerivativeTimeout, logger)
	quota := service.NewQuotaAccountant(userRepo, cache, logger)

	// 9. Сервисы
	accountSvc := service.NewAccountService(userRepo, sessionRepo, tokens, hasher, cache, logger)
	userSvc := service.NewUserService(userRepo, cache, logger)
	uploadSvc := service.NewUploadService(intake, engine, quota, store, logger)
	logSvc := service.NewLogService(logRepo, logger)

	// 10. Журнал доступа (файл + PostgreSQL)
	recorder := accesslog.NewRecorder(logRepo, accesslog.NewFileWriter(cfg.LogsDir()), cfg.AccessLogQueue, logger)
	recorder.Start(ctx)

	// 11. Фоновая очистка сессий и старых загрузок
	sweeper := service.NewSweeper(sessionRepo, store, cfg.SweepInterval, cfg.UploadRetention, logger)
	sweeper.Start(ctx)

	// 12. topologymetrics — мониторинг PostgreSQL
	monitor, monitorErr := service.NewDependencyMonitor(service.MonitorConfig{
		ServiceID:   "sir-server",
		Group:       cfg.DephealthGroup,
		DB:          pgDB,
		DatabaseURL: cfg.DatabaseURL(),
		Interval:    cfg.DephealthCheckInterval,
	}, logger)
	if monitorErr == nil {
		monitorErr = monitor.Start(ctx)
	}
	if monitorErr != nil {
		logger.Warn("Мониторинг зависимостей отключён",
			slog.String("error", monitorErr.Error()),
		)
		monitor = nil
	} else {
		logger.Info("Мониторинг зависимостей запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. HTTP-обработчики
	sink := apierrors.NewSink(logger)
	healthHandler := handlers.NewHealthHandler(checkers...)
	apiHandler := handlers.NewAPIHandler(accountSvc, userSvc, uploadSvc, logSvc, healthHandler, sink, logger)

	// 14. Создание и запуск HTTP-сервера (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, server.Deps{
		Handler:  apiHandler,
		Gate:     gate,
		Recorder: recorder,
		Sink:     sink,
	})
	runErr := srv.Run()
	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
	}

	// 15. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if monitor != nil {
		monitor.Stop()
	}
	sweeper.Stop()
	recorder.Stop()

	if runErr != nil {
		os.Exit(1)
	}
	logger.Info("SIR остановлен")
}
