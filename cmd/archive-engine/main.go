// Точка входа archive engine — in-memory архива документов
// со сжатием, классификацией, сроками хранения и backup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/docarchive/internal/api/handlers"
	"github.com/bigkaa/docarchive/internal/api/middleware"
	"github.com/bigkaa/docarchive/internal/config"
	"github.com/bigkaa/docarchive/internal/database"
	"github.com/bigkaa/docarchive/internal/repository"
	"github.com/bigkaa/docarchive/internal/server"
	"github.com/bigkaa/docarchive/internal/service"
	"github.com/bigkaa/docarchive/internal/storage/activity"
	"github.com/bigkaa/docarchive/internal/storage/archive"
	"github.com/bigkaa/docarchive/internal/storage/backupfile"
	"github.com/bigkaa/docarchive/internal/storage/codec"
	"github.com/bigkaa/docarchive/internal/storage/index"
	"github.com/bigkaa/docarchive/internal/storage/wal"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Archive engine запускается",
		slog.String("service_id", cfg.ServiceID),
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Bool("auth", cfg.AuthEnabled()),
		slog.Bool("database", cfg.DatabaseEnabled()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Инициализация компонентов ---

	// 1. Журнал активности, индекс, пул кодека, хранилище
	events, err := activity.New(cfg.ActivityLogSize)
	if err != nil {
		fatal(logger, "Ошибка инициализации журнала активности", err)
	}
	idx := index.New(logger)
	pool := codec.NewPool(cfg.CompressWorkers, cfg.CompressTimeout)
	store := archive.New(idx, events, pool, logger,
		archive.WithMaxArchives(cfg.MaxArchives),
		archive.WithMaxDocumentSize(cfg.MaxDocumentSize),
	)

	health := handlers.NewHealthHandler(cfg.ServiceID)
	var sinks []service.BackupSink

	// 2. Файловый приёмник backup с WAL
	if cfg.BackupDir != "" {
		journal, err := wal.New(cfg.WALDir, logger)
		if err != nil {
			fatal(logger, "Ошибка инициализации WAL", err)
		}
		files, err := backupfile.New(cfg.BackupDir, journal, logger)
		if err != nil {
			fatal(logger, "Ошибка инициализации каталога backup", err)
		}
		recovered, err := files.Recover()
		if err != nil {
			fatal(logger, "Ошибка восстановления WAL", err)
		}
		if recovered > 0 {
			logger.Warn("Незавершённые записи backup откачены", slog.Int("count", recovered))
		}
		sinks = append(sinks, files)
		health.AddCheck(handlers.NewWritableCheck("backup_dir", files.CheckWritable), true)
	}

	// 3. PostgreSQL-каталог backup
	var depParams service.DephealthParams
	if cfg.DatabaseEnabled() {
		pgPool, err := database.Connect(ctx, cfg.DatabaseDSN(), logger)
		if err != nil {
			fatal(logger, "Ошибка подключения к PostgreSQL", err)
		}
		defer pgPool.Close()

		if err := database.Migrate(cfg.MigrationURL(), logger); err != nil {
			fatal(logger, "Ошибка миграций", err)
		}

		sinks = append(sinks, repository.NewBackupCatalog(pgPool, repository.NewTxRunner(pgPool), logger))
		health.AddCheck(database.NewReadinessChecker(pgPool), false)

		sqlDB := database.SQLDB(pgPool)
		defer sqlDB.Close()
		depParams.DB = sqlDB
		depParams.PGConnURL = cfg.DatabaseDSN()
	}

	// 4. Сервисы
	searchSvc := service.NewSearchService(store, logger)
	backupSvc := service.NewBackupService(store, pool, logger, sinks...)

	retentionSvc := service.NewRetentionService(store, cfg.SweepInterval, logger)
	retentionSvc.Start(ctx)

	auditSvc := service.NewAuditService(store, cfg.AuditInterval, logger)
	auditSvc.Start(ctx)

	// 5. topologymetrics — мониторинг зависимостей
	depParams.ServiceID = dephealthName(cfg)
	depParams.Group = cfg.DephealthGroup
	depParams.JWKSURL = cfg.JWKSUrl
	depParams.TLSSkipVerify = cfg.TLSSkipVerify
	depParams.CheckInterval = cfg.DephealthCheckInterval

	dephealthSvc, err := service.NewDephealthService(depParams, logger)
	if err != nil {
		logger.Info("topologymetrics не запущен", slog.String("reason", err.Error()))
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	}

	// 6. JWT аутентификация
	var auth *middleware.JWTAuth
	if cfg.AuthEnabled() {
		auth, err = middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSUrl,
			CACertPath:      cfg.CACertPath,
			TLSSkipVerify:   cfg.TLSSkipVerify,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			JWTLeeway:       cfg.JWTLeeway,
		}, logger)
		if err != nil {
			fatal(logger, "Ошибка инициализации JWT", err)
		}
		logger.Info("JWT аутентификация настроена", slog.String("jwks_url", cfg.JWKSUrl))
	} else {
		logger.Warn("DA_JWKS_URL не задан, API работает без аутентификации")
	}

	// 7. HTTP-сервер
	srv := server.New(cfg, logger, server.Handlers{
		Archives:    handlers.NewArchivesHandler(store, searchSvc, cfg.MaxDocumentSize, logger),
		Maintenance: handlers.NewMaintenanceHandler(retentionSvc, auditSvc),
		Backups:     handlers.NewBackupsHandler(backupSvc),
		System:      handlers.NewSystemHandler(store),
		Health:      health,
	}, auth)

	runErr := srv.Run(ctx)

	// --- Остановка фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")
	cancel()
	retentionSvc.Stop()
	auditSvc.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Archive engine остановлен")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}
