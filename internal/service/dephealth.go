package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// MonitorConfig — параметры мониторинга зависимостей сервера.
type MonitorConfig struct {
	// ServiceID — вершина графа зависимостей, соответствующая серверу
	ServiceID string
	// Group — значение лейбла group в метриках app_dependency_*
	Group string
	// DB — database/sql-обёртка над пулом pgx
	DB *sql.DB
	// DatabaseURL — адрес PostgreSQL без учётных данных, только для лейблов
	DatabaseURL string
	// Interval — период проверки
	Interval time.Duration
	// Registerer — реестр метрик; nil означает глобальный
	Registerer prometheus.Registerer
}

// DependencyMonitor публикует состояние PostgreSQL в метриках app_dependency_*.
// Кэш в Redis не отслеживается: его отказ превращается в промахи кэша.
type DependencyMonitor struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDependencyMonitor регистрирует проверку PostgreSQL как критичную зависимость.
func NewDependencyMonitor(cfg MonitorConfig, logger *slog.Logger) (*DependencyMonitor, error) {
	if cfg.DB == nil {
		return nil, errors.New("не задано подключение к PostgreSQL")
	}

	logger = logger.With(slog.String("component", "dependency_monitor"))
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.DatabaseURL),
			dephealth.CheckInterval(cfg.Interval),
			dephealth.Critical(true),
		),
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}
	return &DependencyMonitor{dh: dh, logger: logger}, nil
}

// Start запускает периодические проверки до Stop.
func (m *DependencyMonitor) Start(ctx context.Context) error {
	if err := m.dh.Start(ctx); err != nil {
		return err
	}
	m.logger.Debug("Проверки зависимостей запущены")
	return nil
}

func (m *DependencyMonitor) Stop() {
	m.dh.Stop()
	m.logger.Debug("Проверки зависимостей остановлены")
}
