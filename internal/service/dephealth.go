// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Archive engine мониторит (только настроенные зависимости):
//   - JWKS endpoint провайдера токенов (HTTP GET, critical)
//   - PostgreSQL каталога резервных копий — SQL checker через существующий
//     pgxpool (connection pool mode, non-critical: каталог best effort)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// Имена зависимостей в метриках.
const (
	DepJWKS     = "jwks"
	DepPostgres = "postgresql"
)

// ErrNoDependencies — не настроено ни одной зависимости для мониторинга.
var ErrNoDependencies = errors.New("нет зависимостей для мониторинга")

// DephealthParams — параметры мониторинга зависимостей.
type DephealthParams struct {
	// ServiceID — имя вершины графа текущего приложения (DA_SERVICE_ID)
	ServiceID string
	// Group — имя группы в метриках (DA_DEPHEALTH_GROUP)
	Group string
	// JWKSURL — URL JWKS; пустой не мониторится
	JWKSURL string
	// TLSSkipVerify — не проверять сертификат JWKS (DA_TLS_SKIP_VERIFY)
	TLSSkipVerify bool
	// DB — *sql.DB из pgxpool через stdlib.OpenDBFromPool(); nil не мониторится
	DB *sql.DB
	// PGConnURL — URL PostgreSQL (для лейблов, не для подключения)
	PGConnURL string
	// CheckInterval — интервал проверки (DA_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(p DephealthParams, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(p, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	p DephealthParams,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(p, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(p DephealthParams, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	opts := []dephealth.Option{dephealth.WithLogger(logger)}

	if p.JWKSURL != "" {
		opts = append(opts, dephealth.HTTP(DepJWKS,
			dephealth.FromURL(p.JWKSURL),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(true),
			dephealth.WithHTTPTLSSkipVerify(p.TLSSkipVerify),
		))
	}
	if p.DB != nil {
		opts = append(opts, dephealth.AddDependency(DepPostgres, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(p.DB)),
			dephealth.FromURL(p.PGConnURL),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(false),
		))
	}
	if len(opts) == 1 {
		return nil, ErrNoDependencies
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(p.ServiceID, p.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ: имя зависимости, значение true, если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
