// sweeper.go — фоновая очистка.
//
// Sweeper выполняет две задачи:
//  1. Удаляет неактивные и истёкшие сессии
//  2. Удаляет файлы загрузок старше срока хранения
//
// Запускается как горутина с периодическим тикером (SIR_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sirfiles/internal/repository"
)

// Prometheus метрики очистки
var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sir_sweep_runs_total",
		Help: "Общее количество запусков фоновой очистки",
	})

	sweepSessionsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sir_sweep_sessions_deleted_total",
		Help: "Общее количество удалённых просроченных сессий",
	})

	sweepFilesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sir_sweep_files_deleted_total",
		Help: "Общее количество удалённых устаревших файлов загрузок",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sir_sweep_duration_seconds",
		Help:    "Длительность фоновой очистки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// sweepTimeout — ограничение одного запуска на обращения к БД.
const sweepTimeout = time.Minute

// FileSweeper — удаление файлов старше отметки времени.
type FileSweeper interface {
	SweepOlderThan(cutoff time.Time) (int, error)
}

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// SessionsDeleted — удалённые сессии
	SessionsDeleted int64
	// FilesDeleted — удалённые файлы загрузок
	FilesDeleted int
	// Errors — количество фаз, завершившихся ошибкой
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// Sweeper — сервис фоновой очистки.
type Sweeper struct {
	sessions  repository.SessionStore
	files     FileSweeper
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper создаёт сервис очистки.
func NewSweeper(
	sessions repository.SessionStore,
	files FileSweeper,
	interval, retention time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		sessions:  sessions,
		files:     files,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "sweeper")),
	}
}

// Start запускает фоновую горутину с периодическим тикером.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Очистка запущена",
		slog.String("interval", s.interval.String()),
		slog.String("retention", s.retention.String()),
	)
}

// Stop останавливает фоновую горутину и дожидается её завершения.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Очистка остановлена")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	// Первый запуск — сразу после старта
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл очистки.
func (s *Sweeper) RunOnce(ctx context.Context) *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	now := s.now()
	result := &SweepResult{}

	dbCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	// Фаза 1: сессии
	n, err := s.sessions.DeleteStale(dbCtx, now)
	if err != nil {
		result.Errors++
		s.logger.Error("Ошибка удаления просроченных сессий", slog.String("error", err.Error()))
	}
	result.SessionsDeleted = n

	// Фаза 2: файлы
	files, err := s.files.SweepOlderThan(now.Add(-s.retention))
	if err != nil {
		result.Errors++
		s.logger.Error("Ошибка удаления устаревших файлов", slog.String("error", err.Error()))
	}
	result.FilesDeleted = files

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepSessionsDeletedTotal.Add(float64(result.SessionsDeleted))
	sweepFilesDeletedTotal.Add(float64(result.FilesDeleted))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	s.logger.Info("Очистка завершена",
		slog.Int64("sessions", result.SessionsDeleted),
		slog.Int("files", result.FilesDeleted),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}
