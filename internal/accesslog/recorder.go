package accesslog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/repository"
)

// Prometheus метрики журнала доступа
var (
	// droppedTotal — записи, не попавшие в очередь сохранения.
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sir_accesslog_dropped_total",
		Help: "Общее количество записей журнала доступа, отброшенных из-за переполнения очереди",
	})

	// persistErrorsTotal — ошибки сохранения записей в БД.
	persistErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sir_accesslog_persist_errors_total",
		Help: "Общее количество ошибок сохранения записей журнала доступа",
	})
)

// drainTimeout — время на сохранение оставшихся записей при остановке.
const drainTimeout = 5 * time.Second

// Recorder записывает каждую завершённую операцию: строку в файл сразу,
// структурированную запись в БД через ограниченную очередь.
type Recorder struct {
	store  repository.LogStore
	file   *FileWriter
	queue  chan *model.AccessLogEntry
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRecorder создаёт Recorder. file может быть nil.
func NewRecorder(store repository.LogStore, file *FileWriter, queueSize int, logger *slog.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Recorder{
		store:  store,
		file:   file,
		queue:  make(chan *model.AccessLogEntry, queueSize),
		logger: logger.With(slog.String("component", "access_log")),
	}
}

// Record фиксирует запись. Не блокирует: при переполнении очереди
// запись в БД отбрасывается, строка в файле остаётся.
func (r *Recorder) Record(e *model.AccessLogEntry) {
	if e.Tag == "" {
		e.Tag = model.TagForStatus(e.StatusCode)
	}

	if r.file != nil {
		if err := r.file.Write(FromEntry(e)); err != nil {
			r.logger.Error("Ошибка записи строки журнала", slog.String("error", err.Error()))
		}
	}

	select {
	case r.queue <- e:
	default:
		droppedTotal.Inc()
		r.logger.Warn("Очередь журнала доступа переполнена, запись отброшена",
			slog.String("route", e.Route),
			slog.Int("status", e.StatusCode),
		)
	}
}

// Start запускает фоновую горутину сохранения записей.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.run(ctx)
	r.logger.Info("Журнал доступа запущен", slog.Int("queue", cap(r.queue)))
}

// Stop останавливает горутину, сохраняя записи, уже находящиеся в очереди.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			r.logger.Warn("Ошибка закрытия файла журнала", slog.String("error", err.Error()))
		}
	}
	r.logger.Info("Журнал доступа остановлен")
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case e := <-r.queue:
			// Отмена не прерывает уже извлечённую запись.
			r.persist(context.WithoutCancel(ctx), e)
		}
	}
}

// drain сохраняет оставшиеся записи после отмены основного контекста.
func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case e := <-r.queue:
			r.persist(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) persist(ctx context.Context, e *model.AccessLogEntry) {
	if err := r.store.Create(ctx, e); err != nil {
		persistErrorsTotal.Inc()
		r.logger.Error("Ошибка сохранения записи журнала",
			slog.String("route", e.Route),
			slog.String("error", err.Error()),
		)
	}
}
