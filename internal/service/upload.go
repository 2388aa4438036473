// upload.go — конвейер загрузки: приём файла, построение производных,
// учёт квоты. При сбое учёта созданные файлы удаляются.
package service

import (
	"context"
	"log/slog"
	"mime/multipart"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/media"
	"github.com/bigkaa/sirfiles/internal/storage/filestore"
)

// uploadsTotal — загрузки по результату (ok или имя ошибки каталога).
var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sir_uploads_total",
	Help: "Общее количество запросов загрузки по результату",
}, []string{"result"})

// Receiver — приём multipart-загрузки.
type Receiver interface {
	Receive(ctx context.Context, mr *multipart.Reader) (*model.UploadRequest, error)
}

// Processor — построение производных изображений.
type Processor interface {
	Process(ctx context.Context, sourcePath string, specs []model.SizeSpec) ([]model.DerivativeResult, error)
}

// Accountant — учёт квоты.
type Accountant interface {
	Increment(ctx context.Context, userID string) error
}

// UploadResult — результат загрузки для упаковки в ответ.
type UploadResult struct {
	// DisplayName — имя файла, переданное клиентом
	DisplayName string
	// Results — производные в порядке запроса
	Results []model.DerivativeResult
}

// UploadService — сервис загрузки медиа.
type UploadService struct {
	intake Receiver
	engine Processor
	quota  Accountant
	store  *filestore.FileStore
	logger *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
func NewUploadService(
	intake Receiver,
	engine Processor,
	quota Accountant,
	store *filestore.FileStore,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		intake: intake,
		engine: engine,
		quota:  quota,
		store:  store,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Upload выполняет конвейер для пользователя p.
// Квота учитывается только после построения всех производных.
func (s *UploadService) Upload(ctx context.Context, p *auth.Principal, mr *multipart.Reader) (*UploadResult, error) {
	res, err := s.upload(ctx, p, mr)
	if err != nil {
		uploadsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	uploadsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (s *UploadService) upload(ctx context.Context, p *auth.Principal, mr *multipart.Reader) (*UploadResult, error) {
	req, err := s.intake.Receive(ctx, mr)
	if err != nil {
		return nil, err
	}

	results, err := s.engine.Process(ctx, req.SourcePath, req.Sizes)
	if err != nil {
		s.discard(req.SourcePath)
		return nil, err
	}

	if err := s.quota.Increment(ctx, p.User.ID); err != nil {
		paths := make([]string, 0, len(results)+1)
		for _, r := range results {
			paths = append(paths, r.OutputPath)
		}
		s.discard(append(paths, req.SourcePath)...)
		return nil, err
	}

	s.logger.Info("Загрузка обработана",
		slog.String("user_id", p.User.ID),
		slog.String("source", req.SourcePath),
		slog.Int64("size", req.SizeBytes),
		slog.Int("derivatives", len(results)),
	)

	return &UploadResult{DisplayName: req.DisplayName, Results: results}, nil
}

// resultLabel возвращает имя ошибки каталога для метрики.
func resultLabel(err error) string {
	if ae := apperror.From(err); ae != nil {
		return ae.Name
	}
	return apperror.UnknownError.Name
}

// discard удаляет файлы прерванной загрузки.
func (s *UploadService) discard(paths ...string) {
	if err := s.store.Remove(paths...); err != nil {
		s.logger.Error("Не удалось удалить файлы прерванной загрузки",
			slog.String("error", err.Error()),
		)
	}
}

// Compile-time проверки реализаций.
var (
	_ Receiver   = (*media.Intake)(nil)
	_ Processor  = (*media.Engine)(nil)
	_ Accountant = (*QuotaAccountant)(nil)
)
