// logs.go — запрос журнала доступа для аудита.
package service

import (
	"context"
	"log/slog"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/repository"
)

// LogService — сервис чтения журнала доступа.
type LogService struct {
	logs   repository.LogStore
	logger *slog.Logger
}

// NewLogService создаёт сервис журнала.
func NewLogService(logs repository.LogStore, logger *slog.Logger) *LogService {
	return &LogService{
		logs:   logs,
		logger: logger.With(slog.String("component", "log_service")),
	}
}

// List возвращает записи журнала с проекцией пользователя.
// Пустой результат — LOGS_NOT_FOUND.
func (s *LogService) List(ctx context.Context, filter model.AccessLogFilter) ([]*model.AccessLogRecord, error) {
	records, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, apperror.DatabaseError.Wrap(err)
	}
	if len(records) == 0 {
		return nil, apperror.LogsNotFound.New()
	}
	return records, nil
}
