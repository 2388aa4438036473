package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// LogStore — интерфейс хранилища журнала доступа.
type LogStore interface {
	// Create сохраняет запись. Заполняет ID.
	Create(ctx context.Context, e *model.AccessLogEntry) error
	// List возвращает записи с проекцией пользователя.
	List(ctx context.Context, filter model.AccessLogFilter) ([]*model.AccessLogRecord, error)
}

type logRepo struct {
	db DBTX
}

// NewLogRepository создаёт репозиторий журнала доступа.
func NewLogRepository(db DBTX) LogStore {
	return &logRepo{db: db}
}

func (r *logRepo) Create(ctx context.Context, e *model.AccessLogEntry) error {
	query := `
		INSERT INTO access_logs (ip, user_id, method, route, status_code, user_agent, response_time, tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		e.IP, e.UserID, e.Method, e.Route, e.StatusCode,
		e.UserAgent, e.ResponseTimeMs, e.Tag, e.Timestamp,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи журнала доступа: %w", err)
	}
	return nil
}

func (r *logRepo) List(ctx context.Context, filter model.AccessLogFilter) ([]*model.AccessLogRecord, error) {
	where, args := buildLogWhere(filter, 1)
	args = append(args, normalizeLimit(filter.Limit))

	query := fmt.Sprintf(`
		SELECT l.id, l.ip, l.user_id, l.method, l.route, l.status_code, l.user_agent,
		       l.response_time, l.tag, l.created_at,
		       u.username, u.email, u.usage_count
		FROM access_logs l
		LEFT JOIN users u ON u.id = l.user_id
		%s
		ORDER BY l.created_at
		LIMIT $%d`, where, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала доступа: %w", err)
	}
	defer rows.Close()

	var result []*model.AccessLogRecord
	for rows.Next() {
		rec := &model.AccessLogRecord{}
		var (
			username, email *string
			usage           *int
		)
		if err := rows.Scan(
			&rec.ID, &rec.IP, &rec.UserID, &rec.Method, &rec.Route, &rec.StatusCode,
			&rec.UserAgent, &rec.ResponseTimeMs, &rec.Tag, &rec.Timestamp,
			&username, &email, &usage,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		if username != nil {
			rec.Blame = &model.Blame{Username: *username}
			if email != nil {
				rec.Blame.Email = *email
			}
			if usage != nil {
				rec.Blame.UsageCount = *usage
			}
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// logSearchColumns — столбцы, по которым ищет SearchString.
var logSearchColumns = []string{
	"l.tag", "l.ip", "l.method", "l.route",
	"l.status_code::text", "l.user_agent", "l.response_time::text",
}

// buildLogWhere строит WHERE-условие запроса журнала.
func buildLogWhere(filter model.AccessLogFilter, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("l.created_at > $%d", argNum))
		args = append(args, *filter.CreatedAfter)
		argNum++
	}

	if filter.ID != "" {
		conditions = append(conditions, fmt.Sprintf("l.id::text = $%d", argNum))
		args = append(args, filter.ID)
		argNum++
	}

	if filter.SearchString != "" {
		parts := make([]string, 0, len(logSearchColumns))
		for _, col := range logSearchColumns {
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", col, argNum))
		}
		conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
		args = append(args, "%"+escapeLike(filter.SearchString)+"%")
	}

	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args
}
