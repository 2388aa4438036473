package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// SessionStore — интерфейс хранилища сессий.
type SessionStore interface {
	// Create создаёт сессию. Заполняет ID и CreatedAt.
	Create(ctx context.Context, s *model.Session) error
	// GetByID возвращает сессию по ID.
	GetByID(ctx context.Context, id string) (*model.Session, error)
	// Delete удаляет сессию.
	Delete(ctx context.Context, id string) error
	// DeleteStale удаляет неактивные и истёкшие к моменту now сессии.
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepo struct {
	db DBTX
}

// NewSessionRepository создаёт репозиторий сессий.
func NewSessionRepository(db DBTX) SessionStore {
	return &sessionRepo{db: db}
}

const sessionColumns = `id, user_id, active, expires_at, created_at`

func (r *sessionRepo) Create(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (user_id, active, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, s.UserID, s.Active, s.ExpiresAt).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)

	s := &model.Session{}
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.Active, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE NOT active OR expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления устаревших сессий: %w", err)
	}
	return tag.RowsAffected(), nil
}
