package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// UserStore — интерфейс хранилища учётных записей.
type UserStore interface {
	// CreateWithSession атомарно создаёт пользователя и его первую сессию.
	// Заполняет ID и отметки времени. ErrConflict при занятом username/email.
	CreateWithSession(ctx context.Context, u *model.User, s *model.Session) error
	// GetByID возвращает пользователя по ID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByIdentifier возвращает пользователя по email или username.
	GetByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	// UpdatePassword заменяет хэш пароля.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// SetRole устанавливает роль и флаг верификации.
	SetRole(ctx context.Context, id, role string, verified bool) error
	// IncrementUsage увеличивает счётчик загрузок на 1.
	IncrementUsage(ctx context.Context, id string) error
	// List возвращает пользователей по фильтру.
	List(ctx context.Context, filter model.UserFilter) ([]*model.User, error)
}

type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserStore {
	return &userRepo{db: db}
}

const userColumns = `id, username, email, role, password_hash, usage_count, verified, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Role, &u.PasswordHash,
		&u.UsageCount, &u.Verified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) CreateWithSession(ctx context.Context, u *model.User, s *model.Session) error {
	// Один оператор с CTE — пользователь и сессия создаются атомарно.
	query := `
		WITH new_user AS (
			INSERT INTO users (username, email, role, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING id, usage_count, verified, created_at, updated_at
		), new_session AS (
			INSERT INTO sessions (user_id, active, expires_at)
			SELECT id, $5, $6 FROM new_user
			RETURNING id, created_at
		)
		SELECT u.id, u.usage_count, u.verified, u.created_at, u.updated_at, s.id, s.created_at
		FROM new_user u, new_session s`

	err := r.db.QueryRow(ctx, query,
		u.Username, u.Email, u.Role, u.PasswordHash, s.Active, s.ExpiresAt,
	).Scan(&u.ID, &u.UsageCount, &u.Verified, &u.CreatedAt, &u.UpdatedAt, &s.ID, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("пользователь %q: %w", u.Username, ErrConflict)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	s.UserID = u.ID
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 OR username = $1 LIMIT 1`, userColumns)

	u, err := scanUser(r.db.QueryRow(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления пароля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) SetRole(ctx context.Context, id, role string, verified bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET role = $2, verified = $3, updated_at = NOW() WHERE id = $1`,
		id, role, verified,
	)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления роли: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) IncrementUsage(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET usage_count = usage_count + 1, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ошибка увеличения счётчика загрузок: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	where, args := buildUserWhere(filter, 1)
	args = append(args, normalizeLimit(filter.Limit))

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		%s
		ORDER BY created_at
		LIMIT $%d`, userColumns, where, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// buildUserWhere строит WHERE-условие списка пользователей.
// ID и SearchString взаимоисключающие: точный ID имеет приоритет.
func buildUserWhere(filter model.UserFilter, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argNum))
		args = append(args, filter.Role)
		argNum++
	}

	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", argNum))
		args = append(args, *filter.CreatedAfter)
		argNum++
	}

	if filter.ID != "" {
		conditions = append(conditions, fmt.Sprintf("id::text = $%d", argNum))
		args = append(args, filter.ID)
	} else if filter.SearchString != "" {
		conditions = append(conditions, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+escapeLike(filter.SearchString)+"%")
	}

	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
