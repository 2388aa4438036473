// handler.go — основной обработчик API SIR.
// Объединяет health и бизнес-обработчики; все ошибки отдаются через Sink.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/bigkaa/sirfiles/internal/api/errors"
	"github.com/bigkaa/sirfiles/internal/api/middleware"
	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/service"
)

// maxJSONBodyBytes — предел тела JSON-запроса.
const maxJSONBodyBytes = 1 << 20

// AccountService — операции с учётными записями и сессиями.
type AccountService interface {
	Signup(ctx context.Context, in service.SignupInput) (*service.AuthResult, error)
	Signin(ctx context.Context, identifier, password string) (*service.AuthResult, error)
	ChangePassword(ctx context.Context, p *auth.Principal, current, next string) error
	Signout(ctx context.Context, p *auth.Principal) error
}

// UserService — модерация пользователей.
type UserService interface {
	ListConsumers(ctx context.Context, filter model.UserFilter) ([]model.Profile, error)
	ListAdmins(ctx context.Context, filter model.UserFilter) ([]model.Profile, error)
	Verify(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
}

// UploadService — конвейер загрузки.
type UploadService interface {
	Upload(ctx context.Context, p *auth.Principal, mr *multipart.Reader) (*service.UploadResult, error)
}

// LogService — чтение журнала доступа.
type LogService interface {
	List(ctx context.Context, filter model.AccessLogFilter) ([]*model.AccessLogRecord, error)
}

// APIHandler — основной обработчик API SIR.
type APIHandler struct {
	accounts AccountService
	users    UserService
	uploads  UploadService
	logs     LogService
	health   *HealthHandler
	sink     *apierrors.Sink
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	accounts AccountService,
	users UserService,
	uploads UploadService,
	logs LogService,
	health *HealthHandler,
	sink *apierrors.Sink,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		accounts: accounts,
		users:    users,
		uploads:  uploads,
		logs:     logs,
		health:   health,
		sink:     sink,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — проверка живости.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — проверка готовности.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// dataResponse — конверт успешного ответа.
type dataResponse struct {
	Data any `json:"data"`
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса в dst. Пустое или повреждённое
// тело — BAD_REQUEST.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.BadRequest.New()
		}
		return apperror.BadRequest.Wrap(err)
	}
	return nil
}

// principal возвращает субъект запроса. Маршрут без Authenticate — ошибка сборки роутера.
func (h *APIHandler) principal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.sink.Handle(w, r, apperror.Unauthorized.New())
		return nil, false
	}
	return p, true
}

// listParams — общие фильтры списков.
type listParams struct {
	id           string
	createdAfter *time.Time
	searchString string
	limit        int
}

// parseListParams читает фильтры id, createdAt, searchString и limit.
// Некорректный createdAt — BAD_REQUEST; некорректный limit заменяется
// значением по умолчанию.
func parseListParams(r *http.Request) (listParams, error) {
	q := r.URL.Query()
	p := listParams{
		id:           strings.TrimSpace(q.Get("id")),
		searchString: strings.TrimSpace(q.Get("searchString")),
	}

	if raw := strings.TrimSpace(q.Get("createdAt")); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return listParams{}, apperror.BadRequest.Wrap(err)
		}
		p.createdAfter = &t
	}

	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			p.limit = n
		}
	}

	return p, nil
}

// parseTime принимает RFC 3339 или дату YYYY-MM-DD (UTC).
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
