// users.go — обработчики модерации: списки пользователей и администраторов,
// подтверждение и снятие администратора.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// ListConsumers — GET /api/consumer. Авторизация ADMIN+ на уровне middleware.
func (h *APIHandler) ListConsumers(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.users.ListConsumers)
}

// ListAdmins — GET /api/admin. Авторизация OWNER на уровне middleware.
func (h *APIHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.users.ListAdmins)
}

func (h *APIHandler) listUsers(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context, filter model.UserFilter) ([]model.Profile, error),
) {
	params, err := parseListParams(r)
	if err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	profiles, err := list(r.Context(), model.UserFilter{
		ID:           params.id,
		CreatedAfter: params.createdAfter,
		SearchString: params.searchString,
		Limit:        params.limit,
	})
	if err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: profiles})
}

// VerifyAdmin — PATCH /api/admin/verify?id=. Назначает роль ADMIN, 204.
func (h *APIHandler) VerifyAdmin(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.users.Verify)
}

// RemoveAdmin — PATCH /api/admin/remove?id=. Возвращает роль USER, 204.
func (h *APIHandler) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.users.Remove)
}

func (h *APIHandler) moderate(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string) error) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		h.sink.Handle(w, r, apperror.BadRequest.New())
		return
	}

	if err := apply(r.Context(), id); err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
