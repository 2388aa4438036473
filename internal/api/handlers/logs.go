package handlers

import (
	"net/http"

	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// ListLogs — GET /api/log. Записи журнала доступа с проекцией пользователя.
// Авторизация ADMIN+ на уровне middleware.
func (h *APIHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	records, err := h.logs.List(r.Context(), model.AccessLogFilter{
		ID:           params.id,
		CreatedAfter: params.createdAfter,
		SearchString: params.searchString,
		Limit:        params.limit,
	})
	if err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: records})
}
