// upload.go — обработчик POST /api/upload.
// Принимает multipart (file + sizes) и отвечает zip-архивом производных.
package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/media"
)

const (
	// multipartOverhead — запас на заголовки частей и поле sizes сверх размера файла.
	multipartOverhead = 1 << 20
	// defaultArchiveName — имя архива, если клиент не передал имя файла.
	defaultArchiveName = "media.zip"
)

// Upload — POST /api/upload.
// До начала записи архива ошибки отдаются через sink; после отправки
// заголовков ошибка упаковки только логируется.
func (h *APIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadBytes+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		h.sink.Handle(w, r, apperror.BadRequest.Wrap(err))
		return
	}

	res, err := h.uploads.Upload(r.Context(), p, mr)
	if err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	if err := media.Check(res.Results); err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": archiveName(res.DisplayName),
	}))
	w.WriteHeader(http.StatusOK)

	if err := media.Bundle(r.Context(), w, res.Results); err != nil {
		h.logger.Error("Ошибка упаковки архива после отправки заголовков",
			slog.String("user_id", p.User.ID),
			slog.String("error", err.Error()),
		)
	}
}

// archiveName — имя вложения: исходное имя файла клиента с суффиксом .zip.
func archiveName(display string) string {
	display = strings.TrimSpace(display)
	if display == "" || display == "." {
		return defaultArchiveName
	}
	return display + ".zip"
}
