// Пакет errors — единая точка выдачи ошибок клиенту.
// Формат ответа: {"error": {"message": "...", "code": "0x..."}}.
// Все HTTP-ответы с ошибками проходят через Sink.Handle.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
)

// serverTag — тег запросов без сегментов пути.
const serverTag = "SERVER"

// staticInternalError — ответ, когда нормализовать ошибку не удалось дважды.
const staticInternalError = `{"error":{"message":"Internal server error.","code":"0x00000000"}}` + "\n"

type tagKey struct{}

// WithTag сохраняет тег запроса в контексте.
func WithTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, tagKey{}, tag)
}

// TagFromContext возвращает тег запроса, сохранённый WithTag.
func TagFromContext(ctx context.Context) (string, bool) {
	tag, ok := ctx.Value(tagKey{}).(string)
	return tag, ok && tag != ""
}

// RequestTag возвращает последний непустой сегмент пути или SERVER.
func RequestTag(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return serverTag
	}
	return path
}

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Message string        `json:"message"`
	Code    apperror.Code `json:"code"`
}

// Sink нормализует ошибки, логирует их и отвечает клиенту.
type Sink struct {
	// fallback — ошибка, которой заменяется значение без сообщения
	fallback apperror.Definition
	logger   *slog.Logger
}

// NewSink создаёт Sink.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{
		fallback: apperror.UnknownError,
		logger:   logger.With(slog.String("component", "error_sink")),
	}
}

// Handle отвечает клиенту ошибкой v. Значение без сообщения логируется
// как есть и заменяется на UNKNOWN_ERROR; повторная неудача даёт
// статический ответ 500.
func (s *Sink) Handle(w http.ResponseWriter, r *http.Request, v any) {
	s.handle(w, r, v, false)
}

func (s *Sink) handle(w http.ResponseWriter, r *http.Request, v any, reentered bool) {
	tag, ok := TagFromContext(r.Context())
	if !ok {
		tag = RequestTag(r.URL.Path)
	}

	e := normalize(v)
	if e == nil {
		s.logger.Error("Значение ошибки без сообщения",
			slog.String("tag", tag),
			slog.Any("value", v),
		)
		if reentered {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(staticInternalError))
			return
		}
		s.handle(w, r, s.fallback.New(), true)
		return
	}

	e = e.WithOrigin(tag)

	attrs := []slog.Attr{
		slog.String("tag", e.Origin),
		slog.String("name", e.Name),
		slog.Int("status", e.Status),
	}
	if cause := errors.Unwrap(e); cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	s.logger.LogAttrs(r.Context(), slog.LevelError, "("+string(e.Code)+") "+e.Message, attrs...)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{Message: e.Message, Code: e.Code},
	})
}

// normalize приводит значение к *apperror.Error. Возвращает nil,
// если у значения нет сообщения.
func normalize(v any) *apperror.Error {
	var e *apperror.Error

	switch val := v.(type) {
	case nil:
		return nil
	case apperror.Definition:
		e = val.New()
	case *apperror.Definition:
		if val == nil {
			return nil
		}
		e = val.New()
	case error:
		if ae := apperror.From(val); ae != nil {
			c := *ae
			e = &c
		} else {
			if val.Error() == "" {
				return nil
			}
			return apperror.Explainable(val.Error())
		}
	case string:
		if val == "" {
			return nil
		}
		return apperror.Explainable(val)
	default:
		return nil
	}

	if e.Message == "" {
		return nil
	}
	if e.Code == "" {
		e.Code = apperror.CodeUnknown
	}
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	return e
}
