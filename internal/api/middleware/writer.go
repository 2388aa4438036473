package middleware

import "net/http"

// responseWriter запоминает статус и объём ответа для middleware пакета.
// Вложенные middleware разделяют один экземпляр.
type responseWriter struct {
	http.ResponseWriter
	// status — отправленный статус; 200, пока заголовок не записан
	status int
	// size — количество записанных байт тела
	size int64
	// started — заголовок уже ушёл клиенту
	started bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader передаёт дальше только первый статус.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.started {
		return
	}
	rw.status = code
	rw.started = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.started {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// Unwrap нужен http.ResponseController (Flush, дедлайны записи).
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
