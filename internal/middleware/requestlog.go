package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studycoach-backend/internal/logger"
)

// RequestLogger logs one line per request through log. Only the path is
// logged; query strings can carry credentials (the websocket token).
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return chimiddleware.RequestLogger(&logFormatter{log: log})
}

type logFormatter struct {
	log *logger.Logger
}

func (f *logFormatter) NewLogEntry(r *http.Request) chimiddleware.LogEntry {
	return &logEntry{
		log: f.log.With(
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-ID"),
			"remote_addr", r.RemoteAddr,
		),
	}
}

type logEntry struct {
	log *logger.Logger
}

func (e *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	kv := []interface{}{"status", status, "bytes", bytes, "elapsed_ms", elapsed.Milliseconds()}
	switch {
	case status >= http.StatusInternalServerError:
		e.log.Error("request completed", kv...)
	case status >= http.StatusBadRequest:
		e.log.Warn("request completed", kv...)
	default:
		e.log.Info("request completed", kv...)
	}
}

func (e *logEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("request panicked", "panic", v, "stack", string(stack))
}
