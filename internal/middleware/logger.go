package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"thetrek/internal/contextutils"
)

// responseRecorder captures the status code and bytes written so the
// request log can report them.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(data)
	w.bytes += n
	return n, err
}

// RequestLogger logs one structured line per completed request.
// Server errors log at Error level, client errors at Warn.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			fields := []zap.Field{
				zap.String("request_id", contextutils.GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				zap.Int("bytes", recorder.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", getClientIP(r)),
			}
			if userID := contextutils.GetUserID(r.Context()); userID != 0 {
				fields = append(fields, zap.Int64("user_id", userID))
			}

			switch {
			case recorder.status >= http.StatusInternalServerError:
				logger.Error("request completed", fields...)
			case recorder.status >= http.StatusBadRequest:
				logger.Warn("request completed", fields...)
			default:
				logger.Info("request completed", fields...)
			}
		})
	}
}
