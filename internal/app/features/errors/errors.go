// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RetryAfterSeconds is sent with 503 responses.
const RetryAfterSeconds = "5"

// ErrorLogger writes API error responses and logs their causes.
// Handlers hold one and call Write for every failed operation.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorLogger{log: log}
}

// Status maps an error to its HTTP status. Full and already-joined
// conflicts are 400 to match the API contract.
func Status(err error) int {
	switch apperr.KindOf(classify(err)) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// classify turns driver timeouts and network failures into Unavailable
// and leaves everything else to apperr.Wrap.
func classify(err error) error {
	if apperr.KindOf(err) == apperr.KindInternal && (mongo.IsTimeout(err) || mongo.IsNetworkError(err)) {
		return apperr.Unavailable("Service temporarily unavailable, please retry", err)
	}
	return apperr.Wrap(err, "Server error")
}

// Write sends {"error": <public message>} with the mapped status. Causes of
// 5xx responses are logged with op and never sent to the client.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, op string, err error) {
	err = classify(err)
	status := Status(err)

	if status >= 500 {
		fields := []zap.Field{
			zap.String("op", op),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		}
		if u, ok := auth.CurrentUser(r); ok {
			fields = append(fields, zap.String("user_id", u.ID))
		}
		if status == http.StatusServiceUnavailable {
			e.log.Warn("request failed; retryable", fields...)
			w.Header().Set("Retry-After", RetryAfterSeconds)
		} else {
			e.log.Error("request failed", fields...)
		}
	}

	WriteMessage(w, status, apperr.Message(err))
}

// WriteMessage sends {"error": msg} with status.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// maxBody bounds request bodies decoded by Decode.
const maxBody = 1 << 20

// Decode reads a JSON request body into v. Malformed bodies are a
// Validation error.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteMessage(w, http.StatusNotFound, "Route not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}
