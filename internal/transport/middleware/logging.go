package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/pkg/logger"
)

const filtered = "[FILTERED]"

// sensitiveFields are matched as substrings of lower-cased JSON keys, headers and query names.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"otp",
	"api_key",
	"session",
	"cookie",
}

// tokenPathPrefixes mark routes whose last path segment is a bearer secret.
var tokenPathPrefixes = []string{
	"/credentials/access/",
}

// LoggingMiddleware logs every request and response with secrets filtered out of paths, headers
// and JSON bodies.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := requestLogger(r.Context(), base)

			logRequest(log, r)

			rw := &responseWriter{ResponseWriter: w, body: &bytes.Buffer{}}
			next.ServeHTTP(rw, r)

			logResponse(log, r, rw, time.Since(start))
		})
	}
}

func requestLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if scoped, ok := logger.Scoped(ctx); ok {
		return scoped
	}
	return base
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func logRequest(log *slog.Logger, r *http.Request) {
	var bodyBytes []byte
	if r.Body != nil {
		bodyBytes, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	log.Info("incoming request",
		"method", r.Method,
		"path", redactPath(r.URL.Path),
		"query", redactQuery(r.URL.Query()),
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", filterSensitiveHeaders(r.Header),
		"body", filterSensitiveBody(bodyBytes),
	)
}

func logResponse(log *slog.Logger, r *http.Request, rw *responseWriter, duration time.Duration) {
	statusCode := rw.statusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	log.Log(r.Context(), level, "response",
		"method", r.Method,
		"path", redactPath(r.URL.Path),
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.body.Len(),
		"body", filterSensitiveBody(rw.body.Bytes()),
	)
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(name, field) {
			return true
		}
	}
	return false
}

// redactPath hides the share token in redemption URLs.
func redactPath(path string) string {
	for _, prefix := range tokenPathPrefixes {
		if idx := strings.Index(path, prefix); idx >= 0 {
			return path[:idx+len(prefix)] + filtered
		}
	}
	return path
}

func redactQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	out := url.Values{}
	for name, vals := range values {
		if isSensitive(name) {
			out.Set(name, filtered)
			continue
		}
		out[name] = vals
	}
	return out.Encode()
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		if isSensitive(string(body)) {
			return "[FILTERED - Contains sensitive data]"
		}
		return string(body)
	}

	out, err := json.Marshal(filterSensitiveJSON(data))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(out)
}

func filterSensitiveJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = filterSensitiveJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = filterSensitiveJSON(item)
		}
		return out
	default:
		return v
	}
}
