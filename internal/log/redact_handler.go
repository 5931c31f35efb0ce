package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys contains attribute keys that are always redacted.
// Crawl configurations carry portal session cookies and auth headers;
// none of that belongs in a log file.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"password":            true,
	"passwd":              true,
	"secret":              true,
	"token":               true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"session":             true,
	"session_id":          true,
	"jsessionid":          true,
	"credential":          true,
	"credentials":         true,
	"auth":                true,
}

// sensitiveKeywords are substrings that mark a key as sensitive even
// when it is not in the exact-match set (e.g. "portal_cookie").
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "cookie", "credential", "auth",
}

// RedactHandler wraps an slog.Handler and masks attribute values whose
// keys look credential-like before passing records on.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because it integrates seamlessly with standard slog APIs and works
// with any underlying handler (text, JSON, etc.).
type RedactHandler struct {
	handler slog.Handler
}

// NewRedactHandler creates a RedactHandler wrapping the given handler.
// If handler is nil, the returned handler wraps slog.Default().Handler().
func NewRedactHandler(handler slog.Handler) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle redacts the record's attributes and passes it on.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, redacted)
}

// WithAttrs returns a new handler with the given attributes added,
// redacted first.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(out)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr masks a single attribute, recursing into groups.
func (h *RedactHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = h.redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || containsSensitiveKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// containsSensitiveKeyword reports whether the key contains one of the
// credential-like substrings.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// New creates a redacting text logger. verbose raises the level from
// Info to Debug.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactHandler(handler))
}

// NewJSON creates a redacting JSON logger for structured aggregation.
func NewJSON(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactHandler(handler))
}
