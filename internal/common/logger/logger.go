package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

// ContextWithRequestID stores the request id picked up by every log line written with that context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// contextHandler decorates records with request and trace identifiers found in the context.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.String("request_id", RequestIDFromContext(ctx)))
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

type Logger struct {
	service string
	sl      *slog.Logger
	ctx     context.Context
}

func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout, ParseLevel(os.Getenv("RPOS_LOG_LEVEL")))
}

func NewWithWriter(service string, w io.Writer, level slog.Level) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	})
	sl := slog.New(contextHandler{Handler: h}).With(
		slog.String("service", service),
		slog.String("hostname", hostname()),
	)
	return &Logger{service: service, sl: sl, ctx: context.Background()}
}

// Discard is a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriter("discard", io.Discard, slog.LevelError+4)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Named returns a logger for a sub-component of the same service.
func (l *Logger) Named(component string) *Logger {
	return &Logger{service: l.service, sl: l.sl.With(slog.String("component", component)), ctx: l.ctx}
}

// Ctx binds ctx so request and trace ids land on the log lines.
func (l *Logger) Ctx(ctx context.Context) *Logger {
	return &Logger{service: l.service, sl: l.sl, ctx: ctx}
}

func (l *Logger) log(level slog.Level, action string, fields map[string]any, err error) {
	if !l.sl.Enabled(l.ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields)+2)
	attrs = append(attrs, slog.String("action", action))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	if err != nil {
		attrs = append(attrs, slog.Group("error", slog.String("msg", err.Error())))
	}
	l.sl.LogAttrs(l.ctx, level, action, attrs...)
}

func (l *Logger) Info(action string, fields map[string]any)  { l.log(slog.LevelInfo, action, fields, nil) }
func (l *Logger) Debug(action string, fields map[string]any) { l.log(slog.LevelDebug, action, fields, nil) }
func (l *Logger) Warn(action string, fields map[string]any)  { l.log(slog.LevelWarn, action, fields, nil) }
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(slog.LevelError, action, fields, err)
}

func hostname() string { h, _ := os.Hostname(); return h }
