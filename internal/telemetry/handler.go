package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	gosentry "github.com/getsentry/sentry-go"
)

// Handler tees slog records to Sentry. Error records become events, lower
// levels become breadcrumbs attached to the next event.
type Handler struct {
	inner slog.Handler
	attrs []slog.Attr
}

// NewHandler wraps inner.
func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	err := h.inner.Handle(ctx, r)
	if !Enabled() {
		return err
	}

	fields := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	var cause error
	collect := func(a slog.Attr) bool {
		if e, ok := a.Value.Any().(error); ok && cause == nil {
			cause = e
		}
		fields[a.Key] = a.Value.String()
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if r.Level < slog.LevelError {
		level := gosentry.LevelInfo
		if r.Level >= slog.LevelWarn {
			level = gosentry.LevelWarning
		}
		gosentry.AddBreadcrumb(&gosentry.Breadcrumb{
			Level:     level,
			Category:  "log",
			Message:   r.Message,
			Data:      fields,
			Timestamp: r.Time,
		})
		return err
	}

	hub := gosentry.CurrentHub().Clone()
	hub.WithScope(func(scope *gosentry.Scope) {
		scope.SetLevel(gosentry.LevelError)
		scope.SetContext("log", fields)
		if cause != nil {
			hub.CaptureException(errors.Join(errors.New(r.Message), cause))
		} else {
			hub.CaptureMessage(r.Message)
		}
	})
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs), attrs: append(slices.Clone(h.attrs), attrs...)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), attrs: slices.Clone(h.attrs)}
}
