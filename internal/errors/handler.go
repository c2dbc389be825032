package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/kitwiz/miniapp-backend/pkg/logger"
	"github.com/kitwiz/miniapp-backend/pkg/metrics"
)

type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs err, reports severe failures to Sentry and returns the HTTP status and
// caller-facing message for it.
func (h *Handler) Handle(ctx context.Context, err error) (int, string) {
	if err == nil {
		return StatusCode(nil), ""
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var log *slog.Logger
	if h != nil {
		log = h.log
	}
	log = logger.With(ctx, log)

	status := StatusCode(err)
	message := PublicMessage(err)

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		metrics.RecordError(appErr.Code, string(appErr.Severity))

		attrs := []any{
			slog.String("code", appErr.Code),
			slog.String("message", appErr.Message),
			slog.String("severity", string(appErr.Severity)),
			slog.Int("status", status),
		}
		if cause := appErr.Unwrap(); cause != nil {
			attrs = append(attrs, slog.Any("cause", cause))
		}

		switch appErr.Severity {
		case SeverityHigh, SeverityCritical:
			log.ErrorContext(ctx, "application error", attrs...)
			h.sendToSentry(ctx, err)
		case SeverityMedium:
			log.WarnContext(ctx, "application error", attrs...)
		default:
			log.DebugContext(ctx, "request rejected", attrs...)
		}

		return status, message
	}

	metrics.RecordError("unknown", string(SeverityHigh))
	log.ErrorContext(ctx, "unknown error",
		slog.String("message", err.Error()),
		slog.String("severity", string(SeverityHigh)),
	)
	h.sendToSentry(ctx, err)

	return status, message
}

func (h *Handler) sendToSentry(ctx context.Context, err error) {
	if h == nil || !h.sentryEnabled || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}

			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}

		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}

		hub.CaptureException(err)
	})
}
