// Package middleware provides HTTP middlewares for authentication, role
// checks, login throttling and request logging.
package middleware

import (
	"context"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/auth"
)

// ErrorWriter renders err as an API error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// WithRequestLogging logs one line per request with its outcome.
func WithRequestLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			slot := &actorSlot{}
			if u, ok := auth.UserFromContext(r.Context()); ok {
				slot.username = u.Username
			}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), actorSlotKey{}, slot)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			}
			if slot.username != "" {
				fields = append(fields, zap.String("actor", slot.username))
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request", fields...)
			default:
				logger.Info("request", fields...)
			}
		})
	}
}

// actorSlot lets Authenticate, which runs deeper in the chain, report the
// identity back to the request logger.
type actorSlot struct {
	username string
}

type actorSlotKey struct{}

func noteActor(ctx context.Context, username string) {
	if slot, ok := ctx.Value(actorSlotKey{}).(*actorSlot); ok {
		slot.username = username
	}
}
