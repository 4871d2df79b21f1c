package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/observability"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const traceContextKey = "trace_context"

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(traceMiddleware())
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func traceMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(traceContextKey, observability.NewTraceContext())
		return c.Next()
	}
}

// TraceFromContext returns the request's trace pair, zero when the
// middleware did not run.
func TraceFromContext(c *fiber.Ctx) observability.TraceContext {
	if trace, ok := c.Locals(traceContextKey).(observability.TraceContext); ok {
		return trace
	}
	return observability.TraceContext{}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				trace := TraceFromContext(c)
				domainErr := apperrors.ToDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed",
						zap.Error(domainErr),
						zap.String("trace_id", trace.TraceID),
						zap.String("span_id", trace.SpanID))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(dto.Error(dto.APIError{
					UnderlyingError: domainErr.Underlying(),
					Report:          domainErr.Report(),
					TraceID:         trace.TraceID,
					SpanID:          trace.SpanID,
				}))
				err = nil
			}
		}()
		return c.Next()
	}
}
