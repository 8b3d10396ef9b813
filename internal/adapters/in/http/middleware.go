package http

import (
	"context"
	"log/slog"
	"net/http"

	"orderflow/internal/auth"
	"orderflow/internal/core/domain/model/actor"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const actorKey = "actor"

// ActorMiddleware resolves the caller from the bearer token. Requests
// without Authorization act as a guest; a token that does not verify is
// rejected with 401.
func ActorMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				c.Set(actorKey, actor.NewGuest())
				return next(c)
			}

			token, err := auth.BearerToken(header)
			if err != nil {
				return err
			}
			a, err := auth.ParseActor(token, secret)
			if err != nil {
				return err
			}

			c.Set(actorKey, a)
			return next(c)
		}
	}
}

func actorFrom(c echo.Context) actor.Actor {
	if a, ok := c.Get(actorKey).(actor.Actor); ok {
		return a
	}
	return actor.NewGuest()
}

// RequestLogger writes one slog record per request.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("actor", actorFrom(c).String()),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}

// RouterOptions configure NewRouter.
type RouterOptions struct {
	Logger    *slog.Logger
	JWTSecret string

	// Middleware runs for every request, after recovery and logging.
	Middleware []echo.MiddlewareFunc
}

// NewRouter builds the echo instance: recovery, request logging, the
// given middleware, a /health probe and the API under /api/v1.
func NewRouter(s *Server, opts RouterOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = ErrorHandler(opts.Logger)

	e.Use(middleware.Recover())
	e.Use(RequestLogger(opts.Logger))
	e.Use(opts.Middleware...)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	api := e.Group("/api/v1", ActorMiddleware(opts.JWTSecret))
	s.Register(api)

	return e
}
