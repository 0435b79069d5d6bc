// Package http provides the HTTP server implementation for the chat API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/service"
	v1 "github.com/Habibullahdevv/ai-native-book/internal/transport/http/v1"
	"github.com/Habibullahdevv/ai-native-book/internal/transport/ws"
)

// NewExternalServer creates and configures the public HTTP server.
// It serves the REST and SSE chat API and, when wsServer is not nil, the
// WebSocket endpoint.
func NewExternalServer(svc *service.Service, cfg *config.Config, wsServer *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig()))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
	}))

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	e.GET("/", v1Handler.Root)
	api := e.Group("/api")
	v1Handler.RegisterRoutes(api, rateLimiter(cfg.RateLimitPerMinute))
	if wsServer != nil {
		wsServer.RegisterRoutes(api)
	}

	return e
}

func requestLoggerConfig() middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	}
}

// rateLimiter returns a factory of per-client limiters allowing perMinute
// requests per minute. Each call yields an independent store, so every
// endpoint gets its own bucket. Zero disables limiting.
func rateLimiter(perMinute int) func() echo.MiddlewareFunc {
	if perMinute <= 0 {
		return nil
	}
	return func() echo.MiddlewareFunc {
		return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(perMinute) / 60.0),
				Burst:     perMinute,
				ExpiresIn: 3 * time.Minute,
			}),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return c.JSON(http.StatusForbidden, domain.ErrorResponse{Error: "could not identify client", Retry: false})
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return c.JSON(http.StatusTooManyRequests, domain.ErrorResponse{
					Error: "Rate limit exceeded. Please slow down.",
					Retry: true,
				})
			},
		})
	}
}
