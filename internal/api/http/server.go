// Package httpapi serves the weather and location routes over fiber.
package httpapi

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/i474232898/weather-service/internal/location"
	"github.com/i474232898/weather-service/internal/metrics"
	"github.com/i474232898/weather-service/internal/weather"
)

// WeatherService answers weather queries, usually *weather.Service.
type WeatherService interface {
	Current(ctx context.Context, location string) (*weather.CurrentWeather, error)
	Forecast(ctx context.Context, location string) ([]weather.ForecastWeather, error)
}

// CountryResolver maps a client IP to an ISO2 country code.
type CountryResolver interface {
	Country(ctx context.Context, ip string) string
}

// Dependencies is everything the routes need.
type Dependencies struct {
	Weather   WeatherService
	Locations weather.LocationRepo
	Countries CountryResolver
	// Tables defaults to location.Default().
	Tables  *location.Tables
	Metrics metrics.Recorder
	// Gatherer serves /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Ping reports storage health for /health.
	Ping   func(ctx context.Context) error
	Logger zerolog.Logger
}

// NewApp builds the fiber app with middleware and every route registered.
func NewApp(deps Dependencies) *fiber.App {
	if deps.Tables == nil {
		deps.Tables = location.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		UnescapePath:          true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				deps.Logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(recover.New())
	app.Use(accessLog(deps.Logger, deps.Metrics))

	RegisterRoutes(app, deps)
	return app
}

// accessLog logs each request and records its status and latency.
func accessLog(logger zerolog.Logger, rec metrics.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				status = e.Code
			}
		}
		route := c.Route().Path
		took := time.Since(start)
		rec.IncRequestsTotal(route, status)
		rec.ObserveRequestDuration(route, took)

		logger.Info().
			Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("took", took).
			Msg("request")
		return err
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}
