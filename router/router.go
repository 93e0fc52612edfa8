package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"camelot/handles"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second
	// bodyLimit matches the websocket frame limit in handles.
	bodyLimit = "64K"
)

func InitRouter(h *handles.Handler, gatherer prometheus.Gatherer, log *logrus.Logger) *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.HidePort = true
	server.Use(middleware.Recover())
	server.Use(requestLogger(log))
	server.Use(middleware.BodyLimit(bodyLimit))
	BindRouter(server, h, gatherer)
	return server
}

func BindRouter(server *echo.Echo, h *handles.Handler, gatherer prometheus.Gatherer) {
	server.GET("/ws", h.HandleWebSocket)
	server.GET("/up", handles.HandleUp)
	server.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := server.Group("/api")
	api.POST("/command", h.HandleCommand)
}

func requestLogger(log *logrus.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	})
}

// Serve runs server on addr until ctx is cancelled, then drains in-flight
// requests.
func Serve(ctx context.Context, server *echo.Echo, addr string, log *logrus.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		errc <- server.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
