package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/metrics"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo *echo.Echo
	cfg  config.Config
	log  *slog.Logger
}

func New(cfg config.Config, log *slog.Logger, m *metrics.ServerMetrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())

	//CORS（フロントのoriginだけ許可）
	if cfg.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{cfg.FEURL},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Idempotency-Key"},
		}))
	}

	e.Use(requestLogger(log, m))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return &Server{echo: e, cfg: cfg, log: log}
}

// Echo はルート登録用に内部のechoを返す。
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start はサーバーを起動して、SIGINT/SIGTERMで graceful shutdown する。
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := s.cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info("server started", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(shutdownCtx)
}

// アクセスログとメトリクスを1つのミドルウェアで取る。
func requestLogger(log *slog.Logger, m *metrics.ServerMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			elapsed := time.Since(start)
			status := c.Response().Status
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			if m != nil {
				m.Requests.WithLabelValues(path, c.Request().Method, strconv.Itoa(status)).Inc()
				m.LatencyMS.WithLabelValues(path).Observe(float64(elapsed.Milliseconds()))
			}

			log.Info("request",
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
			)

			return nil
		}
	}
}
