package web

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"daily-todo/internal/logger"
	"daily-todo/internal/service"
)

// Options configure the HTTP server.
type Options struct {
	// RateLimit is requests per second per client IP on mutating routes.
	// Zero disables the limiter.
	RateLimit float64
	// Registry receives the HTTP metrics and is served on /metrics.
	// Nil disables metrics.
	Registry *prometheus.Registry
}

// Server is the browser page and JSON API over today's task list.
type Server struct {
	echo  *echo.Echo
	tasks *service.TaskService
	log   *logger.Logger
	opts  Options
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func New(tasks *service.TaskService, opts Options, log *logger.Logger) (*Server, error) {
	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Renderer = renderer

	s := &Server{
		echo:  e,
		tasks: tasks,
		log:   log.WithComponent("web"),
		opts:  opts,
	}
	e.HTTPErrorHandler = s.errorHandler

	// Metrics wrap the request logger so they see the status it handled.
	if opts.Registry != nil {
		s.setupMetrics(opts.Registry)
	}
	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// ServeHTTP lets tests and other muxes drive the server directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("starting server", "address", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"request_id", values.RequestID,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.log.Errorw("HTTP request failed", fields...)
			} else {
				s.log.Infow("HTTP request", fields...)
			}
			return nil
		},
	}))

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'",
	}))

	s.echo.Use(middleware.ContextTimeout(30 * time.Second))
}

// limiter throttles mutating routes per client IP.
func (s *Server) limiter() echo.MiddlewareFunc {
	if s.opts.RateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.opts.RateLimit),
			Burst:     int(math.Ceil(s.opts.RateLimit)),
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	})
}

func (s *Server) setupRoutes() {
	limit := s.limiter()

	s.echo.GET("/health", s.healthCheck)

	s.echo.GET("/", s.indexPage)
	s.echo.POST("/tasks", s.createFromForm, limit)
	s.echo.POST("/tasks/:id/complete", s.completeFromForm, limit)
	s.echo.POST("/tasks/:id/delete", s.deleteFromForm, limit)

	api := s.echo.Group("/api/tasks")
	api.GET("", s.listTasks)
	api.POST("", s.createTask, limit)
	api.PATCH("/:id", s.updateTask, limit)
	api.DELETE("/:id", s.deleteTask, limit)
}

func (s *Server) setupMetrics(registry *prometheus.Registry) {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(c.Response().Status),
			).Inc()
			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// errorHandler maps errors to JSON: bad input is 400, store failures 502.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusBadGateway
	msg := "task store unavailable"

	var he *echo.HTTPError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &he):
		code = he.Code
		msg = fmt.Sprint(he.Message)
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		msg = validationMessage(ve)
	case errors.Is(err, service.ErrTitleRequired):
		code = http.StatusBadRequest
		msg = err.Error()
	default:
		s.log.WithError(err).Errorw("task store call failed", "path", c.Request().URL.Path)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"message": msg})
	}
	if err != nil {
		s.log.WithError(err).Error("error sending response")
	}
}

// validationMessage turns the first failed rule into a short field message.
func validationMessage(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return "invalid request"
	}
	fe := ve[0]
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return field + " is required"
	}
	return field + " is invalid"
}
