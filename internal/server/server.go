// Пакет server — HTTP-сервер SIR с graceful shutdown.
// Без TLS — TLS termination на внешнем прокси.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/bigkaa/sirfiles/internal/api/errors"
	"github.com/bigkaa/sirfiles/internal/api/handlers"
	"github.com/bigkaa/sirfiles/internal/api/middleware"
	"github.com/bigkaa/sirfiles/internal/config"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/rbac"
)

const (
	// readHeaderTimeout — таймаут чтения заголовков запроса.
	readHeaderTimeout = 10 * time.Second
	// idleTimeout — таймаут keep-alive соединения.
	idleTimeout = 120 * time.Second
)

// serviceRoutes — служебные пути без журнала доступа.
var serviceRoutes = []string{"/health", "/metrics"}

// Deps — зависимости маршрутизатора.
type Deps struct {
	Handler  *handlers.APIHandler
	Gate     middleware.Authenticator
	Recorder middleware.Recorder
	Sink     *apierrors.Sink
}

// Server — HTTP-сервер SIR.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(cfg, logger, deps),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршрутизатор chi.
//
// Порядок middleware: журнал доступа — самый внешний слой, он видит
// итоговый статус любого ответа, включая ответы на панику.
func NewRouter(cfg *config.Config, logger *slog.Logger, deps Deps) http.Handler {
	h, sink := deps.Handler, deps.Sink
	router := chi.NewRouter()

	if cfg.TrustProxy {
		router.Use(chimw.RealIP)
	}
	router.Use(middleware.AccessLog(deps.Recorder, serviceRoutes...))
	router.Use(middleware.Recover(sink, logger))
	router.Use(middleware.Tag())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Deadline(cfg.RequestTimeout))

	// До Route: подмаршрутизаторы наследуют обработчики при монтировании.
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sink.Handle(w, r, apperror.RouteNotFound.New())
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sink.Handle(w, r, apperror.MethodNotAllowed.New())
	})

	// Служебные endpoints
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	// Открытые маршруты
	router.Post("/signup", h.Signup)
	router.Post("/signin", h.Signin)

	// Маршруты с сессией
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Gate, sink))

		r.Patch("/pass", h.ChangePassword)
		r.Delete("/signout", h.Signout)
		r.Post("/upload", h.Upload)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleAdmin, sink))
			r.Get("/consumer", h.ListConsumers)
			r.Get("/log", h.ListLogs)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleOwner, sink))
			r.Get("/admin", h.ListAdmins)
			r.Patch("/admin/verify", h.VerifyAdmin)
			r.Patch("/admin/remove", h.RemoveAdmin)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.String("tier", string(s.cfg.Tier)),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
