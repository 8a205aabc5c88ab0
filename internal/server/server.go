package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farellandr/confpass/config"
	"github.com/farellandr/confpass/internal/access"
	"github.com/farellandr/confpass/internal/events"
	"github.com/farellandr/confpass/internal/handlers"
	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/middleware"
	"github.com/farellandr/confpass/internal/service"
	"github.com/farellandr/confpass/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Deps is everything the router needs. Admin routes are mounted only when
// Admin carries both a JWT secret and a password hash. Badge routes are
// mounted only with a Signer.
type Deps struct {
	Service *service.AttendeeService
	Signer  *helpers.BadgeSigner
	Admin   middleware.AdminConfig
}

// Start loads configuration, connects the database and event publisher, and
// serves until ctx is cancelled.
func Start(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := config.InitDatabase(cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect event publisher: %w", err)
	}
	defer publisher.Close()

	if cfg.MakeAllTransferable {
		slog.Warn("every ticket is transferable: TEST_MAKE_ALL_TRANSFERABLE is set")
	}

	svc := service.NewAttendeeService(store.NewAttendeeStore(db), publisher, service.Options{
		DemoEnabled:       cfg.EnableDemo,
		Policy:            access.Policy{AllTransferable: cfg.MakeAllTransferable},
		TransferIsolation: cfg.TransferIsolation,
	})

	deps := Deps{
		Service: svc,
		Admin: middleware.AdminConfig{
			JWTSecret:    cfg.JWTSecret,
			PasswordHash: cfg.AdminPasswordHash,
		},
	}
	if cfg.BadgeSecret != "" {
		deps.Signer = helpers.NewBadgeSigner(cfg.BadgeSecret)
	} else {
		slog.Warn("BADGE_SECRET and JWT_SECRET are unset, badge routes are disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	r := NewRouter(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "demo", cfg.EnableDemo, "admin", cfg.AdminEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		slog.Info("AMQP_URL not set, transfer events are not published")
		return events.NopPublisher{}, nil
	}
	return events.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPRoutingKey)
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics())

	setupRoutes(r, deps)
	return r
}

func setupRoutes(r *gin.Engine, deps Deps) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("")
	api.Use(middleware.ServiceMiddleware(deps.Service, deps.Signer))
	{
		api.GET("/healthz", handlers.HealthCheck)

		attendee := api.Group("/attendee")
		{
			attendee.GET("/:ref", handlers.GetAttendee)
			attendee.PUT("/:ref", handlers.UpdateAttendee)
			if deps.Signer != nil {
				attendee.GET("/:ref/badge", handlers.GetAttendeeBadge)
			}
		}
	}

	if deps.Admin.JWTSecret == "" || deps.Admin.PasswordHash == "" {
		return
	}

	admin := api.Group("/v1/admin")
	admin.POST("/login", middleware.AdminMiddleware(deps.Admin), handlers.AdminLogin)

	protected := admin.Group("")
	protected.Use(middleware.JWTAuthMiddleware(deps.Admin.JWTSecret))
	{
		protected.GET("/attendees", handlers.ListAttendees)
		if deps.Signer != nil {
			protected.POST("/badges/verify", handlers.VerifyBadge)
		}
	}
}
