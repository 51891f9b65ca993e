package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lockerhub/lockerhub-backend/api/controllers"
	"github.com/lockerhub/lockerhub-backend/api/middleware"
	"github.com/lockerhub/lockerhub-backend/internal/auth"
	"github.com/lockerhub/lockerhub-backend/internal/lockers"
	"github.com/lockerhub/lockerhub-backend/internal/reservations"
	"github.com/lockerhub/lockerhub-backend/internal/unlock"
	"github.com/lockerhub/lockerhub-backend/pkg/auth/session"
	"github.com/lockerhub/lockerhub-backend/pkg/config"
	"github.com/lockerhub/lockerhub-backend/pkg/db"
	"github.com/lockerhub/lockerhub-backend/pkg/logger"
	"github.com/lockerhub/lockerhub-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	authService auth.Service,
	registerService auth.RegisterService,
	adminRegisterService auth.AdminRegisterService,
	lockerService lockers.Service,
	reservationService reservations.Service,
	unlockService unlock.Service,
) http.Handler {
	// A typed nil *redis.Client would slip past the middleware's nil
	// check once boxed in the interface.
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(idempotencyStore, logg),
		).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/register", controllers.AdminAuthRegister(adminRegisterService, logg))
		}
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/lockers", func(r chi.Router) {
			r.Get("/", controllers.ListLockers(lockerService, logg))
			r.Get("/available", controllers.ListAvailableLockers(lockerService, logg))
			r.Post("/unlock", controllers.UnlockLocker(unlockService, logg))
			r.Get("/{lockerId}", controllers.GetLocker(lockerService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/", controllers.CreateLocker(lockerService, logg))
				r.Patch("/{lockerId}", controllers.UpdateLocker(lockerService, logg))
				r.Delete("/{lockerId}", controllers.DeactivateLocker(lockerService, logg))
				r.Post("/{lockerId}/reactivate", controllers.ReactivateLocker(lockerService, logg))
			})
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", controllers.ListReservations(reservationService, logg))
			r.Post("/", controllers.CreateReservation(reservationService, logg))
			r.Get("/active", controllers.ListActiveReservations(reservationService, logg))
			r.With(middleware.RequireAdmin(logg)).Get("/all", controllers.ListAllReservations(reservationService, logg))
			r.Get("/{reservationId}", controllers.GetReservation(reservationService, logg))
			r.Put("/{reservationId}/release", controllers.ReleaseReservation(reservationService, logg))
			r.With(middleware.RequireAdmin(logg)).Patch("/{reservationId}", controllers.UpdateReservationExpiry(reservationService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Get("/ping", controllers.AdminPing())
	})

	return r
}
