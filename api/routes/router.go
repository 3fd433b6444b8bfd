package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fuelpass/fuelpass-backend/api/controllers"
	"github.com/fuelpass/fuelpass-backend/api/middleware"
	"github.com/fuelpass/fuelpass-backend/internal/coupons"
	"github.com/fuelpass/fuelpass-backend/internal/raffles"
	"github.com/fuelpass/fuelpass-backend/pkg/config"
	"github.com/fuelpass/fuelpass-backend/pkg/db"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
	"github.com/fuelpass/fuelpass-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	couponService coupons.Service,
	raffleService raffles.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if cfg.FeatureFlags.ExposeMetrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api/v1/coupons", func(r chi.Router) {
		r.With(middleware.RequireEmployee(logg)).Post("/", controllers.GenerateCoupon(couponService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Post("/scan", controllers.ScanCoupon(couponService, logg))
			r.Post("/activate", controllers.ActivateCoupon(couponService, logg))
			r.Post("/{couponId}/complete", controllers.CompleteCoupon(couponService, logg))
			r.Get("/{couponId}", controllers.GetCoupon(couponService, logg))
		})
	})

	r.Route("/api/v1/raffles", func(r chi.Router) {
		// Verification endpoints are public so auditors can recheck a draw.
		r.Get("/{raffleId}", controllers.GetRaffle(raffleService, logg))
		r.Get("/period/{period}", controllers.GetRaffleByPeriod(raffleService, logg))
		r.Get("/{raffleId}/verification", controllers.RaffleVerification(raffleService, logg))
		r.Get("/{raffleId}/verify", controllers.VerifyRaffle(raffleService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireEmployee(logg))
			r.Post("/", controllers.CreateRaffle(raffleService, logg))
			r.Post("/{raffleId}/close", controllers.CloseRaffle(raffleService, logg))
			r.Post("/{raffleId}/draw", controllers.DrawRaffle(raffleService, logg))
		})
	})

	return r
}
