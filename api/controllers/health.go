package controllers

import (
	"net/http"

	"github.com/fuelpass/fuelpass-backend/api/responses"
	"github.com/fuelpass/fuelpass-backend/pkg/config"
	"github.com/fuelpass/fuelpass-backend/pkg/db"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
	"github.com/fuelpass/fuelpass-backend/pkg/redis"
)

const envHeader = "X-FuelPass-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
