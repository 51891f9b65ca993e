package controllers

import (
	"context"
	"net/http"

	"github.com/lockerhub/lockerhub-backend/api/responses"
	"github.com/lockerhub/lockerhub-backend/pkg/config"
	"github.com/lockerhub/lockerhub-backend/pkg/errors"
	"github.com/lockerhub/lockerhub-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LockerHub-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the datasource and session store answer.
func HealthReady(cfg *config.Config, database pinger, sessions pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LockerHub-Env", cfg.App.Env)

		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if sessions != nil {
			if err := sessions.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeDependency, err, "session store unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
