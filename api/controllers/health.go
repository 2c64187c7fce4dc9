package controllers

import (
	"context"
	"net/http"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/responses"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/config"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
)

const envHeader = "X-Resto-Env"

// Pinger is the connectivity surface every backing service exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthTarget names one backing dependency for the readiness probe.
type HealthTarget struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing store so orchestration only routes traffic
// to instances that can actually serve.
func HealthReady(cfg *config.Config, logg *logger.Logger, targets ...HealthTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		for _, target := range targets {
			if target.Pinger == nil {
				continue
			}
			if err := target.Pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, target.Name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
