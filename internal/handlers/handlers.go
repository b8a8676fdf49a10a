package handlers

import (
	"github.com/redis/go-redis/v9"

	"github.com/sjperalta/pratiche-api/internal/jobs"
	"github.com/sjperalta/pratiche-api/internal/services"
	"github.com/sjperalta/pratiche-api/internal/storage"
)

// Handlers holds all handler instances
type Handlers struct {
	Health      *HealthHandler
	Plan        *PlanHandler
	Installment *InstallmentHandler
	Rate        *RateHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, store *storage.LocalStorage, db Pinger, redisClient *redis.Client, worker *jobs.Worker) *Handlers {
	RegisterValidators()

	return &Handlers{
		Health:      NewHealthHandler(db, redisClient, worker),
		Plan:        NewPlanHandler(svcs.Plan, svcs.Export, svcs.Audit),
		Installment: NewInstallmentHandler(svcs.Payment, svcs.Audit, store),
		Rate:        NewRateHandler(svcs.Rate),
	}
}
