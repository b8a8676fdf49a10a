package repository

import (
	"time"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Rate        RateRepository
	Plan        PlanRepository
	Installment InstallmentRepository
	Ledger      LedgerRepository
	Audit       AuditRepository
	Tx          Transactor

	// RateCache is set when the rate table is served from a cache
	RateCache *CachedRateRepository
}

// NewRepositories creates all repository instances. A non-nil cache puts the
// rate table behind it.
func NewRepositories(db *gorm.DB, cache Cache, rateTTL time.Duration) *Repositories {
	repos := &Repositories{
		Rate:        NewRateRepository(db),
		Plan:        NewPlanRepository(db),
		Installment: NewInstallmentRepository(db),
		Ledger:      NewLedgerRepository(db),
		Audit:       NewAuditRepository(db),
		Tx:          NewTransactor(db),
	}
	if cache != nil {
		repos.RateCache = NewCachedRateRepository(repos.Rate, cache, rateTTL)
		repos.Rate = repos.RateCache
	}
	return repos
}
