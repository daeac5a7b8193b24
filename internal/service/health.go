package service

import (
	"context"
	"net/http"
	"time"

	api "github.com/voterlookup/epic-extractor/api/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/store"
)

// PortalPinger is satisfied by *portal.Client.
type PortalPinger interface {
	Ping(ctx context.Context) (int, error)
}

type HealthService struct {
	store  store.Store
	portal PortalPinger
	now    func() time.Time
}

func NewHealthService(st store.Store, portal PortalPinger) *HealthService {
	return &HealthService{store: st, portal: portal, now: time.Now}
}

// Check pings the database and the portal. The overall state is critical
// only when the database is down.
func (s *HealthService) Check(ctx context.Context) api.Health {
	health := api.Health{
		API:       api.HealthHealthy,
		Database:  api.HealthUnknown,
		Portal:    api.HealthUnknown,
		Timestamp: s.now(),
	}

	if err := s.store.Ping(ctx); err != nil {
		health.Database = api.HealthUnhealthy
		health.DatabaseError = err.Error()
	} else {
		health.Database = api.HealthHealthy
	}

	if s.portal != nil {
		status, err := s.portal.Ping(ctx)
		switch {
		case err != nil:
			health.Portal = api.HealthUnhealthy
			health.PortalError = err.Error()
		case status == http.StatusOK:
			health.Portal = api.HealthHealthy
		default:
			health.Portal = api.HealthDegraded
		}
	}

	switch {
	case health.Database == api.HealthHealthy && health.API == api.HealthHealthy:
		health.Overall = api.HealthHealthy
	case health.Database == api.HealthUnhealthy:
		health.Overall = api.HealthCritical
	default:
		health.Overall = api.HealthDegraded
	}
	return health
}
