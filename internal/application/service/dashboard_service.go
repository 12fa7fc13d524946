package service

import (
	"context"
	"fmt"

	"github.com/garyjia/sales-insight/internal/aggregation"
	"github.com/garyjia/sales-insight/internal/application/port"
)

// DashboardService computes period KPIs for one location
type DashboardService interface {
	Dashboard(ctx context.Context, locationID string, q aggregation.Query) (*aggregation.Dashboard, error)
}

type dashboardServiceImpl struct {
	stores      port.StoreProvider
	defaultTopN int
	logger      Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(stores port.StoreProvider, defaultTopN int, logger Logger) DashboardService {
	return &dashboardServiceImpl{
		stores:      stores,
		defaultTopN: defaultTopN,
		logger:      logger,
	}
}

func (s *dashboardServiceImpl) Dashboard(ctx context.Context, locationID string, q aggregation.Query) (*aggregation.Dashboard, error) {
	bucket, err := aggregation.NewBucket(q.Granularity, q.Month, q.Year)
	if err != nil {
		return nil, err
	}
	if q.TopN <= 0 {
		q.TopN = s.defaultTopN
	}

	from, to, all := bucket.YearRange()
	if all {
		from, to = 0, 9999
	}

	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	facts, err := store.DishData().ListFacts(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	imports, err := store.Imports().ListByYears(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}

	dashboard, err := aggregation.Compute(q, facts, imports)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Dashboard computed",
		"location_id", locationID,
		"bucket", dashboard.Label,
		"facts", len(facts))
	return dashboard, nil
}
