package service

import (
	"context"

	"saipov-admin/internal/auth"
	"saipov-admin/internal/models"
	"saipov-admin/internal/upstream"
	"saipov-admin/internal/util"

	"go.uber.org/zap"
)

// DashboardAPI is the slice of the commerce API the dashboard needs.
type DashboardAPI interface {
	GetOrders(ctx context.Context, token string) ([]models.Order, error)
	GetProducts(ctx context.Context, token string, page, limit int) (*upstream.ProductList, error)
	GetAdmins(ctx context.Context, token string) ([]models.Admin, error)
}

// Stats is the dashboard's aggregate view.
type Stats struct {
	TotalProducts int            `json:"totalProducts"`
	TotalOrders   int            `json:"totalOrders"`
	TotalAdmins   int            `json:"totalAdmins"`
	ActiveOrders  int            `json:"activeOrders"`
	RecentOrders  []models.Order `json:"recentOrders"`
}

// DashboardService aggregates counts for the landing view.
type DashboardService struct {
	api    DashboardAPI
	logger *zap.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(api DashboardAPI) *DashboardService {
	return &DashboardService{
		api:    api,
		logger: util.GetLogger(),
	}
}

// Stats fetches the aggregates. The product total comes from the paging
// metadata of a limit=1 fetch rather than loading the whole catalog.
func (s *DashboardService) Stats(ctx context.Context, sess *auth.Session) (*Stats, error) {
	products, err := s.api.GetProducts(ctx, sess.UpstreamToken, 0, 1)
	if err != nil {
		return nil, err
	}

	orders, err := s.api.GetOrders(ctx, sess.UpstreamToken)
	if err != nil {
		return nil, err
	}

	admins, err := s.api.GetAdmins(ctx, sess.UpstreamToken)
	if err != nil {
		return nil, err
	}

	recent := orders
	if len(recent) > 5 {
		recent = recent[:5]
	}

	stats := &Stats{
		TotalProducts: products.Pagination.TotalProducts,
		TotalOrders:   len(orders),
		TotalAdmins:   len(admins),
		ActiveOrders:  models.CountActive(orders),
		RecentOrders:  recent,
	}

	s.logger.Debug("Dashboard stats computed",
		zap.Int("total_orders", stats.TotalOrders),
		zap.Int("active_orders", stats.ActiveOrders))

	return stats, nil
}
