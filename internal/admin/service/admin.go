package service

import (
	"context"

	"food-dispatch/internal/admin/model"
	commonmodel "food-dispatch/internal/common/model"
)

type AdminRepository interface {
	GetDispatchOverview(ctx context.Context) (*model.DispatchOverview, error)
	GetActiveRoutes(ctx context.Context, page, pageSize int) ([]model.ActiveRouteSummary, error)
}

// DriverIndex is the geo index of online drivers.
type DriverIndex interface {
	NearbyDrivers(ctx context.Context, center commonmodel.LatLng, radiusKm float64, limit int) ([]commonmodel.NearbyDriver, error)
}

type AdminService struct {
	repo    AdminRepository
	drivers DriverIndex
}

func NewAdminService(repo AdminRepository, drivers DriverIndex) *AdminService {
	return &AdminService{repo: repo, drivers: drivers}
}

func (s *AdminService) GetDispatchOverview(ctx context.Context) (*model.DispatchOverview, error) {
	return s.repo.GetDispatchOverview(ctx)
}

func (s *AdminService) GetActiveRoutes(ctx context.Context, page, pageSize int) ([]model.ActiveRouteSummary, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.GetActiveRoutes(ctx, page, pageSize)
}

func (s *AdminService) GetNearbyDrivers(ctx context.Context, center commonmodel.LatLng, radiusKm float64, limit int) ([]commonmodel.NearbyDriver, error) {
	if radiusKm <= 0 {
		radiusKm = 5
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.drivers.NearbyDrivers(ctx, center, radiusKm, limit)
}
