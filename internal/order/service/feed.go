package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"food-dispatch/internal/common/model"
	"food-dispatch/internal/geo"
)

type OrderRepository interface {
	ReadyUnassigned(ctx context.Context) ([]model.AvailableOrder, error)
	GetOrder(ctx context.Context, orderID string) (*model.AvailableOrder, error)
}

type LocationResolver interface {
	CurrentLocation(ctx context.Context, driverID string) (*model.LatLng, error)
}

// FeedService produces the ranked available-order list for a driver.
// Read-only; distances are recomputed against the driver's position on every
// call and never cached.
type FeedService struct {
	orders    OrderRepository
	locations LocationResolver
}

func NewFeedService(orders OrderRepository, locations LocationResolver) *FeedService {
	return &FeedService{orders: orders, locations: locations}
}

// Available returns at most limit READY, unassigned orders annotated with
// distances and sorted ascending by restaurant distance. Orders whose
// restaurant coordinates are unknown carry a nil distance and sort last;
// they are not treated as zero kilometres away.
func (s *FeedService) Available(ctx context.Context, driverID string, driverLoc *model.LatLng, limit int) ([]model.AvailableOrder, error) {
	if limit <= 0 {
		return []model.AvailableOrder{}, nil
	}

	if driverLoc == nil {
		loc, err := s.locations.CurrentLocation(ctx, driverID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("%w: driver location unknown", model.ErrGeolocationUnavailable)
			}
			return nil, err
		}
		driverLoc = loc
	}

	orders, err := s.orders.ReadyUnassigned(ctx)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].RestaurantLocation != nil {
			d := geo.DistanceKm(*driverLoc, *orders[i].RestaurantLocation)
			orders[i].DistanceToRestaurantKm = &d
		}
		if orders[i].DeliveryLocation != nil {
			d := geo.DistanceKm(*driverLoc, *orders[i].DeliveryLocation)
			orders[i].DistanceToCustomerKm = &d
		}
	}

	// Stable sort keeps the repository's oldest-first order among ties and
	// among the unknown-distance tail.
	sort.SliceStable(orders, func(i, j int) bool {
		di, dj := orders[i].DistanceToRestaurantKm, orders[j].DistanceToRestaurantKm
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return *di < *dj
	})

	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// Order returns one order with its restaurant and delivery coordinates,
// annotated with distances when the driver's position is known.
func (s *FeedService) Order(ctx context.Context, driverID, orderID string) (*model.AvailableOrder, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if loc, lerr := s.locations.CurrentLocation(ctx, driverID); lerr == nil {
		if o.RestaurantLocation != nil {
			d := geo.DistanceKm(*loc, *o.RestaurantLocation)
			o.DistanceToRestaurantKm = &d
		}
		if o.DeliveryLocation != nil {
			d := geo.DistanceKm(*loc, *o.DeliveryLocation)
			o.DistanceToCustomerKm = &d
		}
	}
	return o, nil
}
