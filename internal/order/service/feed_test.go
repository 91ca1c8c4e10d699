package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"food-dispatch/internal/common/model"
)

type fakeOrderRepo struct {
	orders []model.AvailableOrder
	err    error
}

func (r *fakeOrderRepo) ReadyUnassigned(ctx context.Context) ([]model.AvailableOrder, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]model.AvailableOrder, len(r.orders))
	copy(out, r.orders)
	return out, nil
}

func (r *fakeOrderRepo) GetOrder(ctx context.Context, orderID string) (*model.AvailableOrder, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, o := range r.orders {
		if o.ID == orderID {
			detail := o
			return &detail, nil
		}
	}
	return nil, model.ErrNotFound
}

type fakeLocations struct {
	loc *model.LatLng
}

func (f fakeLocations) CurrentLocation(ctx context.Context, driverID string) (*model.LatLng, error) {
	if f.loc == nil {
		return nil, model.ErrNotFound
	}
	return f.loc, nil
}

func available(id string, createdAt time.Time) model.AvailableOrder {
	return model.AvailableOrder{
		Order: model.Order{
			ID:          id,
			OrderNumber: "ORD-" + id,
			Status:      model.OrderReady,
			CreatedAt:   createdAt,
		},
		RestaurantName: "Resto " + id,
	}
}

func withRestaurant(o model.AvailableOrder, lat, lng float64) model.AvailableOrder {
	o.RestaurantLocation = &model.LatLng{Lat: lat, Lng: lng}
	return o
}

func TestAvailableSortsByRestaurantDistance(t *testing.T) {
	base := time.Now()
	repo := &fakeOrderRepo{orders: []model.AvailableOrder{
		withRestaurant(available("far", base), 0, 0.5),
		withRestaurant(available("near", base.Add(time.Minute)), 0, 0.1),
		withRestaurant(available("mid", base.Add(2*time.Minute)), 0, 0.3),
	}}
	svc := NewFeedService(repo, fakeLocations{loc: &model.LatLng{Lat: 0, Lng: 0}})

	got, err := svc.Available(context.Background(), "d1", nil, 10)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}

	wantOrder := []string{"near", "mid", "far"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d orders, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
		if got[i].DistanceToRestaurantKm == nil {
			t.Errorf("order %s missing restaurant distance", id)
		}
	}
	if d := *got[0].DistanceToRestaurantKm; d < 11.0 || d > 11.3 {
		t.Errorf("nearest distance = %.1f km, want ~11.1", d)
	}
}

// Orders whose restaurant has no coordinates sort after every order with a
// known distance, keeping their oldest-first order among themselves.
func TestAvailableUnknownDistanceSortsLast(t *testing.T) {
	base := time.Now()
	repo := &fakeOrderRepo{orders: []model.AvailableOrder{
		available("unknown-old", base),
		withRestaurant(available("known", base.Add(time.Minute)), 0, 0.2),
		available("unknown-new", base.Add(2*time.Minute)),
	}}
	svc := NewFeedService(repo, fakeLocations{loc: &model.LatLng{Lat: 0, Lng: 0}})

	got, err := svc.Available(context.Background(), "d1", nil, 10)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}

	wantOrder := []string{"known", "unknown-old", "unknown-new"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
	if got[1].DistanceToRestaurantKm != nil {
		t.Error("unknown restaurant should carry a nil distance, not zero")
	}
}

func TestAvailableLimit(t *testing.T) {
	base := time.Now()
	repo := &fakeOrderRepo{orders: []model.AvailableOrder{
		withRestaurant(available("a", base), 0, 0.1),
		withRestaurant(available("b", base), 0, 0.2),
		withRestaurant(available("c", base), 0, 0.3),
	}}
	svc := NewFeedService(repo, fakeLocations{loc: &model.LatLng{Lat: 0, Lng: 0}})

	got, err := svc.Available(context.Background(), "d1", nil, 2)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d orders, want 2", len(got))
	}

	empty, err := svc.Available(context.Background(), "d1", nil, 0)
	if err != nil {
		t.Fatalf("Available with zero limit: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("zero limit returned %d orders, want none", len(empty))
	}
}

func TestAvailableNoDriverLocation(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := NewFeedService(repo, fakeLocations{})

	_, err := svc.Available(context.Background(), "d1", nil, 10)
	if !errors.Is(err, model.ErrGeolocationUnavailable) {
		t.Fatalf("error = %v, want ErrGeolocationUnavailable", err)
	}
}

func TestOrderDetail(t *testing.T) {
	base := time.Now()
	repo := &fakeOrderRepo{orders: []model.AvailableOrder{
		withRestaurant(available("a", base), 0, 0.1),
	}}
	svc := NewFeedService(repo, fakeLocations{loc: &model.LatLng{Lat: 0, Lng: 0}})

	got, err := svc.Order(context.Background(), "d1", "a")
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if got.DistanceToRestaurantKm == nil {
		t.Fatal("detail missing restaurant distance")
	}
	if d := *got.DistanceToRestaurantKm; d < 11.0 || d > 11.3 {
		t.Errorf("restaurant distance = %.1f km, want ~11.1", d)
	}

	if _, err := svc.Order(context.Background(), "d1", "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown order error = %v, want ErrNotFound", err)
	}
}

func TestAvailableExplicitLocationSkipsResolver(t *testing.T) {
	base := time.Now()
	repo := &fakeOrderRepo{orders: []model.AvailableOrder{
		withRestaurant(available("a", base), 0, 0.1),
	}}
	// Resolver knows nothing; the caller-provided position must win.
	svc := NewFeedService(repo, fakeLocations{})

	got, err := svc.Available(context.Background(), "d1", &model.LatLng{Lat: 0, Lng: 0}, 10)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if len(got) != 1 || got[0].DistanceToRestaurantKm == nil {
		t.Fatal("expected one order annotated with a distance")
	}
}
