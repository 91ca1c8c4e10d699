package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"food-dispatch/internal/common/model"
	"food-dispatch/internal/common/rmq"
	"food-dispatch/internal/route/repository"
)

// fakeRouteRepo mirrors the accept/complete transaction semantics in memory:
// one active route per driver, high-water-mark capacity, 1-based sequence
// numbers, route completion once every stop is terminal.
type fakeRouteRepo struct {
	mu sync.Mutex

	orders      map[string]*model.Order
	route       *model.DriverRoute
	routeOrders []*model.RouteOrder

	cancelCalls []string
	nextID      int
}

func newFakeRouteRepo(orders ...*model.Order) *fakeRouteRepo {
	r := &fakeRouteRepo{orders: make(map[string]*model.Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func readyOrder(id string) *model.Order {
	return &model.Order{
		ID:          id,
		OrderNumber: "ORD-" + id,
		Status:      model.OrderReady,
		DeliveryLocation: &model.LatLng{
			Lat: 0, Lng: 0.1,
		},
	}
}

func (r *fakeRouteRepo) genID() string {
	r.nextID++
	return fmt.Sprintf("id-%d", r.nextID)
}

func (r *fakeRouteRepo) AcceptOrder(ctx context.Context, driverID, orderID string, maxOrders int, startLoc *model.LatLng) (*repository.AcceptResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &repository.AcceptResult{}
	if r.route == nil || r.route.Status != model.RouteActive {
		r.route = &model.DriverRoute{
			ID:            r.genID(),
			DriverID:      driverID,
			Status:        model.RouteActive,
			MaxOrders:     maxOrders,
			StartLocation: startLoc,
			CreatedAt:     time.Now(),
		}
		r.routeOrders = nil
		res.NewRoute = true
	}

	if r.route.CurrentOrderCount >= r.route.MaxOrders {
		return nil, model.ErrCapacityExceeded
	}

	o, ok := r.orders[orderID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if o.Status != model.OrderReady || o.DriverID != nil {
		return nil, model.ErrOrderUnavailable
	}

	now := time.Now()
	o.Status = model.OrderPickedUp
	o.DriverID = &driverID
	o.PickupTime = &now

	ro := &model.RouteOrder{
		ID:             r.genID(),
		RouteID:        r.route.ID,
		OrderID:        orderID,
		SequenceNumber: len(r.routeOrders) + 1,
		Status:         model.RouteOrderPickedUp,
		PickupTime:     &now,
	}
	r.routeOrders = append(r.routeOrders, ro)
	r.route.CurrentOrderCount++

	res.Route = *r.route
	res.RouteOrder = *ro
	res.Order = *o
	return res, nil
}

func (r *fakeRouteRepo) StartDelivery(ctx context.Context, driverID, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != model.OrderPickedUp {
		return model.ErrOrderUnavailable
	}
	o.Status = model.OrderDelivering
	return nil
}

func (r *fakeRouteRepo) CompleteDelivery(ctx context.Context, routeOrderID, orderID string) (*repository.CompleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ro *model.RouteOrder
	for _, cand := range r.routeOrders {
		if cand.ID == routeOrderID && cand.OrderID == orderID {
			ro = cand
			break
		}
	}
	if ro == nil {
		return nil, model.ErrNotFound
	}
	if ro.Status == model.RouteOrderDelivered {
		return nil, model.ErrAlreadyDelivered
	}
	if ro.Status == model.RouteOrderCancelled {
		return nil, model.ErrOrderUnavailable
	}

	now := time.Now()
	ro.Status = model.RouteOrderDelivered
	ro.DeliveryTime = &now
	o := r.orders[orderID]
	o.Status = model.OrderDelivered
	o.ActualDeliveryTime = &now

	res := &repository.CompleteResult{
		Order:      *o,
		RouteOrder: *ro,
		RouteID:    ro.RouteID,
		DriverID:   r.route.DriverID,
	}

	open, delivered := 0, 0
	for _, cand := range r.routeOrders {
		if cand.Status.Terminal() {
			if cand.Status == model.RouteOrderDelivered {
				delivered++
			}
			continue
		}
		open++
	}
	if open == 0 {
		r.route.Status = model.RouteCompleted
		res.RouteCompleted = true
		res.DeliveredCount = delivered
	}
	return res, nil
}

func (r *fakeRouteRepo) CancelOrder(ctx context.Context, orderID, reason string) (*repository.CompleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelCalls = append(r.cancelCalls, orderID)

	res := &repository.CompleteResult{}
	if o, ok := r.orders[orderID]; ok {
		o.Status = model.OrderCancelled
	}
	cancelled := false
	for _, ro := range r.routeOrders {
		if ro.OrderID == orderID && ro.Status == model.RouteOrderPickedUp {
			ro.Status = model.RouteOrderCancelled
			res.RouteID = ro.RouteID
			res.DriverID = r.route.DriverID
			cancelled = true
		}
	}
	if !cancelled {
		return res, nil
	}

	open, delivered := 0, 0
	for _, ro := range r.routeOrders {
		if ro.Status.Terminal() {
			if ro.Status == model.RouteOrderDelivered {
				delivered++
			}
			continue
		}
		open++
	}
	if open == 0 {
		r.route.Status = model.RouteCompleted
		res.RouteCompleted = true
		res.DeliveredCount = delivered
	}
	return res, nil
}

func (r *fakeRouteRepo) ActiveRoute(ctx context.Context, driverID string) (*model.DriverRoute, []repository.RouteStop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.route == nil || r.route.Status != model.RouteActive {
		return nil, nil, model.ErrNotFound
	}
	route := *r.route
	var stops []repository.RouteStop
	for _, ro := range r.routeOrders {
		stops = append(stops, repository.RouteStop{
			RouteOrder: *ro,
			Order:      *r.orders[ro.OrderID],
		})
	}
	return &route, stops, nil
}

func (r *fakeRouteRepo) UpdateRouteProgress(ctx context.Context, routeID string, current model.LatLng, totalDistanceKm, totalDurationMin float64, eta *time.Time) error {
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	statuses  []rmq.OrderStatusMessage
	completed []rmq.RouteCompletedMessage
}

func (p *fakePublisher) PublishOrderStatus(ctx context.Context, msg rmq.OrderStatusMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, msg)
	return nil
}

func (p *fakePublisher) PublishRouteCompleted(ctx context.Context, msg rmq.RouteCompletedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, msg)
	return nil
}

type fixedLocation struct {
	loc *model.LatLng
}

func (f fixedLocation) CurrentLocation(ctx context.Context, driverID string) (*model.LatLng, error) {
	if f.loc == nil {
		return nil, model.ErrNotFound
	}
	return f.loc, nil
}

func newTestService(repo RouteRepository, maxOrders int) (*RouteService, *fakePublisher) {
	pub := &fakePublisher{}
	svc := NewRouteManager(repo, fixedLocation{loc: &model.LatLng{Lat: 0, Lng: 0}}, pub, nil, maxOrders)
	return svc, pub
}

func TestAcceptOrderCreatesRoute(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"))
	svc, pub := newTestService(repo, 5)

	res, err := svc.AcceptOrder(context.Background(), "d1", "o1")
	if err != nil {
		t.Fatalf("AcceptOrder: %v", err)
	}
	if !res.NewRoute {
		t.Error("expected a new route to be created")
	}
	if res.RouteOrder.SequenceNumber != 1 {
		t.Errorf("sequence number = %d, want 1", res.RouteOrder.SequenceNumber)
	}
	if res.Route.CurrentOrderCount != 1 {
		t.Errorf("current order count = %d, want 1", res.Route.CurrentOrderCount)
	}
	if res.Order.Status != model.OrderPickedUp {
		t.Errorf("order status = %s, want PICKED_UP", res.Order.Status)
	}
	if res.Order.PickupTime == nil {
		t.Error("pickup time not set on accept")
	}

	if len(pub.statuses) != 1 {
		t.Fatalf("published %d status messages, want 1", len(pub.statuses))
	}
	msg := pub.statuses[0]
	if msg.OldStatus != "READY" || msg.NewStatus != "PICKED_UP" {
		t.Errorf("published transition %s->%s, want READY->PICKED_UP", msg.OldStatus, msg.NewStatus)
	}
}

func TestAcceptOrderSequenceNumbers(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"), readyOrder("o2"), readyOrder("o3"))
	svc, _ := newTestService(repo, 5)

	for i, id := range []string{"o1", "o2", "o3"} {
		res, err := svc.AcceptOrder(context.Background(), "d1", id)
		if err != nil {
			t.Fatalf("accept %s: %v", id, err)
		}
		if res.RouteOrder.SequenceNumber != i+1 {
			t.Errorf("order %s got sequence %d, want %d", id, res.RouteOrder.SequenceNumber, i+1)
		}
		if res.Route.CurrentOrderCount != i+1 {
			t.Errorf("after %s count = %d, want %d", id, res.Route.CurrentOrderCount, i+1)
		}
	}
}

func TestAcceptOrderCapacity(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"), readyOrder("o2"), readyOrder("o3"))
	svc, _ := newTestService(repo, 2)

	for _, id := range []string{"o1", "o2"} {
		if _, err := svc.AcceptOrder(context.Background(), "d1", id); err != nil {
			t.Fatalf("accept %s: %v", id, err)
		}
	}

	_, err := svc.AcceptOrder(context.Background(), "d1", "o3")
	if !errors.Is(err, model.ErrCapacityExceeded) {
		t.Fatalf("third accept error = %v, want ErrCapacityExceeded", err)
	}
}

// Delivering an order frees no capacity: the count is a high-water mark
// over the route's lifetime.
func TestAcceptOrderCapacityIsHighWaterMark(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"), readyOrder("o2"), readyOrder("o3"))
	svc, _ := newTestService(repo, 2)

	a1, err := svc.AcceptOrder(context.Background(), "d1", "o1")
	if err != nil {
		t.Fatalf("accept o1: %v", err)
	}
	if _, err := svc.AcceptOrder(context.Background(), "d1", "o2"); err != nil {
		t.Fatalf("accept o2: %v", err)
	}

	if _, err := svc.CompleteDelivery(context.Background(), a1.RouteOrder.ID, "o1"); err != nil {
		t.Fatalf("complete o1: %v", err)
	}

	_, err = svc.AcceptOrder(context.Background(), "d1", "o3")
	if !errors.Is(err, model.ErrCapacityExceeded) {
		t.Fatalf("accept after delivery error = %v, want ErrCapacityExceeded", err)
	}
}

// Near-simultaneous accepts must serialize: with capacity 1, exactly one of
// N concurrent accepts may pass the capacity check, no matter how they
// interleave.
func TestAcceptOrderConcurrent(t *testing.T) {
	const n = 10
	orders := make([]*model.Order, n)
	ids := make([]string, n)
	for i := range orders {
		ids[i] = fmt.Sprintf("o%d", i)
		orders[i] = readyOrder(ids[i])
	}
	repo := newFakeRouteRepo(orders...)
	svc, _ := newTestService(repo, 1)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AcceptOrder(context.Background(), "d1", ids[i])
		}(i)
	}
	wg.Wait()

	accepted, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, model.ErrCapacityExceeded):
			rejected++
		default:
			t.Errorf("unexpected accept error: %v", err)
		}
	}
	if accepted != 1 {
		t.Errorf("%d accepts succeeded, want exactly 1", accepted)
	}
	if rejected != n-1 {
		t.Errorf("%d accepts hit capacity, want %d", rejected, n-1)
	}
}

func TestAcceptOrderUnavailable(t *testing.T) {
	o := readyOrder("o1")
	o.Status = model.OrderPreparing
	repo := newFakeRouteRepo(o)
	svc, _ := newTestService(repo, 5)

	_, err := svc.AcceptOrder(context.Background(), "d1", "o1")
	if !errors.Is(err, model.ErrOrderUnavailable) {
		t.Fatalf("accept error = %v, want ErrOrderUnavailable", err)
	}
}

func TestCompleteDeliveryIdempotent(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"))
	svc, _ := newTestService(repo, 5)

	res, err := svc.AcceptOrder(context.Background(), "d1", "o1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := svc.CompleteDelivery(context.Background(), res.RouteOrder.ID, "o1"); err != nil {
		t.Fatalf("first complete: %v", err)
	}

	_, err = svc.CompleteDelivery(context.Background(), res.RouteOrder.ID, "o1")
	if !errors.Is(err, model.ErrAlreadyDelivered) {
		t.Fatalf("second complete error = %v, want ErrAlreadyDelivered", err)
	}
}

func TestRouteCompletesWhenAllDelivered(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"), readyOrder("o2"))
	svc, pub := newTestService(repo, 5)

	a1, err := svc.AcceptOrder(context.Background(), "d1", "o1")
	if err != nil {
		t.Fatalf("accept o1: %v", err)
	}
	a2, err := svc.AcceptOrder(context.Background(), "d1", "o2")
	if err != nil {
		t.Fatalf("accept o2: %v", err)
	}

	first, err := svc.CompleteDelivery(context.Background(), a1.RouteOrder.ID, "o1")
	if err != nil {
		t.Fatalf("complete o1: %v", err)
	}
	if first.RouteCompleted {
		t.Error("route reported complete with one stop still open")
	}

	second, err := svc.CompleteDelivery(context.Background(), a2.RouteOrder.ID, "o2")
	if err != nil {
		t.Fatalf("complete o2: %v", err)
	}
	if !second.RouteCompleted {
		t.Fatal("route not reported complete after last delivery")
	}
	if second.DeliveredCount != 2 {
		t.Errorf("delivered count = %d, want 2", second.DeliveredCount)
	}

	if len(pub.completed) != 1 {
		t.Fatalf("published %d route completions, want 1", len(pub.completed))
	}
	if pub.completed[0].OrdersDelivered != 2 {
		t.Errorf("completion message orders = %d, want 2", pub.completed[0].OrdersDelivered)
	}
}

func TestHandleOrderEventCancellation(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"), readyOrder("o2"))
	svc, _ := newTestService(repo, 5)

	if _, err := svc.AcceptOrder(context.Background(), "d1", "o1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	svc.HandleOrderEvent(context.Background(), rmq.OrderStatusMessage{
		OrderID:   "o1",
		NewStatus: string(model.OrderCancelled),
		Reason:    "customer cancelled",
	})

	if len(repo.cancelCalls) != 1 || repo.cancelCalls[0] != "o1" {
		t.Fatalf("cancel calls = %v, want [o1]", repo.cancelCalls)
	}
	if repo.orders["o1"].Status != model.OrderCancelled {
		t.Errorf("order status = %s, want CANCELLED", repo.orders["o1"].Status)
	}
}

// A cancellation that terminates the last open stop must close the route
// exactly as a final delivery would, completion event included.
func TestCancellationOfLastStopCompletesRoute(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"), readyOrder("o2"))
	svc, pub := newTestService(repo, 5)

	a1, err := svc.AcceptOrder(context.Background(), "d1", "o1")
	if err != nil {
		t.Fatalf("accept o1: %v", err)
	}
	if _, err := svc.AcceptOrder(context.Background(), "d1", "o2"); err != nil {
		t.Fatalf("accept o2: %v", err)
	}

	if _, err := svc.CompleteDelivery(context.Background(), a1.RouteOrder.ID, "o1"); err != nil {
		t.Fatalf("complete o1: %v", err)
	}

	svc.HandleOrderEvent(context.Background(), rmq.OrderStatusMessage{
		OrderID:   "o2",
		NewStatus: string(model.OrderCancelled),
		Reason:    "customer cancelled",
	})

	if repo.route.Status != model.RouteCompleted {
		t.Errorf("route status = %s, want COMPLETED", repo.route.Status)
	}
	if len(pub.completed) != 1 {
		t.Fatalf("published %d route completions, want 1", len(pub.completed))
	}
	if pub.completed[0].OrdersDelivered != 1 {
		t.Errorf("completion message orders = %d, want 1", pub.completed[0].OrdersDelivered)
	}
}

func TestActiveRouteAnnotatesProgress(t *testing.T) {
	repo := newFakeRouteRepo(readyOrder("o1"))
	svc, _ := newTestService(repo, 5)

	if _, err := svc.AcceptOrder(context.Background(), "d1", "o1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	route, stops, err := svc.ActiveRoute(context.Background(), "d1")
	if err != nil {
		t.Fatalf("ActiveRoute: %v", err)
	}
	if len(stops) != 1 {
		t.Fatalf("got %d stops, want 1", len(stops))
	}
	// Driver at the equator origin, delivery 0.1 degrees east.
	if route.TotalDistanceKm < 11.0 || route.TotalDistanceKm > 11.3 {
		t.Errorf("remaining distance = %.1f km, want ~11.1", route.TotalDistanceKm)
	}
	if route.EstimatedCompletionTime == nil {
		t.Error("estimated completion time not set")
	}
}

func TestActiveRouteNotFound(t *testing.T) {
	repo := newFakeRouteRepo()
	svc, _ := newTestService(repo, 5)

	_, _, err := svc.ActiveRoute(context.Background(), "d1")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
