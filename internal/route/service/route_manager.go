package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/model"
	"food-dispatch/internal/common/rmq"
	"food-dispatch/internal/common/websocket"
	"food-dispatch/internal/geo"
	"food-dispatch/internal/route/repository"
)

type RouteRepository interface {
	AcceptOrder(ctx context.Context, driverID, orderID string, maxOrders int, startLoc *model.LatLng) (*repository.AcceptResult, error)
	StartDelivery(ctx context.Context, driverID, orderID string) error
	CompleteDelivery(ctx context.Context, routeOrderID, orderID string) (*repository.CompleteResult, error)
	CancelOrder(ctx context.Context, orderID, reason string) (*repository.CompleteResult, error)
	ActiveRoute(ctx context.Context, driverID string) (*model.DriverRoute, []repository.RouteStop, error)
	UpdateRouteProgress(ctx context.Context, routeID string, current model.LatLng, totalDistanceKm, totalDurationMin float64, eta *time.Time) error
}

type LocationResolver interface {
	CurrentLocation(ctx context.Context, driverID string) (*model.LatLng, error)
}

type EventPublisher interface {
	PublishOrderStatus(ctx context.Context, msg rmq.OrderStatusMessage) error
	PublishRouteCompleted(ctx context.Context, msg rmq.RouteCompletedMessage) error
}

// RouteService owns every mutation of DriverRoute and RouteOrder. Accepts
// for one driver are serialized twice over: a per-driver mutex here and a
// row lock inside the repository transaction, so a stale order count can
// never pass the capacity check.
type RouteService struct {
	repo      RouteRepository
	locations LocationResolver
	publisher EventPublisher
	wsHub     *websocket.Hub
	maxOrders int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRouteManager(repo RouteRepository, locations LocationResolver, publisher EventPublisher, wsHub *websocket.Hub, maxOrders int) *RouteService {
	if maxOrders <= 0 {
		maxOrders = 5
	}
	return &RouteService{
		repo:      repo,
		locations: locations,
		publisher: publisher,
		wsHub:     wsHub,
		maxOrders: maxOrders,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *RouteService) driverLock(driverID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[driverID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[driverID] = l
	}
	return l
}

// AcceptOrder adds an order to the driver's active route, creating the route
// when none exists. Accepting conflates with pickup: the order jumps from
// READY to PICKED_UP and the pickup timestamp is set in the same transaction.
func (s *RouteService) AcceptOrder(ctx context.Context, driverID, orderID string) (*repository.AcceptResult, error) {
	lock := s.driverLock(driverID)
	lock.Lock()
	defer lock.Unlock()

	// Route start location comes from the last known fix; absent one the
	// route simply starts without coordinates.
	var startLoc *model.LatLng
	if loc, err := s.locations.CurrentLocation(ctx, driverID); err == nil {
		startLoc = loc
	}

	res, err := s.repo.AcceptOrder(ctx, driverID, orderID, s.maxOrders, startLoc)
	if err != nil {
		if errors.Is(err, model.ErrCapacityExceeded) {
			logger.Warn("accept_order", "Route at capacity", "", orderID, err.Error())
		} else {
			logger.Error("accept_order", "Failed to accept order", "", orderID, err.Error())
		}
		return nil, err
	}

	logger.Info("accept_order",
		fmt.Sprintf("Driver %s accepted order %s (route %s, stop %d of max %d)",
			driverID, orderID, res.Route.ID, res.RouteOrder.SequenceNumber, res.Route.MaxOrders),
		"", orderID)

	s.publishStatus(ctx, rmq.OrderStatusMessage{
		OrderID:     res.Order.ID,
		OrderNumber: res.Order.OrderNumber,
		DriverID:    driverID,
		RouteID:     res.Route.ID,
		OldStatus:   string(model.OrderReady),
		NewStatus:   string(model.OrderPickedUp),
		ChangedAt:   time.Now().UTC(),
	})

	return res, nil
}

// StartDelivery marks the driver as leaving the restaurant with the order.
func (s *RouteService) StartDelivery(ctx context.Context, driverID, orderID string) error {
	if err := s.repo.StartDelivery(ctx, driverID, orderID); err != nil {
		logger.Error("start_delivery", "Failed to start delivery", "", orderID, err.Error())
		return err
	}

	logger.Info("start_delivery", fmt.Sprintf("Driver %s is delivering order %s", driverID, orderID), "", orderID)
	s.publishStatus(ctx, rmq.OrderStatusMessage{
		OrderID:   orderID,
		DriverID:  driverID,
		OldStatus: string(model.OrderPickedUp),
		NewStatus: string(model.OrderDelivering),
		ChangedAt: time.Now().UTC(),
	})
	return nil
}

// CompleteDelivery finishes one stop. Idempotent: a second call for an
// already-delivered order returns the current state and changes nothing.
func (s *RouteService) CompleteDelivery(ctx context.Context, routeOrderID, orderID string) (*repository.CompleteResult, error) {
	res, err := s.repo.CompleteDelivery(ctx, routeOrderID, orderID)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyDelivered) {
			logger.Info("complete_delivery", "Order already delivered; no-op", "", orderID)
			return nil, err
		}
		logger.Error("complete_delivery", "Failed to complete delivery", "", orderID, err.Error())
		return nil, err
	}

	logger.Info("complete_delivery",
		fmt.Sprintf("Order %s delivered (route %s)", orderID, res.RouteID), "", orderID)

	s.publishStatus(ctx, rmq.OrderStatusMessage{
		OrderID:   orderID,
		DriverID:  res.DriverID,
		RouteID:   res.RouteID,
		NewStatus: string(model.OrderDelivered),
		ChangedAt: time.Now().UTC(),
	})

	if res.RouteCompleted {
		s.announceRouteCompleted(ctx, res, orderID)
	}

	return res, nil
}

// announceRouteCompleted publishes the completion event and notifies the
// driver. Called on whichever terminal transition closed the last open stop,
// delivery or cancellation alike.
func (s *RouteService) announceRouteCompleted(ctx context.Context, res *repository.CompleteResult, orderID string) {
	logger.Info("route_completed",
		fmt.Sprintf("Route %s completed with %d deliveries", res.RouteID, res.DeliveredCount), "", orderID)
	if err := s.publisher.PublishRouteCompleted(ctx, rmq.RouteCompletedMessage{
		RouteID:         res.RouteID,
		DriverID:        res.DriverID,
		OrdersDelivered: res.DeliveredCount,
		CompletedAt:     time.Now().UTC(),
	}); err != nil {
		logger.Warn("route_completed", "Failed to publish route completion", "", orderID, err.Error())
	}
	s.notifyDriver(res.DriverID, model.EventRouteCompleted, map[string]any{
		"route_id":         res.RouteID,
		"orders_delivered": res.DeliveredCount,
	})
}

// ActiveRoute returns the driver's route annotated with a rolling distance
// estimate over the remaining stops. ErrNotFound means "no active route".
func (s *RouteService) ActiveRoute(ctx context.Context, driverID string) (*model.DriverRoute, []repository.RouteStop, error) {
	route, stops, err := s.repo.ActiveRoute(ctx, driverID)
	if err != nil {
		return nil, nil, err
	}

	if loc, lerr := s.locations.CurrentLocation(ctx, driverID); lerr == nil {
		distance, duration := remainingLeg(*loc, stops)
		eta := time.Now().UTC().Add(time.Duration(duration * float64(time.Minute)))
		if uerr := s.repo.UpdateRouteProgress(ctx, route.ID, *loc, distance, duration, &eta); uerr != nil {
			logger.Warn("route_progress", "Failed to persist route progress", "", "", uerr.Error())
		}
		route.CurrentLocation = loc
		route.TotalDistanceKm = distance
		route.TotalDurationMinutes = duration
		route.EstimatedCompletionTime = &eta
	}

	return route, stops, nil
}

// remainingLeg chains straight-line distances from the driver's position
// through every undelivered stop, in sequence order. Stops without customer
// coordinates contribute nothing.
func remainingLeg(from model.LatLng, stops []repository.RouteStop) (distanceKm, durationMin float64) {
	cursor := from
	for _, stop := range stops {
		if stop.RouteOrder.Status.Terminal() {
			continue
		}
		if stop.Order.DeliveryLocation == nil {
			continue
		}
		d := geo.DistanceKm(cursor, *stop.Order.DeliveryLocation)
		distanceKm += d
		durationMin += geo.EstimatedDurationMinutes(d)
		cursor = *stop.Order.DeliveryLocation
	}
	return distanceKm, durationMin
}

// HandleOrderEvent reacts to order changes made outside this service.
// READY orders trigger a feed-refresh nudge to connected drivers;
// cancellations are applied to the local route view.
func (s *RouteService) HandleOrderEvent(ctx context.Context, msg rmq.OrderStatusMessage) {
	switch model.OrderStatus(msg.NewStatus) {
	case model.OrderReady:
		s.broadcast(model.EventOrderReady, map[string]any{
			"order_id":     msg.OrderID,
			"order_number": msg.OrderNumber,
		})
	case model.OrderCancelled:
		res, err := s.repo.CancelOrder(ctx, msg.OrderID, msg.Reason)
		if err != nil {
			logger.Error("order_cancelled", "Failed to apply external cancellation", "", msg.OrderID, err.Error())
			return
		}
		logger.Info("order_cancelled", "Applied external cancellation", "", msg.OrderID)
		if res.DriverID != "" {
			s.notifyDriver(res.DriverID, model.EventOrderCancelled, map[string]any{
				"order_id": msg.OrderID,
				"reason":   msg.Reason,
			})
		}
		// Cancelling the last open stop closes the route just like a
		// delivery does.
		if res.RouteCompleted {
			s.announceRouteCompleted(ctx, res, msg.OrderID)
		}
	}
}

func (s *RouteService) publishStatus(ctx context.Context, msg rmq.OrderStatusMessage) {
	if err := s.publisher.PublishOrderStatus(ctx, msg); err != nil {
		logger.Warn("publish_order_status", "Failed to publish order status", "", msg.OrderID, err.Error())
	}
}

func (s *RouteService) notifyDriver(driverID string, event model.OrderEventType, payload map[string]any) {
	if s.wsHub == nil {
		return
	}
	data, _ := json.Marshal(map[string]any{
		"type": string(event),
		"data": payload,
	})
	s.wsHub.SendToClient("driver_"+driverID, data)
}

func (s *RouteService) broadcast(event model.OrderEventType, payload map[string]any) {
	if s.wsHub == nil {
		return
	}
	data, _ := json.Marshal(map[string]any{
		"type": string(event),
		"data": payload,
	})
	s.wsHub.Broadcast(data)
}
