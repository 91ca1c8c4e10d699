package repository

import (
	"context"
	"fmt"

	"food-dispatch/internal/common/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

// ReadyUnassigned returns orders that are ready for pickup and have no
// driver, oldest first so equally-ranked orders keep their fairness order.
func (r *OrderRepository) ReadyUnassigned(ctx context.Context) ([]model.AvailableOrder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.order_number, o.customer_id, o.restaurant_id, o.status,
		       o.total_amount, o.delivery_address,
		       o.delivery_latitude, o.delivery_longitude,
		       o.created_at, o.ready_at,
		       res.name, res.latitude, res.longitude
		FROM orders o
		JOIN restaurants res ON res.id = o.restaurant_id
		WHERE o.status = 'READY' AND o.driver_id IS NULL
		ORDER BY o.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query available orders: %w", err)
	}
	defer rows.Close()

	var orders []model.AvailableOrder
	for rows.Next() {
		var (
			o                model.AvailableOrder
			deliveryLat      *float64
			deliveryLng      *float64
			restaurantLat    *float64
			restaurantLng    *float64
		)
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.CustomerID, &o.RestaurantID, &o.Status,
			&o.TotalAmount, &o.DeliveryAddress,
			&deliveryLat, &deliveryLng,
			&o.CreatedAt, &o.ReadyAt,
			&o.RestaurantName, &restaurantLat, &restaurantLng,
		); err != nil {
			return nil, fmt.Errorf("failed to scan available order: %w", err)
		}

		if restaurantLat != nil && restaurantLng != nil {
			o.RestaurantLocation = &model.LatLng{Lat: *restaurantLat, Lng: *restaurantLng}
		}
		if deliveryLat != nil && deliveryLng != nil {
			o.DeliveryLocation = &model.LatLng{Lat: *deliveryLat, Lng: *deliveryLng}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read available orders: %w", err)
	}

	return orders, nil
}

// GetOrder loads a single order with its restaurant name and coordinates.
func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (*model.AvailableOrder, error) {
	var (
		o             model.AvailableOrder
		deliveryLat   *float64
		deliveryLng   *float64
		restaurantLat *float64
		restaurantLng *float64
	)
	err := r.db.QueryRow(ctx, `
		SELECT o.id, o.order_number, o.customer_id, o.restaurant_id, o.driver_id,
		       o.status, o.total_amount, o.delivery_address,
		       o.delivery_latitude, o.delivery_longitude,
		       o.created_at, o.ready_at, o.pickup_time, o.actual_delivery_time,
		       res.name, res.latitude, res.longitude
		FROM orders o
		JOIN restaurants res ON res.id = o.restaurant_id
		WHERE o.id = $1
	`, orderID).Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.RestaurantID, &o.DriverID,
		&o.Status, &o.TotalAmount, &o.DeliveryAddress,
		&deliveryLat, &deliveryLng,
		&o.CreatedAt, &o.ReadyAt, &o.PickupTime, &o.ActualDeliveryTime,
		&o.RestaurantName, &restaurantLat, &restaurantLng,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if restaurantLat != nil && restaurantLng != nil {
		o.RestaurantLocation = &model.LatLng{Lat: *restaurantLat, Lng: *restaurantLng}
	}
	if deliveryLat != nil && deliveryLng != nil {
		o.DeliveryLocation = &model.LatLng{Lat: *deliveryLat, Lng: *deliveryLng}
	}
	return &o, nil
}
