package repository

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/admin/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository struct {
	db *pgxpool.Pool
}

func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDispatchOverview(ctx context.Context) (*model.DispatchOverview, error) {
	overview := &model.DispatchOverview{
		Timestamp: time.Now().UTC(),
	}

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM drivers WHERE status = 'AVAILABLE'
	`).Scan(&overview.Metrics.DriversOnline)
	if err != nil {
		return nil, fmt.Errorf("failed to get online drivers count: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM drivers WHERE status = 'BUSY'
	`).Scan(&overview.Metrics.DriversBusy)
	if err != nil {
		return nil, fmt.Errorf("failed to get busy drivers count: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(current_order_count), 0)
		FROM driver_routes WHERE status = 'ACTIVE'
	`).Scan(&overview.Metrics.ActiveRoutes, &overview.Metrics.AvgRouteLoad)
	if err != nil {
		return nil, fmt.Errorf("failed to get active routes: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE status = 'READY' AND driver_id IS NULL
	`).Scan(&overview.Metrics.OrdersAwaitingPickup)
	if err != nil {
		return nil, fmt.Errorf("failed to get awaiting orders count: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE status IN ('PICKED_UP', 'DELIVERING')
	`).Scan(&overview.Metrics.OrdersInDelivery)
	if err != nil {
		return nil, fmt.Errorf("failed to get in-delivery orders count: %w", err)
	}

	today := time.Now().Format("2006-01-02")
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE status = 'DELIVERED' AND DATE(actual_delivery_time) = $1
	`, today).Scan(&overview.Metrics.DeliveredToday)
	if err != nil {
		return nil, fmt.Errorf("failed to get delivered-today count: %w", err)
	}

	return overview, nil
}

func (r *AdminRepository) GetActiveRoutes(ctx context.Context, page, pageSize int) ([]model.ActiveRouteSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, driver_id, current_order_count, max_orders, created_at
		FROM driver_routes
		WHERE status = 'ACTIVE'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query active routes: %w", err)
	}
	defer rows.Close()

	var routes []model.ActiveRouteSummary
	for rows.Next() {
		var rt model.ActiveRouteSummary
		if err := rows.Scan(&rt.RouteID, &rt.DriverID, &rt.CurrentOrderCount, &rt.MaxOrders, &rt.CreatedAt); err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return routes, nil
}
