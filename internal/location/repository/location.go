package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"food-dispatch/internal/common/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const geoKeyDrivers = "geo:drivers"

func driverLocationKey(driverID string) string {
	return "driver:location:" + driverID
}

// LocationRepository persists the location stream: every fix is appended to
// location_history in Postgres and the last known position is kept hot in
// Redis (JSON blob + geo index) for the available-order feed.
type LocationRepository struct {
	db    *pgxpool.Pool
	cache *redis.Client
	ttl   time.Duration
}

func NewLocationRepository(db *pgxpool.Pool, cache *redis.Client, ttl time.Duration) *LocationRepository {
	return &LocationRepository{db: db, cache: cache, ttl: ttl}
}

func (r *LocationRepository) SaveFix(ctx context.Context, fix model.LocationFix) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO location_history (
			driver_id, latitude, longitude,
			accuracy_meters, speed_kmh, heading_degrees, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, fix.DriverID, fix.Latitude, fix.Longitude,
		fix.AccuracyMeters, fix.SpeedKmh, fix.HeadingDegrees, fix.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert location history: %w", err)
	}

	data, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("failed to marshal location fix: %w", err)
	}

	if err := r.cache.Set(ctx, driverLocationKey(fix.DriverID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache current location: %w", err)
	}

	if err := r.cache.GeoAdd(ctx, geoKeyDrivers, &redis.GeoLocation{
		Name:      fix.DriverID,
		Longitude: fix.Longitude,
		Latitude:  fix.Latitude,
	}).Err(); err != nil {
		return fmt.Errorf("failed to update driver geo index: %w", err)
	}

	return nil
}

// NearbyDrivers returns ids of drivers within radiusKm of center, nearest
// first. Only drivers present in the geo index (online, reporting fixes)
// are returned.
func (r *LocationRepository) NearbyDrivers(ctx context.Context, center model.LatLng, radiusKm float64, limit int) ([]model.NearbyDriver, error) {
	locs, err := r.cache.GeoSearchLocation(ctx, geoKeyDrivers, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search driver geo index: %w", err)
	}

	drivers := make([]model.NearbyDriver, 0, len(locs))
	for _, loc := range locs {
		drivers = append(drivers, model.NearbyDriver{
			DriverID:   loc.Name,
			Location:   model.LatLng{Lat: loc.Latitude, Lng: loc.Longitude},
			DistanceKm: loc.Dist,
		})
	}
	return drivers, nil
}

// CurrentLocation returns the driver's last cached fix, or ErrNotFound when
// the driver has not reported a position recently.
func (r *LocationRepository) CurrentLocation(ctx context.Context, driverID string) (*model.LatLng, error) {
	data, err := r.cache.Get(ctx, driverLocationKey(driverID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get current location: %w", err)
	}

	var fix model.LocationFix
	if err := json.Unmarshal([]byte(data), &fix); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached location: %w", err)
	}

	return &model.LatLng{Lat: fix.Latitude, Lng: fix.Longitude}, nil
}

// StartSession opens a work session and flips the driver to AVAILABLE.
// The caller persists the opening position as a regular fix so it lands in
// history and the Redis current/geo views alike.
func (r *LocationRepository) StartSession(ctx context.Context, driverID string) (model.DriverSession, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.DriverSession{}, err
	}
	defer tx.Rollback(ctx)

	var session model.DriverSession
	err = tx.QueryRow(ctx, `
		INSERT INTO driver_sessions (driver_id)
		VALUES ($1)
		RETURNING id, driver_id, started_at, deliveries_completed
	`, driverID).Scan(&session.ID, &session.DriverID, &session.StartedAt, &session.DeliveriesCompleted)
	if err != nil {
		return model.DriverSession{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET status = 'AVAILABLE', updated_at = now()
		WHERE id = $1
	`, driverID)
	if err != nil {
		return model.DriverSession{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.DriverSession{}, err
	}

	return session, nil
}

func (r *LocationRepository) EndSession(ctx context.Context, driverID string) (model.DriverSession, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.DriverSession{}, err
	}
	defer tx.Rollback(ctx)

	var session model.DriverSession
	err = tx.QueryRow(ctx, `
		UPDATE driver_sessions
		SET ended_at = now()
		WHERE id = (
			SELECT id FROM driver_sessions
			WHERE driver_id = $1 AND ended_at IS NULL
			ORDER BY started_at DESC
			LIMIT 1
		)
		RETURNING id, driver_id, started_at, ended_at, deliveries_completed
	`, driverID).Scan(&session.ID, &session.DriverID, &session.StartedAt, &session.EndedAt, &session.DeliveriesCompleted)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.DriverSession{}, model.ErrNotFound
		}
		return model.DriverSession{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET status = 'OFFLINE', updated_at = now()
		WHERE id = $1
	`, driverID)
	if err != nil {
		return model.DriverSession{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.DriverSession{}, err
	}

	// Offline drivers must not show up in proximity queries.
	if err := r.cache.ZRem(ctx, geoKeyDrivers, driverID).Err(); err != nil {
		return session, fmt.Errorf("failed to remove driver from geo index: %w", err)
	}
	if err := r.cache.Del(ctx, driverLocationKey(driverID)).Err(); err != nil {
		return session, fmt.Errorf("failed to drop cached location: %w", err)
	}

	return session, nil
}
