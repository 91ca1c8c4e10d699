package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/model"
	"food-dispatch/internal/common/rmq"
)

// Source delivers a push stream of GPS fixes for one driver. The websocket
// channel is the production source; tests substitute their own.
type Source interface {
	Fixes(ctx context.Context, driverID string) (<-chan model.LocationFix, error)
}

type LocationRepository interface {
	SaveFix(ctx context.Context, fix model.LocationFix) error
	CurrentLocation(ctx context.Context, driverID string) (*model.LatLng, error)
	StartSession(ctx context.Context, driverID string) (model.DriverSession, error)
	EndSession(ctx context.Context, driverID string) (model.DriverSession, error)
}

// LocationPublisher fans the latest fix out to other services. Optional.
type LocationPublisher interface {
	PublishLocationUpdate(ctx context.Context, msg rmq.LocationUpdateMessage) error
}

// TrackerService owns continuous position acquisition for online drivers.
// Every fix is persisted fire-and-forget: a failed write is logged and the
// stream keeps going.
type TrackerService struct {
	repo      LocationRepository
	source    Source
	publisher LocationPublisher

	mu       sync.Mutex
	tracking map[string]context.CancelFunc
}

func NewTrackerService(repo LocationRepository, source Source, publisher LocationPublisher) *TrackerService {
	return &TrackerService{
		repo:      repo,
		source:    source,
		publisher: publisher,
		tracking:  make(map[string]context.CancelFunc),
	}
}

// StartTracking begins consuming the driver's fix stream. Idempotent: a
// second call for the same driver is a no-op.
func (s *TrackerService) StartTracking(ctx context.Context, driverID string) error {
	s.mu.Lock()
	if _, ok := s.tracking[driverID]; ok {
		s.mu.Unlock()
		return nil
	}

	trackCtx, cancel := context.WithCancel(ctx)
	fixes, err := s.source.Fixes(trackCtx, driverID)
	if err != nil {
		cancel()
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", model.ErrGeolocationUnavailable, err)
	}

	s.tracking[driverID] = cancel
	s.mu.Unlock()

	go s.consume(trackCtx, driverID, fixes)

	logger.Info("tracking_started", "Location tracking started for driver "+driverID, "", "")
	return nil
}

func (s *TrackerService) StopTracking(driverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.tracking[driverID]; ok {
		cancel()
		delete(s.tracking, driverID)
		logger.Info("tracking_stopped", "Location tracking stopped for driver "+driverID, "", "")
	}
}

func (s *TrackerService) IsTracking(driverID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tracking[driverID]
	return ok
}

func (s *TrackerService) consume(ctx context.Context, driverID string, fixes <-chan model.LocationFix) {
	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				s.StopTracking(driverID)
				return
			}
			s.persist(ctx, fix)
		}
	}
}

// persist writes one fix. Failures are logged, not retried, and never halt
// the stream.
func (s *TrackerService) persist(ctx context.Context, fix model.LocationFix) {
	if err := s.repo.SaveFix(ctx, fix); err != nil {
		logger.Warn("location_persist_failed", "Failed to persist location fix", "", "", err.Error())
		return
	}

	if s.publisher == nil {
		return
	}
	msg := rmq.LocationUpdateMessage{
		DriverID:  fix.DriverID,
		Location:  rmq.LatLng{Lat: fix.Latitude, Lng: fix.Longitude},
		SpeedKmh:  fix.SpeedKmh,
		Heading:   fix.HeadingDegrees,
		Timestamp: fix.RecordedAt,
	}
	if err := s.publisher.PublishLocationUpdate(ctx, msg); err != nil {
		logger.Warn("location_publish_failed", "Failed to publish location update", "", "", err.Error())
	}
}

// RecordFix accepts a fix from the HTTP path. Tracked drivers go through
// the stream so ordering with websocket fixes is preserved; otherwise the
// fix is persisted directly.
func (s *TrackerService) RecordFix(ctx context.Context, fix model.LocationFix) error {
	if src, ok := s.source.(*ChannelSource); ok && s.IsTracking(fix.DriverID) {
		src.Publish(fix)
		return nil
	}
	if err := s.repo.SaveFix(ctx, fix); err != nil {
		logger.Warn("location_persist_failed", "Failed to persist location fix", "", "", err.Error())
		return err
	}
	return nil
}

// GoOnline opens a driver session and starts tracking. The position in the
// request is the session's first fix: it must reach the current-location
// view immediately, or the driver stays invisible to the feed and proximity
// queries until the stream delivers something.
func (s *TrackerService) GoOnline(ctx context.Context, driverID string, lat, lng float64) (model.DriverSession, error) {
	session, err := s.repo.StartSession(ctx, driverID)
	if err != nil {
		return model.DriverSession{}, err
	}

	s.persist(ctx, model.LocationFix{
		DriverID:   driverID,
		Latitude:   lat,
		Longitude:  lng,
		RecordedAt: time.Now().UTC(),
	})

	// Tracking has service lifetime, not request lifetime.
	if err := s.StartTracking(context.WithoutCancel(ctx), driverID); err != nil {
		logger.Warn("tracking_unavailable", "Driver online without live tracking", "", "", err.Error())
	}

	return session, nil
}

// GoOffline stops tracking and closes the session.
func (s *TrackerService) GoOffline(ctx context.Context, driverID string) (model.DriverSession, error) {
	s.StopTracking(driverID)
	return s.repo.EndSession(ctx, driverID)
}

// CurrentLocation resolves the driver's last known position.
func (s *TrackerService) CurrentLocation(ctx context.Context, driverID string) (*model.LatLng, error) {
	return s.repo.CurrentLocation(ctx, driverID)
}
