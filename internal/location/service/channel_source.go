package service

import (
	"context"
	"sync"

	"food-dispatch/internal/common/model"
)

// ChannelSource bridges push producers (websocket read loop, HTTP location
// endpoint) into the tracker's per-driver fix stream.
type ChannelSource struct {
	mu    sync.Mutex
	chans map[string]chan model.LocationFix
}

func NewChannelSource() *ChannelSource {
	return &ChannelSource{chans: make(map[string]chan model.LocationFix)}
}

func (s *ChannelSource) Fixes(ctx context.Context, driverID string) (<-chan model.LocationFix, error) {
	s.mu.Lock()
	ch, ok := s.chans[driverID]
	if !ok {
		ch = make(chan model.LocationFix, 64)
		s.chans[driverID] = ch
	}
	s.mu.Unlock()

	// The channel is deliberately not closed on cancel: a late Publish from
	// a racing websocket frame must not panic. The consumer exits through
	// its context and the channel is dropped for GC.
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if cur, ok := s.chans[driverID]; ok && cur == ch {
			delete(s.chans, driverID)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

// Publish delivers a fix to the driver's stream. Fixes for drivers that are
// not being tracked, or arriving faster than they are consumed, are dropped:
// the next fix supersedes them anyway.
func (s *ChannelSource) Publish(fix model.LocationFix) {
	s.mu.Lock()
	ch, ok := s.chans[fix.DriverID]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- fix:
	default:
	}
}
