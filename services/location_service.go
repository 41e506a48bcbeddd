package services

import (
	"context"
	"sync"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"go.uber.org/zap"
)

// LocationProvider reports the device position. Both position methods
// return nil when permission is denied or no fix is available.
type LocationProvider interface {
	RequestPermission(ctx context.Context) bool
	GetCurrentPosition(ctx context.Context) (*types.Coordinates, error)
	GetLastKnownPosition(ctx context.Context) (*types.Coordinates, error)
}

// StaticLocationProvider serves a configured position.
type StaticLocationProvider struct {
	granted bool
	coords  *types.Coordinates
}

var _ LocationProvider = (*StaticLocationProvider)(nil)

// NewStaticLocationProvider returns a provider that always reports coords.
// A nil coords means no fix.
func NewStaticLocationProvider(granted bool, coords *types.Coordinates) *StaticLocationProvider {
	return &StaticLocationProvider{granted: granted, coords: coords}
}

func (p *StaticLocationProvider) RequestPermission(ctx context.Context) bool {
	return p.granted
}

func (p *StaticLocationProvider) GetCurrentPosition(ctx context.Context) (*types.Coordinates, error) {
	if !p.granted || p.coords == nil {
		return nil, nil
	}
	c := *p.coords
	return &c, nil
}

func (p *StaticLocationProvider) GetLastKnownPosition(ctx context.Context) (*types.Coordinates, error) {
	return p.GetCurrentPosition(ctx)
}

// ClientLocationProvider serves the last position a client reported over
// HTTP. Permission follows the client's last report as well.
type ClientLocationProvider struct {
	mu      sync.RWMutex
	granted bool
	current *types.Coordinates
	last    *types.Coordinates
	log     *zap.SugaredLogger
}

var _ LocationProvider = (*ClientLocationProvider)(nil)

func NewClientLocationProvider() *ClientLocationProvider {
	return &ClientLocationProvider{
		log: logger.GetLogger().Named("client_location"),
	}
}

// Report records a client fix. A nil coords with granted=false revokes the
// permission; the last-known position is kept.
func (p *ClientLocationProvider) Report(granted bool, coords *types.Coordinates) error {
	if coords != nil {
		if err := coords.Validate(); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.granted = granted
	if !granted {
		p.current = nil
		p.log.Infow("Client revoked location permission")
		return nil
	}
	if coords != nil {
		c := *coords
		p.current = &c
		p.last = &c
	}
	return nil
}

func (p *ClientLocationProvider) RequestPermission(ctx context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.granted
}

func (p *ClientLocationProvider) GetCurrentPosition(ctx context.Context) (*types.Coordinates, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.granted || p.current == nil {
		return nil, nil
	}
	c := *p.current
	return &c, nil
}

func (p *ClientLocationProvider) GetLastKnownPosition(ctx context.Context) (*types.Coordinates, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil, nil
	}
	c := *p.last
	return &c, nil
}
