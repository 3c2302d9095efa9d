package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/paddos/internal/geolocation"
	"github.com/UnknownOlympus/paddos/internal/models"
	"github.com/UnknownOlympus/paddos/internal/monitor"
	"github.com/UnknownOlympus/paddos/internal/safety"
)

var (
	// ErrInvalidCoordinates is returned when a coordinate is missing from the request.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrCoordinatesOutOfRange is returned when a coordinate is outside the WGS84 range.
	ErrCoordinatesOutOfRange = errors.New("coordinates out of range")
)

// SafetyService is the entry point of the request layer: single-shot scoring,
// monitoring sessions and IP geolocation.
type SafetyService struct {
	log     *slog.Logger         // Logger for logging service activities
	scorer  safety.Scorer        // Scorer builds safety reports
	monitor *monitor.Monitor     // Monitor owns the background sessions
	locator geolocation.Provider // Locator resolves client addresses
}

// NewSafetyService creates a new instance of SafetyService.
func NewSafetyService(
	log *slog.Logger,
	scorer safety.Scorer,
	monitor *monitor.Monitor,
	locator geolocation.Provider,
) *SafetyService {
	return &SafetyService{
		log:     log,
		scorer:  scorer,
		monitor: monitor,
		locator: locator,
	}
}

// Score validates the request and returns the safety report for its point.
func (s *SafetyService) Score(ctx context.Context, req models.SafetyRequest) (models.SafetyReport, error) {
	coords, err := validate(req)
	if err != nil {
		return models.SafetyReport{}, err
	}

	return s.scorer.Score(ctx, coords, req.CountryCode), nil
}

// StartMonitoring starts, or restarts, the monitoring session with the given id.
func (s *SafetyService) StartMonitoring(
	ctx context.Context,
	sessionID string,
	req models.SafetyRequest,
	sink monitor.Sink,
) error {
	coords, err := validate(req)
	if err != nil {
		s.log.DebugContext(ctx, "Rejected monitoring request", "session", sessionID, "error", err)
		return err
	}

	if err = s.monitor.Start(sessionID, coords, req.CountryCode, sink); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	return nil
}

// StopMonitoring ends the session and reports whether one was running.
// Stopping an unknown session is not an error.
func (s *SafetyService) StopMonitoring(ctx context.Context, sessionID string) bool {
	if err := s.monitor.Stop(sessionID); err != nil {
		s.log.DebugContext(ctx, "Stop requested for inactive session", "session", sessionID, "error", err)
		return false
	}

	return true
}

// Disconnect releases everything held for a closed connection.
func (s *SafetyService) Disconnect(sessionID string) {
	s.monitor.Disconnect(sessionID)
}

// Locate guesses the position of the client with the given address.
func (s *SafetyService) Locate(ctx context.Context, clientIP string) (*models.Location, error) {
	location, err := s.locator.Locate(ctx, clientIP)
	if err != nil {
		s.log.WarnContext(ctx, "Location detection failed", "ip", clientIP, "error", err)
		return nil, err
	}

	return location, nil
}

// Close stops every monitoring session.
func (s *SafetyService) Close() {
	s.monitor.Close()
}

func validate(req models.SafetyRequest) (models.Coordinates, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return models.Coordinates{}, ErrInvalidCoordinates
	}

	coords := models.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if !coords.Valid() {
		return models.Coordinates{}, fmt.Errorf("%w: lat=%v lon=%v", ErrCoordinatesOutOfRange,
			coords.Latitude, coords.Longitude)
	}

	return coords, nil
}
