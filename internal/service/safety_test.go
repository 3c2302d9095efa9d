package service_test

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/UnknownOlympus/paddos/internal/geolocation"
	"github.com/UnknownOlympus/paddos/internal/metrics"
	"github.com/UnknownOlympus/paddos/internal/models"
	"github.com/UnknownOlympus/paddos/internal/monitor"
	"github.com/UnknownOlympus/paddos/internal/service"
	"github.com/UnknownOlympus/paddos/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type chanSink chan models.SafetyReport

func (c chanSink) Push(_ context.Context, report models.SafetyReport) error {
	c <- report
	return nil
}

func ptr(v float64) *float64 {
	return &v
}

func newService(t *testing.T) (*service.SafetyService, *mocks.Scorer, *mocks.Provider, *monitor.Monitor) {
	t.Helper()
	logger := slog.Default()
	scorer := mocks.NewScorer(t)
	locator := mocks.NewProvider(t)
	mon := monitor.NewMonitor(scorer, time.Hour, time.Hour, logger, metrics.NewMetrics(prometheus.NewRegistry()))
	t.Cleanup(mon.Close)

	return service.NewSafetyService(logger, scorer, mon, locator), scorer, locator, mon
}

func TestSafetyService_Score(t *testing.T) {
	oslo := models.Coordinates{Latitude: 59.9139, Longitude: 10.7522}
	report := models.SafetyReport{Score: 91.4, Rating: models.RatingSafe}

	t.Run("valid request is scored", func(t *testing.T) {
		svc, scorer, _, _ := newService(t)
		ctx := t.Context()
		scorer.On("Score", ctx, oslo, "NO").Return(report).Once()

		got, err := svc.Score(ctx, models.SafetyRequest{
			Latitude: ptr(oslo.Latitude), Longitude: ptr(oslo.Longitude), CountryCode: "NO",
		})

		require.NoError(t, err)
		assert.Equal(t, report, got)
	})

	tests := []struct {
		name     string
		req      models.SafetyRequest
		expected error
	}{
		{"missing latitude", models.SafetyRequest{Longitude: ptr(10)}, service.ErrInvalidCoordinates},
		{"missing longitude", models.SafetyRequest{Latitude: ptr(10)}, service.ErrInvalidCoordinates},
		{"empty request", models.SafetyRequest{}, service.ErrInvalidCoordinates},
		{"latitude too large", models.SafetyRequest{Latitude: ptr(91), Longitude: ptr(0)}, service.ErrCoordinatesOutOfRange},
		{"longitude too small", models.SafetyRequest{Latitude: ptr(0), Longitude: ptr(-181)}, service.ErrCoordinatesOutOfRange},
		{"nan latitude", models.SafetyRequest{Latitude: ptr(math.NaN()), Longitude: ptr(0)}, service.ErrCoordinatesOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, scorer, _, _ := newService(t)

			_, err := svc.Score(t.Context(), tt.req)

			require.ErrorIs(t, err, tt.expected)
			scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("boundary coordinates are accepted", func(t *testing.T) {
		svc, scorer, _, _ := newService(t)
		corner := models.Coordinates{Latitude: -90, Longitude: 180}
		scorer.On("Score", mock.Anything, corner, "").Return(report).Once()

		_, err := svc.Score(t.Context(), models.SafetyRequest{Latitude: ptr(-90), Longitude: ptr(180)})

		require.NoError(t, err)
	})
}

func TestSafetyService_Monitoring(t *testing.T) {
	coords := models.Coordinates{Latitude: 50.45, Longitude: 30.52}
	report := models.SafetyReport{Score: 60, Rating: models.RatingModerate}

	t.Run("start pushes a report and stop removes the session", func(t *testing.T) {
		svc, scorer, _, mon := newService(t)
		sink := make(chanSink, 1)
		scorer.On("Score", mock.Anything, coords, "UA").Return(report).Once()

		err := svc.StartMonitoring(t.Context(), "sess-1", models.SafetyRequest{
			Latitude: ptr(coords.Latitude), Longitude: ptr(coords.Longitude), CountryCode: "UA",
		}, sink)
		require.NoError(t, err)

		select {
		case got := <-sink:
			assert.Equal(t, report, got)
		case <-time.After(2 * time.Second):
			t.Fatal("no report pushed")
		}

		assert.True(t, svc.StopMonitoring(t.Context(), "sess-1"))
		_, ok := mon.Registry().Get("sess-1")
		assert.False(t, ok)
		assert.Equal(t, 0, mon.Registry().Len())
	})

	t.Run("start rejects missing coordinates", func(t *testing.T) {
		svc, _, _, mon := newService(t)

		err := svc.StartMonitoring(t.Context(), "sess-2", models.SafetyRequest{Latitude: ptr(1)}, make(chanSink, 1))

		require.ErrorIs(t, err, service.ErrInvalidCoordinates)
		assert.Equal(t, 0, mon.Registry().Len())
	})

	t.Run("start rejects empty session id", func(t *testing.T) {
		svc, _, _, _ := newService(t)

		err := svc.StartMonitoring(t.Context(), "", models.SafetyRequest{
			Latitude: ptr(coords.Latitude), Longitude: ptr(coords.Longitude),
		}, make(chanSink, 1))

		require.ErrorIs(t, err, monitor.ErrEmptySessionID)
	})

	t.Run("stop and disconnect are idempotent", func(t *testing.T) {
		svc, _, _, mon := newService(t)

		assert.False(t, svc.StopMonitoring(t.Context(), "unknown"))
		assert.NotPanics(t, func() {
			svc.Disconnect("unknown")
			svc.Disconnect("unknown")
		})
		assert.Equal(t, 0, mon.Registry().Len())
	})

	t.Run("close stops every session", func(t *testing.T) {
		svc, scorer, _, mon := newService(t)
		scorer.On("Score", mock.Anything, coords, "").Return(report).Twice()
		req := models.SafetyRequest{Latitude: ptr(coords.Latitude), Longitude: ptr(coords.Longitude)}
		sinkA, sinkB := make(chanSink, 1), make(chanSink, 1)

		require.NoError(t, svc.StartMonitoring(t.Context(), "a", req, sinkA))
		require.NoError(t, svc.StartMonitoring(t.Context(), "b", req, sinkB))
		<-sinkA
		<-sinkB

		svc.Close()

		assert.Equal(t, 0, mon.Registry().Len())
	})
}

func TestSafetyService_Locate(t *testing.T) {
	t.Run("provider answers", func(t *testing.T) {
		svc, _, locator, _ := newService(t)
		ctx := t.Context()
		location := &models.Location{Latitude: 59.91, Longitude: 10.75, City: "Oslo", Country: "Norway", CountryCode: "NO"}
		locator.On("Locate", ctx, "8.8.8.8").Return(location, nil).Once()

		got, err := svc.Locate(ctx, "8.8.8.8")

		require.NoError(t, err)
		assert.Equal(t, location, got)
	})

	t.Run("provider fails", func(t *testing.T) {
		svc, _, locator, _ := newService(t)
		ctx := t.Context()
		locator.On("Locate", ctx, "").Return(nil, geolocation.ErrAllProvidersFailed).Once()

		got, err := svc.Locate(ctx, "")

		require.Nil(t, got)
		require.ErrorIs(t, err, geolocation.ErrAllProvidersFailed)
	})
}
