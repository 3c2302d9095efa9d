package safety_test

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/UnknownOlympus/paddos/internal/amenity"
	"github.com/UnknownOlympus/paddos/internal/metrics"
	"github.com/UnknownOlympus/paddos/internal/models"
	"github.com/UnknownOlympus/paddos/internal/safety"
	"github.com/UnknownOlympus/paddos/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var center = models.Coordinates{Latitude: 59.9139, Longitude: 10.7522}

// places builds count records of a category, the first one at startKm and each next 0.1 km further.
func places(cat models.PlaceCategory, count int, startKm float64) []models.PlaceRecord {
	records := make([]models.PlaceRecord, 0, count)
	for i := range count {
		records = append(records, models.PlaceRecord{
			Name:       fmt.Sprintf("%s %d", cat, i),
			Category:   cat,
			DistanceKm: startKm + float64(i)*0.1,
			Latitude:   center.Latitude,
			Longitude:  center.Longitude,
		})
	}

	return records
}

type source struct {
	records []models.PlaceRecord
	ok      bool
}

func expectSources(fetcher *mocks.Fetcher, sources map[models.PlaceCategory]source) {
	for _, cat := range models.AllCategories {
		src := sources[cat]
		fetcher.On("Fetch", mock.Anything, center, cat, amenity.DefaultRadius(cat)).
			Return(src.records, src.ok).Once()
	}
}

func clockAt(hour int) safety.Option {
	return safety.WithClock(func() time.Time {
		return time.Date(2025, time.June, 1, hour, 15, 0, 0, time.UTC)
	})
}

func newAggregator(t *testing.T, fetcher amenity.Fetcher, opts ...safety.Option) (*safety.Aggregator, *metrics.Metrics) {
	t.Helper()
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	return safety.NewAggregator(fetcher, safety.DefaultBaselines(), slog.Default(), appMetrics, opts...), appMetrics
}

func TestAggregator_Score(t *testing.T) {
	ctx := t.Context()

	t.Run("safe daytime location in Norway", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		aggregator, appMetrics := newAggregator(t, fetcher, clockAt(12))
		expectSources(fetcher, map[models.PlaceCategory]source{
			models.CategoryHospital:       {places(models.CategoryHospital, 8, 0.5), true},
			models.CategoryPolice:         {places(models.CategoryPolice, 2, 0.7), true},
			models.CategoryBusStop:        {places(models.CategoryBusStop, 12, 0.1), true},
			models.CategoryTrain:          {places(models.CategoryTrain, 3, 1.0), true},
			models.CategoryActivity:       {places(models.CategoryActivity, 70, 0.05), true},
			models.CategoryInfrastructure: {places(models.CategoryInfrastructure, 10, 0.01), true},
		})

		report := aggregator.Score(ctx, center, "NO")

		assert.InDelta(t, 88.0, report.Breakdown.TemporalRisk, 0)
		assert.InDelta(t, 96.0, report.Breakdown.EmergencyProximity, 0)
		assert.InDelta(t, 92.0, report.Breakdown.PopulationDensity, 0)
		assert.InDelta(t, 80.0, report.Breakdown.Infrastructure, 0)
		assert.InDelta(t, 100.0, report.Score, 0)
		assert.Equal(t, models.RatingSafe, report.Rating)
		assert.Equal(t, safety.ColorGreen, report.Color)
		assert.InDelta(t, 85.0, report.Confidence, 0)
		assert.Equal(t, "12:00 - Low Risk", report.TimePeriod)

		assert.Equal(t, "All services operational", report.ServiceStatus.Overall)
		assert.Equal(t, safety.ColorGreen, report.ServiceStatus.StatusColor)
		assert.Empty(t, report.ServiceStatus.Unavailable)
		assert.Nil(t, report.ServiceStatus.Message)

		require.NotNil(t, report.Nearest.Hospital)
		assert.Equal(t, "hospital 0", report.Nearest.Hospital.Name)
		require.NotNil(t, report.Nearest.TrainStation)
		assert.Len(t, report.AllPlaces.Hospitals, 5)
		assert.Len(t, report.AllPlaces.PoliceStations, 2)
		assert.Len(t, report.AllPlaces.BusStops, 10)
		assert.Len(t, report.AllPlaces.TrainStations, 3)

		assert.Equal(t, 70, report.Stats.ActivityCount)
		assert.Equal(t, 25, report.Stats.InfrastructureCount)
		assert.InDelta(t, 0.4, report.Stats.EmergencyDensity, 1e-9)

		assert.InDelta(t, 1.0, testutil.ToFloat64(appMetrics.ScoresComputed.WithLabelValues("SAFE")), 0)
	})

	t.Run("rating uses the unrounded score", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		aggregator, _ := newAggregator(t, fetcher, clockAt(12))
		expectSources(fetcher, map[models.PlaceCategory]source{
			models.CategoryHospital:       {places(models.CategoryHospital, 1, 3.0), true},
			models.CategoryPolice:         {nil, true},
			models.CategoryBusStop:        {nil, true},
			models.CategoryTrain:          {nil, true},
			models.CategoryActivity:       {places(models.CategoryActivity, 30, 0.1), true},
			models.CategoryInfrastructure: {nil, true},
		})

		// (88*0.28 + 50*0.27 + 68*0.25 + 65*0.20) * 1.10 = 74.954
		report := aggregator.Score(ctx, center, "DE")

		assert.InDelta(t, 75.0, report.Score, 1e-9)
		assert.Equal(t, models.RatingModerate, report.Rating)
		assert.Equal(t, safety.ColorAmber, report.Color)
	})

	t.Run("night with no emergency services nearby", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		aggregator, _ := newAggregator(t, fetcher, clockAt(2))
		expectSources(fetcher, map[models.PlaceCategory]source{
			models.CategoryHospital:       {nil, true},
			models.CategoryPolice:         {nil, true},
			models.CategoryBusStop:        {places(models.CategoryBusStop, 2, 0.3), true},
			models.CategoryTrain:          {nil, true},
			models.CategoryActivity:       {places(models.CategoryActivity, 5, 0.2), true},
			models.CategoryInfrastructure: {places(models.CategoryInfrastructure, 1, 0.1), true},
		})

		report := aggregator.Score(ctx, center, "")

		assert.InDelta(t, 25.0, report.Breakdown.TemporalRisk, 0)
		assert.InDelta(t, 22.0, report.Breakdown.EmergencyProximity, 0)
		assert.InDelta(t, 24.5, report.Breakdown.PopulationDensity, 0)
		assert.InDelta(t, 30.0, report.Breakdown.Infrastructure, 0)
		// 25*.28 + 22*.27 + 24.5*.25 + 30*.20 = 25.065
		assert.InDelta(t, 25.1, report.Score, 1e-9)
		assert.Equal(t, models.RatingHighRisk, report.Rating)
		assert.Equal(t, safety.ColorRed, report.Color)
		assert.Nil(t, report.Nearest.Hospital)
		assert.Nil(t, report.Nearest.Police)
		assert.Empty(t, report.AllPlaces.Hospitals)
		assert.NotNil(t, report.AllPlaces.Hospitals)
		assert.InDelta(t, 0.0, report.Stats.EmergencyDensity, 0)
		assert.Equal(t, 3, report.Stats.InfrastructureCount)
	})

	t.Run("unknown country behaves like factor one", func(t *testing.T) {
		sources := map[models.PlaceCategory]source{
			models.CategoryHospital:       {places(models.CategoryHospital, 1, 2.0), true},
			models.CategoryPolice:         {nil, true},
			models.CategoryBusStop:        {nil, true},
			models.CategoryTrain:          {nil, true},
			models.CategoryActivity:       {places(models.CategoryActivity, 30, 0.1), true},
			models.CategoryInfrastructure: {nil, true},
		}

		unknownFetcher := mocks.NewFetcher(t)
		expectSources(unknownFetcher, sources)
		unknown, _ := newAggregator(t, unknownFetcher, clockAt(10))

		defaultFetcher := mocks.NewFetcher(t)
		expectSources(defaultFetcher, sources)
		withDefault, _ := newAggregator(t, defaultFetcher, clockAt(10))

		// 88*.28 + 70*.27 + 68*.25 + 65*.20 = 73.54
		unknownReport := unknown.Score(ctx, center, "QQ")
		defaultReport := withDefault.Score(ctx, center, safety.DefaultCountryCode)

		assert.InDelta(t, 73.5, unknownReport.Score, 1e-9)
		assert.InDelta(t, defaultReport.Score, unknownReport.Score, 0)
		assert.Equal(t, models.RatingModerate, unknownReport.Rating)
	})

	t.Run("country factor lowers the score", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		aggregator, _ := newAggregator(t, fetcher, clockAt(10))
		expectSources(fetcher, map[models.PlaceCategory]source{
			models.CategoryHospital:       {places(models.CategoryHospital, 1, 2.0), true},
			models.CategoryPolice:         {nil, true},
			models.CategoryBusStop:        {nil, true},
			models.CategoryTrain:          {nil, true},
			models.CategoryActivity:       {places(models.CategoryActivity, 30, 0.1), true},
			models.CategoryInfrastructure: {nil, true},
		})

		report := aggregator.Score(ctx, center, "in")

		// 73.54 * 0.88 = 64.7152
		assert.InDelta(t, 64.7, report.Score, 1e-9)
		assert.Equal(t, models.RatingModerate, report.Rating)
	})

	t.Run("coverage gap yields the degraded report", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		aggregator, appMetrics := newAggregator(t, fetcher, clockAt(12))
		expectSources(fetcher, map[models.PlaceCategory]source{
			models.CategoryHospital:       {nil, false},
			models.CategoryPolice:         {nil, false},
			models.CategoryBusStop:        {places(models.CategoryBusStop, 3, 0.1), true},
			models.CategoryTrain:          {nil, true},
			models.CategoryActivity:       {nil, false},
			models.CategoryInfrastructure: {nil, true},
		})

		report := aggregator.Score(ctx, center, "NO")

		assert.InDelta(t, 0.0, report.Score, 0)
		assert.Equal(t, models.RatingServiceUnavailable, report.Rating)
		assert.Equal(t, safety.ColorGray, report.Color)
		assert.InDelta(t, 0.0, report.Confidence, 0)
		assert.Equal(t, models.ScoreBreakdown{}, report.Breakdown)
		assert.Equal(t, []string{"emergency_services", "activity_data"}, report.ServiceStatus.Unavailable)
		require.NotNil(t, report.ServiceStatus.Message)
		assert.Contains(t, *report.ServiceStatus.Message, "not available in this area")
		assert.Nil(t, report.Nearest.BusStop)
		assert.Empty(t, report.AllPlaces.BusStops)
		assert.Equal(t, models.Stats{}, report.Stats)
		assert.InDelta(t, 1.0, testutil.ToFloat64(
			appMetrics.ScoresComputed.WithLabelValues("SERVICE UNAVAILABLE")), 0)
	})

	t.Run("activity failure alone triggers the gate", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		aggregator, _ := newAggregator(t, fetcher, clockAt(12))
		expectSources(fetcher, map[models.PlaceCategory]source{
			models.CategoryHospital:       {places(models.CategoryHospital, 1, 0.2), true},
			models.CategoryPolice:         {nil, false},
			models.CategoryBusStop:        {nil, true},
			models.CategoryTrain:          {nil, true},
			models.CategoryActivity:       {nil, false},
			models.CategoryInfrastructure: {nil, true},
		})

		report := aggregator.Score(ctx, center, "NO")

		assert.Equal(t, models.RatingServiceUnavailable, report.Rating)
		assert.Equal(t, []string{"activity_data"}, report.ServiceStatus.Unavailable)
	})

	t.Run("partial data lowers confidence and is reported", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		aggregator, _ := newAggregator(t, fetcher, clockAt(12))
		expectSources(fetcher, map[models.PlaceCategory]source{
			models.CategoryHospital:       {nil, false},
			models.CategoryPolice:         {places(models.CategoryPolice, 1, 1.2), true},
			models.CategoryBusStop:        {nil, false},
			models.CategoryTrain:          {nil, false},
			models.CategoryActivity:       {places(models.CategoryActivity, 45, 0.1), true},
			models.CategoryInfrastructure: {nil, false},
		})

		report := aggregator.Score(ctx, center, "US")

		assert.InDelta(t, 42.5, report.Confidence, 0)
		assert.Equal(t, []string{"infrastructure"}, report.ServiceStatus.Unavailable)
		assert.Equal(t, "Limited data: infrastructure", report.ServiceStatus.Overall)
		assert.Equal(t, safety.ColorOrange, report.ServiceStatus.StatusColor)
		assert.InDelta(t, 85.0, report.Breakdown.EmergencyProximity, 0)
		assert.NotEqual(t, models.RatingServiceUnavailable, report.Rating)
	})

	t.Run("internal fault yields the error report", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		broken := safety.WithClock(func() time.Time {
			panic(strings.Repeat("x", 150))
		})
		aggregator, appMetrics := newAggregator(t, fetcher, broken)

		report := aggregator.Score(ctx, center, "NO")

		assert.Equal(t, models.RatingError, report.Rating)
		assert.InDelta(t, 0.0, report.Score, 0)
		assert.Equal(t, safety.ColorGray, report.Color)
		assert.Equal(t, []string{"all"}, report.ServiceStatus.Unavailable)
		require.NotNil(t, report.ServiceStatus.Message)
		assert.Equal(t, "Error: "+strings.Repeat("x", 100), *report.ServiceStatus.Message)
		assert.False(t, report.Timestamp.IsZero())
		assert.InDelta(t, 1.0, testutil.ToFloat64(appMetrics.ScoresComputed.WithLabelValues("ERROR")), 0)
	})

	t.Run("fault without logger or metrics still yields the error report", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		broken := safety.WithClock(func() time.Time {
			panic("clock failure")
		})
		aggregator := safety.NewAggregator(fetcher, nil, nil, nil, broken)

		var report models.SafetyReport
		require.NotPanics(t, func() {
			report = aggregator.Score(ctx, center, "NO")
		})

		assert.Equal(t, models.RatingError, report.Rating)
		require.NotNil(t, report.ServiceStatus.Message)
		assert.Equal(t, "Error: clock failure", *report.ServiceStatus.Message)
	})

	t.Run("panicking source counts as unavailable", func(t *testing.T) {
		fetcher := mocks.NewFetcher(t)
		aggregator, _ := newAggregator(t, fetcher, clockAt(12))
		for _, cat := range models.AllCategories {
			call := fetcher.On("Fetch", mock.Anything, center, cat, amenity.DefaultRadius(cat)).Once()
			if cat == models.CategoryActivity {
				call.Run(func(mock.Arguments) { panic("boom") })
			}
			call.Return([]models.PlaceRecord(nil), true)
		}

		report := aggregator.Score(ctx, center, "NO")

		assert.Equal(t, models.RatingServiceUnavailable, report.Rating)
		assert.Equal(t, []string{"activity_data"}, report.ServiceStatus.Unavailable)
	})
}

func TestAggregator_ScoreBounds(t *testing.T) {
	ctx := t.Context()
	countries := []string{"NO", "IN", "MX", "US", "XX", "unknown"}

	for hour := 0; hour < 24; hour += 3 {
		for _, country := range countries {
			fetcher := mocks.NewFetcher(t)
			aggregator, _ := newAggregator(t, fetcher, clockAt(hour))
			expectSources(fetcher, map[models.PlaceCategory]source{
				models.CategoryHospital:       {places(models.CategoryHospital, hour%4, 0.3*float64(hour)), true},
				models.CategoryPolice:         {nil, true},
				models.CategoryBusStop:        {places(models.CategoryBusStop, hour, 0.1), true},
				models.CategoryTrain:          {nil, true},
				models.CategoryActivity:       {places(models.CategoryActivity, hour*3, 0.1), true},
				models.CategoryInfrastructure: {places(models.CategoryInfrastructure, hour, 0.1), true},
			})

			report := aggregator.Score(ctx, center, country)

			assert.GreaterOrEqual(t, report.Score, 0.0)
			assert.LessOrEqual(t, report.Score, 100.0)
			assert.GreaterOrEqual(t, report.Confidence, 0.0)
			assert.LessOrEqual(t, report.Confidence, 85.0)
			assert.Contains(t,
				[]models.Rating{models.RatingSafe, models.RatingModerate, models.RatingCaution, models.RatingHighRisk},
				report.Rating, "hour %d country %s score %v", hour, country, report.Score)
		}
	}
}
