// Package safety turns nearby amenity data into a bounded, explainable safety score.
package safety

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/UnknownOlympus/paddos/internal/amenity"
	"github.com/UnknownOlympus/paddos/internal/geo"
	"github.com/UnknownOlympus/paddos/internal/metrics"
	"github.com/UnknownOlympus/paddos/internal/models"
)

// Fixed service status texts.
const (
	msgAllOperational = "All services operational"
	msgNoCoverage     = "Sorry, we don't have services running for this location"
	msgCoverageHint   = "Safety data is not available in this area yet. We're working to expand our coverage!"
	msgSystemError    = "System error occurred"
	maxErrorLength    = 100
)

// List caps for the all_places block.
const (
	topHospitals = 5
	topPolice    = 5
	topBusStops  = 10
	topTrains    = 5
)

// emergencyDensityArea is the divisor of the emergency services density stat.
const emergencyDensityArea = 25

// Scorer computes a safety report for a point. Implementations never fail: every
// problem is expressed through the report's rating and service status.
type Scorer interface {
	Score(ctx context.Context, center models.Coordinates, countryCode string) models.SafetyReport
}

// Aggregator fans out amenity lookups and fuses them into a SafetyReport.
type Aggregator struct {
	fetcher   amenity.Fetcher  // fetcher looks up nearby places per category
	baselines *Baselines       // baselines holds per-country multipliers
	now       func() time.Time // now returns the local time used for temporal scoring
	log       *slog.Logger     // log is the logger for logging operations
	metrics   *metrics.Metrics // metrics counts built reports by rating
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used to read the local hour.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an aggregator on top of the given fetcher and country table.
// A nil logger falls back to slog.Default and nil metrics are not recorded.
func NewAggregator(
	fetcher amenity.Fetcher,
	baselines *Baselines,
	log *slog.Logger,
	metrics *metrics.Metrics,
	opts ...Option,
) *Aggregator {
	if baselines == nil {
		baselines = DefaultBaselines()
	}
	if log == nil {
		log = slog.Default()
	}

	agg := &Aggregator{
		fetcher:   fetcher,
		baselines: baselines,
		now:       time.Now,
		log:       log,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(agg)
	}

	return agg
}

// fetchResult is the outcome of one category lookup.
type fetchResult struct {
	records []models.PlaceRecord
	ok      bool
}

// Score computes the safety report for center. It always returns a well-formed report:
// missing coverage yields SERVICE UNAVAILABLE and internal faults yield ERROR.
func (a *Aggregator) Score(ctx context.Context, center models.Coordinates, countryCode string) (report models.SafetyReport) {
	var now time.Time

	defer func() {
		if rec := recover(); rec != nil {
			if now.IsZero() {
				now = time.Now()
			}
			a.log.ErrorContext(ctx, "Safety computation failed", "lat", center.Latitude, "lon", center.Longitude,
				"error", rec)
			report = errorReport(now, fmt.Sprint(rec))
		}
		if a.metrics != nil {
			a.metrics.ScoresComputed.WithLabelValues(string(report.Rating)).Inc()
		}
	}()

	now = a.now()
	a.log.DebugContext(ctx, "Calculating safety score",
		"lat", center.Latitude, "lon", center.Longitude, "country", countryCode)

	hour := now.Hour()
	temporal, period := TemporalScore(hour)

	results := a.fetchAll(ctx, center)
	hospitals := results[models.CategoryHospital]
	police := results[models.CategoryPolice]
	busStops := results[models.CategoryBusStop]
	trains := results[models.CategoryTrain]
	activity := results[models.CategoryActivity]
	infra := results[models.CategoryInfrastructure]

	if !(hospitals.ok || police.ok) || !activity.ok {
		var unavailable []string
		if !hospitals.ok && !police.ok {
			unavailable = append(unavailable, models.SourceEmergencyServices)
		}
		if !activity.ok {
			unavailable = append(unavailable, models.SourceActivityData)
		}
		a.log.WarnContext(ctx, "Minimum required data is not available",
			"lat", center.Latitude, "lon", center.Longitude, "unavailable", unavailable)

		return unavailableReport(now, period, unavailable)
	}

	emergency := make([]models.PlaceRecord, 0, len(hospitals.records)+len(police.records))
	emergency = append(emergency, hospitals.records...)
	emergency = append(emergency, police.records...)

	activityCount := len(activity.records)
	infraCount := len(infra.records) + len(busStops.records) + len(trains.records)

	breakdown := models.ScoreBreakdown{
		TemporalRisk:       temporal,
		EmergencyProximity: EmergencyScore(emergency),
		PopulationDensity:  DensityScore(activityCount, hour),
		Infrastructure:     InfrastructureScore(infraCount, hour),
	}

	adjusted := Adjust(Combine(breakdown), a.baselines.Factor(countryCode))
	rating, color := RatingFor(adjusted)
	final := geo.Round(adjusted, 1)

	successful := 0
	for _, ok := range []bool{hospitals.ok, police.ok, activity.ok, infra.ok} {
		if ok {
			successful++
		}
	}

	a.log.InfoContext(ctx, "Safety score calculated",
		"lat", center.Latitude, "lon", center.Longitude, "score", final, "rating", rating)

	return models.SafetyReport{
		Score:      final,
		Rating:     rating,
		Color:      color,
		Confidence: Confidence(successful),
		Timestamp:  now,
		Breakdown: models.ScoreBreakdown{
			TemporalRisk:       geo.Round(breakdown.TemporalRisk, 1),
			EmergencyProximity: geo.Round(breakdown.EmergencyProximity, 1),
			PopulationDensity:  geo.Round(breakdown.PopulationDensity, 1),
			Infrastructure:     geo.Round(breakdown.Infrastructure, 1),
		},
		TimePeriod:    period,
		ServiceStatus: serviceStatus(hospitals.ok || police.ok, activity.ok, infra.ok),
		Nearest: models.NearestPlaces{
			Hospital:     first(hospitals.records),
			Police:       first(police.records),
			BusStop:      first(busStops.records),
			TrainStation: first(trains.records),
		},
		AllPlaces: models.PlaceLists{
			Hospitals:      top(hospitals.records, topHospitals),
			PoliceStations: top(police.records, topPolice),
			BusStops:       top(busStops.records, topBusStops),
			TrainStations:  top(trains.records, topTrains),
		},
		Stats: models.Stats{
			ActivityCount:       activityCount,
			InfrastructureCount: infraCount,
			EmergencyDensity:    emergencyDensity(len(emergency)),
		},
	}
}

// fetchAll queries every category concurrently with its default radius.
func (a *Aggregator) fetchAll(ctx context.Context, center models.Coordinates) map[models.PlaceCategory]fetchResult {
	var (
		mu      sync.Mutex
		wgr     sync.WaitGroup
		results = make(map[models.PlaceCategory]fetchResult, len(models.AllCategories))
	)

	for _, cat := range models.AllCategories {
		wgr.Add(1)
		go func(cat models.PlaceCategory) {
			defer wgr.Done()
			res := fetchResult{}
			defer func() {
				if rec := recover(); rec != nil {
					a.log.ErrorContext(ctx, "Amenity lookup panicked", "category", cat, "error", rec)
					res = fetchResult{}
				}
				mu.Lock()
				results[cat] = res
				mu.Unlock()
			}()
			res.records, res.ok = a.fetcher.Fetch(ctx, center, cat, amenity.DefaultRadius(cat))
		}(cat)
	}
	wgr.Wait()

	return results
}

func serviceStatus(emergencyOK, activityOK, infraOK bool) models.ServiceStatus {
	unavailable := []string{}
	if !emergencyOK {
		unavailable = append(unavailable, models.SourceEmergencyServices)
	}
	if !activityOK {
		unavailable = append(unavailable, models.SourceActivityData)
	}
	if !infraOK {
		unavailable = append(unavailable, models.SourceInfrastructure)
	}

	if len(unavailable) == 0 {
		return models.ServiceStatus{Overall: msgAllOperational, StatusColor: ColorGreen, Unavailable: unavailable}
	}

	return models.ServiceStatus{
		Overall:     "Limited data: " + strings.Join(unavailable, ", "),
		StatusColor: ColorOrange,
		Unavailable: unavailable,
	}
}

func unavailableReport(now time.Time, period string, unavailable []string) models.SafetyReport {
	message := msgCoverageHint
	report := emptyReport(now, models.RatingServiceUnavailable)
	report.TimePeriod = period
	report.ServiceStatus = models.ServiceStatus{
		Overall:     msgNoCoverage,
		StatusColor: statusRed,
		Unavailable: unavailable,
		Message:     &message,
	}

	return report
}

func errorReport(now time.Time, cause string) models.SafetyReport {
	if runes := []rune(cause); len(runes) > maxErrorLength {
		cause = string(runes[:maxErrorLength])
	}
	message := "Error: " + cause

	report := emptyReport(now, models.RatingError)
	report.TimePeriod = fmt.Sprintf("%d:00", now.Hour())
	report.ServiceStatus = models.ServiceStatus{
		Overall:     msgSystemError,
		StatusColor: statusRed,
		Unavailable: []string{models.SourceAll},
		Message:     &message,
	}

	return report
}

// emptyReport is the zero-score shell shared by the degraded and error reports.
func emptyReport(now time.Time, rating models.Rating) models.SafetyReport {
	return models.SafetyReport{
		Rating:    rating,
		Color:     ColorGray,
		Timestamp: now,
		AllPlaces: models.PlaceLists{
			Hospitals:      []models.PlaceRecord{},
			PoliceStations: []models.PlaceRecord{},
			BusStops:       []models.PlaceRecord{},
			TrainStations:  []models.PlaceRecord{},
		},
	}
}

func first(records []models.PlaceRecord) *models.PlaceRecord {
	if len(records) == 0 {
		return nil
	}
	record := records[0]

	return &record
}

func top(records []models.PlaceRecord, limit int) []models.PlaceRecord {
	out := make([]models.PlaceRecord, min(len(records), limit))
	copy(out, records)

	return out
}

func emergencyDensity(count int) float64 {
	if count == 0 {
		return 0
	}

	return geo.Round(float64(count)/emergencyDensityArea, 2)
}
