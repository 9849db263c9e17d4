package salary

import (
	"fmt"
	"strconv"
	"strings"

	"tradewages/common/errors"
	"tradewages/services/ingestion/internal/models"
	"tradewages/services/ingestion/internal/series"

	"go.uber.org/zap"
)

// BatchResult is the outcome of fetching one batch. Err is set when the
// call failed as a whole.
type BatchResult struct {
	Index     int
	SeriesIDs []string
	Response  *models.SeriesResponse
	Err       error
}

type Stats struct {
	Batches       int
	FailedBatches int
	Series        int
	UnknownSeries int
	EmptySeries   int
	Observations  int
	Errors        []error
}

// Aggregator reduces batch responses to one observation per occupation.
// It is fed sequentially and keeps no locks.
type Aggregator struct {
	plan   *series.Plan
	unit   models.WageUnit
	logger *zap.Logger
	result map[models.OccupationCode]*models.SalaryObservation
	stats  Stats
}

func NewAggregator(plan *series.Plan, unit models.WageUnit, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		plan:   plan,
		unit:   unit,
		logger: logger,
		result: make(map[models.OccupationCode]*models.SalaryObservation, plan.Size()),
	}
}

// Add folds one batch into the result. A failed batch records every one of
// its occupations as having no observation and leaves earlier batches alone.
func (a *Aggregator) Add(res BatchResult) {
	a.stats.Batches++

	if err := batchError(res); err != nil {
		a.stats.FailedBatches++
		a.stats.Errors = append(a.stats.Errors, err)
		a.logger.Warn("batch fetch failed, recording no observation for its series",
			zap.Int("batch", res.Index),
			zap.Int("series", len(res.SeriesIDs)),
			zap.Error(err))
		for _, id := range res.SeriesIDs {
			if code, ok := a.plan.Source(id); ok {
				a.markMissing(code)
			}
		}
		return
	}

	inBatch := make(map[string]bool, len(res.SeriesIDs))
	for _, id := range res.SeriesIDs {
		inBatch[id] = false
	}

	for _, s := range res.Response.Results.Series {
		a.stats.Series++
		code, known := a.plan.Source(s.SeriesID)
		if _, requested := inBatch[s.SeriesID]; !known || !requested {
			err := errors.UnknownSeries(fmt.Sprintf("series %q was not requested in batch %d", s.SeriesID, res.Index), nil)
			a.stats.UnknownSeries++
			a.stats.Errors = append(a.stats.Errors, err)
			a.logger.Warn("skipping unknown series", zap.String("series_id", s.SeriesID), zap.Int("batch", res.Index))
			continue
		}
		inBatch[s.SeriesID] = true

		obs, ok := a.latest(code, s)
		if !ok {
			a.stats.EmptySeries++
			a.logger.Debug("no data points for series",
				zap.String("series_id", s.SeriesID),
				zap.String("soc_code", string(code)))
			a.markMissing(code)
			continue
		}
		a.keep(obs)
	}

	for id, answered := range inBatch {
		if answered {
			continue
		}
		if code, ok := a.plan.Source(id); ok {
			a.markMissing(code)
		}
	}
}

func batchError(res BatchResult) error {
	switch {
	case res.Err != nil:
		if errors.Is(res.Err, errors.ErrTypeBatchFetchFailed) {
			return res.Err
		}
		return errors.BatchFetchFailed(fmt.Sprintf("batch %d", res.Index), res.Err)
	case res.Response == nil:
		return errors.BatchFetchFailed(fmt.Sprintf("batch %d returned no response", res.Index), nil)
	case !res.Response.Succeeded():
		return errors.BatchFetchFailed(fmt.Sprintf("batch %d status %s: %s", res.Index, res.Response.Status, res.Response.MessageText()), nil)
	}
	return nil
}

func (a *Aggregator) markMissing(code models.OccupationCode) {
	if _, ok := a.result[code]; !ok {
		a.result[code] = nil
	}
}

// keep stores obs unless an observation at least as recent is already held.
func (a *Aggregator) keep(obs *models.SalaryObservation) {
	current := a.result[obs.OccupationCode]
	if current != nil && !newer(obs, current) {
		return
	}
	if current == nil {
		a.stats.Observations++
	}
	a.result[obs.OccupationCode] = obs
}

// latest picks the most recent usable point of s by comparing periods; the
// API gives no ordering guarantee.
func (a *Aggregator) latest(code models.OccupationCode, s models.Series) (*models.SalaryObservation, bool) {
	var best *models.SalaryObservation
	for _, p := range s.Data {
		obs, err := a.observation(code, s.SeriesID, p)
		if err != nil {
			a.logger.Debug("ignoring data point",
				zap.String("series_id", s.SeriesID),
				zap.String("year", p.Year),
				zap.String("period", p.Period),
				zap.Error(err))
			continue
		}
		if best == nil || newer(obs, best) {
			best = obs
		}
	}
	return best, best != nil
}

func (a *Aggregator) observation(code models.OccupationCode, seriesID string, p models.DataPoint) (*models.SalaryObservation, error) {
	year, err := strconv.Atoi(strings.TrimSpace(p.Year))
	if err != nil {
		return nil, fmt.Errorf("invalid year %q", p.Year)
	}
	if _, err := periodRank(p.Period); err != nil {
		return nil, err
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(p.Value), ",", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("unusable value %q", p.Value)
	}
	return &models.SalaryObservation{
		OccupationCode: code,
		SeriesID:       seriesID,
		Year:           year,
		Period:         p.Period,
		PeriodName:     p.PeriodName,
		Value:          value,
		Unit:           a.unit,
	}, nil
}

// periodRank orders periods within a year: "A01", "M01".."M13", "Q01".."Q05",
// "S01".."S03".
func periodRank(period string) (int, error) {
	p := strings.TrimSpace(period)
	if len(p) < 2 || !strings.ContainsRune("AMQS", rune(p[0])) {
		return 0, fmt.Errorf("invalid period %q", period)
	}
	n, err := strconv.Atoi(p[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid period %q", period)
	}
	return n, nil
}

func newer(a, b *models.SalaryObservation) bool {
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	ra, _ := periodRank(a.Period)
	rb, _ := periodRank(b.Period)
	return ra > rb
}

// Result returns the observation per requested occupation. A nil value
// means the occupation was requested but has no wage data.
func (a *Aggregator) Result() map[models.OccupationCode]*models.SalaryObservation {
	out := make(map[models.OccupationCode]*models.SalaryObservation, len(a.result))
	for code, obs := range a.result {
		out[code] = obs
	}
	return out
}

func (a *Aggregator) Stats() Stats {
	return a.stats
}

// Reduce folds results, in order, into one observation per occupation.
func Reduce(results []BatchResult, plan *series.Plan, unit models.WageUnit, logger *zap.Logger) (map[models.OccupationCode]*models.SalaryObservation, Stats) {
	agg := NewAggregator(plan, unit, logger)
	for _, res := range results {
		agg.Add(res)
	}
	return agg.Result(), agg.Stats()
}
