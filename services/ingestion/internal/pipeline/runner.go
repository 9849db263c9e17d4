// Package pipeline runs one correlation pass end to end: schools and their
// programs, the crosswalk, batched wage lookups, the merge and publishing.
package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"tradewages/common/errors"
	"tradewages/common/telemetry"
	"tradewages/services/ingestion/internal/api"
	"tradewages/services/ingestion/internal/config"
	"tradewages/services/ingestion/internal/crosswalk"
	"tradewages/services/ingestion/internal/merge"
	"tradewages/services/ingestion/internal/messaging"
	"tradewages/services/ingestion/internal/models"
	"tradewages/services/ingestion/internal/salary"
	"tradewages/services/ingestion/internal/series"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("tradewages/ingestion/pipeline")

type Runner struct {
	programs   api.ProgramSource
	salaries   api.SalarySource
	publisher  messaging.Publisher
	logger     *zap.Logger
	config     *config.Config
	codec      *series.Codec
	merger     *merge.Merger
	normalizer *programNormalizer
	report     io.Writer
	fallbacks  []error

	mutex    sync.Mutex
	isActive bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner builds a Runner. report, when non-nil, receives the rendered
// summary of every run.
func NewRunner(programs api.ProgramSource, salaries api.SalarySource, publisher messaging.Publisher, logger *zap.Logger, config *config.Config, report io.Writer) (*Runner, error) {
	codec, err := series.NewCodec(series.Segments{
		Prefix:        config.BLSSurveyPrefix,
		AreaType:      config.BLSAreaType,
		AreaCode:      config.StateFIPS + "00000",
		Industry:      config.BLSIndustry,
		StatisticType: config.BLSStatisticType,
	})
	if err != nil {
		return nil, err
	}
	if config.BLSBatchSize < 1 || config.BLSBatchSize > series.MaxBatchSize {
		return nil, errors.InvalidInput("BLS_BATCH_SIZE must be between 1 and 50", nil)
	}

	return &Runner{
		programs:   programs,
		salaries:   salaries,
		publisher:  publisher,
		logger:     logger,
		config:     config,
		codec:      codec,
		merger:     merge.NewMerger(logger, config.CrosswalkRollup),
		normalizer: newProgramNormalizer(config.CIPFamilies, logger),
		report:     report,
		now:        time.Now,
		sleep:      sleepContext,
	}, nil
}

// WithFallbacks keeps the errors raised while choosing the sources, such as
// a missing API key that put a mock in place. Every run counts them.
func (r *Runner) WithFallbacks(errs ...error) *Runner {
	for _, err := range errs {
		if err != nil {
			r.fallbacks = append(r.fallbacks, err)
		}
	}
	return r
}

// Start runs once, then again on every PollingInterval tick until ctx is
// done. With no interval it returns after the first run.
func (r *Runner) Start(ctx context.Context) error {
	r.mutex.Lock()
	if r.isActive {
		r.mutex.Unlock()
		return nil
	}
	r.isActive = true
	r.mutex.Unlock()
	defer r.Stop()

	if _, err := r.Run(ctx); err != nil {
		r.logger.Error("initial run failed", zap.Error(err))
		if r.config.PollingInterval <= 0 {
			return err
		}
	}
	if r.config.PollingInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.logger.Error("periodic run failed", zap.Error(err))
			}
		}
	}
}

func (r *Runner) Stop() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.isActive = false
}

// Run performs one pass. Failures of single rows, series or batches, and an
// unreachable source, are counted in the summary; only an unusable batch
// plan or cancellation end the run early.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	ctx, span := tracer.Start(ctx, "Runner.Run")
	defer span.End()

	summary := newRunSummary(uuid.NewString(), r.config.State, r.programs.Live() && r.salaries.Live(), r.now())
	defer r.finish(ctx, summary)
	span.SetAttributes(telemetry.String("run.id", summary.RunID))
	summary.recordErrors(r.fallbacks)

	r.logger.Info("starting run",
		zap.String("run_id", summary.RunID),
		zap.String("state", r.config.State),
		zap.Bool("live", summary.Live))

	var schools []models.SourceSchool
	listing, err := r.programs.FetchSchools(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.recordError(err)
		r.logger.Error("program source unavailable, continuing with no schools", zap.Error(err))
	} else {
		schools = listing.Schools
		summary.recordErrors(listing.PageErrors)
	}
	programs, nstats := r.normalizer.normalize(schools)
	summary.Schools = nstats.schools
	summary.Programs = nstats.programs
	summary.FilteredPrograms = nstats.filtered
	summary.recordErrors(nstats.errs)

	resolver := r.loadCrosswalk(ctx, summary)

	codes := r.merger.Occupations(programs, resolver)
	summary.Occupations = len(codes)
	reqs, errs := r.codec.Requests(codes)
	summary.recordErrors(errs)
	summary.SeriesRequested = len(reqs)

	plan, err := series.Partition(reqs, r.config.BLSBatchSize)
	if err != nil {
		summary.recordError(err)
		telemetry.Fail(span, err)
		return summary, err
	}
	summary.Batches = plan.Len()

	wages, sstats, err := r.fetchSalaries(ctx, plan)
	summary.Salary = sstats
	summary.recordErrors(sstats.Errors)
	if err != nil {
		telemetry.Fail(span, err)
		return summary, err
	}
	summary.setWages(wages)

	records, mstats := r.merger.Merge(programs, resolver, wages)
	summary.Merge = mstats

	if err := r.publish(ctx, records, summary); err != nil {
		telemetry.Fail(span, err)
		return summary, err
	}

	span.SetAttributes(
		telemetry.Int("run.records", len(records)),
		telemetry.Int("run.errors", summary.ErrorCount()),
	)
	return summary, nil
}

// loadCrosswalk reads the configured file, falling back to the built-in rows
// when it cannot be read.
func (r *Runner) loadCrosswalk(ctx context.Context, summary *RunSummary) *crosswalk.Resolver {
	ctx, span := tracer.Start(ctx, "Runner.loadCrosswalk")
	defer span.End()

	resolver, stats, err := crosswalk.LoadFile(ctx, r.config.CrosswalkPath, r.logger)
	if err != nil {
		summary.recordError(err)
		r.logger.Warn("crosswalk unavailable, using built-in rows",
			zap.String("path", r.config.CrosswalkPath),
			zap.Error(err))
		resolver, stats = crosswalk.Build(crosswalk.MockRows(), r.logger)
		summary.CrosswalkMock = true
	}
	summary.Crosswalk = stats
	summary.recordErrors(stats.Invalid)
	r.logger.Info("crosswalk ready",
		zap.Int("programs", resolver.ProgramCount()),
		zap.Int("occupations", len(resolver.Occupations())),
		zap.Int("edges", stats.Edges),
		zap.Bool("built_in", summary.CrosswalkMock))
	span.SetAttributes(
		telemetry.Int("crosswalk.edges", stats.Edges),
		telemetry.Bool("crosswalk.mock", summary.CrosswalkMock),
	)
	return resolver
}

// fetchSalaries requests every batch in order, pausing BLSBatchDelay between
// calls. A failed call is folded in as a failed batch; cancellation aborts.
func (r *Runner) fetchSalaries(ctx context.Context, plan *series.Plan) (map[models.OccupationCode]*models.SalaryObservation, salary.Stats, error) {
	ctx, span := tracer.Start(ctx, "Runner.fetchSalaries")
	defer span.End()
	span.SetAttributes(
		telemetry.Int("batches.count", plan.Len()),
		telemetry.Int("series.count", plan.Size()),
	)

	agg := salary.NewAggregator(plan, r.codec.Segments().Unit(), r.logger)
	for i, batch := range plan.Batches() {
		if i > 0 && r.config.BLSBatchDelay > 0 {
			if err := r.sleep(ctx, r.config.BLSBatchDelay); err != nil {
				return nil, agg.Stats(), err
			}
		}

		resp, err := r.salaries.FetchSeries(ctx, batch)
		if ctx.Err() != nil {
			return nil, agg.Stats(), ctx.Err()
		}
		agg.Add(salary.BatchResult{
			Index:     i,
			SeriesIDs: batch,
			Response:  resp,
			Err:       err,
		})
		r.logger.Debug("processed batch",
			zap.Int("batch", i+1),
			zap.Int("of", plan.Len()),
			zap.Int("series", len(batch)),
			zap.Bool("failed", err != nil))
	}

	wages := agg.Result()
	for code, obs := range wages {
		if obs != nil {
			r.logger.Debug("wage",
				zap.String("soc_code", string(code)),
				zap.String("value", FormatWage(obs.Value, obs.Unit)),
				zap.String("period", obs.PeriodLabel()))
		}
	}
	return wages, agg.Stats(), nil
}

func (r *Runner) publish(ctx context.Context, records []models.ProgramSalaryRecord, summary *RunSummary) error {
	ctx, span := tracer.Start(ctx, "Runner.publish")
	defer span.End()

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.publisher.PublishProgramSalary(ctx, record); err != nil {
			summary.PublishFailed++
			summary.recordError(err)
			continue
		}
		summary.Published++
	}
	span.SetAttributes(
		telemetry.Int("published", summary.Published),
		telemetry.Int("publish.failed", summary.PublishFailed),
	)
	return nil
}

func (r *Runner) finish(ctx context.Context, summary *RunSummary) {
	summary.FinishedAt = r.now()

	r.logger.Info("run complete",
		zap.String("run_id", summary.RunID),
		zap.Int("schools", summary.Schools),
		zap.Int("programs", summary.Programs),
		zap.Int("records", summary.Merge.Programs),
		zap.Int("matched", summary.Merge.Matched),
		zap.Int("with_wages", summary.Merge.WithWageData),
		zap.Int("published", summary.Published),
		zap.Int("errors", summary.ErrorCount()),
		zap.Duration("took", summary.Duration()))

	if r.report != nil {
		summary.Render(r.report)
	}
	if ctx.Err() == nil {
		if err := r.publisher.PublishRunCompleted(ctx, summary.Event()); err != nil {
			r.logger.Warn("failed to publish run summary", zap.Error(err))
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
