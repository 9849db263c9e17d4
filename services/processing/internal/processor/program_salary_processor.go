package processor

import (
	"context"
	"fmt"
	"time"

	"tradewages/common/telemetry"
	"tradewages/services/processing/internal/config"
	"tradewages/services/processing/internal/models"
	"tradewages/services/processing/internal/parser"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Execer is the part of clickhouse.Conn the processor writes through.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

type ProgramSalaryProcessor struct {
	logger *zap.Logger
	db     Execer
	tracer trace.Tracer
	config *config.Config
	now    func() time.Time
}

func NewProgramSalaryProcessor(logger *zap.Logger, db Execer, config *config.Config) *ProgramSalaryProcessor {
	tracer := telemetry.GetTracer("tradewages/processing/processor")
	return &ProgramSalaryProcessor{
		logger: logger,
		db:     db,
		tracer: tracer,
		config: config,
		now:    time.Now,
	}
}

// ProcessProgramSalary stores one merged record. Rows are keyed so that a
// re-run replaces earlier rows instead of adding to them.
func (p *ProgramSalaryProcessor) ProcessProgramSalary(ctx context.Context, rawData []byte) error {
	ctx, span := p.tracer.Start(ctx, "ProcessProgramSalary")
	defer span.End()

	if p.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ProcessingTimeout)
		defer cancel()
	}

	row, wages, err := parser.ParseProgramSalary(rawData, p.now())
	if err != nil {
		telemetry.Fail(span, err)
		p.logger.Error("Failed to parse program salary", zap.Error(err))
		return fmt.Errorf("parse program salary: %w", err)
	}
	span.SetAttributes(
		telemetry.Int("unit_id", int(row.UnitID)),
		telemetry.String("cip_code", row.CIPCode),
		telemetry.Int("occupations", len(row.SOCCodes)),
	)

	if err := p.storeProgramSalary(ctx, row); err != nil {
		telemetry.Fail(span, err)
		p.logger.Error("Failed to store program salary", zap.Error(err))
		return fmt.Errorf("store program salary: %w", err)
	}

	for i := range wages {
		if err := p.storeOccupationWage(ctx, &wages[i]); err != nil {
			telemetry.Fail(span, err)
			p.logger.Error("Failed to store occupation wage",
				zap.String("soc_code", wages[i].SOCCode),
				zap.Error(err))
			return fmt.Errorf("store occupation wage: %w", err)
		}
	}

	p.logger.Debug("Stored program salary",
		zap.Uint32("unit_id", row.UnitID),
		zap.String("cip_code", row.CIPCode),
		zap.Int("wages", len(wages)))
	return nil
}

func (p *ProgramSalaryProcessor) storeProgramSalary(ctx context.Context, row *models.ProgramSalaryRow) error {
	query := `
		INSERT INTO program_salaries (
			id, unit_id, school_name, city, state, zip, website, accreditor,
			cip_code, program_title, soc_codes, weights, wages, wage_units,
			wage_years, wage_periods, series_ids, matched, has_wage_data,
			generated_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	if err := p.db.Exec(ctx, query,
		row.ID,
		row.UnitID,
		row.SchoolName,
		row.City,
		row.State,
		row.Zip,
		row.Website,
		row.Accreditor,
		row.CIPCode,
		row.ProgramTitle,
		row.SOCCodes,
		row.Weights,
		row.Wages,
		row.WageUnits,
		row.WageYears,
		row.WagePeriods,
		row.SeriesIDs,
		row.Matched,
		row.HasWageData,
		row.GeneratedAt,
		row.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert program salary: %w", err)
	}

	return nil
}

func (p *ProgramSalaryProcessor) storeOccupationWage(ctx context.Context, row *models.OccupationWageRow) error {
	query := `
		INSERT INTO occupation_wages (
			id, state, soc_code, series_id, year, period, period_name,
			value, unit, updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	if err := p.db.Exec(ctx, query,
		row.ID,
		row.State,
		row.SOCCode,
		row.SeriesID,
		row.Year,
		row.Period,
		row.PeriodName,
		row.Value,
		row.Unit,
		row.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert occupation wage: %w", err)
	}

	return nil
}

// ProcessRunCompleted logs the summary of an ingestion run.
func (p *ProgramSalaryProcessor) ProcessRunCompleted(ctx context.Context, rawData []byte) error {
	_, span := p.tracer.Start(ctx, "ProcessRunCompleted")
	defer span.End()

	event, err := parser.ParseRunCompleted(rawData)
	if err != nil {
		telemetry.Fail(span, err)
		return fmt.Errorf("parse run summary: %w", err)
	}

	fields := []zap.Field{
		zap.String("run_id", event.RunID),
		zap.String("state", event.State),
		zap.Bool("live", event.Live),
		zap.Int("records", event.Records),
		zap.Int("matched", event.Matched),
		zap.Int("with_wages", event.WithWages),
		zap.Int("published", event.Published),
		zap.Duration("took", event.FinishedAt.Sub(event.StartedAt)),
	}
	for kind, n := range event.Errors {
		fields = append(fields, zap.Int("errors."+kind, n))
	}
	p.logger.Info("Ingestion run completed", fields...)
	return nil
}
