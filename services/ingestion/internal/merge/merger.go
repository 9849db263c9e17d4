package merge

import (
	"time"

	"tradewages/services/ingestion/internal/crosswalk"
	"tradewages/services/ingestion/internal/models"

	"go.uber.org/zap"
)

// OccupationResolver is the part of the crosswalk the merger reads.
type OccupationResolver interface {
	OccupationsFor(program models.ProgramCode) []crosswalk.OccupationLink
	RollupFor(program models.ProgramCode) []crosswalk.OccupationLink
}

type Stats struct {
	Programs     int
	Matched      int
	RolledUp     int
	Unmatched    int
	WithWageData int
}

type Merger struct {
	logger *zap.Logger
	rollup bool
	now    func() time.Time
}

// NewMerger returns a Merger. With rollup set, a program code that has no
// crosswalk edges of its own borrows those of the codes beneath it.
func NewMerger(logger *zap.Logger, rollup bool) *Merger {
	return &Merger{logger: logger, rollup: rollup, now: time.Now}
}

// Merge emits one record per program, in input order. Programs with no
// crosswalk edges keep an empty occupation list.
func (m *Merger) Merge(programs []models.ProgramRecord, resolver OccupationResolver, salaries map[models.OccupationCode]*models.SalaryObservation) ([]models.ProgramSalaryRecord, Stats) {
	stats := Stats{Programs: len(programs)}
	generated := m.now().UTC()
	records := make([]models.ProgramSalaryRecord, 0, len(programs))

	for _, p := range programs {
		links := resolver.OccupationsFor(p.Code)
		if len(links) == 0 && m.rollup {
			if links = resolver.RollupFor(p.Code); len(links) > 0 {
				stats.RolledUp++
			}
		}

		record := models.ProgramSalaryRecord{
			School:       p.School,
			ProgramCode:  p.Code,
			ProgramTitle: p.Title,
			Occupations:  make([]models.OccupationWage, 0, len(links)),
			GeneratedAt:  generated,
		}
		for _, l := range links {
			record.Occupations = append(record.Occupations, models.OccupationWage{
				OccupationCode: l.Code,
				Weight:         l.Weight,
				Observation:    salaries[l.Code],
			})
		}

		if len(links) == 0 {
			stats.Unmatched++
			m.logger.Debug("program has no crosswalk edges",
				zap.Int("unit_id", p.School.UnitID),
				zap.String("cip_code", string(p.Code)))
		} else {
			stats.Matched++
		}
		if record.HasWageData() {
			stats.WithWageData++
		}
		records = append(records, record)
	}

	return records, stats
}

// Occupations lists the distinct occupations the programs resolve to, in
// first-seen order. It is the set of codes worth requesting wages for.
func (m *Merger) Occupations(programs []models.ProgramRecord, resolver OccupationResolver) []models.OccupationCode {
	seen := make(map[models.OccupationCode]struct{})
	var codes []models.OccupationCode
	for _, p := range programs {
		links := resolver.OccupationsFor(p.Code)
		if len(links) == 0 && m.rollup {
			links = resolver.RollupFor(p.Code)
		}
		for _, l := range links {
			if _, ok := seen[l.Code]; ok {
				continue
			}
			seen[l.Code] = struct{}{}
			codes = append(codes, l.Code)
		}
	}
	return codes
}
