package pipeline

import (
	"fmt"

	"tradewages/common/errors"
	"tradewages/services/ingestion/internal/models"

	"go.uber.org/zap"
)

type programNormalizer struct {
	families map[string]bool
	logger   *zap.Logger
}

// newProgramNormalizer keeps programs whose CIP family is listed. An empty
// list keeps every family.
func newProgramNormalizer(families []string, logger *zap.Logger) *programNormalizer {
	set := make(map[string]bool, len(families))
	for _, f := range families {
		if code, err := models.ParseProgramCode(f); err == nil {
			set[code.Family()] = true
		}
	}
	return &programNormalizer{
		families: set,
		logger:   logger,
	}
}

type normalizeStats struct {
	schools  int
	programs int
	filtered int
	dupes    int
	errs     []error
}

// normalize flattens schools into program records. A program with an
// unparsable code is skipped and reported; the same code listed twice by
// one school is kept once.
func (p *programNormalizer) normalize(schools []models.SourceSchool) ([]models.ProgramRecord, normalizeStats) {
	stats := normalizeStats{schools: len(schools)}
	var records []models.ProgramRecord

	for i := range schools {
		school := schools[i].ToSchool()
		seen := make(map[models.ProgramCode]bool)

		for _, sp := range schools[i].SourcePrograms() {
			code, err := models.ParseProgramCode(sp.Code)
			if err != nil {
				stats.errs = append(stats.errs, errors.MalformedIdentifier(
					fmt.Sprintf("school %d program %q", school.UnitID, sp.Code), err))
				p.logger.Debug("skipping program with malformed code",
					zap.Int("unit_id", school.UnitID),
					zap.String("cip_code", sp.Code))
				continue
			}
			if !p.isTargetFamily(code) {
				stats.filtered++
				continue
			}
			if seen[code] {
				stats.dupes++
				continue
			}
			seen[code] = true

			records = append(records, models.ProgramRecord{
				School:     school,
				Code:       code,
				Title:      sp.Title,
				Credential: sp.Credential.Title,
			})
		}
	}

	stats.programs = len(records)
	p.logger.Info("normalized programs",
		zap.Int("schools", stats.schools),
		zap.Int("programs", stats.programs),
		zap.Int("filtered", stats.filtered),
		zap.Int("duplicates", stats.dupes),
		zap.Int("malformed", len(stats.errs)))
	return records, stats
}

func (p *programNormalizer) isTargetFamily(code models.ProgramCode) bool {
	return len(p.families) == 0 || p.families[code.Family()]
}
