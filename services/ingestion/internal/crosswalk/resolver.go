package crosswalk

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"tradewages/common/errors"
	"tradewages/services/ingestion/internal/models"

	"go.uber.org/zap"
)

// Row is one raw crosswalk line before validation.
type Row struct {
	Program    string
	Occupation string
	Weight     string
	Line       int
}

type OccupationLink struct {
	Code   models.OccupationCode `json:"soc_code"`
	Weight float64               `json:"weight"`
}

type ProgramLink struct {
	Code   models.ProgramCode `json:"cip_code"`
	Weight float64            `json:"weight"`
}

type BuildStats struct {
	Rows               int
	Edges              int
	Duplicates         int
	NoMatch            int
	OverweightPrograms int
	Invalid            []error
}

// Resolver is a read-only weighted index between program and occupation
// codes. It is safe for concurrent reads.
type Resolver struct {
	byProgram    map[models.ProgramCode][]OccupationLink
	byOccupation map[models.OccupationCode][]ProgramLink
	programs     []models.ProgramCode
}

type edgeKey struct {
	program    models.ProgramCode
	occupation models.OccupationCode
}

// Build indexes rows. Invalid rows are skipped and reported in the stats;
// a pair that appears more than once keeps its largest weight.
func Build(rows []Row, logger *zap.Logger) (*Resolver, BuildStats) {
	stats := BuildStats{Rows: len(rows)}
	weights := make(map[edgeKey]float64, len(rows))
	order := make([]edgeKey, 0, len(rows))

	for _, row := range rows {
		key, weight, err := parseRow(row)
		if err != nil {
			logger.Warn("skipping crosswalk row", zap.Int("line", row.Line), zap.Error(err))
			stats.Invalid = append(stats.Invalid, err)
			continue
		}
		if key.occupation == models.NoMatchOccupation {
			stats.NoMatch++
			continue
		}

		prev, seen := weights[key]
		if !seen {
			weights[key] = weight
			order = append(order, key)
			continue
		}

		stats.Duplicates++
		kept, discarded := prev, weight
		if weight > prev {
			kept, discarded = weight, prev
			weights[key] = weight
		}
		logger.Debug("discarding duplicate crosswalk weight",
			zap.String("cip_code", string(key.program)),
			zap.String("soc_code", string(key.occupation)),
			zap.Float64("kept", kept),
			zap.Float64("discarded", discarded),
			zap.Int("line", row.Line))
	}

	r := &Resolver{
		byProgram:    make(map[models.ProgramCode][]OccupationLink),
		byOccupation: make(map[models.OccupationCode][]ProgramLink),
	}
	for _, key := range order {
		w := weights[key]
		r.byProgram[key.program] = append(r.byProgram[key.program], OccupationLink{Code: key.occupation, Weight: w})
		r.byOccupation[key.occupation] = append(r.byOccupation[key.occupation], ProgramLink{Code: key.program, Weight: w})
	}
	stats.Edges = len(order)

	for program, links := range r.byProgram {
		sortOccupations(links)
		r.programs = append(r.programs, program)

		var total float64
		for _, l := range links {
			total += l.Weight
		}
		if total > 100 {
			stats.OverweightPrograms++
			logger.Debug("crosswalk weights exceed 100",
				zap.String("cip_code", string(program)),
				zap.Float64("total", total))
		}
	}
	for _, links := range r.byOccupation {
		sortPrograms(links)
	}
	sort.Slice(r.programs, func(i, j int) bool { return r.programs[i] < r.programs[j] })

	return r, stats
}

func parseRow(row Row) (edgeKey, float64, error) {
	program, err := models.ParseProgramCode(row.Program)
	if err != nil {
		return edgeKey{}, 0, errors.CrosswalkRowInvalid(fmt.Sprintf("line %d", row.Line), err)
	}
	occupation, err := models.ParseOccupationCode(row.Occupation)
	if err != nil {
		return edgeKey{}, 0, errors.CrosswalkRowInvalid(fmt.Sprintf("line %d", row.Line), err)
	}
	weight, err := parseWeight(row.Weight)
	if err != nil {
		return edgeKey{}, 0, errors.CrosswalkRowInvalid(fmt.Sprintf("line %d", row.Line), err)
	}
	return edgeKey{program: program, occupation: occupation}, weight, nil
}

func parseWeight(raw string) (float64, error) {
	s := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("weight %q is not numeric", raw)
	}
	if math.IsNaN(w) || w < 0 || w > 100 {
		return 0, fmt.Errorf("weight %q outside 0..100", raw)
	}
	return w, nil
}

func sortOccupations(links []OccupationLink) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].Weight != links[j].Weight {
			return links[i].Weight > links[j].Weight
		}
		return links[i].Code < links[j].Code
	})
}

func sortPrograms(links []ProgramLink) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].Weight != links[j].Weight {
			return links[i].Weight > links[j].Weight
		}
		return links[i].Code < links[j].Code
	})
}

// OccupationsFor returns the occupations linked to program, heaviest first
// and ties in code order.
func (r *Resolver) OccupationsFor(program models.ProgramCode) []OccupationLink {
	links := r.byProgram[program]
	out := make([]OccupationLink, len(links))
	copy(out, links)
	return out
}

// ProgramsFor returns the programs linked to occupation, heaviest first and
// ties in code order.
func (r *Resolver) ProgramsFor(occupation models.OccupationCode) []ProgramLink {
	links := r.byOccupation[occupation]
	out := make([]ProgramLink, len(links))
	copy(out, links)
	return out
}

// RollupFor merges the edges of every program at or below program in the
// CIP hierarchy, keeping each occupation's largest weight. It lets a
// four-digit code, which is what the Scorecard reports, reach the six-digit
// codes the crosswalk is keyed by.
func (r *Resolver) RollupFor(program models.ProgramCode) []OccupationLink {
	best := make(map[models.OccupationCode]float64)
	start := sort.Search(len(r.programs), func(i int) bool { return r.programs[i] >= program })
	for _, p := range r.programs[start:] {
		if !strings.HasPrefix(string(p), string(program)) {
			break
		}
		if !program.Contains(p) {
			continue
		}
		for _, l := range r.byProgram[p] {
			if w, ok := best[l.Code]; !ok || l.Weight > w {
				best[l.Code] = l.Weight
			}
		}
	}

	out := make([]OccupationLink, 0, len(best))
	for code, w := range best {
		out = append(out, OccupationLink{Code: code, Weight: w})
	}
	sortOccupations(out)
	return out
}

// Occupations returns every occupation code in the index, sorted.
func (r *Resolver) Occupations() []models.OccupationCode {
	codes := make([]models.OccupationCode, 0, len(r.byOccupation))
	for code := range r.byOccupation {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func (r *Resolver) ProgramCount() int {
	return len(r.byProgram)
}
