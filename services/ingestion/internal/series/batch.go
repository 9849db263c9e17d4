package series

import (
	"fmt"

	"tradewages/common/errors"
	"tradewages/services/ingestion/internal/models"
)

// MaxBatchSize is the most series a registered BLS v2 request may carry.
const MaxBatchSize = 50

// Plan is the ordered set of request batches plus the reverse index from
// series identifier to occupation code.
type Plan struct {
	batches [][]string
	sources map[string]models.OccupationCode
}

// Partition splits reqs into consecutive groups of at most capacity
// identifiers. The batches concatenate back to reqs exactly, repeats
// included; Codec.Requests already yields each identifier once. A repeated
// identifier keeps the source code it was first seen with.
func Partition(reqs []Request, capacity int) (*Plan, error) {
	if capacity <= 0 || capacity > MaxBatchSize {
		return nil, errors.InvalidInput(fmt.Sprintf("batch capacity %d outside 1..%d", capacity, MaxBatchSize), nil)
	}

	plan := &Plan{sources: make(map[string]models.OccupationCode, len(reqs))}
	var current []string
	for _, req := range reqs {
		if _, ok := plan.sources[req.SeriesID]; !ok {
			plan.sources[req.SeriesID] = req.Code
		}
		current = append(current, req.SeriesID)
		if len(current) == capacity {
			plan.batches = append(plan.batches, current)
			current = nil
		}
	}
	if len(current) > 0 {
		plan.batches = append(plan.batches, current)
	}
	return plan, nil
}

func (p *Plan) Batches() [][]string {
	return p.batches
}

func (p *Plan) Len() int {
	return len(p.batches)
}

// Size is the number of distinct identifiers across all batches.
func (p *Plan) Size() int {
	return len(p.sources)
}

// Source returns the occupation code id was built from.
func (p *Plan) Source(id string) (models.OccupationCode, bool) {
	code, ok := p.sources[id]
	return code, ok
}
