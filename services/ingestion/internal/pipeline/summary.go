package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"tradewages/common/errors"
	"tradewages/services/ingestion/internal/crosswalk"
	"tradewages/services/ingestion/internal/events"
	"tradewages/services/ingestion/internal/merge"
	"tradewages/services/ingestion/internal/models"
	"tradewages/services/ingestion/internal/salary"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// RunSummary is the diagnostic report of one pipeline run. Errors is keyed
// by error kind; errors that carry no kind are counted as INTERNAL.
type RunSummary struct {
	RunID      string
	State      string
	Live       bool
	StartedAt  time.Time
	FinishedAt time.Time

	Schools          int
	Programs         int
	FilteredPrograms int
	Crosswalk        crosswalk.BuildStats
	CrosswalkMock    bool
	Occupations      int
	SeriesRequested  int
	Batches          int
	Salary           salary.Stats
	Merge            merge.Stats
	Published        int
	PublishFailed    int

	Wages  []OccupationSummary
	Errors map[errors.ErrorType]int
}

type OccupationSummary struct {
	Code        models.OccupationCode
	Observation *models.SalaryObservation
}

func newRunSummary(runID, state string, live bool, started time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		State:     state,
		Live:      live,
		StartedAt: started,
		Errors:    make(map[errors.ErrorType]int),
	}
}

func (s *RunSummary) recordError(err error) {
	if err == nil {
		return
	}
	kind := errors.TypeOf(err)
	if kind == "" {
		kind = errors.ErrTypeInternal
	}
	s.Errors[kind]++
}

func (s *RunSummary) recordErrors(errs []error) {
	for _, err := range errs {
		s.recordError(err)
	}
}

func (s *RunSummary) setWages(wages map[models.OccupationCode]*models.SalaryObservation) {
	s.Wages = make([]OccupationSummary, 0, len(wages))
	for code, obs := range wages {
		s.Wages = append(s.Wages, OccupationSummary{Code: code, Observation: obs})
	}
	sort.Slice(s.Wages, func(i, j int) bool { return s.Wages[i].Code < s.Wages[j].Code })
}

// ErrorCount is the total over every kind.
func (s *RunSummary) ErrorCount() int {
	n := 0
	for _, c := range s.Errors {
		n += c
	}
	return n
}

func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *RunSummary) Event() events.RunCompletedEvent {
	errs := make(map[string]int, len(s.Errors))
	for kind, c := range s.Errors {
		errs[string(kind)] = c
	}
	return events.RunCompletedEvent{
		RunID:      s.RunID,
		State:      s.State,
		Live:       s.Live,
		Schools:    s.Schools,
		Programs:   s.Programs,
		Records:    s.Merge.Programs,
		Matched:    s.Merge.Matched,
		WithWages:  s.Merge.WithWageData,
		Published:  s.Published,
		Errors:     errs,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

// Render writes the counters, the wage per occupation and the error kinds
// as tables.
func (s *RunSummary) Render(w io.Writer) {
	source := "live"
	if !s.Live {
		source = "mock"
	}
	fmt.Fprintf(w, "run %s  state %s  source %s  took %s\n", s.RunID, s.State, source, s.Duration().Round(time.Millisecond))

	counts := tablewriter.NewWriter(w)
	counts.SetHeader([]string{"Stage", "Count"})
	counts.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range []struct {
		label string
		n     int
	}{
		{"schools", s.Schools},
		{"programs", s.Programs},
		{"programs outside target families", s.FilteredPrograms},
		{"crosswalk edges", s.Crosswalk.Edges},
		{"crosswalk rows invalid", len(s.Crosswalk.Invalid)},
		{"occupations", s.Occupations},
		{"series requested", s.SeriesRequested},
		{"batches", s.Batches},
		{"batches failed", s.Salary.FailedBatches},
		{"series without data", s.Salary.EmptySeries},
		{"records", s.Merge.Programs},
		{"records matched", s.Merge.Matched},
		{"records rolled up", s.Merge.RolledUp},
		{"records with wages", s.Merge.WithWageData},
		{"published", s.Published},
	} {
		counts.Append([]string{row.label, humanize.Comma(int64(row.n))})
	}
	counts.Render()

	if len(s.Wages) > 0 {
		wages := tablewriter.NewWriter(w)
		wages.SetHeader([]string{"SOC", "Wage", "Period", "Series"})
		wages.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, o := range s.Wages {
			if o.Observation == nil {
				wages.Append([]string{string(o.Code), "n/a", "", ""})
				continue
			}
			wages.Append([]string{
				string(o.Code),
				FormatWage(o.Observation.Value, o.Observation.Unit),
				o.Observation.PeriodLabel(),
				o.Observation.SeriesID,
			})
		}
		wages.Render()
	}

	if len(s.Errors) > 0 {
		kinds := make([]string, 0, len(s.Errors))
		for kind := range s.Errors {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)

		errs := tablewriter.NewWriter(w)
		errs.SetHeader([]string{"Error", "Count"})
		errs.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, kind := range kinds {
			errs.Append([]string{kind, strconv.Itoa(s.Errors[errors.ErrorType(kind)])})
		}
		errs.Render()
	}
}

// FormatWage renders a wage as dollars: whole dollars for annual figures,
// cents for hourly ones.
func FormatWage(value float64, unit models.WageUnit) string {
	if unit == models.WageUnitHourly {
		return "$" + humanize.FormatFloat("#,###.##", value) + "/hr"
	}
	return "$" + humanize.Comma(int64(value+0.5))
}
