// Package events defines the messages the ingestion service puts on the bus.
package events

import (
	"time"

	"tradewages/services/ingestion/internal/models"
)

const (
	ProgramSalarySubject = "wages.program.merged"
	RunCompletedSubject  = "wages.run.completed"
)

type OccupationWageEvent struct {
	SOCCode    string   `json:"soc_code"`
	Weight     float64  `json:"weight"`
	SeriesID   string   `json:"series_id,omitempty"`
	Year       int      `json:"year,omitempty"`
	Period     string   `json:"period,omitempty"`
	PeriodName string   `json:"period_name,omitempty"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit,omitempty"`
}

// ProgramSalaryEvent is the flattened form of a ProgramSalaryRecord. A nil
// Value marks an occupation with no wage data.
type ProgramSalaryEvent struct {
	UnitID       int                   `json:"unit_id"`
	SchoolName   string                `json:"school_name"`
	City         string                `json:"city"`
	State        string                `json:"state"`
	Zip          string                `json:"zip"`
	Website      string                `json:"website"`
	Accreditor   string                `json:"accreditor"`
	CIPCode      string                `json:"cip_code"`
	ProgramTitle string                `json:"program_title"`
	Occupations  []OccupationWageEvent `json:"occupations"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

func NewProgramSalaryEvent(r models.ProgramSalaryRecord) ProgramSalaryEvent {
	event := ProgramSalaryEvent{
		UnitID:       r.School.UnitID,
		SchoolName:   r.School.Name,
		City:         r.School.City,
		State:        r.School.State,
		Zip:          r.School.Zip,
		Website:      r.School.Website,
		Accreditor:   r.School.Accreditor,
		CIPCode:      string(r.ProgramCode),
		ProgramTitle: r.ProgramTitle,
		Occupations:  make([]OccupationWageEvent, 0, len(r.Occupations)),
		GeneratedAt:  r.GeneratedAt,
	}
	for _, o := range r.Occupations {
		ow := OccupationWageEvent{
			SOCCode: string(o.OccupationCode),
			Weight:  o.Weight,
		}
		if obs := o.Observation; obs != nil {
			value := obs.Value
			ow.SeriesID = obs.SeriesID
			ow.Year = obs.Year
			ow.Period = obs.Period
			ow.PeriodName = obs.PeriodName
			ow.Value = &value
			ow.Unit = string(obs.Unit)
		}
		event.Occupations = append(event.Occupations, ow)
	}
	return event
}

// RunCompletedEvent is published once at the end of every pipeline run.
type RunCompletedEvent struct {
	RunID      string         `json:"run_id"`
	State      string         `json:"state"`
	Live       bool           `json:"live"`
	Schools    int            `json:"schools"`
	Programs   int            `json:"programs"`
	Records    int            `json:"records"`
	Matched    int            `json:"matched"`
	WithWages  int            `json:"with_wages"`
	Published  int            `json:"published"`
	Errors     map[string]int `json:"errors"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
