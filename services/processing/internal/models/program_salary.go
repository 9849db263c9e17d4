package models

import (
	"time"
)

// ProgramSalaryEvent mirrors the message published on wages.program.merged.
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

type OccupationWageEvent struct {
	SOCCode    string   `json:"soc_code"`
	Weight     float64  `json:"weight"`
	SeriesID   string   `json:"series_id"`
	Year       int      `json:"year"`
	Period     string   `json:"period"`
	PeriodName string   `json:"period_name"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit"`
}

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

// ProgramSalaryRow is one program_salaries row. The occupation slices are
// parallel and of equal length.
type ProgramSalaryRow struct {
	ID           string
	UnitID       uint32
	SchoolName   string
	City         string
	State        string
	Zip          string
	Website      string
	Accreditor   string
	CIPCode      string
	ProgramTitle string
	SOCCodes     []string
	Weights      []float64
	Wages        []*float64
	WageUnits    []string
	WageYears    []uint16
	WagePeriods  []string
	SeriesIDs    []string
	Matched      bool
	HasWageData  bool
	GeneratedAt  time.Time
	UpdatedAt    time.Time
}

// OccupationWageRow is one occupation_wages row, keyed by (state, soc_code).
type OccupationWageRow struct {
	ID         string
	State      string
	SOCCode    string
	SeriesID   string
	Year       uint16
	Period     string
	PeriodName string
	Value      float64
	Unit       string
	UpdatedAt  time.Time
}
