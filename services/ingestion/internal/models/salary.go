package models

import (
	"encoding/json"
	"strconv"
)

type WageUnit string

const (
	WageUnitAnnual WageUnit = "USD/year"
	WageUnitHourly WageUnit = "USD/hour"
)

// SalaryObservation is the most recent wage figure reported for one
// occupation.
type SalaryObservation struct {
	OccupationCode OccupationCode `json:"soc_code"`
	SeriesID       string         `json:"series_id"`
	Year           int            `json:"year"`
	Period         string         `json:"period"`
	PeriodName     string         `json:"period_name"`
	Value          float64        `json:"value"`
	Unit           WageUnit       `json:"unit"`
}

func (o SalaryObservation) PeriodLabel() string {
	if o.PeriodName == "" {
		return strconv.Itoa(o.Year)
	}
	return o.PeriodName + " " + strconv.Itoa(o.Year)
}

func (o SalaryObservation) MarshalBinary() ([]byte, error) {
	return json.Marshal(o)
}

func (o *SalaryObservation) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, o)
}
