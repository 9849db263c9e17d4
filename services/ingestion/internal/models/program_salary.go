package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// OccupationWage is one occupation linked to a program. A nil Observation
// means no wage data was found, which is distinct from a zero wage.
type OccupationWage struct {
	OccupationCode OccupationCode     `json:"soc_code"`
	Weight         float64            `json:"weight"`
	Observation    *SalaryObservation `json:"observation"`
}

// ProgramSalaryRecord is the merged output for one (school, program) pair.
type ProgramSalaryRecord struct {
	School       School           `json:"school"`
	ProgramCode  ProgramCode      `json:"cip_code"`
	ProgramTitle string           `json:"program_title"`
	Occupations  []OccupationWage `json:"occupations"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// Key identifies the record for upserts.
func (r ProgramSalaryRecord) Key() string {
	return strconv.Itoa(r.School.UnitID) + "|" + string(r.ProgramCode)
}

func (r ProgramSalaryRecord) HasWageData() bool {
	for _, o := range r.Occupations {
		if o.Observation != nil {
			return true
		}
	}
	return false
}

func (r ProgramSalaryRecord) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

func (r *ProgramSalaryRecord) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}
