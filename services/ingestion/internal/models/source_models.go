package models

import (
	"encoding/json"
	"sort"
	"strings"
)

const RequestSucceeded = "REQUEST_SUCCEEDED"

// DataPoint is one dated value of a BLS time series. Values stay strings
// because BLS uses "-" for suppressed figures.
type DataPoint struct {
	Year       string `json:"year"`
	Period     string `json:"period"`
	PeriodName string `json:"periodName"`
	Latest     string `json:"latest,omitempty"`
	Value      string `json:"value"`
}

type Series struct {
	SeriesID string      `json:"seriesID"`
	Data     []DataPoint `json:"data"`
}

// SeriesResponse is the body of a BLS timeseries/data call.
type SeriesResponse struct {
	Status       string   `json:"status"`
	ResponseTime int      `json:"responseTime"`
	Message      []string `json:"message"`
	Results      struct {
		Series []Series `json:"series"`
	} `json:"Results"`
}

func (r *SeriesResponse) Succeeded() bool {
	return r.Status == RequestSucceeded
}

func (r *SeriesResponse) MessageText() string {
	return strings.Join(r.Message, "; ")
}

func (r SeriesResponse) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

func (r *SeriesResponse) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}

// SourceProgram is one entry of latest.programs.cip_4_digit.
type SourceProgram struct {
	Code       string `json:"code"`
	Title      string `json:"title"`
	Credential struct {
		Title string `json:"title"`
	} `json:"credential"`
}

// SourceSchool is one College Scorecard result, requested with flat dotted
// field names.
type SourceSchool struct {
	ID         int             `json:"id"`
	Name       string          `json:"school.name"`
	City       string          `json:"school.city"`
	State      string          `json:"school.state"`
	Zip        string          `json:"school.zip"`
	URL        string          `json:"school.school_url"`
	Accreditor string          `json:"school.accreditor"`
	Programs   json.RawMessage `json:"latest.programs.cip_4_digit"`
}

func (s *SourceSchool) ToSchool() School {
	name := s.Name
	if name == "" {
		name = "Unknown"
	}
	return School{
		UnitID:     s.ID,
		Name:       name,
		City:       s.City,
		State:      s.State,
		Zip:        s.Zip,
		Website:    s.URL,
		Accreditor: s.Accreditor,
	}
}

// SourcePrograms decodes the embedded program list. The API returns an
// array of objects, older snapshots an object keyed by code; anything else is
// treated as no programs.
func (s *SourceSchool) SourcePrograms() []SourceProgram {
	raw := s.Programs
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []SourceProgram
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil
	}
	codes := make([]string, 0, len(keyed))
	for code := range keyed {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	list = make([]SourceProgram, 0, len(codes))
	for _, code := range codes {
		p := SourceProgram{Code: code}
		var title string
		if err := json.Unmarshal(keyed[code], &title); err == nil {
			p.Title = title
		}
		list = append(list, p)
	}
	return list
}

type ScorecardMetadata struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// ScorecardPage is one page of the schools endpoint.
type ScorecardPage struct {
	Metadata ScorecardMetadata `json:"metadata"`
	Results  []SourceSchool    `json:"results"`
}

func (p ScorecardPage) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

func (p *ScorecardPage) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}
