package models

type School struct {
	UnitID     int    `json:"unit_id"`
	Name       string `json:"name"`
	City       string `json:"city"`
	State      string `json:"state"`
	Zip        string `json:"zip"`
	Website    string `json:"website"`
	Accreditor string `json:"accreditor"`
}

// ProgramRecord is one program offered by one school, as normalized from the
// program source.
type ProgramRecord struct {
	School     School      `json:"school"`
	Code       ProgramCode `json:"cip_code"`
	Title      string      `json:"title"`
	Credential string      `json:"credential,omitempty"`
}
