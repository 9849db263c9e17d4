package crosswalk

// MockRows stands in for the crosswalk file when it is unavailable. The
// edges are the hand-verified trade mappings for construction (46),
// mechanic and repair (47) and precision production (48) programs.
func MockRows() []Row {
	pairs := [][3]string{
		{"46.0201", "47-2031", "100"},
		{"46.0302", "47-2111", "80"},
		{"46.0302", "47-3013", "20"},
		{"46.0503", "47-2152", "100"},
		{"47.0201", "49-9021", "100"},
		{"47.0604", "49-3023", "100"},
		{"47.0605", "49-3031", "100"},
		{"48.0501", "51-4041", "100"},
		{"48.0503", "51-4011", "100"},
		{"48.0508", "51-4121", "100"},
	}
	rows := make([]Row, len(pairs))
	for i, p := range pairs {
		rows[i] = Row{Program: p[0], Occupation: p[1], Weight: p[2], Line: i + 2}
	}
	return rows
}
