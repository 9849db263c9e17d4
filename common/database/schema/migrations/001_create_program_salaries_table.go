package migrations

import "tradewages/common/database/schema"

// CreateProgramSalariesTable holds one row per (school, program). The
// occupation arrays are parallel: index i of each describes the same SOC.
var CreateProgramSalariesTable = schema.Migration{
	Version:     1,
	Description: "Create program_salaries table",
	Up: `
		CREATE TABLE IF NOT EXISTS program_salaries (
			id UUID,
			unit_id UInt32,
			school_name String,
			city String,
			state LowCardinality(String),
			zip String,
			website String,
			accreditor String,
			cip_code String,
			program_title String,
			soc_codes Array(String),
			weights Array(Float64),
			wages Array(Nullable(Float64)),
			wage_units Array(LowCardinality(String)),
			wage_years Array(UInt16),
			wage_periods Array(String),
			series_ids Array(String),
			matched Bool,
			has_wage_data Bool,
			generated_at DateTime,
			updated_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (unit_id, cip_code)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS program_salaries`,
}
