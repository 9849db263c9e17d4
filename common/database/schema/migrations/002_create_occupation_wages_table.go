package migrations

import "tradewages/common/database/schema"

var CreateOccupationWagesTable = schema.Migration{
	Version:     2,
	Description: "Create occupation_wages table",
	Up: `
		CREATE TABLE IF NOT EXISTS occupation_wages (
			id UUID,
			state LowCardinality(String),
			soc_code String,
			series_id String,
			year UInt16,
			period String,
			period_name String,
			value Float64,
			unit LowCardinality(String),
			updated_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (state, soc_code)
	`,
	Down: `DROP TABLE IF EXISTS occupation_wages`,
}
