// Package migrations lists the ClickHouse schema in version order.
package migrations

import "tradewages/common/database/schema"

func All() []schema.Migration {
	return []schema.Migration{
		CreateProgramSalariesTable,
		CreateOccupationWagesTable,
	}
}
