package models

// All lists every persisted model for sqlite auto-migration.
func All() []any {
	return []any{
		&Product{},
		&Review{},
		&Order{},
		&OrderLine{},
	}
}
