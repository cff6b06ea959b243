package models

import "gorm.io/gorm/clause"

func forUpdateClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func skipLockedClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}
}
