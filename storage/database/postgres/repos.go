// Package pgrepos implements the domain repositories on PostgreSQL via sqlx.
package pgrepos

import (
	"strings"

	"github.com/lib/pq"

	"github.com/maskot/crm/core"
)

// uniqueViolation is the postgres error code raised when a unique constraint is
// broken. Concurrent creations can race past the service-level lookup check, so
// every insert/update maps this code back to the domain conflict error.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
