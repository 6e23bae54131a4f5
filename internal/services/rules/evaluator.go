package rules

import (
	"strconv"
	"strings"

	"bank-classification-backend/internal/models"
)

// Condition is a single field/operator/value test evaluated against a
// transaction row.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Action is what a matching rule writes onto a row.
type Action struct {
	Ledger    string `json:"ledger"`
	ContactID string `json:"contactId"`
}

// Evaluate tests one condition against a row. Field lookup is
// case-insensitive; string operators compare lower-cased values;
// numeric operators parse both sides as floats and yield false on any
// parse failure. Unknown operators yield false.
func Evaluate(row *models.TransactionRow, cond Condition) bool {
	rowValue := ""
	if v, ok := row.Field(cond.Field); ok {
		rowValue = strings.ToLower(v)
	}
	condValue := strings.ToLower(cond.Value)

	switch cond.Operator {
	case "contains":
		return strings.Contains(rowValue, condValue)
	case "not_contains":
		return !strings.Contains(rowValue, condValue)
	case "equals":
		return rowValue == condValue
	case "starts_with":
		return strings.HasPrefix(rowValue, condValue)
	case "ends_with":
		return strings.HasSuffix(rowValue, condValue)
	case "gt", "lt", "gte", "lte", "eq":
		a, errA := strconv.ParseFloat(rowValue, 64)
		b, errB := strconv.ParseFloat(condValue, 64)
		if errA != nil || errB != nil {
			return false
		}
		switch cond.Operator {
		case "gt":
			return a > b
		case "lt":
			return a < b
		case "gte":
			return a >= b
		case "lte":
			return a <= b
		default:
			return a == b
		}
	}
	return false
}
