package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"bank-classification-backend/internal/models"
)

func makeRule(name, matchType, ruleType, conditions, actions string) models.Rule {
	return models.Rule{
		RuleName:   name,
		MatchType:  matchType,
		RuleType:   ruleType,
		Conditions: datatypes.JSON(conditions),
		Actions:    datatypes.JSON(actions),
		IsActive:   true,
	}
}

func TestApplyMatchTypes(t *testing.T) {
	rows := []models.TransactionRow{
		{Description: "Uber trip", Amount: -30},
	}

	allRule := makeRule("big uber", "ALL", "Expense",
		`[{"field":"Description","operator":"contains","value":"uber"},
		  {"field":"Amount","operator":"lt","value":"-100"}]`,
		`{"ledger":"Travel"}`)
	anyRule := makeRule("any uber", "ANY", "Expense",
		`[{"field":"Description","operator":"contains","value":"uber"},
		  {"field":"Amount","operator":"lt","value":"-100"}]`,
		`{"ledger":"Travel"}`)

	out, applied := Apply(rows, []models.Rule{allRule})
	assert.False(t, applied, "ALL with one failing condition must not match")
	assert.Empty(t, out[0].RuleApplied)

	out, applied = Apply(rows, []models.Rule{anyRule})
	assert.True(t, applied, "ANY with one passing condition must match")
	assert.Equal(t, "any uber", out[0].RuleApplied)
	assert.Equal(t, "Travel", out[0].SuggestedLedger)
}

func TestApplyLegacyMatchTypeAliases(t *testing.T) {
	rows := []models.TransactionRow{{Description: "Uber trip", Amount: -30}}
	orRule := makeRule("legacy or", "OR", "Expense",
		`[{"field":"Description","operator":"contains","value":"uber"},
		  {"field":"Amount","operator":"gt","value":"0"}]`,
		`{"ledger":"Travel"}`)

	_, applied := Apply(rows, []models.Rule{orRule})
	assert.True(t, applied)
}

func TestApplyFirstMatchWins(t *testing.T) {
	// Caller supplies rules newest-first; R2 is newer than R1 and both
	// match, so the row carries R2's annotation.
	older := makeRule("R1", "ALL", "Expense",
		`[{"field":"Description","operator":"contains","value":"uber"}]`,
		`{"ledger":"Travel"}`)
	newer := makeRule("R2", "ALL", "Expense",
		`[{"field":"Description","operator":"contains","value":"uber"}]`,
		`{"ledger":"Meals","contactId":"42"}`)

	rows := []models.TransactionRow{{Description: "Uber Eats", Amount: -12}}
	out, applied := Apply(rows, []models.Rule{newer, older})

	require.True(t, applied)
	assert.Equal(t, "R2", out[0].RuleApplied)
	assert.Equal(t, "Meals", out[0].SuggestedLedger)
	assert.Equal(t, "42", out[0].SuggestedContactID)
}

func TestApplyManualMarkerIsSticky(t *testing.T) {
	rule := makeRule("uber", "ALL", "Expense",
		`[{"field":"Description","operator":"contains","value":"uber"}]`,
		`{"ledger":"Travel"}`)

	rows := []models.TransactionRow{{
		Description:     "Uber Eats",
		Amount:          -12,
		RuleApplied:     models.ManualRule,
		SuggestedLedger: "Meals",
	}}

	out, applied := Apply(rows, []models.Rule{rule})
	assert.False(t, applied)
	assert.Equal(t, models.ManualRule, out[0].RuleApplied)
	assert.Equal(t, "Meals", out[0].SuggestedLedger)
}

func TestApplyZeroConditionsNeverMatches(t *testing.T) {
	empty := makeRule("empty", "ALL", "Expense", `[]`, `{"ledger":"Misc"}`)
	broken := makeRule("broken", "ALL", "Expense", `not json`, `{"ledger":"Misc"}`)

	rows := []models.TransactionRow{{Description: "anything", Amount: -1}}
	out, applied := Apply(rows, []models.Rule{empty, broken})

	assert.False(t, applied)
	assert.Empty(t, out[0].RuleApplied)
}

func TestApplyAnnotatesKindAndLeavesUnmatchedRows(t *testing.T) {
	rule := makeRule("rent", "ALL", "Transfer",
		`[{"field":"Description","operator":"starts_with","value":"rent"}]`,
		`{"ledger":"Rent","contactId":"7"}`)

	rows := []models.TransactionRow{
		{Description: "Rent March", Amount: -900},
		{Description: "Coffee", Amount: -3},
	}
	out, applied := Apply(rows, []models.Rule{rule})

	require.True(t, applied)
	assert.Equal(t, "rent", out[0].RuleApplied)
	assert.Equal(t, "Transfer", out[0].SuggestedType)
	assert.Empty(t, out[1].RuleApplied, "unmatched row returned unchanged")
	assert.Equal(t, "Coffee", out[1].Description)
}
