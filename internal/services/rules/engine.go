package rules

import (
	"encoding/json"
	"strings"

	"bank-classification-backend/internal/models"
)

// Apply runs the given rules over the rows and returns the annotated
// copy plus whether any row changed. The caller supplies active rules
// already ordered newest-first; the first matching rule wins and
// iteration stops for that row. Rows carrying the sticky manual marker
// are returned untouched.
func Apply(rows []models.TransactionRow, ruleSet []models.Rule) ([]models.TransactionRow, bool) {
	applied := false
	out := make([]models.TransactionRow, len(rows))
	for i := range rows {
		row := rows[i]
		if !row.IsManual() {
			for j := range ruleSet {
				matched, action := matches(&row, &ruleSet[j])
				if !matched {
					continue
				}
				row.RuleApplied = ruleSet[j].RuleName
				row.SuggestedLedger = action.Ledger
				row.SuggestedType = ruleSet[j].RuleType
				row.SuggestedContactID = action.ContactID
				applied = true
				break
			}
		}
		out[i] = row
	}
	return out, applied
}

// matches evaluates all of a rule's conditions against the row and
// combines them per the rule's match type. A rule with zero conditions
// (or an undecodable condition document) never matches.
func matches(row *models.TransactionRow, rule *models.Rule) (bool, Action) {
	var conds []Condition
	if err := json.Unmarshal(rule.Conditions, &conds); err != nil || len(conds) == 0 {
		return false, Action{}
	}

	matched := false
	if Disjunctive(rule.MatchType) {
		for _, c := range conds {
			if Evaluate(row, c) {
				matched = true
				break
			}
		}
	} else {
		matched = true
		for _, c := range conds {
			if !Evaluate(row, c) {
				matched = false
				break
			}
		}
	}
	if !matched {
		return false, Action{}
	}

	var action Action
	if len(rule.Actions) > 0 {
		_ = json.Unmarshal(rule.Actions, &action)
	}
	return true, action
}

// Disjunctive maps a stored match type to OR semantics. Stored values
// are ALL/ANY; the legacy AND/OR spellings are accepted as aliases and
// anything else defaults to conjunction.
func Disjunctive(matchType string) bool {
	switch strings.ToUpper(matchType) {
	case "ANY", "OR":
		return true
	}
	return false
}
