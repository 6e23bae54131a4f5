package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ManualRule is the sticky provenance marker set by an explicit user
// override. Classification never touches a row carrying it.
const ManualRule = "Manual"

// TransactionRow is one uploaded bank-statement line. It is request
// scoped and never persisted. Uploads arrive with inconsistent key
// casing (Date/date, Amount/amount), so ingestion normalizes keys into
// this record once; unrecognized keys are retained in Extra and are
// visible to condition matching only.
type TransactionRow struct {
	Date            string
	Description     string
	Amount          float64
	TransactionType string
	RuleApplied     string
	LedgerAccountID string
	VendorID        string
	CustomerID      string

	SuggestedLedger    string
	SuggestedType      string
	SuggestedContactID string

	Extra map[string]string
}

// IsManual reports whether the row carries the sticky manual marker.
func (r *TransactionRow) IsManual() bool {
	return r.RuleApplied == ManualRule
}

// Field looks up a value by name, case-insensitively, for condition
// matching. Known fields are resolved from the typed record; anything
// else falls through to the retained extra keys.
func (r *TransactionRow) Field(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "date":
		return r.Date, true
	case "description":
		return r.Description, true
	case "amount":
		return strconv.FormatFloat(r.Amount, 'f', -1, 64), true
	case "transaction_type":
		return r.TransactionType, true
	case "rule_applied":
		return r.RuleApplied, true
	}
	v, ok := r.Extra[strings.ToLower(name)]
	return v, ok
}

func (r *TransactionRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for k, v := range raw {
		switch strings.ToLower(k) {
		case "date":
			r.Date = rawString(v)
		case "description":
			r.Description = rawString(v)
		case "amount":
			r.Amount = rawFloat(v)
		case "transaction_type":
			r.TransactionType = rawString(v)
		case "rule_applied":
			r.RuleApplied = rawString(v)
		case "ledger_account_id":
			r.LedgerAccountID = rawString(v)
		case "vendor_id":
			r.VendorID = rawString(v)
		case "customer_id":
			r.CustomerID = rawString(v)
		case "suggested_ledger":
			r.SuggestedLedger = rawString(v)
		case "suggested_type":
			r.SuggestedType = rawString(v)
		case "suggested_contact_id":
			r.SuggestedContactID = rawString(v)
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[strings.ToLower(k)] = rawString(v)
		}
	}
	return nil
}

func (r TransactionRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+11)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["date"] = r.Date
	out["description"] = r.Description
	out["amount"] = r.Amount
	setIfPresent(out, "transaction_type", r.TransactionType)
	setIfPresent(out, "rule_applied", r.RuleApplied)
	setIfPresent(out, "ledger_account_id", r.LedgerAccountID)
	setIfPresent(out, "vendor_id", r.VendorID)
	setIfPresent(out, "customer_id", r.CustomerID)
	setIfPresent(out, "suggested_ledger", r.SuggestedLedger)
	setIfPresent(out, "suggested_type", r.SuggestedType)
	setIfPresent(out, "suggested_contact_id", r.SuggestedContactID)
	return json.Marshal(out)
}

func setIfPresent(out map[string]any, key, value string) {
	if value != "" {
		out[key] = value
	}
}

// rawString decodes a JSON scalar to its string form. Numbers and
// booleans keep their literal text.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	t := strings.TrimSpace(string(raw))
	if t == "null" {
		return ""
	}
	return t
}

// rawFloat decodes a JSON number, or a numeric string. Anything else
// is zero.
func rawFloat(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}
