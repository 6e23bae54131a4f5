package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Rule classifies bank transactions for one connected company.
// Conditions and Actions are stored as JSON documents; deletion is
// soft (is_active=false) so provenance labels on already-classified
// rows stay resolvable.
type Rule struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID   string         `gorm:"index" json:"client_id"`
	RuleName   string         `json:"rule_name"`
	MatchType  string         `json:"matchType"`
	Conditions datatypes.JSON `json:"conditions"`
	RuleType   string         `json:"rule_type"`
	Actions    datatypes.JSON `json:"actions"`
	IsActive   bool           `gorm:"index" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (Rule) TableName() string {
	return "import_rules"
}
