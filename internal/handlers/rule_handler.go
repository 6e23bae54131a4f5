package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"bank-classification-backend/internal/models"
	"bank-classification-backend/internal/services/rules"
)

// RuleStore is the repository surface the rule endpoints need.
type RuleStore interface {
	ListByCompany(clientID string) ([]models.Rule, error)
	ActiveByCompany(clientID string) ([]models.Rule, error)
	GetByID(id uuid.UUID) (*models.Rule, error)
	Create(rule *models.Rule) error
	Update(rule *models.Rule) error
	SoftDelete(id uuid.UUID) error
}

type RuleHandler struct {
	store RuleStore
}

func NewRuleHandler(store RuleStore) *RuleHandler {
	return &RuleHandler{store: store}
}

// List returns every rule for a company, including soft-deleted ones.
func (h *RuleHandler) List(c *gin.Context) {
	companyID := c.Query("companyId")
	if companyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Company ID is required"})
		return
	}

	ruleSet, err := h.store.ListByCompany(companyID)
	if err != nil {
		respondError(c, err)
		return
	}
	if ruleSet == nil {
		ruleSet = []models.Rule{}
	}
	c.JSON(http.StatusOK, ruleSet)
}

func (h *RuleHandler) Create(c *gin.Context) {
	var payload struct {
		ClientID   string          `json:"client_id"`
		RuleName   string          `json:"rule_name"`
		MatchType  string          `json:"matchType"`
		Conditions json.RawMessage `json:"conditions"`
		RuleType   string          `json:"rule_type"`
		Actions    json.RawMessage `json:"actions"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rule := models.Rule{
		ID:         uuid.New(),
		ClientID:   payload.ClientID,
		RuleName:   payload.RuleName,
		MatchType:  defaultString(payload.MatchType, "ALL"),
		Conditions: jsonOrEmptyArray(payload.Conditions),
		RuleType:   defaultString(payload.RuleType, "Expense"),
		Actions:    jsonOrEmptyObject(payload.Actions),
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
	if err := h.store.Create(&rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Update applies a partial edit; absent fields are left alone.
func (h *RuleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule ID"})
		return
	}

	var payload struct {
		RuleName   *string         `json:"rule_name"`
		MatchType  *string         `json:"matchType"`
		Conditions json.RawMessage `json:"conditions"`
		RuleType   *string         `json:"rule_type"`
		Actions    json.RawMessage `json:"actions"`
		IsActive   *bool           `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rule, err := h.store.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}

	if payload.RuleName != nil {
		rule.RuleName = *payload.RuleName
	}
	if payload.MatchType != nil {
		rule.MatchType = *payload.MatchType
	}
	if payload.Conditions != nil {
		rule.Conditions = datatypes.JSON(payload.Conditions)
	}
	if payload.RuleType != nil {
		rule.RuleType = *payload.RuleType
	}
	if payload.Actions != nil {
		rule.Actions = datatypes.JSON(payload.Actions)
	}
	if payload.IsActive != nil {
		rule.IsActive = *payload.IsActive
	}

	if err := h.store.Update(rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Delete soft-deletes: the rule stays on record with is_active=false.
func (h *RuleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule ID"})
		return
	}
	if err := h.store.SoftDelete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Apply runs the classification engine over the submitted rows using
// the company's active rules.
func (h *RuleHandler) Apply(c *gin.Context) {
	var payload struct {
		CompanyID    string                  `json:"companyId"`
		Transactions []models.TransactionRow `json:"transactions"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.CompanyID == "" || payload.Transactions == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Company ID and transactions array required."})
		return
	}

	ruleSet, err := h.store.ActiveByCompany(payload.CompanyID)
	if err != nil {
		respondError(c, err)
		return
	}

	mapped, applied := rules.Apply(payload.Transactions, ruleSet)
	c.JSON(http.StatusOK, gin.H{"transactions": mapped, "applied": applied})
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func jsonOrEmptyArray(raw json.RawMessage) datatypes.JSON {
	if raw == nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func jsonOrEmptyObject(raw json.RawMessage) datatypes.JSON {
	if raw == nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
