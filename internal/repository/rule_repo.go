package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-classification-backend/internal/models"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListByCompany returns every rule for the company, active and
// soft-deleted alike.
func (r *RuleRepository) ListByCompany(clientID string) ([]models.Rule, error) {
	var rules []models.Rule
	err := r.db.Where("client_id = ?", clientID).Order("created_at DESC").Find(&rules).Error
	return rules, err
}

// ActiveByCompany returns the active rules ordered most recently
// created first. That ordering is the classification tie-break: the
// engine takes the first match.
func (r *RuleRepository) ActiveByCompany(clientID string) ([]models.Rule, error) {
	var rules []models.Rule
	err := r.db.
		Where("client_id = ? AND is_active = ?", clientID, true).
		Order("created_at DESC").
		Find(&rules).Error
	return rules, err
}

func (r *RuleRepository) GetByID(id uuid.UUID) (*models.Rule, error) {
	var rule models.Rule
	if err := r.db.First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepository) Create(rule *models.Rule) error {
	return r.db.Create(rule).Error
}

func (r *RuleRepository) Update(rule *models.Rule) error {
	return r.db.Save(rule).Error
}

// SoftDelete clears the active flag. Rules are never hard-deleted so
// provenance labels on previously classified rows stay resolvable.
func (r *RuleRepository) SoftDelete(id uuid.UUID) error {
	return r.db.Model(&models.Rule{}).Where("id = ?", id).Update("is_active", false).Error
}
