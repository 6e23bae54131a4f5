package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bank-classification-backend/internal/models"
)

// CredentialRepository persists ledger credentials. It implements
// credentials.CredentialStore.
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the credential for the realm, or nil when none exists.
func (r *CredentialRepository) Get(realmID string) (*models.LedgerCredential, error) {
	var cred models.LedgerCredential
	err := r.db.First(&cred, "realm_id = ?", realmID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// FirstActive returns the default connection, or nil when nothing is
// connected.
func (r *CredentialRepository) FirstActive() (*models.LedgerCredential, error) {
	var cred models.LedgerCredential
	err := r.db.Where("is_active = ?", true).Order("created_at DESC").First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Upsert writes the credential keyed by realm id.
func (r *CredentialRepository) Upsert(cred *models.LedgerCredential) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "realm_id"}},
		UpdateAll: true,
	}).Create(cred).Error
}

// Deactivate soft-revokes one credential.
func (r *CredentialRepository) Deactivate(realmID string) error {
	return r.db.Model(&models.LedgerCredential{}).
		Where("realm_id = ?", realmID).
		Update("is_active", false).Error
}

// DeactivateAll soft-revokes every active credential.
func (r *CredentialRepository) DeactivateAll() error {
	return r.db.Model(&models.LedgerCredential{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

// List returns connected companies for presentation.
func (r *CredentialRepository) List(includeInactive bool) ([]models.LedgerCredential, error) {
	var creds []models.LedgerCredential
	q := r.db.Order("created_at DESC")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&creds).Error
	return creds, err
}
