package models

import "time"

// LedgerCredential is the persisted OAuth token set for one external
// accounting company (realm). The row is the single source of truth:
// nothing in memory outlives a request.
type LedgerCredential struct {
	RealmID          string    `gorm:"primaryKey" json:"realmId"`
	Name             string    `json:"name"`
	AccessToken      string    `json:"-"`
	RefreshToken     string    `json:"-"`
	ExpiresIn        int64     `json:"-"`
	RefreshExpiresIn int64     `gorm:"column:x_refresh_token_expires_in" json:"-"`
	IsActive         bool      `gorm:"index" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// AccessTokenValid reports whether the access token lifetime has not
// elapsed at the given instant.
func (c *LedgerCredential) AccessTokenValid(now time.Time) bool {
	return now.Sub(c.CreatedAt) < time.Duration(c.ExpiresIn)*time.Second
}

// RefreshTokenValid reports whether the refresh token lifetime has not
// elapsed at the given instant.
func (c *LedgerCredential) RefreshTokenValid(now time.Time) bool {
	return now.Sub(c.CreatedAt) < time.Duration(c.RefreshExpiresIn)*time.Second
}
