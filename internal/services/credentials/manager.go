package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"bank-classification-backend/internal/config"
	"bank-classification-backend/internal/models"
)

var (
	// ErrNotConnected means no credential is stored for the company.
	ErrNotConnected = errors.New("company is not connected")
	// ErrReauthRequired means the refresh token is spent or elapsed and
	// the user must go through authorization again.
	ErrReauthRequired = errors.New("authorization expired, reconnect required")
)

// State of a stored credential at a point in time.
type State int

const (
	StateUnauthenticated State = iota
	StateValid
	StateExpired
	StateUnrecoverable
)

// CredentialStore persists LedgerCredential rows keyed by realm id.
// A nil credential with a nil error means no row exists.
type CredentialStore interface {
	Get(realmID string) (*models.LedgerCredential, error)
	FirstActive() (*models.LedgerCredential, error)
	Upsert(cred *models.LedgerCredential) error
	Deactivate(realmID string) error
	DeactivateAll() error
	List(includeInactive bool) ([]models.LedgerCredential, error)
}

// Manager owns the OAuth credential lifecycle for every connected
// company. The persisted row is the single source of truth; the
// manager holds no token state in memory between calls. Refreshes are
// serialized per realm so concurrent callers share one refresh instead
// of racing the single-use refresh token.
type Manager struct {
	store  CredentialStore
	oauth  *oauth2.Config
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OAuthConfig builds the provider oauth2 configuration from the ledger
// settings.
func OAuthConfig(cfg config.Ledger) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{"com.intuit.quickbooks.accounting", "openid"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://appcenter.intuit.com/connect/oauth2",
			TokenURL: "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
		},
	}
}

func NewManager(store CredentialStore, oauth *oauth2.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		oauth:  oauth,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// AuthURL returns the provider authorization URL for a fresh connect.
func (m *Manager) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state)
}

// Exchange completes the authorization-code flow and persists the
// resulting credential under the realm id with a placeholder display
// name. Callers may follow up with SetAccountName once an identity
// lookup succeeds; that lookup failing is not this flow's problem.
func (m *Manager) Exchange(ctx context.Context, code, realmID string) error {
	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	cred := m.credentialFromToken(realmID, tok)
	cred.Name = "Company " + realmID
	if existing, err := m.store.Get(realmID); err == nil && existing != nil && existing.Name != "" {
		cred.Name = existing.Name
	}

	if err := m.store.Upsert(cred); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	m.logger.Info("credential stored", "realm_id", realmID)
	return nil
}

// AccessToken returns a currently valid access token for the realm,
// refreshing first when the access token has expired. A spent or
// elapsed refresh token surfaces ErrReauthRequired and is never
// silently retried.
func (m *Manager) AccessToken(ctx context.Context, realmID string) (string, error) {
	cred, err := m.store.Get(realmID)
	if err != nil {
		return "", err
	}

	switch m.stateOf(cred) {
	case StateValid:
		return cred.AccessToken, nil
	case StateUnauthenticated:
		return "", ErrNotConnected
	case StateUnrecoverable:
		return "", ErrReauthRequired
	}

	lock := m.realmLock(realmID)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have refreshed while we waited on the lock.
	cred, err = m.store.Get(realmID)
	if err != nil {
		return "", err
	}
	switch m.stateOf(cred) {
	case StateValid:
		return cred.AccessToken, nil
	case StateUnauthenticated:
		return "", ErrNotConnected
	case StateUnrecoverable:
		return "", ErrReauthRequired
	}

	return m.refresh(ctx, cred)
}

func (m *Manager) refresh(ctx context.Context, cred *models.LedgerCredential) (string, error) {
	src := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		m.logger.Error("token refresh failed", "realm_id", cred.RealmID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}

	fresh := m.credentialFromToken(cred.RealmID, tok)
	fresh.Name = cred.Name
	if err := m.store.Upsert(fresh); err != nil {
		return "", fmt.Errorf("saving refreshed credential: %w", err)
	}
	m.logger.Info("access token refreshed", "realm_id", cred.RealmID)
	return fresh.AccessToken, nil
}

// Resolve maps an optional company id to a concrete realm id, falling
// back to the first active connection when none is given.
func (m *Manager) Resolve(realmID string) (string, error) {
	if realmID != "" {
		return realmID, nil
	}
	cred, err := m.store.FirstActive()
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", ErrNotConnected
	}
	return cred.RealmID, nil
}

// Status reports whether the realm is connected and when its credential
// was last written.
func (m *Manager) Status(realmID string) (bool, time.Time, error) {
	if realmID == "" {
		cred, err := m.store.FirstActive()
		if err != nil || cred == nil {
			return false, time.Time{}, err
		}
		return true, cred.CreatedAt, nil
	}
	cred, err := m.store.Get(realmID)
	if err != nil {
		return false, time.Time{}, err
	}
	if cred == nil || !cred.IsActive || cred.AccessToken == "" {
		return false, time.Time{}, nil
	}
	return true, cred.CreatedAt, nil
}

// Revoke soft-deletes the credential (all credentials when no realm is
// given). History is retained.
func (m *Manager) Revoke(realmID string) error {
	if realmID == "" {
		return m.store.DeactivateAll()
	}
	return m.store.Deactivate(realmID)
}

// SetAccountName stores a display name once an identity lookup has
// produced one.
func (m *Manager) SetAccountName(realmID, name string) error {
	cred, err := m.store.Get(realmID)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrNotConnected
	}
	cred.Name = name
	return m.store.Upsert(cred)
}

// AccountName returns the stored display name for the realm, if any.
func (m *Manager) AccountName(realmID string) string {
	cred, err := m.store.Get(realmID)
	if err != nil || cred == nil {
		return ""
	}
	return cred.Name
}

// Companies lists connected companies for presentation.
func (m *Manager) Companies(includeInactive bool) ([]models.LedgerCredential, error) {
	return m.store.List(includeInactive)
}

func (m *Manager) stateOf(cred *models.LedgerCredential) State {
	if cred == nil || !cred.IsActive || cred.AccessToken == "" {
		return StateUnauthenticated
	}
	now := m.now()
	if cred.AccessTokenValid(now) {
		return StateValid
	}
	if cred.RefreshTokenValid(now) {
		return StateExpired
	}
	return StateUnrecoverable
}

func (m *Manager) realmLock(realmID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[realmID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[realmID] = lock
	}
	return lock
}

// credentialFromToken converts an oauth2 token into our persisted
// shape. The provider reports both lifetimes in seconds; the refresh
// lifetime rides in a token extra.
func (m *Manager) credentialFromToken(realmID string, tok *oauth2.Token) *models.LedgerCredential {
	now := m.now()

	expiresIn := int64(tok.Expiry.Sub(now) / time.Second)
	if v, ok := extraInt64(tok, "expires_in"); ok {
		expiresIn = v
	}
	refreshExpiresIn := int64(0)
	if v, ok := extraInt64(tok, "x_refresh_token_expires_in"); ok {
		refreshExpiresIn = v
	}

	return &models.LedgerCredential{
		RealmID:          realmID,
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		ExpiresIn:        expiresIn,
		RefreshExpiresIn: refreshExpiresIn,
		IsActive:         true,
		CreatedAt:        now,
	}
}

func extraInt64(tok *oauth2.Token, key string) (int64, bool) {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
