package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-classification-backend/internal/config"
	"bank-classification-backend/internal/models"
	"bank-classification-backend/internal/services/credentials"
)

type fakeCredStore struct {
	creds map[string]models.LedgerCredential
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{creds: make(map[string]models.LedgerCredential)}
}

func (s *fakeCredStore) Get(realmID string) (*models.LedgerCredential, error) {
	cred, ok := s.creds[realmID]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (s *fakeCredStore) FirstActive() (*models.LedgerCredential, error) {
	for _, cred := range s.creds {
		if cred.IsActive {
			c := cred
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeCredStore) Upsert(cred *models.LedgerCredential) error {
	s.creds[cred.RealmID] = *cred
	return nil
}

func (s *fakeCredStore) Deactivate(realmID string) error {
	if cred, ok := s.creds[realmID]; ok {
		cred.IsActive = false
		s.creds[realmID] = cred
	}
	return nil
}

func (s *fakeCredStore) DeactivateAll() error {
	for id, cred := range s.creds {
		cred.IsActive = false
		s.creds[id] = cred
	}
	return nil
}

func (s *fakeCredStore) List(includeInactive bool) ([]models.LedgerCredential, error) {
	out := []models.LedgerCredential{}
	for _, cred := range s.creds {
		if cred.IsActive || includeInactive {
			out = append(out, cred)
		}
	}
	return out, nil
}

type fakeNameLookup struct{ name string }

func (l *fakeNameLookup) CompanyName(ctx context.Context, realmID string) (string, error) {
	return l.name, nil
}

func authRouter(store credentials.CredentialStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	oauth := credentials.OAuthConfig(config.Ledger{
		ClientID:    "client-id",
		RedirectURI: "http://localhost:8080/auth/callback",
	})
	manager := credentials.NewManager(store, oauth, nil)
	h := NewAuthHandler(manager, &fakeNameLookup{name: "Acme Inc"})

	r := gin.New()
	r.GET("/auth/start", h.Start)
	r.GET("/status", h.Status)
	r.POST("/disconnect", h.Disconnect)
	return r
}

func TestAuthStartRedirectsToProvider(t *testing.T) {
	r := authRouter(newFakeCredStore())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/start", nil))

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	loc := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://appcenter.intuit.com/connect/oauth2"))
	assert.Contains(t, loc, "client_id=client-id")
	assert.Contains(t, loc, "state=security_token")
}

func TestStatusReportsConnection(t *testing.T) {
	store := newFakeCredStore()
	r := authRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status?companyId=r1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isConnected":false,"lastSync":null}`, w.Body.String())

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Upsert(&models.LedgerCredential{
		RealmID:     "r1",
		AccessToken: "tok",
		IsActive:    true,
		CreatedAt:   created,
	}))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status?companyId=r1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isConnected":true`)
	assert.Contains(t, w.Body.String(), created.Format(time.RFC3339))
}

func TestDisconnectRevokesCredential(t *testing.T) {
	store := newFakeCredStore()
	require.NoError(t, store.Upsert(&models.LedgerCredential{
		RealmID: "r1", AccessToken: "tok", IsActive: true, CreatedAt: time.Now(),
	}))
	r := authRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/disconnect", strings.NewReader(`{"companyId":"r1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	cred, err := store.Get("r1")
	require.NoError(t, err)
	assert.False(t, cred.IsActive)
}
