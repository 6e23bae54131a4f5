package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-classification-backend/internal/services/credentials"
)

type staticTokens string

func (s staticTokens) AccessToken(ctx context.Context, realmID string) (string, error) {
	return string(s), nil
}

type failingTokens struct{}

func (failingTokens) AccessToken(ctx context.Context, realmID string) (string, error) {
	return "", credentials.ErrReauthRequired
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func testGateway(tokens TokenSource, baseURL string) *Gateway {
	g := NewGateway(tokens, "sandbox", nil)
	g.baseURL = baseURL
	g.baseDelay = time.Millisecond
	return g
}

func TestGatewayDefaultBaseURLs(t *testing.T) {
	g := NewGateway(staticTokens("t"), "sandbox", nil)
	assert.Equal(t, "https://sandbox-quickbooks.api.intuit.com/", g.baseURL)

	g = NewGateway(staticTokens("t"), "production", nil)
	assert.Equal(t, "https://quickbooks.api.intuit.com/", g.baseURL)
}

func TestQueryBuildsURLAndAuthHeader(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"QueryResponse":{}}`))
	}))
	defer srv.Close()

	g := testGateway(staticTokens("tok-1"), srv.URL+"/")
	_, err := g.Query(context.Background(), "123", "SELECT * FROM Account")

	require.NoError(t, err)
	assert.Equal(t, "/v3/company/123/query", gotPath)
	assert.Contains(t, gotQuery, "query=SELECT")
	assert.Contains(t, gotQuery, "minorversion=65")
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestQueryListEmptyResultIsEmptyNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"QueryResponse":{}}`))
	}))
	defer srv.Close()

	g := testGateway(staticTokens("t"), srv.URL+"/")
	accounts, err := g.BankAccounts(context.Background(), "123")

	require.NoError(t, err)
	require.NotNil(t, accounts)
	assert.Len(t, accounts, 0)
}

func TestTransientFailuresRetryUpToThreeAttempts(t *testing.T) {
	var attempts atomic.Int64
	g := testGateway(staticTokens("t"), "http://ledger.local/")
	g.httpClient = &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		attempts.Add(1)
		return nil, errors.New("read tcp: connection reset by peer")
	})}

	_, err := g.Query(context.Background(), "123", "SELECT * FROM Account")

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, int64(3), attempts.Load(), "max 3 attempts, never a 4th")
}

func TestTransientFailureThenSuccessWithinBudget(t *testing.T) {
	var attempts atomic.Int64
	g := testGateway(staticTokens("t"), "http://ledger.local/")
	g.httpClient = &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("socket hang up")
		}
		rec := httptest.NewRecorder()
		rec.WriteString(`{"QueryResponse":{"Account":[{"Id":"1","Name":"Checking"}]}}`)
		return rec.Result(), nil
	})}

	accounts, err := g.BankAccounts(context.Background(), "123")

	require.NoError(t, err)
	assert.Equal(t, int64(3), attempts.Load())
	require.Len(t, accounts, 1)
	assert.Equal(t, "Checking", accounts[0]["Name"])
}

func TestRemoteFaultIsNotRetried(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"Fault":{"Error":[{"Message":"Duplicate Document Number"}]}}`))
	}))
	defer srv.Close()

	g := testGateway(staticTokens("t"), srv.URL+"/")
	_, err := g.CreatePurchase(context.Background(), "123", &Purchase{})

	var fault *RemoteFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, http.StatusBadRequest, fault.StatusCode)
	assert.Equal(t, "Duplicate Document Number", fault.Message)
	assert.Equal(t, int64(1), attempts.Load())
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := testGateway(staticTokens("t"), srv.URL+"/")
	_, err := g.Query(context.Background(), "123", "SELECT * FROM Account")

	assert.ErrorIs(t, err, credentials.ErrReauthRequired)
	assert.Equal(t, int64(1), attempts.Load(), "auth failures are never retried")
}

func TestTokenFailureShortCircuits(t *testing.T) {
	g := testGateway(failingTokens{}, "http://ledger.local/")
	_, err := g.Query(context.Background(), "123", "SELECT * FROM Account")
	assert.ErrorIs(t, err, credentials.ErrReauthRequired)
}

func TestCreatePurchaseReturnsRemoteID(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"Purchase":{"Id":"205"}}`))
	}))
	defer srv.Close()

	g := testGateway(staticTokens("t"), srv.URL+"/")
	id, err := g.CreatePurchase(context.Background(), "123", &Purchase{TxnDate: "2024-03-15"})

	require.NoError(t, err)
	assert.Equal(t, "205", id)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v3/company/123/purchase", gotPath)
	assert.Equal(t, "application/json", gotContentType)
}

func TestCreatedIDBareShape(t *testing.T) {
	assert.Equal(t, "7", createdID(map[string]any{"Id": "7"}, "Transfer"))
	assert.Equal(t, "9", createdID(map[string]any{"Transfer": map[string]any{"Id": "9"}}, "Transfer"))
	assert.Equal(t, "", createdID(map[string]any{}, "Transfer"))
}

func TestReportOmitsEmptyParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"Header":{"ReportName":"ProfitAndLoss"}}`))
	}))
	defer srv.Close()

	g := testGateway(staticTokens("t"), srv.URL+"/")
	_, err := g.Report(context.Background(), "123", "ProfitAndLoss", map[string]string{
		"start_date": "2024-01-01",
		"end_date":   "",
	})

	require.NoError(t, err)
	assert.Contains(t, gotQuery, "start_date=2024-01-01")
	assert.NotContains(t, gotQuery, "end_date")
	assert.Contains(t, gotQuery, "minorversion=65")
}

func TestCompanyName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"QueryResponse":{"CompanyInfo":[{"CompanyName":"Acme Ltd"}]}}`))
	}))
	defer srv.Close()

	g := testGateway(staticTokens("t"), srv.URL+"/")
	name, err := g.CompanyName(context.Background(), "123")

	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", name)
}
