package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"bank-classification-backend/internal/services/credentials"
)

const (
	minorVersion = "65"

	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond
)

// TokenSource supplies a valid bearer token for a realm, refreshing as
// needed. Satisfied by *credentials.Manager.
type TokenSource interface {
	AccessToken(ctx context.Context, realmID string) (string, error)
}

// Gateway issues authenticated calls against the external accounting
// API and normalizes responses into one JSON contract. Transport-level
// transient failures are retried with exponential backoff; business
// faults and auth failures propagate on first occurrence.
type Gateway struct {
	tokens      TokenSource
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	maxAttempts uint64
	baseDelay   time.Duration
}

func NewGateway(tokens TokenSource, environment string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := "https://quickbooks.api.intuit.com/"
	if environment == "sandbox" {
		baseURL = "https://sandbox-quickbooks.api.intuit.com/"
	}
	return &Gateway{
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		baseURL:     baseURL,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// Query runs an SQL-like read statement against the remote company.
func (g *Gateway) Query(ctx context.Context, realmID, stmt string) (map[string]any, error) {
	u := fmt.Sprintf("%sv3/company/%s/query?query=%s&minorversion=%s",
		g.baseURL, realmID, url.QueryEscape(stmt), minorVersion)
	return g.call(ctx, realmID, http.MethodGet, u, nil)
}

// queryList extracts QueryResponse.<resource> from a query result as a
// slice. No matching rows yields an empty slice, never nil.
func (g *Gateway) queryList(ctx context.Context, realmID, stmt, resource string) ([]map[string]any, error) {
	res, err := g.Query(ctx, realmID, stmt)
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	qr, _ := res["QueryResponse"].(map[string]any)
	items, _ := qr[resource].([]any)
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// BankAccounts lists the company's bank accounts.
func (g *Gateway) BankAccounts(ctx context.Context, realmID string) ([]map[string]any, error) {
	return g.queryList(ctx, realmID,
		"SELECT * FROM Account WHERE AccountType='Bank' MAXRESULTS 1000", "Account")
}

// ChartOfAccounts lists every ledger account.
func (g *Gateway) ChartOfAccounts(ctx context.Context, realmID string) ([]map[string]any, error) {
	return g.queryList(ctx, realmID, "SELECT * FROM Account", "Account")
}

func (g *Gateway) Vendors(ctx context.Context, realmID string) ([]map[string]any, error) {
	return g.queryList(ctx, realmID, "SELECT * FROM Vendor", "Vendor")
}

func (g *Gateway) Customers(ctx context.Context, realmID string) ([]map[string]any, error) {
	return g.queryList(ctx, realmID, "SELECT * FROM Customer", "Customer")
}

// CompanyName looks up the company display name. Best effort: callers
// treat a failure here as non-fatal.
func (g *Gateway) CompanyName(ctx context.Context, realmID string) (string, error) {
	infos, err := g.queryList(ctx, realmID, "SELECT * FROM CompanyInfo", "CompanyInfo")
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", fmt.Errorf("no company info returned for realm %s", realmID)
	}
	name, _ := infos[0]["CompanyName"].(string)
	if name == "" {
		return "", fmt.Errorf("company info for realm %s has no name", realmID)
	}
	return name, nil
}

// CreateEntity POSTs a document to a resource-type endpoint and
// returns the created entity.
func (g *Gateway) CreateEntity(ctx context.Context, realmID, entity string, payload any) (map[string]any, error) {
	u := fmt.Sprintf("%sv3/company/%s/%s?minorversion=%s",
		g.baseURL, realmID, urlEntity(entity), minorVersion)
	return g.call(ctx, realmID, http.MethodPost, u, payload)
}

// CreatePurchase posts a purchase and returns the remote id.
func (g *Gateway) CreatePurchase(ctx context.Context, realmID string, doc *Purchase) (string, error) {
	res, err := g.CreateEntity(ctx, realmID, "Purchase", doc)
	if err != nil {
		return "", err
	}
	return createdID(res, "Purchase"), nil
}

// CreateDeposit posts a deposit and returns the remote id.
func (g *Gateway) CreateDeposit(ctx context.Context, realmID string, doc *Deposit) (string, error) {
	res, err := g.CreateEntity(ctx, realmID, "Deposit", doc)
	if err != nil {
		return "", err
	}
	return createdID(res, "Deposit"), nil
}

// CreateTransfer posts a transfer and returns the remote id.
func (g *Gateway) CreateTransfer(ctx context.Context, realmID string, doc *Transfer) (string, error) {
	res, err := g.CreateEntity(ctx, realmID, "Transfer", doc)
	if err != nil {
		return "", err
	}
	return createdID(res, "Transfer"), nil
}

// Report fetches a named report. Parameters are appended only when
// non-empty; empty values are omitted rather than sent as blanks.
func (g *Gateway) Report(ctx context.Context, realmID, name string, params map[string]string) (map[string]any, error) {
	u := fmt.Sprintf("%sv3/company/%s/reports/%s?minorversion=%s",
		g.baseURL, realmID, name, minorVersion)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		u += "&" + k + "=" + url.QueryEscape(params[k])
	}
	return g.call(ctx, realmID, http.MethodGet, u, nil)
}

func (g *Gateway) call(ctx context.Context, realmID, method, callURL string, body any) (map[string]any, error) {
	token, err := g.tokens.AccessToken(ctx, realmID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	var result map[string]any
	backoff := retry.WithMaxRetries(g.maxAttempts-1, retry.NewExponential(g.baseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := g.doOnce(ctx, method, callURL, token, payload)
		if err != nil {
			if isTransient(err) {
				g.logger.Warn("transient ledger failure, will retry", "url", callURL, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if isTransient(err) {
			return nil, &TransientError{Err: err}
		}
		return nil, err
	}
	return result, nil
}

func (g *Gateway) doOnce(ctx context.Context, method, callURL, token string, payload []byte) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, callURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: remote returned %s", credentials.ErrReauthRequired, resp.Status)
	case resp.StatusCode >= 400:
		return nil, &RemoteFault{StatusCode: resp.StatusCode, Message: faultMessage(data, resp.Status)}
	}
	return normalizeBody(data)
}

// faultMessage digs the human-readable message out of a remote fault
// body, falling back to the HTTP status line.
func faultMessage(data []byte, status string) string {
	var fault struct {
		Fault struct {
			Error []struct {
				Message string `json:"Message"`
				Detail  string `json:"Detail"`
			} `json:"Error"`
		} `json:"Fault"`
	}
	if err := json.Unmarshal(data, &fault); err == nil && len(fault.Fault.Error) > 0 {
		if m := fault.Fault.Error[0].Message; m != "" {
			return m
		}
		if d := fault.Fault.Error[0].Detail; d != "" {
			return d
		}
	}
	return status
}

// createdID pulls the new entity id from a create response, tolerating
// both the enveloped and the bare shapes.
func createdID(res map[string]any, entity string) string {
	if wrapped, ok := res[entity].(map[string]any); ok {
		if id, ok := wrapped["Id"].(string); ok {
			return id
		}
	}
	id, _ := res["Id"].(string)
	return id
}

func urlEntity(entity string) string {
	return url.PathEscape(strings.ToLower(entity))
}
