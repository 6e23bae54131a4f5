package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"bank-classification-backend/internal/services/credentials"
)

// GatewayClient is the read-through surface of the ledger gateway used
// by the listing and report endpoints.
type GatewayClient interface {
	BankAccounts(ctx context.Context, realmID string) ([]map[string]any, error)
	ChartOfAccounts(ctx context.Context, realmID string) ([]map[string]any, error)
	Vendors(ctx context.Context, realmID string) ([]map[string]any, error)
	Customers(ctx context.Context, realmID string) ([]map[string]any, error)
	Report(ctx context.Context, realmID, name string, params map[string]string) (map[string]any, error)
}

type LedgerHandler struct {
	gateway GatewayClient
	manager *credentials.Manager
}

func NewLedgerHandler(gateway GatewayClient, manager *credentials.Manager) *LedgerHandler {
	return &LedgerHandler{gateway: gateway, manager: manager}
}

// Accounts lists the chart of accounts; type=Bank narrows to bank
// accounts.
func (h *LedgerHandler) Accounts(c *gin.Context) {
	realmID, err := h.manager.Resolve(c.Query("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}

	var accounts []map[string]any
	if c.Query("type") == "Bank" {
		accounts, err = h.gateway.BankAccounts(c.Request.Context(), realmID)
	} else {
		accounts, err = h.gateway.ChartOfAccounts(c.Request.Context(), realmID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *LedgerHandler) Vendors(c *gin.Context) {
	h.list(c, h.gateway.Vendors)
}

func (h *LedgerHandler) Customers(c *gin.Context) {
	h.list(c, h.gateway.Customers)
}

func (h *LedgerHandler) list(c *gin.Context, fetch func(context.Context, string) ([]map[string]any, error)) {
	realmID, err := h.manager.Resolve(c.Query("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := fetch(c.Request.Context(), realmID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Companies lists connected companies from the credential store.
func (h *LedgerHandler) Companies(c *gin.Context) {
	creds, err := h.manager.Companies(c.Query("includeInactive") == "true")
	if err != nil {
		respondError(c, err)
		return
	}

	companies := make([]gin.H, 0, len(creds))
	for _, cred := range creds {
		companies = append(companies, gin.H{"id": cred.RealmID, "name": cred.Name})
	}
	c.JSON(http.StatusOK, companies)
}

func (h *LedgerHandler) ProfitAndLoss(c *gin.Context) {
	h.report(c, "ProfitAndLoss", "start_date", "end_date", "summarize_column_by")
}

func (h *LedgerHandler) BalanceSheet(c *gin.Context) {
	h.report(c, "BalanceSheet", "date")
}

func (h *LedgerHandler) CashFlow(c *gin.Context) {
	h.report(c, "CashFlow", "start_date", "end_date")
}

func (h *LedgerHandler) AgedPayables(c *gin.Context) {
	h.report(c, "AgedPayables", "date")
}

func (h *LedgerHandler) AgedReceivables(c *gin.Context) {
	h.report(c, "AgedReceivables", "date")
}

// report forwards the named report with only the query parameters that
// were actually supplied.
func (h *LedgerHandler) report(c *gin.Context, name string, keys ...string) {
	realmID, err := h.manager.Resolve(c.Query("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}

	params := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			params[k] = v
		}
	}

	res, err := h.gateway.Report(c.Request.Context(), realmID, name, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
