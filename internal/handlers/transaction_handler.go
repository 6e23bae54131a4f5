package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bank-classification-backend/internal/models"
	"bank-classification-backend/internal/services/posting"
)

// Poster is the posting orchestrator surface.
type Poster interface {
	Post(ctx context.Context, realmID string, rows []models.TransactionRow, bankAccountID string) (*posting.Result, error)
}

// RealmResolver maps an optional company id to a concrete realm.
// Satisfied by *credentials.Manager.
type RealmResolver interface {
	Resolve(realmID string) (string, error)
}

type TransactionHandler struct {
	poster   Poster
	resolver RealmResolver
}

func NewTransactionHandler(poster Poster, resolver RealmResolver) *TransactionHandler {
	return &TransactionHandler{poster: poster, resolver: resolver}
}

// Post submits a classified batch to the remote ledger. Partial
// failure is a 200 with an embedded tally; only whole-request problems
// (bad input, no credential, unresolvable offset account) are non-200.
func (h *TransactionHandler) Post(c *gin.Context) {
	var payload struct {
		Transactions  []models.TransactionRow `json:"transactions"`
		BankAccountID string                  `json:"bankAccountId"`
		CompanyID     string                  `json:"companyId"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload.Transactions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No transactions provided"})
		return
	}

	realmID, err := h.resolver.Resolve(payload.CompanyID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.poster.Post(c.Request.Context(), realmID, payload.Transactions, payload.BankAccountID)
	if err != nil {
		switch {
		case errors.Is(err, posting.ErrOffsetAccountNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Selected Bank Account not found."})
		case errors.Is(err, posting.ErrNoBankAccount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No Bank Account found to use as default offset."})
		default:
			respondError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Processing complete",
		"successCount": result.SuccessCount,
		"errorCount":   result.ErrorCount,
		"errors":       result.Errors,
		"results":      result.Results,
	})
}
