package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bank-classification-backend/internal/services/credentials"
	"bank-classification-backend/internal/services/ledger"
)

// respondError maps service errors to HTTP statuses: authentication
// problems to 401, exhausted transient retries to 503, everything else
// to 500.
func respondError(c *gin.Context, err error) {
	var transient *ledger.TransientError
	switch {
	case errors.Is(err, credentials.ErrNotConnected), errors.Is(err, credentials.ErrReauthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	case errors.As(err, &transient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ledger service unreachable", "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
