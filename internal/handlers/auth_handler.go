package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bank-classification-backend/internal/services/credentials"
)

// CompanyNameLookup resolves a connected company's display name from
// the remote ledger. Satisfied by *ledger.Gateway.
type CompanyNameLookup interface {
	CompanyName(ctx context.Context, realmID string) (string, error)
}

type AuthHandler struct {
	manager *credentials.Manager
	lookup  CompanyNameLookup
}

func NewAuthHandler(manager *credentials.Manager, lookup CompanyNameLookup) *AuthHandler {
	return &AuthHandler{manager: manager, lookup: lookup}
}

// Start redirects the browser to the provider's authorization page.
func (h *AuthHandler) Start(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, h.manager.AuthURL("security_token"))
}

// Callback completes the authorization-code exchange and persists the
// credential. The display-name lookup afterwards is best effort: if it
// fails, the stored placeholder name stands and the flow still
// succeeds.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	realmID := c.Query("realmId")
	if code == "" || realmID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code or realmId"})
		return
	}

	if err := h.manager.Exchange(c.Request.Context(), code, realmID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Authentication failed",
			"details": err.Error(),
		})
		return
	}

	if name, err := h.lookup.CompanyName(c.Request.Context(), realmID); err == nil && name != "" {
		if err := h.manager.SetAccountName(realmID, name); err != nil {
			log.Println("could not store company name:", err)
		}
	} else if err != nil {
		log.Println("company name lookup failed:", err)
	}

	c.Redirect(http.StatusFound, "/")
}

// Status reports credential validity for a company.
func (h *AuthHandler) Status(c *gin.Context) {
	connected, lastSync, err := h.manager.Status(c.Query("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}

	var lastSyncValue any
	if connected {
		lastSyncValue = lastSync.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{"isConnected": connected, "lastSync": lastSyncValue})
}

// Disconnect soft-revokes the credential. With no company id, every
// active credential is revoked.
func (h *AuthHandler) Disconnect(c *gin.Context) {
	var payload struct {
		CompanyID string `json:"companyId"`
	}
	_ = c.ShouldBindJSON(&payload)

	if err := h.manager.Revoke(payload.CompanyID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disconnect"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
