package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bank-classification-backend/internal/config"
	handler "bank-classification-backend/internal/handlers"
	"bank-classification-backend/internal/repository"
	"bank-classification-backend/internal/services/credentials"
	"bank-classification-backend/internal/services/ledger"
	"bank-classification-backend/internal/services/posting"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, ledgerCfg config.Ledger, logger *slog.Logger) {
	ruleRepo := repository.NewRuleRepository(db)
	credRepo := repository.NewCredentialRepository(db)

	credManager := credentials.NewManager(credRepo, credentials.OAuthConfig(ledgerCfg), logger)
	gateway := ledger.NewGateway(credManager, ledgerCfg.Environment, logger)
	postingService := posting.NewService(gateway, logger)

	ruleHandler := handler.NewRuleHandler(ruleRepo)
	authHandler := handler.NewAuthHandler(credManager, gateway)
	txHandler := handler.NewTransactionHandler(postingService, credManager)
	ledgerHandler := handler.NewLedgerHandler(gateway, credManager)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Rule repository and classification
	ruleRoutes := r.Group("/rules")
	{
		ruleRoutes.GET("", ruleHandler.List)
		ruleRoutes.POST("", ruleHandler.Create)
		ruleRoutes.PUT("/:id", ruleHandler.Update)
		ruleRoutes.DELETE("/:id", ruleHandler.Delete)
		ruleRoutes.POST("/apply", ruleHandler.Apply)
	}

	// Posting
	r.POST("/transactions", txHandler.Post)

	// OAuth lifecycle
	auth := r.Group("/auth")
	{
		auth.GET("/start", authHandler.Start)
		auth.GET("/callback", authHandler.Callback)
	}
	r.GET("/status", authHandler.Status)
	r.POST("/disconnect", authHandler.Disconnect)

	// Remote ledger read-throughs
	r.GET("/accounts", ledgerHandler.Accounts)
	r.GET("/vendors", ledgerHandler.Vendors)
	r.GET("/customers", ledgerHandler.Customers)
	r.GET("/companies", ledgerHandler.Companies)

	reports := r.Group("/reports")
	{
		reports.GET("/profit-and-loss", ledgerHandler.ProfitAndLoss)
		reports.GET("/balance-sheet", ledgerHandler.BalanceSheet)
		reports.GET("/cash-flow", ledgerHandler.CashFlow)
		reports.GET("/aged-payables", ledgerHandler.AgedPayables)
		reports.GET("/aged-receivables", ledgerHandler.AgedReceivables)
	}
}
