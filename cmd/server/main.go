package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"bank-classification-backend/internal/config"
	"bank-classification-backend/internal/models"
	"bank-classification-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db := config.InitDB()

	db.AutoMigrate(
		&models.Rule{},
		&models.LedgerCredential{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, config.LoadLedger(), logger)

	r.Run(config.ListenAddr())
}
