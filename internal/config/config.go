package config

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the postgres connection from DATABASE_URL.
func InitDB() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=bank_classification port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	return db
}

// Ledger holds the external accounting provider settings.
type Ledger struct {
	ClientID     string
	ClientSecret string
	Environment  string // "sandbox" or "production"
	RedirectURI  string
}

func LoadLedger() Ledger {
	return Ledger{
		ClientID:     getenv("LEDGER_CLIENT_ID", "PLACEHOLDER"),
		ClientSecret: getenv("LEDGER_CLIENT_SECRET", "PLACEHOLDER"),
		Environment:  getenv("LEDGER_ENVIRONMENT", "sandbox"),
		RedirectURI:  getenv("LEDGER_REDIRECT_URI", "http://localhost:8080/auth/callback"),
	}
}

// ListenAddr returns the HTTP listen address, defaulting to :8080.
func ListenAddr() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
