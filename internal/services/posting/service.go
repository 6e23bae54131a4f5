package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"bank-classification-backend/internal/models"
	"bank-classification-backend/internal/services/ledger"
)

var (
	// ErrNoBankAccount means the company has no bank account to use as
	// the offset leg. Aborts the whole batch.
	ErrNoBankAccount = errors.New("no bank account found to use as offset")
	// ErrOffsetAccountNotFound means the explicitly selected offset
	// account does not exist remotely. Aborts the whole batch.
	ErrOffsetAccountNotFound = errors.New("selected bank account not found")
	// ErrMissingTargetAccount is a row-level validation failure.
	ErrMissingTargetAccount = errors.New("missing target ledger account")
)

// UnsupportedKindError marks a row whose transaction kind has no
// ledger-document mapping.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return "unsupported transaction type: " + e.Kind
}

// LedgerClient is the slice of the gateway the orchestrator needs.
type LedgerClient interface {
	BankAccounts(ctx context.Context, realmID string) ([]map[string]any, error)
	CreatePurchase(ctx context.Context, realmID string, doc *ledger.Purchase) (string, error)
	CreateDeposit(ctx context.Context, realmID string, doc *ledger.Deposit) (string, error)
	CreateTransfer(ctx context.Context, realmID string, doc *ledger.Transfer) (string, error)
}

// RowError is one failed row in a batch.
type RowError struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Error       string `json:"error"`
}

// PostedEntry is one successfully created remote document.
type PostedEntry struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// Result aggregates a batch. Partial failure is a normal terminal
// state, not an error.
type Result struct {
	SuccessCount int           `json:"successCount"`
	ErrorCount   int           `json:"errorCount"`
	Errors       []RowError    `json:"errors"`
	Results      []PostedEntry `json:"results"`
}

// Service turns classified transaction rows into remote ledger
// documents, one independent submission per row.
type Service struct {
	client LedgerClient
	logger *slog.Logger
	now    func() time.Time
}

func NewService(client LedgerClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger, now: time.Now}
}

// Post resolves the offset bank account and submits every row. A row
// failure is recorded and never aborts the batch; only an unresolvable
// offset account aborts the whole request. A cancelled context stops
// further submissions without touching what already went out.
func (s *Service) Post(ctx context.Context, realmID string, rows []models.TransactionRow, bankAccountID string) (*Result, error) {
	accounts, err := s.client.BankAccounts(ctx, realmID)
	if err != nil {
		return nil, err
	}

	offsetID := bankAccountID
	offsetName := ""
	if offsetID != "" {
		found := false
		for _, acc := range accounts {
			if id, _ := acc["Id"].(string); id == offsetID {
				offsetName, _ = acc["Name"].(string)
				found = true
				break
			}
		}
		if !found {
			return nil, ErrOffsetAccountNotFound
		}
	} else {
		if len(accounts) == 0 {
			return nil, ErrNoBankAccount
		}
		offsetID, _ = accounts[0]["Id"].(string)
		offsetName, _ = accounts[0]["Name"].(string)
	}

	result := &Result{Errors: []RowError{}, Results: []PostedEntry{}}
	for i := range rows {
		if ctx.Err() != nil {
			s.logger.Warn("batch aborted by caller", "posted", result.SuccessCount, "remaining", len(rows)-i)
			break
		}

		entry, err := s.postRow(ctx, realmID, &rows[i], offsetID, offsetName)
		if err != nil {
			s.logger.Error("row posting failed", "index", i, "description", rows[i].Description, "error", err)
			result.Errors = append(result.Errors, RowError{
				Index:       i,
				Description: rows[i].Description,
				Error:       err.Error(),
			})
			result.ErrorCount++
			continue
		}
		result.Results = append(result.Results, *entry)
		result.SuccessCount++
	}
	return result, nil
}

func (s *Service) postRow(ctx context.Context, realmID string, row *models.TransactionRow, offsetID, offsetName string) (*PostedEntry, error) {
	amount := math.Abs(row.Amount)
	description := row.Description
	if description == "" {
		description = "Bank Upload"
	}
	txnDate := s.parseDate(row.Date)

	kind := row.TransactionType
	if kind == "" {
		if row.Amount > 0 {
			kind = "Income"
		} else {
			kind = "Expense"
		}
	}

	targetID := row.LedgerAccountID
	if targetID == "" {
		return nil, fmt.Errorf("%w for transaction: %s", ErrMissingTargetAccount, description)
	}

	switch kind {
	case "Expense":
		doc := &ledger.Purchase{
			TxnDate:     txnDate,
			PaymentType: "Cash",
			AccountRef:  ledger.AccountRef{Value: offsetID, Name: offsetName},
			Line: []ledger.PurchaseLine{{
				DetailType:  "AccountBasedExpenseLineDetail",
				Amount:      amount,
				Description: description,
				AccountBasedExpenseLineDetail: ledger.PurchaseLineDetail{
					AccountRef: ledger.AccountRef{Value: targetID},
				},
			}},
		}
		if row.VendorID != "" {
			doc.EntityRef = &ledger.EntityRef{Value: row.VendorID, Type: "Vendor"}
		}
		id, err := s.client.CreatePurchase(ctx, realmID, doc)
		if err != nil {
			return nil, err
		}
		return &PostedEntry{ID: id, Status: "success", Type: "Purchase"}, nil

	case "Income":
		line := ledger.DepositLine{
			DetailType:  "DepositLineDetail",
			Amount:      amount,
			Description: description,
			DepositLineDetail: ledger.DepositLineDetail{
				AccountRef: ledger.AccountRef{Value: targetID},
			},
		}
		if row.CustomerID != "" {
			line.DepositLineDetail.Entity = &ledger.EntityRef{Value: row.CustomerID, Type: "Customer"}
		}
		doc := &ledger.Deposit{
			TxnDate:             txnDate,
			DepositToAccountRef: ledger.AccountRef{Value: offsetID, Name: offsetName},
			Line:                []ledger.DepositLine{line},
		}
		id, err := s.client.CreateDeposit(ctx, realmID, doc)
		if err != nil {
			return nil, err
		}
		return &PostedEntry{ID: id, Status: "success", Type: "Deposit"}, nil

	case "Transfer":
		doc := &ledger.Transfer{
			TxnDate:        txnDate,
			FromAccountRef: ledger.AccountRef{Value: offsetID, Name: offsetName},
			ToAccountRef:   ledger.AccountRef{Value: targetID},
			Amount:         amount,
			PrivateNote:    description,
		}
		// Money flowing in: the target account funds the offset account.
		if row.Amount > 0 {
			doc.FromAccountRef = ledger.AccountRef{Value: targetID}
			doc.ToAccountRef = ledger.AccountRef{Value: offsetID}
		}
		id, err := s.client.CreateTransfer(ctx, realmID, doc)
		if err != nil {
			return nil, err
		}
		return &PostedEntry{ID: id, Status: "success", Type: "Transfer"}, nil
	}

	return nil, &UnsupportedKindError{Kind: kind}
}

// parseDate accepts ISO-parseable dates as-is and D/M/Y slash dates;
// anything else falls back to today with a warning. Never fails.
func (s *Service) parseDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().Format("2006-01-02")
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}

	if parts := strings.Split(raw, "/"); len(parts) == 3 {
		day, errD := strconv.Atoi(parts[0])
		month, errM := strconv.Atoi(parts[1])
		year, errY := strconv.Atoi(parts[2])
		if errD == nil && errM == nil && errY == nil && year > 1000 && month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		}
	}

	s.logger.Warn("could not parse transaction date, defaulting to today", "value", raw)
	return s.now().Format("2006-01-02")
}
