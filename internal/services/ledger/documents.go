package ledger

// Wire shapes for the ledger documents this system creates. Field
// names follow the remote API contract.

type AccountRef struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

type EntityRef struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Purchase is a cash expense drawn from a bank account.
type Purchase struct {
	TxnDate     string         `json:"TxnDate"`
	PaymentType string         `json:"PaymentType"`
	AccountRef  AccountRef     `json:"AccountRef"`
	Line        []PurchaseLine `json:"Line"`
	EntityRef   *EntityRef     `json:"EntityRef,omitempty"`
}

type PurchaseLine struct {
	DetailType                    string             `json:"DetailType"`
	Amount                        float64            `json:"Amount"`
	Description                   string             `json:"Description,omitempty"`
	AccountBasedExpenseLineDetail PurchaseLineDetail `json:"AccountBasedExpenseLineDetail"`
}

type PurchaseLineDetail struct {
	AccountRef AccountRef `json:"AccountRef"`
}

// Deposit credits a bank account from an income account.
type Deposit struct {
	TxnDate             string        `json:"TxnDate"`
	DepositToAccountRef AccountRef    `json:"DepositToAccountRef"`
	Line                []DepositLine `json:"Line"`
}

type DepositLine struct {
	DetailType        string            `json:"DetailType"`
	Amount            float64           `json:"Amount"`
	Description       string            `json:"Description,omitempty"`
	DepositLineDetail DepositLineDetail `json:"DepositLineDetail"`
}

type DepositLineDetail struct {
	AccountRef AccountRef `json:"AccountRef"`
	Entity     *EntityRef `json:"Entity,omitempty"`
}

// Transfer moves money between two accounts.
type Transfer struct {
	TxnDate        string     `json:"TxnDate"`
	FromAccountRef AccountRef `json:"FromAccountRef"`
	ToAccountRef   AccountRef `json:"ToAccountRef"`
	Amount         float64    `json:"Amount"`
	PrivateNote    string     `json:"PrivateNote,omitempty"`
}
