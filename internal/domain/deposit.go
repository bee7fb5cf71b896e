package domain

import (
	"time"
)

// DepositStatus is the processing state of a funding request.
type DepositStatus string

const (
	// DepositPending means the deposit awaits admin review.
	DepositPending DepositStatus = "Pending"

	// DepositApproved means the deposit was accepted and coins credited.
	DepositApproved DepositStatus = "Approved"

	// DepositRejected means the deposit was declined with no coin effect.
	DepositRejected DepositStatus = "Rejected"
)

// Valid returns true for a known deposit status.
func (s DepositStatus) Valid() bool {
	switch s {
	case DepositPending, DepositApproved, DepositRejected:
		return true
	}
	return false
}

// Deposit is a ledger entry for a manually verified funding request.
// Status transitions only Pending -> Approved or Pending -> Rejected,
// exactly once. Approval is the sole trigger for crediting the owning
// user's balance.
type Deposit struct {
	// ID is the unique identifier for the deposit (UUID string).
	ID string `json:"id"`

	// UserID is the ID of the user who submitted the deposit.
	UserID string `json:"user_id"`

	// Username is captured at submission time for admin display.
	Username string `json:"username"`

	// Amount is the number of coins requested. Always positive.
	Amount int64 `json:"amount"`

	// Method is the payment channel label (e.g. "easypaisa", "upi").
	Method string `json:"method"`

	// TxnID is the external payment reference. Not verified by the system.
	TxnID string `json:"txn_id"`

	// Status is the current processing state.
	Status DepositStatus `json:"status"`

	// CreatedAt is the timestamp when the deposit was submitted.
	CreatedAt time.Time `json:"created_at"`
}

// NewDeposit creates a new Deposit in the Pending state.
func NewDeposit(id, userID, username string, amount int64, method, txnID string) *Deposit {
	return &Deposit{
		ID:        id,
		UserID:    userID,
		Username:  username,
		Amount:    amount,
		Method:    method,
		TxnID:     txnID,
		Status:    DepositPending,
		CreatedAt: time.Now().UTC(),
	}
}

// IsProcessed returns true once the deposit has left the Pending state.
func (d *Deposit) IsProcessed() bool {
	return d.Status != DepositPending
}
