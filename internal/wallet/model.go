package wallet

import "time"

// Transaction types.
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// Transaction statuses describe why funds moved.
const (
	StatusTopup       = "topup"
	StatusEscrowHold  = "escrow_hold"
	StatusReleased    = "released"
	StatusRefund      = "refund"
	StatusPlatformFee = "platform_fee"
	StatusSplit       = "dispute_split"
)

// Transaction is one side of a balance movement.
type Transaction struct {
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	Amount    uint64    `json:"amount"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}
