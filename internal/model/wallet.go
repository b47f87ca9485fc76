package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionExpired   TransactionStatus = "expired"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionCompleted, TransactionFailed, TransactionExpired:
		return true
	}
	return false
}

// swagger:model Wallet
type Wallet struct {
	BaseModel
	StudentID   uint                `gorm:"uniqueIndex;not null" json:"studentId"`
	Student     *Student            `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Balance     decimal.Decimal     `gorm:"type:decimal(14,2);not null;default:0" json:"balance"`
	Currency    string              `gorm:"size:8;not null;default:'USD'" json:"currency"`
	Version     int64               `gorm:"not null;default:0" json:"-"`
	LastUpdated time.Time           `json:"lastUpdated"`
	Deposits    []WalletTransaction `gorm:"foreignKey:WalletID" json:"deposits"`
	Withdrawals []WalletTransaction `gorm:"foreignKey:WalletID" json:"withdrawals"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// WalletTransaction rows are append-only apart from their status.
// swagger:model WalletTransaction
type WalletTransaction struct {
	BaseModel
	WalletID    uint              `gorm:"index;not null" json:"walletId"`
	Type        TransactionType   `gorm:"size:16;not null;index" json:"type"`
	Amount      decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"amount"`
	Method      string            `gorm:"size:32" json:"method"`
	Reference   string            `gorm:"size:191" json:"reference"`
	PollURL     *string           `gorm:"size:512;uniqueIndex" json:"pollUrl,omitempty"`
	Status      TransactionStatus `gorm:"size:16;not null;index" json:"status"`
	Date        time.Time         `json:"date"`
	ExpiresAt   *time.Time        `gorm:"index" json:"expiresAt,omitempty"`
	Description string            `gorm:"size:255" json:"description,omitempty"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
