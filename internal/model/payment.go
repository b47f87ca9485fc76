package model

import "github.com/shopspring/decimal"

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodEcocash      PaymentMethod = "ecocash"
	MethodInnBucks     PaymentMethod = "inn bucks"
	MethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodBankTransfer, MethodEcocash, MethodInnBucks, MethodOther:
		return true
	}
	return false
}

// IsMobileMoney reports whether the method goes through the payment gateway.
func (m PaymentMethod) IsMobileMoney() bool {
	return m == MethodEcocash || m == MethodInnBucks
}

type PaymentRecordStatus string

const (
	PaymentPending   PaymentRecordStatus = "pending"
	PaymentCompleted PaymentRecordStatus = "completed"
	PaymentFailed    PaymentRecordStatus = "failed"
)

func (s PaymentRecordStatus) Valid() bool {
	return s == PaymentPending || s == PaymentCompleted || s == PaymentFailed
}

// GatewayState mirrors the external gateway lifecycle of a payment.
type GatewayState string

const (
	GatewayInitiated  GatewayState = "initiated"
	GatewayProcessing GatewayState = "processing"
	GatewayPaid       GatewayState = "paid"
	GatewayCancelled  GatewayState = "cancelled"
	GatewayFailed     GatewayState = "failed"
)

func (s GatewayState) Valid() bool {
	switch s {
	case GatewayInitiated, GatewayProcessing, GatewayPaid, GatewayCancelled, GatewayFailed:
		return true
	}
	return false
}

// swagger:model Payment
type Payment struct {
	BaseModel
	StudentID     uint                `gorm:"index;not null" json:"studentId"`
	Student       *Student            `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Amount        decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"amount"`
	Method        PaymentMethod       `gorm:"size:32;not null" json:"method"`
	Reference     string              `gorm:"size:191;index" json:"reference"`
	ReceiptID     string              `gorm:"size:191" json:"receiptId"`
	Status        PaymentRecordStatus `gorm:"size:16;not null;index" json:"status"`
	PaymentStatus GatewayState        `gorm:"size:16;not null" json:"paymentStatus"`
	PollURL       *string             `gorm:"size:512;uniqueIndex" json:"pollUrl,omitempty"`
	RedirectURL   string              `gorm:"size:512" json:"redirectUrl,omitempty"`
	TopUpWallet   bool                `json:"topUpWallet"`
}

func (Payment) TableName() string {
	return "payments"
}
