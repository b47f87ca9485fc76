package repository

import (
	"learning_platform_backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	DB *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

// WithTx returns a repository bound to tx.
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: tx}
}

func (r *PaymentRepository) Create(payment *model.Payment) error {
	return r.DB.Omit("Student").Create(payment).Error
}

func (r *PaymentRepository) Save(payment *model.Payment) error {
	return r.DB.Omit("Student").Save(payment).Error
}

func (r *PaymentRepository) FindByID(id uint) (*model.Payment, error) {
	var payment model.Payment
	if err := r.DB.Preload("Student").First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) FindByPollURL(pollURL string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.DB.Where("poll_url = ?", pollURL).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

type PaymentFilter struct {
	StudentID uint
	Status    model.PaymentRecordStatus
}

func (r *PaymentRepository) List(f PaymentFilter, page, limit int) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	query := r.DB.Model(&model.Payment{})
	if f.StudentID != 0 {
		query = query.Where("student_id = ?", f.StudentID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Student").Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, total, err
}

func (r *PaymentRepository) Recent(limit int) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.DB.Preload("Student").Order("created_at DESC").Limit(limit).Find(&payments).Error
	return payments, err
}

type PaymentStats struct {
	TotalPayments     int64           `json:"totalPayments"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	CompletedPayments int64           `json:"completedPayments"`
	PendingPayments   int64           `json:"pendingPayments"`
	FailedPayments    int64           `json:"failedPayments"`
}

func (r *PaymentRepository) Stats() (*PaymentStats, error) {
	var rows []struct {
		Status model.PaymentRecordStatus
		Count  int64
		Amount decimal.NullDecimal
	}
	if err := r.DB.Model(&model.Payment{}).
		Select("status, COUNT(*) AS count, SUM(amount) AS amount").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &PaymentStats{TotalAmount: decimal.Zero}
	for _, row := range rows {
		stats.TotalPayments += row.Count
		if row.Amount.Valid {
			stats.TotalAmount = stats.TotalAmount.Add(row.Amount.Decimal)
		}
		switch row.Status {
		case model.PaymentCompleted:
			stats.CompletedPayments = row.Count
		case model.PaymentPending:
			stats.PendingPayments = row.Count
		case model.PaymentFailed:
			stats.FailedPayments = row.Count
		}
	}
	return stats, nil
}

func (r *PaymentRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Payment{}, id).Error
}
