package repository

import (
	"learning_platform_backend/internal/model"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WalletRepository struct {
	DB *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{DB: db}
}

// WithTx returns a repository bound to tx.
func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{DB: tx}
}

func withLedger(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Deposits", func(db *gorm.DB) *gorm.DB {
			return db.Where("type = ?", model.TransactionDeposit).Order("date ASC, id ASC")
		}).
		Preload("Withdrawals", func(db *gorm.DB) *gorm.DB {
			return db.Where("type = ?", model.TransactionWithdrawal).Order("date ASC, id ASC")
		})
}

func (r *WalletRepository) Create(wallet *model.Wallet) error {
	return r.DB.Omit("Deposits", "Withdrawals", "Student").Create(wallet).Error
}

func (r *WalletRepository) FindByID(id uint) (*model.Wallet, error) {
	var wallet model.Wallet
	if err := r.DB.Scopes(withLedger).Preload("Student").First(&wallet, id).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) FindByStudent(studentID uint) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.DB.Scopes(withLedger).Where("student_id = ?", studentID).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindHeadByStudent loads the wallet row only, without its transactions.
func (r *WalletRepository) FindHeadByStudent(studentID uint) (*model.Wallet, error) {
	var wallet model.Wallet
	if err := r.DB.Where("student_id = ?", studentID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) FindHeadByID(id uint) (*model.Wallet, error) {
	var wallet model.Wallet
	if err := r.DB.First(&wallet, id).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) List(page, limit int) ([]model.Wallet, int64, error) {
	var wallets []model.Wallet
	var total int64
	if err := r.DB.Model(&model.Wallet{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := r.DB.Scopes(withLedger).Preload("Student").
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&wallets).Error
	return wallets, total, err
}

func (r *WalletRepository) Latest(limit int) ([]model.Wallet, error) {
	var wallets []model.Wallet
	err := r.DB.Preload("Student").Order("created_at DESC").Limit(limit).Find(&wallets).Error
	return wallets, err
}

func (r *WalletRepository) Totals() (decimal.Decimal, int64, error) {
	var count int64
	if err := r.DB.Model(&model.Wallet{}).Count(&count).Error; err != nil {
		return decimal.Zero, 0, err
	}
	var row struct {
		Total decimal.NullDecimal
	}
	if err := r.DB.Model(&model.Wallet{}).Select("SUM(balance) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, 0, err
	}
	if !row.Total.Valid {
		return decimal.Zero, count, nil
	}
	return row.Total.Decimal, count, nil
}

func (r *WalletRepository) UpdateCurrency(id uint, currency string) error {
	return r.DB.Model(&model.Wallet{}).Where("id = ?", id).Update("currency", currency).Error
}

func (r *WalletRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wallet_id = ?", id).Delete(&model.WalletTransaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Wallet{}, id).Error
	})
}

// CompareAndSwapBalance writes balance only if the row still carries version.
// Zero rows affected means another writer got there first.
func (r *WalletRepository) CompareAndSwapBalance(id uint, version int64, balance decimal.Decimal, at time.Time) (int64, error) {
	res := r.DB.Model(&model.Wallet{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"balance":      balance,
			"version":      version + 1,
			"last_updated": at,
		})
	return res.RowsAffected, res.Error
}

func (r *WalletRepository) CreateTransaction(txn *model.WalletTransaction) error {
	return r.DB.Create(txn).Error
}

func (r *WalletRepository) FindTransaction(id uint) (*model.WalletTransaction, error) {
	var txn model.WalletTransaction
	if err := r.DB.First(&txn, id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *WalletRepository) FindDepositByPollURL(pollURL string) (*model.WalletTransaction, error) {
	var txn model.WalletTransaction
	err := r.DB.Where("poll_url = ? AND type = ?", pollURL, model.TransactionDeposit).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *WalletRepository) PollURLExists(pollURL string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.WalletTransaction{}).Where("poll_url = ?", pollURL).Count(&count).Error
	return count > 0, err
}

// TransitionTransaction moves a transaction out of from. Zero rows affected
// means it was no longer in that state.
func (r *WalletRepository) TransitionTransaction(id uint, from, to model.TransactionStatus) (int64, error) {
	res := r.DB.Model(&model.WalletTransaction{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *WalletRepository) OverdueWithdrawals(now time.Time) ([]model.WalletTransaction, error) {
	var txns []model.WalletTransaction
	err := r.DB.Where("type = ? AND status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		model.TransactionWithdrawal, model.TransactionPending, now).
		Order("id ASC").
		Find(&txns).Error
	return txns, err
}

// Withdrawals lists a wallet's withdrawals in the given statuses.
func (r *WalletRepository) Withdrawals(walletID uint, statuses ...model.TransactionStatus) ([]model.WalletTransaction, error) {
	var txns []model.WalletTransaction
	query := r.DB.Where("wallet_id = ? AND type = ?", walletID, model.TransactionWithdrawal)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Order("date DESC").Find(&txns).Error
	return txns, err
}

func (r *WalletRepository) Transactions(walletID uint) ([]model.WalletTransaction, error) {
	var txns []model.WalletTransaction
	err := r.DB.Where("wallet_id = ?", walletID).Order("id ASC").Find(&txns).Error
	return txns, err
}
