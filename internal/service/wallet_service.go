package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"learning_platform_backend/pkg/logger"
	"learning_platform_backend/pkg/monitoring"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxLedgerAttempts   = 3
	walletDashboardKey  = "wallet:dashboard"
	walletDashboardTTL  = time.Minute
	refundMethod        = "refund"
	latestWalletsOnDash = 3
)

// errVersionConflict signals a lost compare-and-swap; the whole ledger
// transaction is replayed.
var errVersionConflict = errors.New("wallet version conflict")

// WalletService is the ledger. Every change to a wallet balance goes through
// it, always in the same transaction as the transaction row that explains it.
type WalletService struct {
	db       *gorm.DB
	repo     *repository.WalletRepository
	students *repository.StudentRepository
	rdb      redis.Cmdable
	now      func() time.Time

	cfgMu sync.RWMutex
	cfg   config.WalletConfig
}

func NewWalletService(db *gorm.DB, repo *repository.WalletRepository, students *repository.StudentRepository, rdb redis.Cmdable, cfg *config.Config) *WalletService {
	return &WalletService{
		db:       db,
		repo:     repo,
		students: students,
		rdb:      rdb,
		cfg:      cfg.Wallet,
		now:      time.Now,
	}
}

// UpdateConfig swaps the wallet settings after a config reload.
func (s *WalletService) UpdateConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg.Wallet
	s.cfgMu.Unlock()
}

func (s *WalletService) settings() config.WalletConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

type DepositRequest struct {
	Amount      decimal.Decimal         `json:"amount" binding:"required"`
	Method      string                  `json:"method" binding:"required"`
	Reference   string                  `json:"reference"`
	PollURL     string                  `json:"pollUrl"`
	Status      model.TransactionStatus `json:"status"`
	ExpiresAt   *time.Time              `json:"expiresAt"`
	Description string                  `json:"description"`
}

type WithdrawRequest struct {
	Amount      decimal.Decimal         `json:"amount" binding:"required"`
	Method      string                  `json:"method" binding:"required"`
	Reference   string                  `json:"reference"`
	Status      model.TransactionStatus `json:"status"`
	ExpiresAt   *time.Time              `json:"expiresAt"`
	Description string                  `json:"description"`
}

// LedgerTx exposes ledger steps bound to an open database transaction so
// other services can commit their own rows atomically with a balance change.
type LedgerTx struct {
	s    *WalletService
	tx   *gorm.DB
	repo *repository.WalletRepository
}

func (l *LedgerTx) DB() *gorm.DB {
	return l.tx
}

// Atomically runs fn in one ledger transaction and replays it when a
// concurrent writer wins the balance update.
func (s *WalletService) Atomically(op string, fn func(l *LedgerTx) error) error {
	var err error
	for attempt := 1; attempt <= maxLedgerAttempts; attempt++ {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			return fn(&LedgerTx{s: s, tx: tx, repo: s.repo.WithTx(tx)})
		})
		if !errors.Is(err, errVersionConflict) {
			break
		}
		monitoring.LedgerRetries.Inc()
		logger.Log.Debug("wallet ledger retry", zap.String("operation", op), zap.Int("attempt", attempt))
	}
	if errors.Is(err, errVersionConflict) {
		err = util.ErrLedgerContention
	}

	result := "ok"
	if err != nil {
		result = "error"
	} else {
		s.invalidateDashboard()
	}
	monitoring.LedgerOperations.WithLabelValues(op, result).Inc()
	return err
}

// adjust applies delta to the wallet balance with a version check. A debit
// that would take the balance below zero fails with ErrInsufficientBalance.
func (l *LedgerTx) adjust(wallet *model.Wallet, delta decimal.Decimal) error {
	next := wallet.Balance.Add(delta)
	if next.IsNegative() {
		return util.ErrInsufficientBalance
	}
	at := l.s.now()
	n, err := l.repo.CompareAndSwapBalance(wallet.ID, wallet.Version, next, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return errVersionConflict
	}
	wallet.Balance = next
	wallet.Version++
	wallet.LastUpdated = at
	return nil
}

func (l *LedgerTx) head(studentID uint) (*model.Wallet, error) {
	w, err := l.repo.FindHeadByStudent(studentID)
	return w, mapNotFound(err, util.ErrWalletNotFound)
}

// Deposit appends a deposit and credits it only when it arrives completed.
func (l *LedgerTx) Deposit(studentID uint, req DepositRequest) (*model.WalletTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, util.ErrInvalidAmount
	}
	status := req.Status
	if status == "" {
		status = model.TransactionPending
	}
	if status != model.TransactionPending && status != model.TransactionCompleted && status != model.TransactionFailed {
		return nil, util.ErrInvalidStatus
	}

	wallet, err := l.head(studentID)
	if err != nil {
		return nil, err
	}

	var pollURL *string
	if p := strings.TrimSpace(req.PollURL); p != "" {
		exists, err := l.repo.PollURLExists(p)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, util.ErrDuplicatePollURL
		}
		pollURL = &p
	}

	txn := &model.WalletTransaction{
		WalletID:    wallet.ID,
		Type:        model.TransactionDeposit,
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		PollURL:     pollURL,
		Status:      status,
		Date:        l.s.now(),
		ExpiresAt:   req.ExpiresAt,
		Description: req.Description,
	}
	if err := l.repo.CreateTransaction(txn); err != nil {
		return nil, mapDuplicate(err, util.ErrDuplicatePollURL)
	}

	if status == model.TransactionCompleted {
		if err := l.adjust(wallet, req.Amount); err != nil {
			return nil, err
		}
	}
	return txn, nil
}

// Withdraw debits immediately, whatever status the withdrawal is recorded in.
func (l *LedgerTx) Withdraw(studentID uint, req WithdrawRequest) (*model.WalletTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, util.ErrInvalidAmount
	}
	status := req.Status
	if status == "" {
		status = model.TransactionCompleted
	}
	if status != model.TransactionPending && status != model.TransactionCompleted {
		return nil, util.ErrInvalidStatus
	}

	wallet, err := l.head(studentID)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(wallet.Balance) {
		return nil, util.ErrInsufficientBalance
	}

	txn := &model.WalletTransaction{
		WalletID:    wallet.ID,
		Type:        model.TransactionWithdrawal,
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		Status:      status,
		Date:        l.s.now(),
		ExpiresAt:   req.ExpiresAt,
		Description: req.Description,
	}
	if err := l.repo.CreateTransaction(txn); err != nil {
		return nil, err
	}
	if err := l.adjust(wallet, req.Amount.Neg()); err != nil {
		return nil, err
	}
	return txn, nil
}

func (l *LedgerTx) pendingDeposit(pollURL string) (*model.WalletTransaction, error) {
	txn, err := l.repo.FindDepositByPollURL(pollURL)
	if err != nil {
		return nil, mapNotFound(err, util.ErrPendingDepositNotFound)
	}
	if txn.Status != model.TransactionPending {
		return nil, util.ErrPendingDepositNotFound
	}
	return txn, nil
}

// CompleteDeposit settles the pending deposit carrying pollURL and credits
// its wallet.
func (l *LedgerTx) CompleteDeposit(pollURL string) (*model.WalletTransaction, error) {
	txn, err := l.pendingDeposit(pollURL)
	if err != nil {
		return nil, err
	}
	n, err := l.repo.TransitionTransaction(txn.ID, model.TransactionPending, model.TransactionCompleted)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, util.ErrPendingDepositNotFound
	}
	wallet, err := l.repo.FindHeadByID(txn.WalletID)
	if err != nil {
		return nil, mapNotFound(err, util.ErrWalletNotFound)
	}
	if err := l.adjust(wallet, txn.Amount); err != nil {
		return nil, err
	}
	txn.Status = model.TransactionCompleted
	return txn, nil
}

// FailDeposit closes a pending deposit without touching the balance.
func (l *LedgerTx) FailDeposit(pollURL string) (*model.WalletTransaction, error) {
	txn, err := l.pendingDeposit(pollURL)
	if err != nil {
		return nil, err
	}
	n, err := l.repo.TransitionTransaction(txn.ID, model.TransactionPending, model.TransactionFailed)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, util.ErrPendingDepositNotFound
	}
	txn.Status = model.TransactionFailed
	return txn, nil
}

// expireWithdrawal marks one overdue withdrawal expired. With refunds enabled
// the amount comes back as a completed compensating deposit, so the balance
// stays derivable from the log.
func (l *LedgerTx) expireWithdrawal(txn model.WalletTransaction, refund bool) (bool, error) {
	n, err := l.repo.TransitionTransaction(txn.ID, model.TransactionPending, model.TransactionExpired)
	if err != nil || n == 0 {
		return false, err
	}
	if !refund {
		return true, nil
	}

	wallet, err := l.repo.FindHeadByID(txn.WalletID)
	if err != nil {
		return false, mapNotFound(err, util.ErrWalletNotFound)
	}
	comp := &model.WalletTransaction{
		WalletID:    wallet.ID,
		Type:        model.TransactionDeposit,
		Amount:      txn.Amount,
		Method:      refundMethod,
		Reference:   fmt.Sprintf("refund:%d", txn.ID),
		Status:      model.TransactionCompleted,
		Date:        l.s.now(),
		Description: "refund of expired withdrawal",
	}
	if err := l.repo.CreateTransaction(comp); err != nil {
		return false, err
	}
	return true, l.adjust(wallet, txn.Amount)
}

func (s *WalletService) CreateWallet(studentID uint, currency string) (*model.Wallet, error) {
	if _, err := s.students.FindByID(studentID); err != nil {
		return nil, mapNotFound(err, util.ErrStudentNotFound)
	}
	if _, err := s.repo.FindHeadByStudent(studentID); err == nil {
		return nil, util.ErrWalletExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if currency == "" {
		currency = s.settings().DefaultCurrency
	}
	if currency == "" {
		currency = "USD"
	}
	wallet := &model.Wallet{
		StudentID:   studentID,
		Balance:     decimal.Zero,
		Currency:    strings.ToUpper(currency),
		LastUpdated: s.now(),
	}
	if err := s.repo.Create(wallet); err != nil {
		return nil, mapDuplicate(err, util.ErrWalletExists)
	}
	s.invalidateDashboard()
	return s.GetWallet(wallet.ID)
}

func (s *WalletService) GetWallet(id uint) (*model.Wallet, error) {
	w, err := s.repo.FindByID(id)
	return w, mapNotFound(err, util.ErrWalletNotFound)
}

func (s *WalletService) GetWalletByStudent(studentID uint) (*model.Wallet, error) {
	w, err := s.repo.FindByStudent(studentID)
	return w, mapNotFound(err, util.ErrWalletNotFound)
}

func (s *WalletService) ListWallets(page, limit int) ([]model.Wallet, int64, error) {
	return s.repo.List(page, limit)
}

// UpdateWallet only changes metadata; balances move through the ledger.
func (s *WalletService) UpdateWallet(id uint, currency string) (*model.Wallet, error) {
	if _, err := s.GetWallet(id); err != nil {
		return nil, err
	}
	if currency = strings.ToUpper(strings.TrimSpace(currency)); currency == "" {
		return nil, util.NewError(util.ErrValidation, "currency is required")
	}
	if err := s.repo.UpdateCurrency(id, currency); err != nil {
		return nil, err
	}
	return s.GetWallet(id)
}

func (s *WalletService) DeleteWallet(id uint) error {
	if _, err := s.repo.FindHeadByID(id); err != nil {
		return mapNotFound(err, util.ErrWalletNotFound)
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.invalidateDashboard()
	return nil
}

func (s *WalletService) Deposit(studentID uint, req DepositRequest) (*model.Wallet, *model.WalletTransaction, error) {
	var txn *model.WalletTransaction
	err := s.Atomically("deposit", func(l *LedgerTx) error {
		var err error
		txn, err = l.Deposit(studentID, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	wallet, err := s.GetWalletByStudent(studentID)
	return wallet, txn, err
}

func (s *WalletService) Withdraw(studentID uint, req WithdrawRequest) (*model.Wallet, *model.WalletTransaction, error) {
	var txn *model.WalletTransaction
	err := s.Atomically("withdraw", func(l *LedgerTx) error {
		var err error
		txn, err = l.Withdraw(studentID, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	wallet, err := s.GetWalletByStudent(studentID)
	return wallet, txn, err
}

func (s *WalletService) CompleteDeposit(pollURL string) (*model.WalletTransaction, error) {
	var txn *model.WalletTransaction
	err := s.Atomically("complete_deposit", func(l *LedgerTx) error {
		var err error
		txn, err = l.CompleteDeposit(pollURL)
		return err
	})
	return txn, err
}

func (s *WalletService) FailDeposit(pollURL string) (*model.WalletTransaction, error) {
	var txn *model.WalletTransaction
	err := s.Atomically("fail_deposit", func(l *LedgerTx) error {
		var err error
		txn, err = l.FailDeposit(pollURL)
		return err
	})
	return txn, err
}

// CheckExpiredWithdrawals sweeps pending withdrawals past their expiry. Each
// one is handled in its own transaction so a single failure does not stall
// the sweep.
func (s *WalletService) CheckExpiredWithdrawals() (int, error) {
	overdue, err := s.repo.OverdueWithdrawals(s.now())
	if err != nil {
		return 0, err
	}

	refund := s.settings().RefundExpiredWithdrawals
	expired := 0
	var firstErr error
	for _, txn := range overdue {
		txn := txn
		var changed bool
		err := s.Atomically("expire_withdrawal", func(l *LedgerTx) error {
			var err error
			changed, err = l.expireWithdrawal(txn, refund)
			return err
		})
		if err != nil {
			logger.Log.Error("failed to expire withdrawal", zap.Uint("transactionId", txn.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, firstErr
}

func (s *WalletService) ExpiredWithdrawals(studentID uint) ([]model.WalletTransaction, error) {
	wallet, err := s.repo.FindHeadByStudent(studentID)
	if err != nil {
		return nil, mapNotFound(err, util.ErrWalletNotFound)
	}
	return s.repo.Withdrawals(wallet.ID, model.TransactionExpired)
}

// ActiveWithdrawals are pending withdrawals that have not run past expiry.
func (s *WalletService) ActiveWithdrawals(studentID uint) ([]model.WalletTransaction, error) {
	wallet, err := s.repo.FindHeadByStudent(studentID)
	if err != nil {
		return nil, mapNotFound(err, util.ErrWalletNotFound)
	}
	pending, err := s.repo.Withdrawals(wallet.ID, model.TransactionPending)
	if err != nil {
		return nil, err
	}
	now := s.now()
	active := make([]model.WalletTransaction, 0, len(pending))
	for _, txn := range pending {
		if txn.ExpiresAt == nil || txn.ExpiresAt.After(now) {
			active = append(active, txn)
		}
	}
	return active, nil
}

type BalanceReport struct {
	WalletID      uint            `json:"walletId"`
	StudentID     uint            `json:"studentId"`
	StoredBalance decimal.Decimal `json:"storedBalance"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance"`
	Drift         decimal.Decimal `json:"drift"`
	Consistent    bool            `json:"consistent"`
}

// LedgerBalance folds a transaction log: completed deposits credit, and every
// withdrawal that was debited (pending, completed, expired) counts against it.
func LedgerBalance(txns []model.WalletTransaction) decimal.Decimal {
	balance := decimal.Zero
	for _, t := range txns {
		switch t.Type {
		case model.TransactionDeposit:
			if t.Status == model.TransactionCompleted {
				balance = balance.Add(t.Amount)
			}
		case model.TransactionWithdrawal:
			if t.Status != model.TransactionFailed {
				balance = balance.Sub(t.Amount)
			}
		}
	}
	return balance
}

// ReconcileBalance compares the stored balance with the fold of the log.
func (s *WalletService) ReconcileBalance(studentID uint) (*BalanceReport, error) {
	wallet, err := s.repo.FindHeadByStudent(studentID)
	if err != nil {
		return nil, mapNotFound(err, util.ErrWalletNotFound)
	}
	txns, err := s.repo.Transactions(wallet.ID)
	if err != nil {
		return nil, err
	}
	folded := LedgerBalance(txns)
	drift := wallet.Balance.Sub(folded)
	report := &BalanceReport{
		WalletID:      wallet.ID,
		StudentID:     wallet.StudentID,
		StoredBalance: wallet.Balance,
		LedgerBalance: folded,
		Drift:         drift,
		Consistent:    drift.IsZero(),
	}
	if !report.Consistent {
		logger.Log.Warn("wallet balance drift detected",
			zap.Uint("walletId", wallet.ID),
			zap.String("stored", wallet.Balance.String()),
			zap.String("ledger", folded.String()),
		)
	}
	return report, nil
}

type WalletDashboard struct {
	TotalBalance  decimal.Decimal `json:"totalBalance"`
	TotalWallets  int64           `json:"totalWallets"`
	LatestWallets []model.Wallet  `json:"latestWallets"`
}

func (s *WalletService) Dashboard(ctx context.Context) (*WalletDashboard, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, walletDashboardKey).Bytes(); err == nil {
			var cached WalletDashboard
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	total, count, err := s.repo.Totals()
	if err != nil {
		return nil, err
	}
	latest, err := s.repo.Latest(latestWalletsOnDash)
	if err != nil {
		return nil, err
	}
	dash := &WalletDashboard{TotalBalance: total, TotalWallets: count, LatestWallets: latest}

	if s.rdb != nil {
		if raw, err := json.Marshal(dash); err == nil {
			s.rdb.Set(ctx, walletDashboardKey, raw, walletDashboardTTL)
		}
	}
	return dash, nil
}

func (s *WalletService) invalidateDashboard() {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(context.Background(), walletDashboardKey).Err(); err != nil {
		logger.Log.Warn("failed to invalidate wallet dashboard cache", zap.Error(err))
	}
}
