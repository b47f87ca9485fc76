package service

import (
	"errors"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/testutil"
	"learning_platform_backend/internal/util"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type walletFixture struct {
	db      *gorm.DB
	svc     *WalletService
	student *model.Student
}

func newWalletFixture(t *testing.T, refund bool) *walletFixture {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{Wallet: config.WalletConfig{DefaultCurrency: "usd", RefundExpiredWithdrawals: refund}}
	svc := NewWalletService(db, repository.NewWalletRepository(db), repository.NewStudentRepository(db), nil, cfg)
	svc.now = func() time.Time { return fixedNow }
	return &walletFixture{db: db, svc: svc, student: testutil.CreateStudent(t, db, "wallet@example.com")}
}

func (f *walletFixture) wallet(t *testing.T) *model.Wallet {
	t.Helper()
	_, err := f.svc.CreateWallet(f.student.ID, "")
	require.NoError(t, err)
	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	return w
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateWallet(t *testing.T) {
	f := newWalletFixture(t, false)

	w, err := f.svc.CreateWallet(f.student.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "USD", w.Currency)
	assert.True(t, w.Balance.IsZero())

	_, err = f.svc.CreateWallet(f.student.ID, "zwl")
	assert.ErrorIs(t, err, util.ErrWalletExists)
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	_, err = f.svc.CreateWallet(9999, "")
	assert.ErrorIs(t, err, util.ErrStudentNotFound)
}

func TestDepositCreditsOnlyWhenCompleted(t *testing.T) {
	f := newWalletFixture(t, false)
	f.wallet(t)

	w, txn, err := f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("10"), Method: "ecocash", PollURL: "https://pay/poll/1"})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionPending, txn.Status)
	assert.True(t, w.Balance.IsZero())
	assert.Len(t, w.Deposits, 1)
	assert.Empty(t, w.Withdrawals)

	w, _, err = f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("25.50"), Method: "cash", Status: model.TransactionCompleted})
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("25.50")), "balance %s", w.Balance)
	assert.Len(t, w.Deposits, 2)
}

func TestDepositValidation(t *testing.T) {
	f := newWalletFixture(t, false)

	_, _, err := f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("5"), Method: "cash"})
	assert.ErrorIs(t, err, util.ErrWalletNotFound)

	f.wallet(t)
	_, _, err = f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("0"), Method: "cash"})
	assert.ErrorIs(t, err, util.ErrInvalidAmount)

	_, _, err = f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("5"), Method: "cash", Status: model.TransactionExpired})
	assert.ErrorIs(t, err, util.ErrInvalidStatus)

	_, _, err = f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("5"), Method: "ecocash", PollURL: "https://pay/poll/dup"})
	require.NoError(t, err)
	_, _, err = f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("7"), Method: "ecocash", PollURL: "https://pay/poll/dup"})
	assert.ErrorIs(t, err, util.ErrDuplicatePollURL)
}

func TestWithdrawInsufficientBalanceLeavesWalletUntouched(t *testing.T) {
	f := newWalletFixture(t, false)
	f.wallet(t)
	_, _, err := f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("20"), Method: "cash", Status: model.TransactionCompleted})
	require.NoError(t, err)

	_, _, err = f.svc.Withdraw(f.student.ID, WithdrawRequest{Amount: dec("20.01"), Method: "cash"})
	assert.ErrorIs(t, err, util.ErrInsufficientBalance)
	assert.Equal(t, 403, util.HTTPStatus(err))

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("20")))
	assert.Empty(t, w.Withdrawals)

	w, txn, err := f.svc.Withdraw(f.student.ID, WithdrawRequest{Amount: dec("20"), Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionCompleted, txn.Status)
	assert.True(t, w.Balance.IsZero())
}

func TestCompleteDepositOnlyOnce(t *testing.T) {
	f := newWalletFixture(t, false)
	f.wallet(t)
	_, _, err := f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("12"), Method: "ecocash", PollURL: "https://pay/poll/once"})
	require.NoError(t, err)

	txn, err := f.svc.CompleteDeposit("https://pay/poll/once")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionCompleted, txn.Status)

	_, err = f.svc.CompleteDeposit("https://pay/poll/once")
	assert.ErrorIs(t, err, util.ErrPendingDepositNotFound)

	_, err = f.svc.FailDeposit("https://pay/poll/once")
	assert.ErrorIs(t, err, util.ErrPendingDepositNotFound)

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("12")))
}

func TestFailDepositKeepsBalance(t *testing.T) {
	f := newWalletFixture(t, false)
	f.wallet(t)
	_, _, err := f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("8"), Method: "ecocash", PollURL: "https://pay/poll/fail"})
	require.NoError(t, err)

	txn, err := f.svc.FailDeposit("https://pay/poll/fail")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionFailed, txn.Status)

	_, err = f.svc.CompleteDeposit("https://pay/poll/fail")
	assert.ErrorIs(t, err, util.ErrPendingDepositNotFound)

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func seedPendingWithdrawal(t *testing.T, f *walletFixture, amount string, expiresAt time.Time) {
	t.Helper()
	_, _, err := f.svc.Withdraw(f.student.ID, WithdrawRequest{
		Amount:    dec(amount),
		Method:    "ecocash",
		Status:    model.TransactionPending,
		ExpiresAt: &expiresAt,
	})
	require.NoError(t, err)
}

func TestCheckExpiredWithdrawals(t *testing.T) {
	for _, refund := range []bool{false, true} {
		name := "no refund"
		if refund {
			name = "refund"
		}
		t.Run(name, func(t *testing.T) {
			f := newWalletFixture(t, refund)
			f.wallet(t)
			_, _, err := f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("50"), Method: "cash", Status: model.TransactionCompleted})
			require.NoError(t, err)

			seedPendingWithdrawal(t, f, "15", fixedNow.Add(-time.Hour))
			seedPendingWithdrawal(t, f, "5", fixedNow.Add(time.Hour))

			n, err := f.svc.CheckExpiredWithdrawals()
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			expired, err := f.svc.ExpiredWithdrawals(f.student.ID)
			require.NoError(t, err)
			require.Len(t, expired, 1)
			assert.True(t, expired[0].Amount.Equal(dec("15")))

			active, err := f.svc.ActiveWithdrawals(f.student.ID)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.True(t, active[0].Amount.Equal(dec("5")))

			w, err := f.svc.GetWalletByStudent(f.student.ID)
			require.NoError(t, err)
			want := dec("30")
			if refund {
				want = dec("45")
			}
			assert.True(t, w.Balance.Equal(want), "balance %s", w.Balance)

			report, err := f.svc.ReconcileBalance(f.student.ID)
			require.NoError(t, err)
			assert.True(t, report.Consistent, "drift %s", report.Drift)

			// a second sweep finds nothing new
			n, err = f.svc.CheckExpiredWithdrawals()
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestReconcileBalanceReportsDrift(t *testing.T) {
	f := newWalletFixture(t, false)
	w := f.wallet(t)
	_, _, err := f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("10"), Method: "cash", Status: model.TransactionCompleted})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&model.Wallet{}).Where("id = ?", w.ID).Update("balance", dec("13")).Error)

	report, err := f.svc.ReconcileBalance(f.student.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.True(t, report.LedgerBalance.Equal(dec("10")))
	assert.True(t, report.Drift.Equal(dec("3")))
}

func TestLedgerBalance(t *testing.T) {
	txns := []model.WalletTransaction{
		{Type: model.TransactionDeposit, Status: model.TransactionCompleted, Amount: dec("100")},
		{Type: model.TransactionDeposit, Status: model.TransactionPending, Amount: dec("40")},
		{Type: model.TransactionDeposit, Status: model.TransactionFailed, Amount: dec("40")},
		{Type: model.TransactionWithdrawal, Status: model.TransactionCompleted, Amount: dec("20")},
		{Type: model.TransactionWithdrawal, Status: model.TransactionPending, Amount: dec("10")},
		{Type: model.TransactionWithdrawal, Status: model.TransactionExpired, Amount: dec("5")},
	}
	assert.True(t, LedgerBalance(txns).Equal(dec("65")))
	assert.True(t, LedgerBalance(nil).IsZero())
}

func TestAtomicallyRetriesLostBalanceUpdate(t *testing.T) {
	f := newWalletFixture(t, false)
	w := f.wallet(t)

	attempts := 0
	err := f.svc.Atomically("test", func(l *LedgerTx) error {
		attempts++
		head, err := l.head(f.student.ID)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// another writer bumps the version after our read
			if err := l.DB().Model(&model.Wallet{}).Where("id = ?", w.ID).Update("version", head.Version+1).Error; err != nil {
				return err
			}
		}
		return l.adjust(head, dec("4"))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	got, err := f.svc.GetWallet(w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("4")))
}

func TestAtomicallyGivesUpUnderContention(t *testing.T) {
	f := newWalletFixture(t, false)
	w := f.wallet(t)

	attempts := 0
	err := f.svc.Atomically("test", func(l *LedgerTx) error {
		attempts++
		head, err := l.head(f.student.ID)
		if err != nil {
			return err
		}
		if err := l.DB().Model(&model.Wallet{}).Where("id = ?", w.ID).Update("version", head.Version+1).Error; err != nil {
			return err
		}
		return l.adjust(head, dec("1"))
	})
	assert.ErrorIs(t, err, util.ErrLedgerContention)
	assert.Equal(t, 409, util.HTTPStatus(err))
	assert.Equal(t, maxLedgerAttempts, attempts)

	got, err := f.svc.GetWallet(w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
}

func TestAtomicallyRollsBackOnError(t *testing.T) {
	f := newWalletFixture(t, false)
	f.wallet(t)
	boom := errors.New("boom")

	err := f.svc.Atomically("test", func(l *LedgerTx) error {
		if _, err := l.Deposit(f.student.ID, DepositRequest{Amount: dec("9"), Method: "cash", Status: model.TransactionCompleted}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Empty(t, w.Deposits)
}

func TestUpdateAndDeleteWallet(t *testing.T) {
	f := newWalletFixture(t, false)
	w := f.wallet(t)

	_, err := f.svc.UpdateWallet(w.ID, " ")
	assert.ErrorIs(t, err, util.ErrValidation)

	updated, err := f.svc.UpdateWallet(w.ID, "zwg")
	require.NoError(t, err)
	assert.Equal(t, "ZWG", updated.Currency)

	_, _, err = f.svc.Deposit(f.student.ID, DepositRequest{Amount: dec("3"), Method: "cash", Status: model.TransactionCompleted})
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, dash.TotalWallets)
	assert.True(t, dash.TotalBalance.Equal(dec("3")))

	require.NoError(t, f.svc.DeleteWallet(w.ID))
	_, err = f.svc.GetWallet(w.ID)
	assert.ErrorIs(t, err, util.ErrWalletNotFound)

	var count int64
	require.NoError(t, f.db.Model(&model.WalletTransaction{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, f.svc.DeleteWallet(w.ID), util.ErrWalletNotFound)
}
