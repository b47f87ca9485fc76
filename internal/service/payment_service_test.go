package service

import (
	"context"
	"errors"
	"fmt"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	initiateErr error
	pollStatus  GatewayStatus
	pollErr     error
	notifyURL   string
	notifyErr   error
	initiated   []InitiateRequest
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) Initiate(_ context.Context, in InitiateRequest) (*InitiateResult, error) {
	if g.initiateErr != nil {
		return nil, g.initiateErr
	}
	g.initiated = append(g.initiated, in)
	return &InitiateResult{
		PollURL:     fmt.Sprintf("https://gateway.test/poll/%s", in.Reference),
		RedirectURL: "https://gateway.test/pay/" + in.Reference,
	}, nil
}

func (g *fakeGateway) Poll(context.Context, string) (GatewayStatus, error) {
	return g.pollStatus, g.pollErr
}

func (g *fakeGateway) ParseNotification([]byte) (string, GatewayStatus, error) {
	return g.notifyURL, g.pollStatus, g.notifyErr
}

type paymentFixture struct {
	*walletFixture
	gateway  *fakeGateway
	payments *PaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := newWalletFixture(t, false)
	gw := &fakeGateway{}
	svc := NewPaymentService(repository.NewPaymentRepository(f.db), repository.NewStudentRepository(f.db), f.svc, gw)
	return &paymentFixture{walletFixture: f, gateway: gw, payments: svc}
}

func (f *paymentFixture) topUp(t *testing.T, reference string) *model.Payment {
	t.Helper()
	f.wallet(t)
	p, err := f.payments.MakePayment(t.Context(), MakePaymentRequest{
		StudentID:   f.student.ID,
		Amount:      dec("15"),
		Method:      model.MethodEcocash,
		Reference:   reference,
		TopUpWallet: true,
	})
	require.NoError(t, err)
	return p
}

func TestMakePaymentTopUpOpensPendingDeposit(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.topUp(t, "REF-1")

	require.NotNil(t, p.PollURL)
	assert.Equal(t, "https://gateway.test/poll/REF-1", *p.PollURL)
	assert.Equal(t, model.PaymentPending, p.Status)
	assert.Equal(t, model.GatewayProcessing, p.PaymentStatus)
	require.Len(t, f.gateway.initiated, 1)
	assert.Equal(t, f.student.PhoneNumber, f.gateway.initiated[0].Phone)

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	require.Len(t, w.Deposits, 1)
	assert.Equal(t, model.TransactionPending, w.Deposits[0].Status)
	assert.True(t, w.Balance.IsZero())
}

func TestMakePaymentValidation(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.payments.MakePayment(t.Context(), MakePaymentRequest{StudentID: f.student.ID, Amount: dec("5"), Method: "cheque"})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.payments.MakePayment(t.Context(), MakePaymentRequest{StudentID: f.student.ID, Amount: dec("-1"), Method: model.MethodEcocash})
	assert.ErrorIs(t, err, util.ErrInvalidAmount)

	_, err = f.payments.MakePayment(t.Context(), MakePaymentRequest{
		StudentID: f.student.ID, Amount: dec("5"), Method: model.MethodBankTransfer, TopUpWallet: true,
	})
	assert.ErrorIs(t, err, util.ErrValidation)

	// top-up without a wallet
	_, err = f.payments.MakePayment(t.Context(), MakePaymentRequest{
		StudentID: f.student.ID, Amount: dec("5"), Method: model.MethodEcocash, TopUpWallet: true,
	})
	assert.ErrorIs(t, err, util.ErrWalletNotFound)
	assert.Empty(t, f.gateway.initiated)
}

func TestMakePaymentBankTransferSkipsGateway(t *testing.T) {
	f := newPaymentFixture(t)

	p, err := f.payments.MakePayment(t.Context(), MakePaymentRequest{StudentID: f.student.ID, Amount: dec("40"), Method: model.MethodBankTransfer})
	require.NoError(t, err)
	assert.Nil(t, p.PollURL)
	assert.Equal(t, model.GatewayInitiated, p.PaymentStatus)
	assert.NotEmpty(t, p.Reference)
	assert.Empty(t, f.gateway.initiated)
}

func TestMakePaymentGatewayFailureStoresNothing(t *testing.T) {
	f := newPaymentFixture(t)
	f.wallet(t)
	f.gateway.initiateErr = errors.New("connection refused")

	_, err := f.payments.MakePayment(t.Context(), MakePaymentRequest{
		StudentID: f.student.ID, Amount: dec("5"), Method: model.MethodInnBucks, TopUpWallet: true,
	})
	assert.ErrorIs(t, err, util.ErrUpstream)
	assert.Equal(t, 502, util.HTTPStatus(err))

	var payments, txns int64
	require.NoError(t, f.db.Model(&model.Payment{}).Count(&payments).Error)
	require.NoError(t, f.db.Model(&model.WalletTransaction{}).Count(&txns).Error)
	assert.Zero(t, payments)
	assert.Zero(t, txns)
}

func TestCheckPaymentStatusSettlesOnce(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.topUp(t, "REF-2")
	f.gateway.pollStatus = GatewayStatusPaid

	res, err := f.payments.CheckPaymentStatus(t.Context(), *p.PollURL)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, res.Outcome)
	assert.Equal(t, model.PaymentCompleted, res.Payment.Status)
	require.NotNil(t, res.Deposit)
	assert.Equal(t, model.TransactionCompleted, res.Deposit.Status)

	res, err = f.payments.CheckPaymentStatus(t.Context(), *p.PollURL)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadySettled, res.Outcome)

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("15")), "balance %s", w.Balance)
}

func TestCheckPaymentStatusAwaitingAndErrors(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.topUp(t, "REF-3")

	f.gateway.pollStatus = GatewayStatusSent
	res, err := f.payments.CheckPaymentStatus(t.Context(), *p.PollURL)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAwaiting, res.Outcome)
	assert.Equal(t, model.PaymentPending, res.Payment.Status)

	f.gateway.pollErr = errors.New("timeout")
	_, err = f.payments.CheckPaymentStatus(t.Context(), *p.PollURL)
	assert.ErrorIs(t, err, util.ErrUpstream)

	_, err = f.payments.CheckPaymentStatus(t.Context(), "https://gateway.test/poll/unknown")
	assert.ErrorIs(t, err, util.ErrPaymentNotFound)
}

func TestWebhookCancelledFailsDeposit(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.topUp(t, "REF-4")

	f.gateway.pollStatus = GatewayStatusCancelled
	res, err := f.payments.Webhook(t.Context(), *p.PollURL, "Cancelled")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, model.PaymentFailed, res.Payment.Status)
	assert.Equal(t, model.GatewayCancelled, res.Payment.PaymentStatus)
	require.NotNil(t, res.Deposit)
	assert.Equal(t, model.TransactionFailed, res.Deposit.Status)

	// a late "paid" cannot credit a failed deposit
	f.gateway.pollStatus = GatewayStatusPaid
	_, err = f.payments.Webhook(t.Context(), *p.PollURL, "paid")
	assert.ErrorIs(t, err, util.ErrPendingDepositNotFound)

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())

	_, err = f.payments.Webhook(t.Context(), "", "paid")
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestWebhookAppliesGatewayAnswerNotPushedStatus(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.topUp(t, "REF-4B")

	f.gateway.pollStatus = GatewayStatusSent
	res, err := f.payments.Webhook(t.Context(), *p.PollURL, "paid")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAwaiting, res.Outcome)
	assert.Equal(t, model.PaymentPending, res.Payment.Status)

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero(), "balance %s", w.Balance)

	f.gateway.pollErr = errors.New("timeout")
	_, err = f.payments.Webhook(t.Context(), *p.PollURL, "paid")
	assert.ErrorIs(t, err, util.ErrUpstream)

	f.gateway.pollErr = nil
	f.gateway.pollStatus = GatewayStatusPaid
	res, err = f.payments.Webhook(t.Context(), *p.PollURL, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, res.Outcome)
	w, err = f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("15")), "balance %s", w.Balance)
}

func TestGatewayNotification(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.topUp(t, "REF-5")

	f.gateway.notifyErr = errBadSignature
	_, err := f.payments.GatewayNotification([]byte("x"))
	assert.ErrorIs(t, err, util.ErrUnauthenticated)

	f.gateway.notifyErr = errors.New("garbage")
	_, err = f.payments.GatewayNotification([]byte("x"))
	assert.ErrorIs(t, err, util.ErrValidation)

	f.gateway.notifyErr = nil
	f.gateway.notifyURL = *p.PollURL
	f.gateway.pollStatus = GatewayStatusPaid
	res, err := f.payments.GatewayNotification([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, res.Outcome)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.topUp(t, "REF-6")

	_, err := f.payments.UpdatePaymentStatus(p.ID, "refunded", "")
	assert.ErrorIs(t, err, util.ErrInvalidStatus)

	updated, err := f.payments.UpdatePaymentStatus(p.ID, model.PaymentCompleted, model.GatewayPaid)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, updated.Status)
	assert.Equal(t, model.GatewayPaid, updated.PaymentStatus)

	w, err := f.svc.GetWalletByStudent(f.student.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("15")))

	_, err = f.payments.UpdatePaymentStatus(p.ID, model.PaymentFailed, "")
	assert.ErrorIs(t, err, util.ErrConflict)

	_, err = f.payments.UpdatePaymentStatus(999, model.PaymentFailed, "")
	assert.ErrorIs(t, err, util.ErrPaymentNotFound)
}

func TestListPaymentsAndStats(t *testing.T) {
	f := newPaymentFixture(t)
	f.topUp(t, "REF-7")
	_, err := f.payments.MakePayment(t.Context(), MakePaymentRequest{StudentID: f.student.ID, Amount: dec("40"), Method: model.MethodBankTransfer})
	require.NoError(t, err)

	items, total, err := f.payments.ListPayments(repository.PaymentFilter{StudentID: f.student.ID}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	_, _, err = f.payments.ListPayments(repository.PaymentFilter{Status: "weird"}, 1, 10)
	assert.ErrorIs(t, err, util.ErrInvalidStatus)

	recent, err := f.payments.RecentPayments(0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	stats, err := f.payments.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalPayments)
	assert.EqualValues(t, 2, stats.PendingPayments)
	assert.True(t, stats.TotalAmount.Equal(dec("55")))

	require.NoError(t, f.payments.DeletePayment(items[0].ID))
	assert.ErrorIs(t, f.payments.DeletePayment(items[0].ID), util.ErrPaymentNotFound)
}
