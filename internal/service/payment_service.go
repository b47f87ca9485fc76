package service

import (
	"context"
	"errors"
	"fmt"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"learning_platform_backend/pkg/logger"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentService struct {
	repo     *repository.PaymentRepository
	students *repository.StudentRepository
	wallet   *WalletService
	gateway  PaymentGateway
}

func NewPaymentService(repo *repository.PaymentRepository, students *repository.StudentRepository, wallet *WalletService, gateway PaymentGateway) *PaymentService {
	return &PaymentService{repo: repo, students: students, wallet: wallet, gateway: gateway}
}

type MakePaymentRequest struct {
	StudentID   uint                `json:"studentId"`
	Amount      decimal.Decimal     `json:"amount" binding:"required"`
	Method      model.PaymentMethod `json:"method" binding:"required"`
	Reference   string              `json:"reference"`
	ReceiptID   string              `json:"receiptId"`
	Description string              `json:"description"`
	Phone       string              `json:"phone"`
	TopUpWallet bool                `json:"topUpWallet"`
}

// MakePayment records a payment attempt. Mobile-money methods are sent to
// the gateway first; a wallet top-up also opens a pending deposit carrying
// the gateway poll URL.
func (s *PaymentService) MakePayment(ctx context.Context, req MakePaymentRequest) (*model.Payment, error) {
	if req.StudentID == 0 {
		return nil, util.NewError(util.ErrValidation, "Student ID, amount, and payment method are required")
	}
	if !req.Amount.IsPositive() {
		return nil, util.ErrInvalidAmount
	}
	if !req.Method.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid payment method")
	}
	if req.TopUpWallet && !req.Method.IsMobileMoney() {
		return nil, util.NewError(util.ErrValidation, "Wallet top-ups require a mobile-money method")
	}

	student, err := s.students.FindByID(req.StudentID)
	if err != nil {
		return nil, mapNotFound(err, util.ErrStudentNotFound)
	}
	if req.TopUpWallet {
		if _, err := s.wallet.GetWalletByStudent(req.StudentID); err != nil {
			return nil, err
		}
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = "PAY-" + strings.ToUpper(uuid.NewString()[:8])
	}
	payment := &model.Payment{
		StudentID:     req.StudentID,
		Amount:        req.Amount,
		Method:        req.Method,
		Reference:     reference,
		ReceiptID:     req.ReceiptID,
		Status:        model.PaymentPending,
		PaymentStatus: model.GatewayInitiated,
		TopUpWallet:   req.TopUpWallet,
	}

	if req.Method.IsMobileMoney() {
		phone := req.Phone
		if phone == "" {
			phone = student.PhoneNumber
		}
		res, err := s.gateway.Initiate(ctx, InitiateRequest{
			Reference:   reference,
			Amount:      req.Amount,
			Description: req.Description,
			Email:       student.Email,
			Phone:       phone,
			Method:      req.Method,
		})
		if err != nil {
			logger.Log.Error("payment gateway initiate failed",
				zap.String("gateway", s.gateway.Name()),
				zap.String("reference", reference),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %v", util.ErrGatewayFailure, err)
		}
		if res.PollURL == "" {
			return nil, fmt.Errorf("%w: no poll url returned", util.ErrGatewayFailure)
		}
		pollURL := res.PollURL
		payment.PollURL = &pollURL
		payment.RedirectURL = res.RedirectURL
		payment.PaymentStatus = model.GatewayProcessing
	}

	err = s.wallet.Atomically("make_payment", func(l *LedgerTx) error {
		if err := s.repo.WithTx(l.DB()).Create(payment); err != nil {
			return mapDuplicate(err, util.ErrDuplicatePollURL)
		}
		if !req.TopUpWallet {
			return nil
		}
		_, err := l.Deposit(req.StudentID, DepositRequest{
			Amount:      req.Amount,
			Method:      string(req.Method),
			Reference:   reference,
			PollURL:     *payment.PollURL,
			Status:      model.TransactionPending,
			Description: "wallet top-up",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetPayment(payment.ID)
}

// ReconcileOutcome tells the caller what a gateway status did to a payment.
type ReconcileOutcome string

const (
	OutcomeSettled        ReconcileOutcome = "settled"
	OutcomeAlreadySettled ReconcileOutcome = "already_settled"
	OutcomeAwaiting       ReconcileOutcome = "awaiting"
	OutcomeFailed         ReconcileOutcome = "failed"
)

type ReconcileResult struct {
	Payment       *model.Payment           `json:"payment"`
	GatewayStatus GatewayStatus            `json:"gatewayStatus"`
	Outcome       ReconcileOutcome         `json:"outcome"`
	Message       string                   `json:"-"`
	Deposit       *model.WalletTransaction `json:"deposit,omitempty"`
}

// CheckPaymentStatus polls the gateway for the payment behind pollURL and
// applies the answer.
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, pollURL string) (*ReconcileResult, error) {
	payment, err := s.repo.FindByPollURL(pollURL)
	if err != nil {
		return nil, mapNotFound(err, util.ErrPaymentNotFound)
	}
	status, err := s.gateway.Poll(ctx, pollURL)
	if err != nil {
		logger.Log.Warn("payment gateway poll failed", zap.String("pollUrl", pollURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", util.ErrGatewayFailure, err)
	}
	return s.applyGatewayStatus(payment, status)
}

// Webhook handles an unsigned status push. The pushed status is only a hint:
// the gateway is polled and its answer is what gets applied.
func (s *PaymentService) Webhook(ctx context.Context, pollURL, status string) (*ReconcileResult, error) {
	if strings.TrimSpace(pollURL) == "" {
		return nil, util.NewError(util.ErrValidation, "pollUrl is required")
	}
	res, err := s.CheckPaymentStatus(ctx, pollURL)
	if err != nil {
		return nil, err
	}
	if hint := ParseGatewayStatus(status); hint != res.GatewayStatus {
		logger.Log.Warn("webhook status disagrees with gateway",
			zap.String("pollUrl", pollURL),
			zap.String("pushed", string(hint)),
			zap.String("gateway", string(res.GatewayStatus)))
	}
	return res, nil
}

// GatewayNotification handles a callback in the gateway's own format. The
// signature is checked before anything is looked up.
func (s *PaymentService) GatewayNotification(body []byte) (*ReconcileResult, error) {
	pollURL, status, err := s.gateway.ParseNotification(body)
	if err != nil {
		logger.Log.Warn("rejected gateway notification", zap.String("gateway", s.gateway.Name()), zap.Error(err))
		if errors.Is(err, util.ErrUnauthenticated) {
			return nil, err
		}
		return nil, util.NewError(util.ErrValidation, "Malformed gateway notification")
	}
	payment, err := s.repo.FindByPollURL(pollURL)
	if err != nil {
		return nil, mapNotFound(err, util.ErrPaymentNotFound)
	}
	return s.applyGatewayStatus(payment, status)
}

func (s *PaymentService) applyGatewayStatus(payment *model.Payment, status GatewayStatus) (*ReconcileResult, error) {
	result := &ReconcileResult{Payment: payment, GatewayStatus: status}

	if payment.Status == model.PaymentCompleted {
		result.Outcome = OutcomeAlreadySettled
		result.Message = "Payment already settled"
		return result, nil
	}

	switch status {
	case GatewayStatusPaid:
		err := s.wallet.Atomically("settle_payment", func(l *LedgerTx) error {
			payment.Status = model.PaymentCompleted
			payment.PaymentStatus = model.GatewayPaid
			if err := s.repo.WithTx(l.DB()).Save(payment); err != nil {
				return err
			}
			if !payment.TopUpWallet || payment.PollURL == nil {
				return nil
			}
			dep, err := l.CompleteDeposit(*payment.PollURL)
			result.Deposit = dep
			return err
		})
		if err != nil {
			// the transaction rolled back; keep the in-memory copy honest
			payment.Status = model.PaymentPending
			payment.PaymentStatus = model.GatewayProcessing
			return nil, err
		}
		result.Outcome = OutcomeSettled
		result.Message = "Payment completed"

	case GatewayStatusCreated:
		result.Outcome = OutcomeAwaiting
		result.Message = "Payment created but not yet paid"

	case GatewayStatusSent:
		result.Outcome = OutcomeAwaiting
		result.Message = "Payment sent, awaiting confirmation"

	default:
		err := s.wallet.Atomically("fail_payment", func(l *LedgerTx) error {
			payment.Status = model.PaymentFailed
			if status == GatewayStatusCancelled {
				payment.PaymentStatus = model.GatewayCancelled
			} else {
				payment.PaymentStatus = model.GatewayFailed
			}
			if err := s.repo.WithTx(l.DB()).Save(payment); err != nil {
				return err
			}
			if !payment.TopUpWallet || payment.PollURL == nil {
				return nil
			}
			dep, err := l.FailDeposit(*payment.PollURL)
			if errors.Is(err, util.ErrPendingDepositNotFound) {
				return nil
			}
			result.Deposit = dep
			return err
		})
		if err != nil {
			return nil, err
		}
		result.Outcome = OutcomeFailed
		if status == GatewayStatusCancelled {
			result.Message = "Payment cancelled"
		} else {
			result.Message = "Unknown payment status"
		}
	}
	return result, nil
}

// UpdatePaymentStatus is the manual override. Completing or failing a top-up
// still moves its deposit through the ledger.
func (s *PaymentService) UpdatePaymentStatus(id uint, status model.PaymentRecordStatus, gatewayState model.GatewayState) (*model.Payment, error) {
	if !status.Valid() {
		return nil, util.ErrInvalidStatus
	}
	if gatewayState != "" && !gatewayState.Valid() {
		return nil, util.ErrInvalidStatus
	}
	payment, err := s.repo.FindByID(id)
	if err != nil {
		return nil, mapNotFound(err, util.ErrPaymentNotFound)
	}
	if payment.Status == model.PaymentCompleted && status != model.PaymentCompleted {
		return nil, util.NewError(util.ErrConflict, "Completed payments cannot be reopened")
	}
	previous := payment.Status

	err = s.wallet.Atomically("update_payment_status", func(l *LedgerTx) error {
		payment.Status = status
		if gatewayState != "" {
			payment.PaymentStatus = gatewayState
		}
		if err := s.repo.WithTx(l.DB()).Save(payment); err != nil {
			return err
		}
		if !payment.TopUpWallet || payment.PollURL == nil || previous == status {
			return nil
		}
		switch status {
		case model.PaymentCompleted:
			_, err := l.CompleteDeposit(*payment.PollURL)
			return err
		case model.PaymentFailed:
			_, err := l.FailDeposit(*payment.PollURL)
			if errors.Is(err, util.ErrPendingDepositNotFound) {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPayment(id)
}

func (s *PaymentService) GetPayment(id uint) (*model.Payment, error) {
	p, err := s.repo.FindByID(id)
	return p, mapNotFound(err, util.ErrPaymentNotFound)
}

func (s *PaymentService) ListPayments(filter repository.PaymentFilter, page, limit int) ([]model.Payment, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, util.ErrInvalidStatus
	}
	return s.repo.List(filter, page, limit)
}

func (s *PaymentService) RecentPayments(limit int) ([]model.Payment, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.repo.Recent(limit)
}

func (s *PaymentService) Stats() (*repository.PaymentStats, error) {
	return s.repo.Stats()
}

func (s *PaymentService) DeletePayment(id uint) error {
	if _, err := s.GetPayment(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}
