package util

import (
	"errors"
	"net/http"
)

// Error categories. Concrete errors below unwrap to exactly one of them and
// HTTPStatus maps the category to a status code.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrConflict         = errors.New("concurrent modification")
	ErrUpstream         = errors.New("upstream service failure")
)

type categorized struct {
	category error
	msg      string
}

func (e *categorized) Error() string { return e.msg }
func (e *categorized) Unwrap() error { return e.category }

func NewError(category error, msg string) error {
	return &categorized{category: category, msg: msg}
}

var (
	ErrStudentNotFound      = NewError(ErrNotFound, "Student not found")
	ErrAdminNotFound        = NewError(ErrNotFound, "Admin not found")
	ErrEmailRegistered      = NewError(ErrAlreadyExists, "Email already exists")
	ErrInvalidCredentials   = NewError(ErrUnauthenticated, "Invalid email or password")
	ErrInvalidOTP           = NewError(ErrValidation, "Invalid or expired code")
	ErrPhoneNotVerified     = NewError(ErrValidation, "Phone verification failed")
	ErrMainAdminOnly        = NewError(ErrPermissionDenied, "Only the main admin can perform this action")
	ErrSubjectNotFound      = NewError(ErrNotFound, "Subject not found")
	ErrTopicNotFound        = NewError(ErrNotFound, "Topic not found")
	ErrTopicContentNotFound = NewError(ErrNotFound, "Topic content not found")
	ErrCommentNotFound      = NewError(ErrNotFound, "Comment not found")
	ErrCommunityNotFound    = NewError(ErrNotFound, "Community not found")
	ErrAlreadyMember        = NewError(ErrAlreadyExists, "Participant already exists in community")
	ErrNotMember            = NewError(ErrNotFound, "Participant is not a member of this community")
	ErrMessageNotFound      = NewError(ErrNotFound, "Message not found")
	ErrExamNotFound         = NewError(ErrNotFound, "Exam not found")
	ErrRecordNotFound       = NewError(ErrNotFound, "Exam record not found")
	ErrQuizNotFound         = NewError(ErrNotFound, "Quiz not found")
	ErrInvalidTransition    = NewError(ErrValidation, "Invalid lifecycle transition")
	ErrBookNotFound         = NewError(ErrNotFound, "Book not found")
	ErrBannerNotFound       = NewError(ErrNotFound, "Banner not found")

	ErrProgressNotFound  = NewError(ErrNotFound, "Progress record not found")
	ErrMinimumDaysNotMet = NewError(ErrValidation, "Minimum 5-day requirement not met")

	ErrWalletNotFound         = NewError(ErrNotFound, "Wallet not found")
	ErrWalletExists           = NewError(ErrAlreadyExists, "Wallet already exists for this student")
	ErrDuplicatePollURL       = NewError(ErrAlreadyExists, "Payment already exists")
	ErrInsufficientBalance    = NewError(ErrPermissionDenied, "Insufficient balance")
	ErrInvalidAmount          = NewError(ErrValidation, "Amount must be greater than zero")
	ErrInvalidStatus          = NewError(ErrValidation, "Invalid status")
	ErrPendingDepositNotFound = NewError(ErrNotFound, "No pending deposit found for this poll URL")
	ErrLedgerContention       = NewError(ErrConflict, "Wallet was modified concurrently, retry the request")

	ErrPaymentNotFound = NewError(ErrNotFound, "Payment not found")
	ErrGatewayFailure  = NewError(ErrUpstream, "Payment gateway request failed")
)

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
