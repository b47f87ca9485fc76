package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/pkg/logger"
	"math/big"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
	"go.uber.org/zap"
)

const (
	codeDigits = 6
	codeTTL    = 10 * time.Minute
)

// CodeStore keeps one-time codes in Redis under purpose-scoped keys.
type CodeStore struct {
	rdb redis.Cmdable
}

func NewCodeStore(rdb redis.Cmdable) *CodeStore {
	return &CodeStore{rdb: rdb}
}

func codeKey(purpose, subject string) string {
	return "otp:" + purpose + ":" + subject
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// Issue creates a fresh code, replacing any earlier one for the same subject.
func (s *CodeStore) Issue(ctx context.Context, purpose, subject string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, codeKey(purpose, subject), code, codeTTL).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Check compares without consuming the code.
func (s *CodeStore) Check(ctx context.Context, purpose, subject, code string) bool {
	if code == "" {
		return false
	}
	val, err := s.rdb.Get(ctx, codeKey(purpose, subject)).Result()
	return err == nil && val == code
}

// Consume checks the code and deletes it on success.
func (s *CodeStore) Consume(ctx context.Context, purpose, subject, code string) bool {
	if !s.Check(ctx, purpose, subject, code) {
		return false
	}
	s.rdb.Del(ctx, codeKey(purpose, subject))
	return true
}

type Mailer interface {
	Send(ctx context.Context, toName, toAddress, subject, body string) error
}

// NewMailer returns a SendGrid mailer, or a logging one when no API key is
// configured.
func NewMailer(cfg config.EmailConfig) Mailer {
	if cfg.SendGridAPIKey == "" {
		return logMailer{}
	}
	return &sendGridMailer{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
}

type sendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func (m *sendGridMailer) Send(ctx context.Context, toName, toAddress, subject, body string) error {
	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail(toName, toAddress), body, "")
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

type logMailer struct{}

func (logMailer) Send(_ context.Context, _, toAddress, subject, _ string) error {
	logger.Log.Info("email delivery disabled, message dropped",
		zap.String("to", toAddress),
		zap.String("subject", subject),
	)
	return nil
}

// PhoneVerifier sends and checks SMS verification codes.
type PhoneVerifier interface {
	Start(ctx context.Context, phone string) error
	Check(ctx context.Context, phone, code string) (bool, error)
}

// NewPhoneVerifier uses Twilio Verify when credentials are set and falls
// back to codes kept in Redis that are only written to the log.
func NewPhoneVerifier(cfg config.SMSConfig, codes *CodeStore) PhoneVerifier {
	if cfg.TwilioAccountSID == "" || cfg.VerifyServiceSID == "" {
		return &localPhoneVerifier{codes: codes}
	}
	return &twilioVerifier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		serviceSID: cfg.VerifyServiceSID,
	}
}

type twilioVerifier struct {
	client     *twilio.RestClient
	serviceSID string
}

func (v *twilioVerifier) Start(_ context.Context, phone string) error {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")
	_, err := v.client.VerifyV2.CreateVerification(v.serviceSID, params)
	return err
}

func (v *twilioVerifier) Check(_ context.Context, phone, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)
	resp, err := v.client.VerifyV2.CreateVerificationCheck(v.serviceSID, params)
	if err != nil {
		return false, err
	}
	return resp.Status != nil && *resp.Status == "approved", nil
}

const phonePurpose = "phone"

type localPhoneVerifier struct {
	codes *CodeStore
}

func (v *localPhoneVerifier) Start(ctx context.Context, phone string) error {
	code, err := v.codes.Issue(ctx, phonePurpose, phone)
	if err != nil {
		return err
	}
	logger.Log.Info("sms delivery disabled, verification code issued",
		zap.String("phone", phone),
		zap.String("code", code),
	)
	return nil
}

func (v *localPhoneVerifier) Check(ctx context.Context, phone, code string) (bool, error) {
	if phone == "" {
		return false, errors.New("phone number is required")
	}
	return v.codes.Consume(ctx, phonePurpose, phone, code), nil
}
