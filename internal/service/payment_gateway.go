package service

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/util"
	"learning_platform_backend/pkg/logger"
	"learning_platform_backend/pkg/monitoring"
	"learning_platform_backend/pkg/tracing"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GatewayStatus is the normalized answer of a gateway poll.
type GatewayStatus string

const (
	GatewayStatusPaid      GatewayStatus = "paid"
	GatewayStatusCreated   GatewayStatus = "created"
	GatewayStatusSent      GatewayStatus = "sent"
	GatewayStatusCancelled GatewayStatus = "cancelled"
	GatewayStatusUnknown   GatewayStatus = "unknown"
)

// ParseGatewayStatus accepts the lower-case names used by webhooks.
func ParseGatewayStatus(s string) GatewayStatus {
	switch GatewayStatus(strings.ToLower(strings.TrimSpace(s))) {
	case GatewayStatusPaid:
		return GatewayStatusPaid
	case GatewayStatusCreated:
		return GatewayStatusCreated
	case GatewayStatusSent:
		return GatewayStatusSent
	case GatewayStatusCancelled, "failed":
		return GatewayStatusCancelled
	}
	return GatewayStatusUnknown
}

type InitiateRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Description string
	Email       string
	Phone       string
	Method      model.PaymentMethod
}

type InitiateResult struct {
	PollURL     string
	RedirectURL string
}

// PaymentGateway is the external mobile-money provider.
type PaymentGateway interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Poll(ctx context.Context, pollURL string) (GatewayStatus, error)
	// ParseNotification verifies a server-to-server result callback and
	// returns the poll URL and status it reports.
	ParseNotification(body []byte) (string, GatewayStatus, error)
}

var errBadSignature = util.NewError(util.ErrUnauthenticated, "Invalid notification signature")

func NewPaymentGateway(cfg *config.Config) PaymentGateway {
	if cfg.Payment.Gateway == "midtrans" {
		return NewMidtransGateway(cfg.Payment.Midtrans)
	}
	return NewPaynowGateway(cfg.Payment.Paynow)
}

// PaynowGateway talks to the Paynow HTTP interface. Requests and replies are
// url-encoded forms signed with a SHA512 hash over the values and the
// integration key.
type PaynowGateway struct {
	cfg    config.PaynowConfig
	client *http.Client
}

func NewPaynowGateway(cfg config.PaynowConfig) *PaynowGateway {
	return &PaynowGateway{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}
}

func (g *PaynowGateway) Name() string { return "paynow" }

type formField struct {
	key, value string
}

// paynowHash signs values in field order.
func paynowHash(fields []formField, integrationKey string) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.value)
	}
	b.WriteString(integrationKey)
	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// verifyPaynowReply checks the hash of a reply; replies without one (errors)
// are accepted as-is.
func verifyPaynowReply(raw, integrationKey string) (url.Values, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	hash := values.Get("hash")
	if hash == "" {
		return values, nil
	}

	// the hash covers the reply values in the order they were sent
	var fields []formField
	for _, pair := range strings.Split(raw, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if strings.EqualFold(k, "hash") {
			continue
		}
		v, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		fields = append(fields, formField{k, v})
	}
	if !strings.EqualFold(paynowHash(fields, integrationKey), hash) {
		return nil, errors.New("paynow reply hash mismatch")
	}
	return values, nil
}

func (g *PaynowGateway) post(ctx context.Context, endpoint string, fields []formField) (url.Values, error) {
	form := url.Values{}
	for _, f := range fields {
		form.Set(f.key, f.value)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paynow returned %d", resp.StatusCode)
	}
	return verifyPaynowReply(strings.TrimSpace(string(body)), g.cfg.IntegrationKey)
}

func (g *PaynowGateway) Initiate(ctx context.Context, in InitiateRequest) (*InitiateResult, error) {
	ctx, end := tracing.StartSpan(ctx, "paynow.initiate", attribute.String("payment.reference", in.Reference))
	res, err := g.initiate(ctx, in)
	end(err)
	return res, err
}

func (g *PaynowGateway) initiate(ctx context.Context, in InitiateRequest) (*InitiateResult, error) {
	info := in.Description
	if info == "" {
		info = "Course Payment"
	}
	email := in.Email
	if g.cfg.AuthEmail != "" {
		email = g.cfg.AuthEmail
	}

	fields := []formField{
		{"id", g.cfg.IntegrationID},
		{"reference", in.Reference},
		{"amount", in.Amount.StringFixed(2)},
		{"additionalinfo", info},
		{"returnurl", g.cfg.ReturnURL},
		{"resulturl", g.cfg.ResultURL},
		{"authemail", email},
	}
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/initiatetransaction"
	if in.Phone != "" {
		method := "ecocash"
		if in.Method == model.MethodInnBucks {
			method = "innbucks"
		}
		fields = append(fields, formField{"phone", in.Phone}, formField{"method", method})
		endpoint = strings.TrimRight(g.cfg.BaseURL, "/") + "/remotetransaction"
	}
	fields = append(fields, formField{"status", "Message"})
	fields = append(fields, formField{"hash", paynowHash(fields, g.cfg.IntegrationKey)})

	reply, err := g.post(ctx, endpoint, fields)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(reply.Get("status"), "ok") {
		return nil, fmt.Errorf("paynow rejected payment: %s", reply.Get("error"))
	}
	return &InitiateResult{
		PollURL:     reply.Get("pollurl"),
		RedirectURL: reply.Get("browserurl"),
	}, nil
}

func (g *PaynowGateway) Poll(ctx context.Context, pollURL string) (GatewayStatus, error) {
	ctx, end := tracing.StartSpan(ctx, "paynow.poll")
	reply, err := g.post(ctx, pollURL, nil)
	end(err)
	if err != nil {
		monitoring.GatewayPolls.WithLabelValues(g.Name(), "error").Inc()
		return GatewayStatusUnknown, err
	}
	status := paynowStatus(reply.Get("status"))
	monitoring.GatewayPolls.WithLabelValues(g.Name(), string(status)).Inc()
	return status, nil
}

// ParseNotification reads the url-encoded status update Paynow posts to the
// result URL.
func (g *PaynowGateway) ParseNotification(body []byte) (string, GatewayStatus, error) {
	values, err := verifyPaynowReply(strings.TrimSpace(string(body)), g.cfg.IntegrationKey)
	if err != nil {
		return "", GatewayStatusUnknown, errBadSignature
	}
	if values.Get("hash") == "" {
		return "", GatewayStatusUnknown, errBadSignature
	}
	pollURL := values.Get("pollurl")
	if pollURL == "" {
		return "", GatewayStatusUnknown, errors.New("paynow notification without pollurl")
	}
	return pollURL, paynowStatus(values.Get("status")), nil
}

func paynowStatus(s string) GatewayStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "awaiting delivery", "delivered":
		return GatewayStatusPaid
	case "created":
		return GatewayStatusCreated
	case "sent":
		return GatewayStatusSent
	case "cancelled", "failed", "disputed", "refunded":
		return GatewayStatusCancelled
	}
	return GatewayStatusUnknown
}

const midtransPollPrefix = "midtrans:"

// MidtransGateway uses Snap for checkout and the Core API for status checks.
// Midtrans has no poll URL, so one is synthesized from the order id.
type MidtransGateway struct {
	snap      snap.Client
	core      coreapi.Client
	serverKey string
}

func NewMidtransGateway(cfg config.MidtransConfig) *MidtransGateway {
	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}
	g := &MidtransGateway{serverKey: cfg.ServerKey}
	g.snap.New(cfg.ServerKey, env)
	g.core.New(cfg.ServerKey, env)
	return g
}

func (g *MidtransGateway) Name() string { return "midtrans" }

func (g *MidtransGateway) Initiate(ctx context.Context, in InitiateRequest) (*InitiateResult, error) {
	_, end := tracing.StartSpan(ctx, "midtrans.initiate", attribute.String("payment.reference", in.Reference))

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  in.Reference,
			GrossAmt: in.Amount.Round(0).IntPart(),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: in.Email,
			Phone: in.Phone,
		},
	}
	resp, mErr := g.snap.CreateTransaction(req)
	if mErr != nil {
		err := fmt.Errorf("midtrans snap: %s", mErr.GetMessage())
		end(err)
		return nil, err
	}
	end(nil)
	return &InitiateResult{
		PollURL:     midtransPollPrefix + in.Reference,
		RedirectURL: resp.RedirectURL,
	}, nil
}

func (g *MidtransGateway) Poll(ctx context.Context, pollURL string) (GatewayStatus, error) {
	_, end := tracing.StartSpan(ctx, "midtrans.poll")
	orderID := strings.TrimPrefix(pollURL, midtransPollPrefix)

	resp, mErr := g.core.CheckTransaction(orderID)
	if mErr != nil {
		err := fmt.Errorf("midtrans status: %s", mErr.GetMessage())
		end(err)
		monitoring.GatewayPolls.WithLabelValues(g.Name(), "error").Inc()
		return GatewayStatusUnknown, err
	}
	end(nil)

	status := midtransStatus(resp.TransactionStatus)
	monitoring.GatewayPolls.WithLabelValues(g.Name(), string(status)).Inc()
	logger.Log.Debug("midtrans transaction status",
		zap.String("orderId", orderID),
		zap.String("status", resp.TransactionStatus),
	)
	return status, nil
}

// ParseNotification checks the HTTP notification signature,
// sha512(order_id + status_code + gross_amount + server key).
func (g *MidtransGateway) ParseNotification(body []byte) (string, GatewayStatus, error) {
	var n coreapi.TransactionStatusResponse
	if err := json.Unmarshal(body, &n); err != nil {
		return "", GatewayStatusUnknown, err
	}
	if n.OrderID == "" {
		return "", GatewayStatusUnknown, errors.New("midtrans notification without order_id")
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + g.serverKey))
	if !strings.EqualFold(hex.EncodeToString(sum[:]), n.SignatureKey) {
		return "", GatewayStatusUnknown, errBadSignature
	}
	return midtransPollPrefix + n.OrderID, midtransStatus(n.TransactionStatus), nil
}

func midtransStatus(s string) GatewayStatus {
	switch s {
	case "settlement", "capture":
		return GatewayStatusPaid
	case "pending":
		return GatewayStatusSent
	case "authorize":
		return GatewayStatusCreated
	case "cancel", "deny", "expire", "failure":
		return GatewayStatusCancelled
	}
	return GatewayStatusUnknown
}
