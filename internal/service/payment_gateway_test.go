package service

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIntegrationKey = "3e9fed89-60e1-4ce5-ab6e-6b1eb2d4f977"

// signedReply builds a Paynow style reply with the hash appended last.
func signedReply(fields ...formField) string {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		parts = append(parts, f.key+"="+url.QueryEscape(f.value))
	}
	parts = append(parts, "hash="+paynowHash(fields, testIntegrationKey))
	return strings.Join(parts, "&")
}

func TestPaynowHash(t *testing.T) {
	fields := []formField{{"id", "1201"}, {"reference", "TEST REF"}, {"amount", "99.99"}}
	sum := sha512.Sum512([]byte("1201TEST REF99.99" + testIntegrationKey))

	assert.Equal(t, strings.ToUpper(hex.EncodeToString(sum[:])), paynowHash(fields, testIntegrationKey))
}

func TestVerifyPaynowReply(t *testing.T) {
	raw := signedReply(formField{"status", "Ok"}, formField{"pollurl", "https://www.paynow.co.zw/Interface/CheckPayment/?guid=abc"})

	values, err := verifyPaynowReply(raw, testIntegrationKey)
	require.NoError(t, err)
	assert.Equal(t, "Ok", values.Get("status"))

	_, err = verifyPaynowReply(raw, "wrong-key")
	assert.Error(t, err)

	tampered := strings.Replace(raw, "status=Ok", "status=Paid", 1)
	_, err = verifyPaynowReply(tampered, testIntegrationKey)
	assert.Error(t, err)

	// error replies carry no hash
	values, err = verifyPaynowReply("status=Error&error=Invalid+amount", testIntegrationKey)
	require.NoError(t, err)
	assert.Equal(t, "Invalid amount", values.Get("error"))
}

func TestPaynowStatus(t *testing.T) {
	cases := map[string]GatewayStatus{
		"Paid":              GatewayStatusPaid,
		"Awaiting Delivery": GatewayStatusPaid,
		"Created":           GatewayStatusCreated,
		"Sent":              GatewayStatusSent,
		"Cancelled":         GatewayStatusCancelled,
		"Disputed":          GatewayStatusCancelled,
		"whatever":          GatewayStatusUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, paynowStatus(in), in)
	}
}

func TestParseGatewayStatus(t *testing.T) {
	assert.Equal(t, GatewayStatusPaid, ParseGatewayStatus(" PAID "))
	assert.Equal(t, GatewayStatusCancelled, ParseGatewayStatus("failed"))
	assert.Equal(t, GatewayStatusSent, ParseGatewayStatus("sent"))
	assert.Equal(t, GatewayStatusUnknown, ParseGatewayStatus("settled"))
}

func newTestPaynow(baseURL string) *PaynowGateway {
	return NewPaynowGateway(config.PaynowConfig{
		IntegrationID:  "1201",
		IntegrationKey: testIntegrationKey,
		BaseURL:        baseURL,
		ReturnURL:      "https://app.test/return",
		ResultURL:      "https://api.test/api/v1/payments/webhook",
	})
}

func TestPaynowInitiateMobile(t *testing.T) {
	var gotPath string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_, _ = w.Write([]byte(signedReply(
			formField{"status", "Ok"},
			formField{"browserurl", "https://www.paynow.co.zw/Payment/ConfirmPayment/1"},
			formField{"pollurl", "https://www.paynow.co.zw/Interface/CheckPayment/?guid=1"},
		)))
	}))
	defer srv.Close()

	gw := newTestPaynow(srv.URL)
	res, err := gw.Initiate(t.Context(), InitiateRequest{
		Reference: "PAY-1",
		Amount:    dec("12.5"),
		Email:     "student@example.com",
		Phone:     "0771111111",
		Method:    model.MethodInnBucks,
	})
	require.NoError(t, err)
	assert.Equal(t, "/remotetransaction", gotPath)
	assert.Equal(t, "innbucks", gotForm.Get("method"))
	assert.Equal(t, "12.50", gotForm.Get("amount"))
	assert.NotEmpty(t, gotForm.Get("hash"))
	assert.Equal(t, "https://www.paynow.co.zw/Interface/CheckPayment/?guid=1", res.PollURL)
	assert.Equal(t, "https://www.paynow.co.zw/Payment/ConfirmPayment/1", res.RedirectURL)
}

func TestPaynowInitiateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("status=Error&error=Invalid+Id."))
	}))
	defer srv.Close()

	_, err := newTestPaynow(srv.URL).Initiate(t.Context(), InitiateRequest{Reference: "PAY-2", Amount: dec("1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Id.")
}

func TestPaynowPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/paid":
			_, _ = w.Write([]byte(signedReply(formField{"reference", "PAY-3"}, formField{"status", "Paid"})))
		case "/forged":
			_, _ = w.Write([]byte("reference=PAY-3&status=Paid&hash=ABC"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	gw := newTestPaynow(srv.URL)

	status, err := gw.Poll(t.Context(), srv.URL+"/paid")
	require.NoError(t, err)
	assert.Equal(t, GatewayStatusPaid, status)

	_, err = gw.Poll(t.Context(), srv.URL+"/forged")
	assert.Error(t, err)

	_, err = gw.Poll(t.Context(), srv.URL+"/down")
	assert.Error(t, err)
}

func TestPaynowParseNotification(t *testing.T) {
	gw := newTestPaynow("http://unused")
	body := signedReply(
		formField{"reference", "PAY-4"},
		formField{"amount", "10.00"},
		formField{"pollurl", "https://www.paynow.co.zw/Interface/CheckPayment/?guid=4"},
		formField{"status", "Cancelled"},
	)

	pollURL, status, err := gw.ParseNotification([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "https://www.paynow.co.zw/Interface/CheckPayment/?guid=4", pollURL)
	assert.Equal(t, GatewayStatusCancelled, status)

	_, _, err = gw.ParseNotification([]byte("reference=PAY-4&status=Paid"))
	assert.ErrorIs(t, err, util.ErrUnauthenticated)

	_, _, err = gw.ParseNotification([]byte(strings.Replace(body, "Cancelled", "Paid", 1)))
	assert.ErrorIs(t, err, util.ErrUnauthenticated)
}

func TestMidtransParseNotification(t *testing.T) {
	gw := NewMidtransGateway(config.MidtransConfig{ServerKey: "SB-Mid-server-test"})
	sum := sha512.Sum512([]byte("PAY-5" + "200" + "15000.00" + "SB-Mid-server-test"))
	payload := map[string]string{
		"order_id":           "PAY-5",
		"status_code":        "200",
		"gross_amount":       "15000.00",
		"transaction_status": "settlement",
		"signature_key":      hex.EncodeToString(sum[:]),
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	pollURL, status, err := gw.ParseNotification(body)
	require.NoError(t, err)
	assert.Equal(t, "midtrans:PAY-5", pollURL)
	assert.Equal(t, GatewayStatusPaid, status)

	payload["gross_amount"] = "1.00"
	body, err = json.Marshal(payload)
	require.NoError(t, err)
	_, _, err = gw.ParseNotification(body)
	assert.ErrorIs(t, err, util.ErrUnauthenticated)

	_, _, err = gw.ParseNotification([]byte(`{"transaction_status":"settlement"}`))
	assert.Error(t, err)
}

func TestMidtransStatus(t *testing.T) {
	assert.Equal(t, GatewayStatusPaid, midtransStatus("capture"))
	assert.Equal(t, GatewayStatusSent, midtransStatus("pending"))
	assert.Equal(t, GatewayStatusCancelled, midtransStatus("expire"))
	assert.Equal(t, GatewayStatusUnknown, midtransStatus("refund"))
}
