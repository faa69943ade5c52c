package payos

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:     baseURL,
		ClientID:    "client",
		APIKey:      "key",
		ChecksumKey: "checksum",
		ReturnURL:   "https://shop.test/return",
		CancelURL:   "https://shop.test/cancel",
		Timeout:     time.Second,
	}, zap.NewNop())
}

func TestCreatePaymentLink(t *testing.T) {
	var got PaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payment-requests", r.URL.Path)
		assert.Equal(t, "client", r.Header.Get("x-client-id"))
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "00",
			"desc": "success",
			"data": map[string]any{
				"orderCode":   got.OrderCode,
				"amount":      got.Amount,
				"checkoutUrl": "https://pay.test/checkout",
				"qrCode":      "QRDATA",
				"status":      "PENDING",
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	link, err := c.CreatePaymentLink(context.Background(), PaymentRequest{
		OrderCode:   123456,
		Amount:      200000,
		Description: "ABCD2345",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://pay.test/checkout", link.CheckoutURL)
	assert.Equal(t, "QRDATA", link.QRCode)
	assert.Equal(t, "https://shop.test/return", got.ReturnURL)
	assert.Equal(t, c.sign("amount=200000&cancelUrl=https://shop.test/cancel&description=ABCD2345&orderCode=123456&returnUrl=https://shop.test/return"), got.Signature)
}

func TestCreatePaymentLink_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"231","desc":"order code already exists","data":null}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreatePaymentLink(context.Background(), PaymentRequest{OrderCode: 1, Amount: 1})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestCreatePaymentLink_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).CreatePaymentLink(context.Background(), PaymentRequest{OrderCode: 1, Amount: 1})
	assert.Error(t, err)
}

func TestVerifyWebhook(t *testing.T) {
	c := newTestClient("http://unused")
	data := WebhookData{OrderCode: 123, Amount: 200000, Status: "PAID", Code: "00", Desc: "success"}

	sig, err := c.SignWebhook(data)
	require.NoError(t, err)

	assert.NoError(t, c.VerifyWebhook(&Webhook{Code: "00", Success: true, Data: data, Signature: sig}))

	tampered := data
	tampered.Amount = 1
	assert.ErrorIs(t, c.VerifyWebhook(&Webhook{Data: tampered, Signature: sig}), ErrInvalidSignature)
}

// providerWebhook is a delivery as the provider posts it: more data fields than
// WebhookData declares, empty strings and a null.
const providerWebhook = `{
  "code": "00",
  "desc": "success",
  "success": true,
  "data": {
    "orderCode": 123,
    "amount": 3000,
    "description": "VQRIO123",
    "accountNumber": "12345678",
    "reference": "TF230204212323",
    "transactionDateTime": "2023-02-04 18:25:00",
    "currency": "VND",
    "paymentLinkId": "124c33293c43417ab7879e14c8d9eb18",
    "code": "00",
    "desc": "success",
    "counterAccountBankId": null,
    "counterAccountBankName": "",
    "counterAccountName": "",
    "counterAccountNumber": "",
    "virtualAccountName": "",
    "virtualAccountNumber": ""
  },
  "signature": "%s"
}`

const providerCanonical = "accountNumber=12345678&amount=3000&code=00&counterAccountBankId=" +
	"&counterAccountBankName=&counterAccountName=&counterAccountNumber=&currency=VND&desc=success" +
	"&description=VQRIO123&orderCode=123&paymentLinkId=124c33293c43417ab7879e14c8d9eb18" +
	"&reference=TF230204212323&transactionDateTime=2023-02-04 18:25:00" +
	"&virtualAccountName=&virtualAccountNumber="

func hmacHex(key, payload string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook_ProviderPayload(t *testing.T) {
	c := newTestClient("http://unused")
	sig := hmacHex("checksum", providerCanonical)

	var w Webhook
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(providerWebhook, sig)), &w))

	assert.Equal(t, int64(123), w.Data.OrderCode)
	assert.Equal(t, int64(3000), w.Data.Amount)
	assert.True(t, w.Paid())
	assert.NoError(t, c.VerifyWebhook(&w))

	canonical, err := canonicalData(w.RawData)
	require.NoError(t, err)
	assert.Equal(t, providerCanonical, canonical)
}

func TestVerifyWebhook_ProviderPayloadTampered(t *testing.T) {
	c := newTestClient("http://unused")
	sig := hmacHex("checksum", providerCanonical)

	var w Webhook
	body := strings.Replace(fmt.Sprintf(providerWebhook, sig), `"currency": "VND"`, `"currency": "USD"`, 1)
	require.NoError(t, json.Unmarshal([]byte(body), &w))

	assert.ErrorIs(t, c.VerifyWebhook(&w), ErrInvalidSignature)
}

func TestVerifyWebhook_NoChecksumKey(t *testing.T) {
	c := NewClient(Config{}, zap.NewNop())
	assert.NoError(t, c.VerifyWebhook(&Webhook{Signature: "anything"}))
}

func TestCanonicalData_SortedKeys(t *testing.T) {
	s, err := canonicalData(WebhookData{OrderCode: 7, Amount: 10, Code: "00"})
	require.NoError(t, err)
	assert.Equal(t, "amount=10&code=00&orderCode=7", s)
}

func TestWebhookPaid(t *testing.T) {
	tests := []struct {
		name string
		w    Webhook
		want bool
	}{
		{"paid", Webhook{Code: "00", Success: true, Data: WebhookData{Status: "PAID"}}, true},
		{"no status", Webhook{Code: "00", Success: true}, true},
		{"not success", Webhook{Code: "00", Success: false}, false},
		{"error code", Webhook{Code: "01", Success: true}, false},
		{"cancelled", Webhook{Code: "00", Success: true, Data: WebhookData{Status: "CANCELLED"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.Paid())
		})
	}
}
