package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidSignature = errors.New("payos: invalid signature")
	ErrRejected         = errors.New("payos: request rejected")
)

// SuccessCode is the code the provider uses for accepted requests and paid transactions.
const SuccessCode = "00"

type Config struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	ReturnURL   string
	CancelURL   string
	Timeout     time.Duration
}

type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// PaymentRequest is the hosted checkout intent sent to the provider.
type PaymentRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Items       []Item `json:"items,omitempty"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	ExpiredAt   int64  `json:"expiredAt,omitempty"`
	Signature   string `json:"signature"`
}

type PaymentLink struct {
	PaymentLinkID string `json:"paymentLinkId"`
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
}

type envelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// Webhook is the asynchronous payment result posted by the provider.
// RawData keeps the data object exactly as received; the signature covers all of its fields.
type Webhook struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      WebhookData     `json:"data"`
	Signature string          `json:"signature"`
	RawData   json.RawMessage `json:"-"`
}

func (w *Webhook) UnmarshalJSON(b []byte) error {
	type plain Webhook
	var aux struct {
		plain
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*w = Webhook(aux.plain)
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(aux.Data, &w.Data); err != nil {
		return fmt.Errorf("decode webhook data: %w", err)
	}
	w.RawData = append(json.RawMessage(nil), aux.Data...)
	return nil
}

type WebhookData struct {
	OrderCode           int64  `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Status              string `json:"status,omitempty"`
	Description         string `json:"description,omitempty"`
	Reference           string `json:"reference,omitempty"`
	TransactionDateTime string `json:"transactionDateTime,omitempty"`
	PaymentLinkID       string `json:"paymentLinkId,omitempty"`
	Code                string `json:"code,omitempty"`
	Desc                string `json:"desc,omitempty"`
}

// Paid reports whether the delivery announces a completed payment.
func (w *Webhook) Paid() bool {
	if w.Code != SuccessCode || !w.Success {
		return false
	}
	return w.Data.Status == "" || strings.EqualFold(w.Data.Status, "PAID")
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.With(zap.String("component", "payos")),
	}
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.ChecksumKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePaymentLink signs the request and asks the provider for a checkout page.
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentRequest) (*PaymentLink, error) {
	if req.ReturnURL == "" {
		req.ReturnURL = c.cfg.ReturnURL
	}
	if req.CancelURL == "" {
		req.CancelURL = c.cfg.CancelURL
	}
	req.Signature = c.sign(fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.cfg.ClientID)
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error("Payment link request failed", zap.Error(err), zap.Int64("order_code", req.OrderCode))
		return nil, fmt.Errorf("call payment provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode provider response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || env.Code != SuccessCode {
		c.log.Warn("Payment link rejected",
			zap.Int("http_status", resp.StatusCode),
			zap.String("code", env.Code),
			zap.String("desc", env.Desc),
		)
		return nil, fmt.Errorf("%w: code %s: %s", ErrRejected, env.Code, env.Desc)
	}

	var link PaymentLink
	if err := json.Unmarshal(env.Data, &link); err != nil {
		return nil, fmt.Errorf("decode payment link: %w", err)
	}

	return &link, nil
}

// VerifyWebhook checks the HMAC over the data object's fields sorted by key.
// It is a no-op when no checksum key is configured.
func (c *Client) VerifyWebhook(w *Webhook) error {
	if c.cfg.ChecksumKey == "" {
		return nil
	}

	var data any = w.Data
	if len(w.RawData) > 0 {
		data = w.RawData
	}
	payload, err := canonicalData(data)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(c.sign(payload)), []byte(strings.ToLower(w.Signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// SignWebhook computes the signature the provider would attach to data,
// either a WebhookData or the raw data object.
func (c *Client) SignWebhook(data any) (string, error) {
	payload, err := canonicalData(data)
	if err != nil {
		return "", err
	}
	return c.sign(payload), nil
}

// canonicalData renders every field of the data object as key=value joined by &,
// keys sorted, null as the empty string.
func canonicalData(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal webhook data: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	fields := map[string]any{}
	if err := dec.Decode(&fields); err != nil {
		return "", fmt.Errorf("decode webhook data: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := fieldValue(fields[k])
		if err != nil {
			return "", fmt.Errorf("render webhook field %s: %w", k, err)
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "&"), nil
}

func fieldValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return fmt.Sprint(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
