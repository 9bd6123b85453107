package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cimillas/rentbook/internal/domain"
)

const (
	defaultTimeout = 5 * time.Second

	// Webhook signatures older than this are rejected to limit replay.
	signatureTolerance = 5 * time.Minute
)

// Client talks to a REST payment provider and verifies its webhooks.
// It implements both PaymentGateway and PayoutProvider.
type Client struct {
	baseURL       string
	webhookSecret []byte
	httpClient    *http.Client
	now           func() time.Time
}

type ClientOption func(*Client)

// WithTimeout overrides the per-call HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithNow overrides the time source used for signature tolerance checks.
func WithNow(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(baseURL, webhookSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		webhookSecret: []byte(webhookSecret),
		httpClient:    &http.Client{Timeout: defaultTimeout},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createSessionRequest struct {
	Reference   string            `json:"reference"`
	Description string            `json:"description"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

func (c *Client) CreateSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	var resp createSessionResponse
	err := c.post(ctx, "/v1/checkout/sessions", createSessionRequest{
		Reference:   in.Reference,
		Description: in.Description,
		Amount:      in.AmountCents,
		Currency:    in.Currency,
		SuccessURL:  in.SuccessURL,
		CancelURL:   in.CancelURL,
		Metadata:    in.Metadata,
	}, &resp)
	if err != nil {
		return Session{}, err
	}
	if resp.SessionID == "" {
		return Session{}, fmt.Errorf("gateway returned empty session id")
	}
	return Session{ID: resp.SessionID, URL: resp.URL}, nil
}

type retrieveSessionResponse struct {
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
}

func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (SessionStatus, error) {
	var resp retrieveSessionResponse
	if err := c.get(ctx, "/v1/checkout/sessions/"+sessionID, &resp); err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{
		PaymentStatus:    resp.PaymentStatus,
		AmountTotalCents: resp.AmountTotal,
	}, nil
}

type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID   string `json:"session_id"`
		AmountTotal int64  `json:"amount_total"`
	} `json:"data"`
}

// VerifyWebhookSignature checks the "t=<unix>,v1=<hex hmac>" signature header
// against the shared secret before trusting the payload. The signed message
// is "<t>.<raw body>" with HMAC-SHA256.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signatureHeader string) (Event, error) {
	ts, sig, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return Event{}, domain.ErrInvalidSignature
	}

	age := c.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return Event{}, domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, c.webhookSecret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return Event{}, domain.ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return Event{}, fmt.Errorf("decode webhook payload: %w", err)
	}
	return Event{
		ID:               payload.ID,
		Type:             payload.Type,
		SessionID:        payload.Data.SessionID,
		AmountTotalCents: payload.Data.AmountTotal,
	}, nil
}

// SignPayload produces the signature header for a raw body at time t. The
// provider does the same on its side; tests and local tooling use this.
func (c *Client) SignPayload(rawBody []byte, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	mac := hmac.New(sha256.New, c.webhookSecret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts int64, sig []byte, err error) {
	var tsPart, sigPart string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			tsPart = value
		case "v1":
			sigPart = value
		}
	}
	if tsPart == "" || sigPart == "" {
		return 0, nil, errors.New("missing signature components")
	}
	ts, err = strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, nil, err
	}
	sig, err = hex.DecodeString(sigPart)
	if err != nil {
		return 0, nil, err
	}
	return ts, sig, nil
}

type transferRequest struct {
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Method      string `json:"method"`
	Destination string `json:"destination"`
}

type transferResponse struct {
	TransferID string `json:"transfer_id"`
}

func (c *Client) Transfer(ctx context.Context, in TransferInput) (TransferAck, error) {
	var resp transferResponse
	if err := c.post(ctx, "/v1/transfers", transferRequest{
		Reference:   in.Reference,
		Amount:      in.AmountCents,
		Method:      in.Method,
		Destination: in.Destination,
	}, &resp); err != nil {
		return TransferAck{}, err
	}
	return TransferAck{TransferID: resp.TransferID}, nil
}

type refundRequest struct {
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

func (c *Client) Refund(ctx context.Context, in RefundInput) error {
	return c.post(ctx, "/v1/refunds", refundRequest{
		SessionID: in.SessionID,
		Amount:    in.AmountCents,
		Reason:    in.Reason,
	}, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return domain.ErrGatewayUnavailable
		}
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.ErrGatewayUnavailable
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
