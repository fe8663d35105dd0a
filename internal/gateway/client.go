package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/models"
	"go.uber.org/zap"
)

// StatusSuccess is the gateway's business-level success marker.
const StatusSuccess = "Success"

// Response is the decoded gateway reply body. Fields beyond these are
// ignored; the raw body is kept on the transaction for audit.
type Response struct {
	Status    string `json:"Status"`
	Address   string `json:"Address"`
	ErrorCode string `json:"ErrorCode"`
}

// WithdrawResult carries the transport status plus the decoded body.
// Body is nil when the reply could not be decoded; callers map that to
// a gateway error, never to success.
type WithdrawResult struct {
	StatusCode int
	Body       *Response
}

// Gateway is the narrow interface the state machine calls during
// acceptance. Kept small so the held-lock network call can be mocked
// and timed out independently.
type Gateway interface {
	// GetAddress requests a deposit address for an external identifier.
	// Returns "" without error on business-level refusal; an error only
	// for connectivity or parse failures. Both mean "try later".
	GetAddress(ctx context.Context, ext, currency string, amount float64) (string, error)

	// Withdraw submits a withdrawal for the transaction. The RequestId
	// equals the transaction id so duplicates are detectable gateway-side.
	// An error is returned only for transport failures.
	Withdraw(ctx context.Context, tx *models.Transaction) (*WithdrawResult, error)
}

// Client talks to a BitHide-style payment gateway over HTTP.
type Client struct {
	baseURL     string
	publicKey   string
	callbackURL string
	http        *http.Client
}

// NewClient creates a gateway client. The timeout bounds every call,
// including those made while a transaction row lock is held.
func NewClient(baseURL, publicKey, callbackURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		publicKey:   publicKey,
		callbackURL: callbackURL,
		http:        &http.Client{Timeout: timeout},
	}
}

type addressRequest struct {
	ExternalID     string  `json:"ExternalId"`
	Currency       string  `json:"Currency"`
	New            bool    `json:"New"`
	ExpectedAmount float64 `json:"ExpectedAmount"`
	AdditionalInfo string  `json:"AdditionalInfo"`
	CallbackLink   string  `json:"CallbackLink"`
	PublicKey      string  `json:"PublicKey"`
}

type withdrawRequest struct {
	RequestID          string  `json:"RequestId"`
	Currency           string  `json:"Currency"`
	Amount             float64 `json:"Amount"`
	SourceAddress      string  `json:"SourceAddress"`
	DestinationAddress string  `json:"DestinationAddress"`
	AdditionalInfo     string  `json:"AdditionalInfo"`
	CallbackLink       string  `json:"CallbackLink"`
	IsSenderCommision  bool    `json:"IsSenderCommision"`
	Comment            string  `json:"Comment"`
	PublicKey          string  `json:"PublicKey"`
}

// GetAddress implements Gateway.
func (c *Client) GetAddress(ctx context.Context, ext, currency string, amount float64) (string, error) {
	req := addressRequest{
		ExternalID:     ext,
		Currency:       currency,
		New:            false,
		ExpectedAmount: amount,
		CallbackLink:   c.callbackURL,
		PublicKey:      c.publicKey,
	}
	zap.L().Info("gateway get_address",
		zap.String("ext", ext),
		zap.String("currency", currency),
		zap.Float64("amount", amount),
	)

	status, body, err := c.post(ctx, "/Address/GetAddress", req)
	if err != nil {
		return "", err
	}
	if status == http.StatusOK && body != nil && body.Status == StatusSuccess {
		return body.Address, nil
	}
	return "", nil
}

// Withdraw implements Gateway.
func (c *Client) Withdraw(ctx context.Context, tx *models.Transaction) (*WithdrawResult, error) {
	req := withdrawRequest{
		RequestID:         strconv.FormatInt(tx.ID, 10),
		Currency:          tx.Currency,
		Amount:            domain.NewMoney(tx.Amount, tx.Currency).Float(),
		CallbackLink:      c.callbackURL,
		IsSenderCommision: true,
		PublicKey:         c.publicKey,
	}
	if tx.PayoutSrcAddress != nil {
		req.SourceAddress = *tx.PayoutSrcAddress
	}
	if tx.PayoutDstAddress != nil {
		req.DestinationAddress = *tx.PayoutDstAddress
	}
	if tx.Ext != nil {
		req.AdditionalInfo = tx.Ext.Ext
		req.Comment = "payout: " + tx.Ext.Ext
	}
	zap.L().Info("gateway withdraw",
		zap.Int64("tx_id", tx.ID),
		zap.String("currency", tx.Currency),
		zap.Int64("amount_micros", tx.Amount),
	)

	status, body, err := c.post(ctx, "/Transaction/Withdraw", req)
	if err != nil {
		return nil, err
	}
	return &WithdrawResult{StatusCode: status, Body: body}, nil
}

// post sends a JSON request and decodes the reply best-effort. A nil
// Response with a nil error means the body was not valid JSON.
func (c *Client) post(ctx context.Context, path string, payload any) (int, *Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		zap.L().Warn("gateway reply not decodable", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return resp.StatusCode, nil, nil
	}
	zap.L().Debug("gateway reply", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("gw_status", body.Status))
	return resp.StatusCode, &body, nil
}
